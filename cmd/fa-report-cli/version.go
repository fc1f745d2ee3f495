package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/theflapjack/fa-report/internal/config"
)

type versionCmd struct{}

func (*versionCmd) Name() string     { return "version" }
func (*versionCmd) Synopsis() string { return "print version information" }
func (*versionCmd) Usage() string {
	return `fa-report-cli version
`
}

func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Printf("fa-report %s\n", config.GetFullVersion())
	return subcommands.ExitSuccess
}
