package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/theflapjack/fa-report/internal/app"
	"github.com/theflapjack/fa-report/internal/common"
	"github.com/theflapjack/fa-report/internal/config"
	"github.com/theflapjack/fa-report/internal/report"
)

// reportCmd fetches one portfolio's transactions and writes a CSV report.
type reportCmd struct {
	name   string
	pretty bool

	configFile string
	portfolio  string
	start      string
	end        string
	currency   string
	output     string
	verbose    bool
}

func (c *reportCmd) Name() string { return c.name }

func (c *reportCmd) Synopsis() string {
	if c.pretty {
		return "write the human-readable transaction report with a cash-flow summary"
	}
	return "write the raw transaction CSV"
}

func (c *reportCmd) Usage() string {
	return fmt.Sprintf(`fa-report-cli %s -portfolio <id> [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-currency USD] [-o file]

  Fetches the portfolio's transactions from the data API and writes the report
  to stdout, or to the file named by -o.
`, c.name)
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "config", "", "Configuration file path (defaults to auto-discovery)")
	f.StringVar(&c.portfolio, "portfolio", "", "Portfolio id (required)")
	f.StringVar(&c.start, "start", "", "Start date, inclusive")
	f.StringVar(&c.end, "end", "", "End date, inclusive")
	f.StringVar(&c.currency, "currency", report.DefaultCurrency, "Target currency")
	f.StringVar(&c.output, "o", "", "Output file (defaults to stdout)")
	f.BoolVar(&c.verbose, "v", false, "Log at debug level")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, err := report.NewRequest(c.portfolio, c.start, c.end, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	cfg, err := loadConfig(c.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger := common.NewLogger(level)

	core, err := app.NewCore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	csv, err := core.Reports.Generate(ctx, req, c.pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := c.write(csv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", c.output)
	}
	return subcommands.ExitSuccess
}

func (c *reportCmd) write(csv string) error {
	if c.output == "" {
		_, err := io.WriteString(os.Stdout, csv)
		return err
	}
	if err := os.WriteFile(c.output, []byte(csv), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.output, err)
	}
	return nil
}

// loadConfig loads the named file, or the auto-discovered one when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Discover()
	}
	return config.LoadFromFile(path)
}
