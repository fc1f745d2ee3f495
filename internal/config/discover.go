package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the TOML file auto-discovered when no -config flag is given.
const ConfigFileName = "fa-report.toml"

// SearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried first, with CWD and Docker fallbacks after.
// Paths are deduplicated via filepath.Abs.
func SearchPaths() []string {
	candidates := []string{
		ConfigFileName,
		filepath.Join("config", ConfigFileName),
		filepath.Join("docker", ConfigFileName),
	}

	var paths []string
	if exe, err := os.Executable(); err == nil {
		binDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(binDir, ConfigFileName),
			filepath.Join(binDir, "config", ConfigFileName),
		)
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

// Discover returns the first existing file from SearchPaths, or "" when none exists.
func Discover() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
