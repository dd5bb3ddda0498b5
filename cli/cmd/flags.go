// Package cmd provides CLI commands for the lintstatus binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lintstatus/cli/config"
)

// Exit codes.
const (
	exitClean   = 0
	exitConfig  = 1
	exitChannel = 2
)

// Shared flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at a lintstatus.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./" + config.DefaultFile + " when present)",
		EnvVars: []string{"LINTSTATUS_CONFIG"},
	}
)

// ReadOnlyFlags returns the shared flags for commands that only print.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// JournalFlags select a journal dataset. They override the journal section
// of the config file.
func JournalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "journal-backend",
			Usage: "Journal backend: fs, s3, or memory (empty disables the journal)",
		},
		&cli.StringFlag{
			Name:  "journal-path",
			Usage: "Journal path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "journal-dataset",
			Usage: "Journal dataset name (default: lintstatus)",
		},
		&cli.StringFlag{
			Name:  "journal-s3-region",
			Usage: "AWS region for the s3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "journal-s3-endpoint",
			Usage: "Custom S3 endpoint (e.g. MinIO)",
		},
		&cli.BoolFlag{
			Name:  "journal-s3-path-style",
			Usage: "Use path-style S3 addressing",
		},
	}
}

// loadConfig loads --config, or ./lintstatus.yaml when it exists.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadOptional(path, true)
	}
	return config.LoadOptional(config.DefaultFile, false)
}

// stringFlag returns the flag value when set on the command line or through
// its env var, and fallback otherwise.
func stringFlag(c *cli.Context, name, fallback string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return fallback
}

func boolFlag(c *cli.Context, name string, fallback bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fallback
}

func intFlag(c *cli.Context, name string, fallback int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	return fallback
}
