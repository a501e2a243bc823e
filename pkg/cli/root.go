// Package cli implements the featherbox command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/runner"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	projectDir string
	logLevel   string
}

func (o *rootOptions) logger() *slog.Logger {
	var level slog.Level
	switch o.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// service loads the project configuration and opens the metadata store.
// The caller owns the returned service and must Close it.
func (o *rootOptions) service() (*runner.Service, *config.Config, error) {
	cfg, err := config.LoadProject(o.projectDir)
	if err != nil {
		return nil, nil, err
	}
	s, err := runner.New(cfg, o.logger())
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "featherbox",
		Short:         "Lightweight ELT pipelines on DuckDB and DuckLake",
		Long:          "featherbox derives a dependency graph from YAML adapters and SQL models,\ndiffs it against the last executed graph, and runs only what changed.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.projectDir, "project", "C", ".", "Project directory")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newMigrateCmd(opts),
		newRunCmd(opts),
		newQueryCmd(opts),
		newDropCmd(opts),
		newStatusCmd(opts),
		newScheduleCmd(opts),
	)
	return rootCmd
}
