package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/IrisYanfGuo/exam/internal/config"
	"github.com/IrisYanfGuo/exam/internal/logging"
	"github.com/IrisYanfGuo/exam/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ljal",
		Short: "Learning joint-action learners over agent dependency graphs",
		Long: `ljal simulates cooperative agents that learn by Boltzmann exploration.

Each agent keeps a value table over its own action and the joint action of
the agents it depends on. Run a single learner, average many trials into a
reward curve, and keep results in a local run store.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.ljal/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace")
	rootCmd.PersistentFlags().String("store-dir", "", "Run store directory (overrides store.dir)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newExperimentCmd(),
		newGraphCmd(),
		newRunsCmd(),
		newBackupCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ljal version %s (commit: %s, built: %s)\n", version, commit, date)
			}
		},
	}
}

// loadConfig loads the effective configuration: file, environment, then
// global flags. The result is validated.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if dir, _ := cmd.Flags().GetString("store-dir"); dir != "" {
		cfg.Store.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger returns an operational logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// openRunStore opens the SQLite run store under cfg.Store.Dir.
func openRunStore(cfg *config.Config) (*store.SQLiteRunStore, error) {
	rs, err := store.NewSQLiteRunStore(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return rs, nil
}

// writeJSON encodes v indented to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
