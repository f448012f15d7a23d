package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/IrisYanfGuo/exam/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ljal configuration",
		Long: `View and modify ljal configuration settings.

Configuration is stored in ~/.ljal/config.yaml. Environment variables
(LJAL_ROUNDS, LJAL_TRIALS, LJAL_SEED, LJAL_EV_MODE, LJAL_LOG_LEVEL,
LJAL_STORE_DIR) override the file.

Examples:
  ljal config show                          # Effective configuration
  ljal config init                          # Write the defaults
  ljal config get learner.alpha             # Get a specific setting
  ljal config set experiment.trials 50      # Set a setting`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, cfg)
			}

			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			force, _ := cmd.Flags().GetBool("force")

			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.Default().Save(path); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]string{"status": "created", "path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}

			// Start from the file alone so environment overrides are not persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				cfg, err = config.LoadFromFile(path)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// configPath returns --config if set, otherwise ~/.ljal/config.yaml.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (interface{}, bool) {
	switch key {
	case "graph.agents":
		return cfg.Graph.Agents, true
	case "graph.arcs":
		return cfg.Graph.Arcs, true
	case "learner.actions":
		return cfg.Learner.Actions, true
	case "learner.alpha":
		return cfg.Learner.Alpha, true
	case "learner.optimistic":
		return cfg.Learner.Optimistic, true
	case "learner.ev_mode":
		return cfg.Learner.EVMode, true
	case "reward.kind":
		return cfg.Reward.Kind, true
	case "reward.value":
		return cfg.Reward.Value, true
	case "temperature.start":
		return cfg.Temperature.Start, true
	case "temperature.decay":
		return cfg.Temperature.Decay, true
	case "temperature.floor":
		return cfg.Temperature.Floor, true
	case "experiment.rounds":
		return cfg.Experiment.Rounds, true
	case "experiment.trials":
		return cfg.Experiment.Trials, true
	case "experiment.seed":
		return cfg.Experiment.Seed, true
	case "experiment.parallelism":
		return cfg.Experiment.Parallelism, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "store.dir":
		return cfg.Store.Dir, true
	case "backup.retention.max_count":
		return cfg.Backup.Retention.MaxCount, true
	case "backup.retention.max_age":
		return cfg.Backup.Retention.MaxAge, true
	default:
		return nil, false
	}
}

// setConfigValue sets a scalar configuration value by dot-notation key.
// graph.arcs is edited in the file directly.
func setConfigValue(cfg *config.Config, key, value string) error {
	var err error
	switch key {
	case "graph.agents":
		cfg.Graph.Agents, err = strconv.Atoi(value)
	case "learner.actions":
		cfg.Learner.Actions, err = strconv.Atoi(value)
	case "learner.alpha":
		cfg.Learner.Alpha, err = strconv.ParseFloat(value, 64)
	case "learner.optimistic":
		cfg.Learner.Optimistic, err = strconv.ParseFloat(value, 64)
	case "learner.ev_mode":
		cfg.Learner.EVMode = value
	case "reward.kind":
		cfg.Reward.Kind = value
	case "reward.value":
		cfg.Reward.Value, err = strconv.ParseFloat(value, 64)
	case "temperature.start":
		cfg.Temperature.Start, err = strconv.ParseFloat(value, 64)
	case "temperature.decay":
		cfg.Temperature.Decay, err = strconv.ParseFloat(value, 64)
	case "temperature.floor":
		cfg.Temperature.Floor, err = strconv.ParseFloat(value, 64)
	case "experiment.rounds":
		cfg.Experiment.Rounds, err = strconv.Atoi(value)
	case "experiment.trials":
		cfg.Experiment.Trials, err = strconv.Atoi(value)
	case "experiment.seed":
		cfg.Experiment.Seed, err = strconv.ParseUint(value, 10, 64)
	case "experiment.parallelism":
		cfg.Experiment.Parallelism, err = strconv.Atoi(value)
	case "logging.level":
		cfg.Logging.Level = value
	case "store.dir":
		cfg.Store.Dir = value
	case "backup.retention.max_count":
		cfg.Backup.Retention.MaxCount, err = strconv.Atoi(value)
	case "backup.retention.max_age":
		cfg.Backup.Retention.MaxAge = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return nil
}
