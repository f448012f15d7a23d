package main

import (
	"fmt"

	"github.com/IrisYanfGuo/exam/internal/ljal"
	"github.com/IrisYanfGuo/exam/internal/logging"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single learner",
		Long: `Run one learner over the configured graph and summarize its rewards.

At log level debug or trace every round is also appended to
<store.dir>/rounds.jsonl.

Examples:
  ljal run                       # Use configured rounds and seed
  ljal run --rounds 500 --seed 7
  ljal run --dump                # Print the learned tables afterwards`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dump, _ := cmd.Flags().GetBool("dump")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("rounds") {
				cfg.Experiment.Rounds, _ = cmd.Flags().GetInt("rounds")
			}
			if cmd.Flags().Changed("seed") {
				cfg.Experiment.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if cfg.Experiment.Rounds < 1 {
				return fmt.Errorf("rounds must be at least 1, got %d", cfg.Experiment.Rounds)
			}

			g, err := cfg.BuildGraph()
			if err != nil {
				return err
			}
			l, err := ljal.NewLearner(g, cfg.LearnerConfig(), ljal.NewSource(cfg.Experiment.Seed))
			if err != nil {
				return fmt.Errorf("failed to create learner: %w", err)
			}
			l.SetReward(cfg.RewardFunc(g))
			l.SetTemperature(cfg.TemperatureFunc())
			l.SetLogger(newLogger(cmd, cfg))

			trace := logging.NewRoundLogger(cfg.Store.Dir, cfg.Logging.Level)
			defer trace.Close()

			rewards := make([]float64, cfg.Experiment.Rounds)
			for i := range rewards {
				l.Advance()
				rewards[i] = l.LastReward()
				trace.Log(logging.Round{
					Step:        l.Step(),
					Actions:     l.LastActions(),
					Reward:      l.LastReward(),
					Temperature: l.Temperature(),
				})
			}

			tail := max(1, len(rewards)/10)
			mean := stat.Mean(rewards, nil)
			tailMean := stat.Mean(rewards[len(rewards)-tail:], nil)

			if jsonOut {
				result := map[string]interface{}{
					"rounds":       len(rewards),
					"seed":         cfg.Experiment.Seed,
					"agents":       l.Agents(),
					"actions":      cfg.Learner.Actions,
					"mean_reward":  mean,
					"tail_rounds":  tail,
					"tail_mean":    tailMean,
					"last_actions": l.LastActions(),
					"rewards":      rewards,
				}
				if trace.Path() != "" {
					result["trace"] = trace.Path()
				}
				return writeJSON(cmd, result)
			}

			au := palette(cmd)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ran %d rounds (seed %d, %d agents, %d actions)\n",
				len(rewards), cfg.Experiment.Seed, l.Agents(), cfg.Learner.Actions)
			fmt.Fprintf(out, "  mean reward:  %v\n", rewardColor(au, mean, fmt.Sprintf("%.3f", mean)))
			fmt.Fprintf(out, "  tail reward:  %v (last %d rounds)\n", rewardColor(au, tailMean, fmt.Sprintf("%.3f", tailMean)), tail)
			fmt.Fprintf(out, "  last actions: %v\n", l.LastActions())
			if trace.Path() != "" {
				fmt.Fprintf(out, "  trace:        %s\n", trace.Path())
			}
			if dump {
				fmt.Fprintln(out)
				fmt.Fprint(out, l.String())
			}
			return nil
		},
	}

	cmd.Flags().Int("rounds", 0, "Number of rounds (default experiment.rounds)")
	cmd.Flags().Uint64("seed", 0, "Random seed (default experiment.seed)")
	cmd.Flags().Bool("dump", false, "Print the learner state after the run")

	return cmd
}
