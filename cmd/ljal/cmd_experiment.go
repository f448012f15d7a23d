package main

import (
	"fmt"
	"os"
	"time"

	"github.com/IrisYanfGuo/exam/internal/config"
	"github.com/IrisYanfGuo/exam/internal/experiment"
	"github.com/IrisYanfGuo/exam/internal/logging"
	"github.com/IrisYanfGuo/exam/internal/store"
	"github.com/IrisYanfGuo/exam/internal/visualization"
	"github.com/spf13/cobra"
)

// checkpoints is the number of evenly spaced steps printed in the summary.
const checkpoints = 10

func newExperimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Average reward curves over many independent trials",
		Long: `Run independent learners in parallel and average their reward curves.

Trial i is seeded with seed+i, so results are reproducible regardless of
parallelism. Ctrl-C stops the experiment.

Examples:
  ljal experiment                                 # Configured trials and rounds
  ljal experiment --trials 50 --rounds 1000
  ljal experiment --name baseline --save          # Keep the result in the run store
  ljal experiment --chart curve.html --open       # Plot the averaged curve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			name, _ := cmd.Flags().GetString("name")
			save, _ := cmd.Flags().GetBool("save")
			chartPath, _ := cmd.Flags().GetString("chart")
			open, _ := cmd.Flags().GetBool("open")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyExperimentFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid experiment: %w", err)
			}

			g, err := cfg.BuildGraph()
			if err != nil {
				return err
			}

			trace := logging.NewRoundLogger(cfg.Store.Dir, cfg.Logging.Level)
			defer trace.Close()

			plan := experiment.Plan{
				Graph:       g,
				Learner:     cfg.LearnerConfig(),
				Reward:      cfg.RewardFunc(g),
				Temperature: cfg.TemperatureFunc(),
				Rounds:      cfg.Experiment.Rounds,
				Trials:      cfg.Experiment.Trials,
				Seed:        cfg.Experiment.Seed,
				Parallelism: cfg.Experiment.Parallelism,
				Trace:       trace,
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			result, err := experiment.Run(ctx, plan, newLogger(cmd, cfg))
			if err != nil {
				return fmt.Errorf("experiment failed: %w", err)
			}

			run := store.Run{
				Name:        name,
				Agents:      g.Len(),
				Actions:     cfg.Learner.Actions,
				Alpha:       cfg.Learner.Alpha,
				Rounds:      result.Rounds,
				Trials:      result.Trials,
				Seed:        result.Seed,
				FinalMean:   result.FinalMean,
				FinalStdDev: result.FinalStdDev,
				Mean:        result.Mean,
				StdDev:      result.StdDev,
			}

			if save {
				yamlBytes, err := cfg.Marshal()
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				run.Config = string(yamlBytes)

				rs, err := openRunStore(cfg)
				if err != nil {
					return err
				}
				defer rs.Close()

				run.ID, err = rs.SaveRun(ctx, run)
				if err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}
			}

			if chartPath != "" {
				if err := writeChart(chartPath, &run); err != nil {
					return err
				}
				if open {
					if url, err := visualization.FileURL(chartPath); err == nil {
						if err := visualization.OpenBrowser(url); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, chartPath)
						}
					}
				}
			}

			if jsonOut {
				out := map[string]interface{}{
					"result": result,
				}
				if run.ID != "" {
					out["id"] = run.ID
				}
				if chartPath != "" {
					out["chart"] = chartPath
				}
				if trace.Path() != "" {
					out["trace"] = trace.Path()
				}
				return writeJSON(cmd, out)
			}

			printExperiment(cmd, result)
			if run.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved run %s\n", run.ID)
			}
			if chartPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chartPath)
			}
			if trace.Path() != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Trace written to %s\n", trace.Path())
			}
			return nil
		},
	}

	cmd.Flags().Int("trials", 0, "Number of independent trials (default experiment.trials)")
	cmd.Flags().Int("rounds", 0, "Rounds per trial (default experiment.rounds)")
	cmd.Flags().Uint64("seed", 0, "Seed of trial 0 (default experiment.seed)")
	cmd.Flags().Int("parallelism", 0, "Maximum concurrent trials (default experiment.parallelism)")
	cmd.Flags().String("name", "", "Name for the saved run")
	cmd.Flags().Bool("save", false, "Save the result to the run store")
	cmd.Flags().String("chart", "", "Write an HTML reward chart to this path")
	cmd.Flags().Bool("open", false, "Open the chart in a browser")

	return cmd
}

// applyExperimentFlags copies explicitly set flags over cfg.Experiment.
func applyExperimentFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("trials") {
		cfg.Experiment.Trials, _ = cmd.Flags().GetInt("trials")
	}
	if cmd.Flags().Changed("rounds") {
		cfg.Experiment.Rounds, _ = cmd.Flags().GetInt("rounds")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Experiment.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if cmd.Flags().Changed("parallelism") {
		cfg.Experiment.Parallelism, _ = cmd.Flags().GetInt("parallelism")
	}
}

func writeChart(path string, run *store.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := visualization.RenderRunChart(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// printExperiment writes a summary with evenly spaced checkpoints of the
// mean curve.
func printExperiment(cmd *cobra.Command, result *experiment.Result) {
	au := palette(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%d trials x %d rounds (seed %d) in %s\n",
		result.Trials, result.Rounds, result.Seed, result.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %8s  %8s  %8s\n", "step", "mean", "stddev")
	for _, step := range checkpointSteps(result.Rounds, checkpoints) {
		m := result.Mean[step-1]
		fmt.Fprintf(out, "  %8d  %v  %8.3f\n", step, rewardColor(au, m, fmt.Sprintf("%8.3f", m)), result.StdDev[step-1])
	}
	fmt.Fprintln(out)
	final := fmt.Sprintf("%.3f ± %.3f", result.FinalMean, result.FinalStdDev)
	fmt.Fprintf(out, "Final reward (last %d rounds): %v\n", result.FinalWindow, au.Bold(rewardColor(au, result.FinalMean, final)))
}

// checkpointSteps returns up to n evenly spaced 1-based steps ending at
// rounds.
func checkpointSteps(rounds, n int) []int {
	if rounds <= n {
		steps := make([]int, rounds)
		for i := range steps {
			steps[i] = i + 1
		}
		return steps
	}
	steps := make([]int, n)
	for i := range steps {
		steps[i] = (i + 1) * rounds / n
	}
	return steps
}
