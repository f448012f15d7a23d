package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/IrisYanfGuo/exam/internal/store"
	"github.com/IrisYanfGuo/exam/internal/visualization"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse saved experiment runs",
		Long: `List, inspect, chart, export, and delete runs saved with
'ljal experiment --save'.

Runs live in <store.dir>/ljal.db.

Examples:
  ljal runs list
  ljal runs show <id>
  ljal runs chart <id> -o curve.html
  ljal runs export > runs.jsonl
  ljal runs serve`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
		newRunsChartCmd(),
		newRunsExportCmd(),
		newRunsImportCmd(),
		newRunsServeCmd(),
	)

	return cmd
}

// withRunStore loads config, opens the run store, and calls fn.
func withRunStore(cmd *cobra.Command, fn func(rs store.RunStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rs, err := openRunStore(cfg)
	if err != nil {
		return err
	}
	defer rs.Close()
	return fn(rs)
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withRunStore(cmd, func(rs store.RunStore) error {
				runs, err := rs.ListRuns(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOut {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(cmd, map[string]interface{}{
						"runs":  runs,
						"count": len(runs),
					})
				}

				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs saved. Use 'ljal experiment --save' to add one.")
					return nil
				}

				au := palette(cmd)
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCREATED\tAGENTS\tACTIONS\tTRIALS\tROUNDS\tFINAL")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%v\n",
						r.ID, valueOrDefault(r.Name, "-"), r.CreatedAt.Local().Format(time.DateTime),
						r.Agents, r.Actions, r.Trials, r.Rounds,
						rewardColor(au, r.FinalMean, fmt.Sprintf("%.3f", r.FinalMean)))
				}
				return w.Flush()
			})
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run's parameters, configuration, and curve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withRunStore(cmd, func(rs store.RunStore) error {
				run, err := rs.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, run)
				}

				au := palette(cmd)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", au.Bold(run.ID))
				fmt.Fprintf(out, "Name:     %s\n", valueOrDefault(run.Name, "-"))
				fmt.Fprintf(out, "Created:  %s\n", run.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Agents:   %d\n", run.Agents)
				fmt.Fprintf(out, "Actions:  %d\n", run.Actions)
				fmt.Fprintf(out, "Alpha:    %g\n", run.Alpha)
				fmt.Fprintf(out, "Trials:   %d x %d rounds (seed %d)\n", run.Trials, run.Rounds, run.Seed)
				final := fmt.Sprintf("%.3f ± %.3f", run.FinalMean, run.FinalStdDev)
				fmt.Fprintf(out, "Final:    %v\n", rewardColor(au, run.FinalMean, final))

				if len(run.Mean) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintf(out, "  %8s  %8s  %8s\n", "step", "mean", "stddev")
					for _, step := range checkpointSteps(len(run.Mean), checkpoints) {
						fmt.Fprintf(out, "  %8d  %8.3f  %8.3f\n", step, run.Mean[step-1], run.StdDev[step-1])
					}
				}

				if run.Config != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Configuration:")
					for _, line := range strings.Split(strings.TrimRight(run.Config, "\n"), "\n") {
						fmt.Fprintf(out, "  %s\n", line)
					}
				}
				return nil
			})
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withRunStore(cmd, func(rs store.RunStore) error {
				if err := rs.DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]string{"status": "deleted", "id": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}

func newRunsChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart <id>",
		Short: "Write an HTML reward chart for a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			open, _ := cmd.Flags().GetBool("open")

			return withRunStore(cmd, func(rs store.RunStore) error {
				run, err := rs.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if output == "" {
					output = fmt.Sprintf("ljal-%s.html", run.ID)
				}
				if err := writeChart(output, run); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", output)

				if open {
					if url, err := visualization.FileURL(output); err == nil {
						if err := visualization.OpenBrowser(url); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, output)
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default ljal-<id>.html)")
	cmd.Flags().Bool("open", false, "Open the chart in a browser")

	return cmd
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every run as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			return withRunStore(cmd, func(rs store.RunStore) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer f.Close()
					w = f
				}

				n, err := store.ExportJSONL(cmd.Context(), rs, w)
				if err != nil {
					return fmt.Errorf("export failed: %w", err)
				}
				if output != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d runs to %s\n", n, output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	return cmd
}

func newRunsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import runs from a JSON lines export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			return withRunStore(cmd, func(rs store.RunStore) error {
				n, err := store.ImportJSONL(cmd.Context(), rs, f)
				if err != nil {
					return fmt.Errorf("import failed after %d runs: %w", n, err)
				}
				if jsonOut {
					return writeJSON(cmd, map[string]int{"imported": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs\n", n)
				return nil
			})
		},
	}
}

func newRunsServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse saved runs and their charts in a local web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			return withRunStore(cmd, func(rs store.RunStore) error {
				return runServer(cmd, rs, addr, noOpen)
			})
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default an OS-assigned localhost port)")
	cmd.Flags().Bool("no-open", false, "Don't open the browser")

	return cmd
}

// runServer starts the run browser and blocks until Ctrl-C.
func runServer(cmd *cobra.Command, rs store.RunStore, addr string, noOpen bool) error {
	srv := visualization.NewServer(rs)

	srvCtx, srvCancel := signalContext(cmd.Context())
	defer srvCancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx, addr) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && srv.Addr() == "" {
		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	bound := srv.Addr()
	if bound == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + bound
	fmt.Fprintf(cmd.OutOrStdout(), "Run browser at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	// Block until server exits
	if err := <-errCh; err != nil && err != context.Canceled {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
