package main

import (
	"fmt"

	"github.com/IrisYanfGuo/exam/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the agent dependency graph",
		Long: `Output the configured agent graph in DOT (Graphviz) or JSON format.

Each agent is labelled with the shape of its value table.

Examples:
  ljal graph | dot -Tpng > graph.png
  ljal graph --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				format = string(visualization.FormatJSON)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			g, err := cfg.BuildGraph()
			if err != nil {
				return err
			}

			switch visualization.Format(format) {
			case visualization.FormatDOT:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(g, cfg.Learner.Actions))
			case visualization.FormatJSON:
				return writeJSON(cmd, visualization.RenderJSON(g, cfg.Learner.Actions))
			default:
				return fmt.Errorf("unsupported format %q (use 'dot' or 'json')", format)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot or json")

	return cmd
}
