package main

import (
	"io"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// palette returns an aurora that colors only when stdout is a terminal and
// neither --no-color nor NO_COLOR is set.
func palette(cmd *cobra.Command) aurora.Aurora {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor || os.Getenv("NO_COLOR") != "" {
		return aurora.NewAurora(false)
	}
	return aurora.NewAurora(isTerminal(cmd.OutOrStdout()))
}

// rewardColor colors a reward in [0, 1]: green when high, yellow when
// middling, red when low.
func rewardColor(au aurora.Aurora, r float64, text string) aurora.Value {
	switch {
	case r >= 0.8:
		return au.Green(text)
	case r >= 0.4:
		return au.Yellow(text)
	default:
		return au.Red(text)
	}
}
