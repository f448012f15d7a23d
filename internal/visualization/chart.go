package visualization

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/IrisYanfGuo/exam/internal/store"
)

// Series is one named line of a reward chart, indexed by step.
type Series struct {
	Name   string
	Values []float64
}

// RewardChart builds a line chart of series over steps 1..n, where n is the
// longest series.
func RewardChart(title, subtitle string, series ...Series) (*charts.Line, error) {
	if len(series) == 0 {
		return nil, errors.New("no series to plot")
	}

	steps := 0
	for _, s := range series {
		steps = max(steps, len(s.Values))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reward"}),
	)

	labels := make([]string, steps)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	line.SetXAxis(labels)

	for _, s := range series {
		items := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			items[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Name, items)
	}

	return line, nil
}

// RenderRewardChart writes an HTML page with a line chart of series.
func RenderRewardChart(w io.Writer, title string, series ...Series) error {
	line, err := RewardChart(title, "", series...)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// RunSeries returns the mean curve of run with its one-standard-deviation
// band.
func RunSeries(run *store.Run) []Series {
	upper := make([]float64, len(run.Mean))
	lower := make([]float64, len(run.Mean))
	for i, m := range run.Mean {
		var sd float64
		if i < len(run.StdDev) {
			sd = run.StdDev[i]
		}
		upper[i] = m + sd
		lower[i] = m - sd
	}
	return []Series{
		{Name: "mean", Values: run.Mean},
		{Name: "mean+sd", Values: upper},
		{Name: "mean-sd", Values: lower},
	}
}

// RenderRunChart writes an HTML page charting run's averaged reward curve.
func RenderRunChart(w io.Writer, run *store.Run) error {
	title := run.Name
	if title == "" {
		title = run.ID
	}
	subtitle := fmt.Sprintf("%d agents, %d actions, alpha=%g, %d trials", run.Agents, run.Actions, run.Alpha, run.Trials)

	line, err := RewardChart(title, subtitle, RunSeries(run)...)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
