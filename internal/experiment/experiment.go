// Package experiment runs Monte-Carlo LJAL experiments: many independent
// learners over the same graph, their reward curves averaged per step.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/IrisYanfGuo/exam/internal/constants"
	"github.com/IrisYanfGuo/exam/internal/ljal"
	"github.com/IrisYanfGuo/exam/internal/logging"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidPlan is returned when a Plan cannot be run.
var ErrInvalidPlan = errors.New("invalid experiment plan")

// Plan describes an experiment.
type Plan struct {
	Graph       ljal.Graph
	Learner     ljal.Config
	Reward      ljal.RewardFunc
	Temperature ljal.TemperatureFunc

	// Rounds is the number of rounds each trial plays.
	Rounds int

	// Trials is the number of independent learners. Trial i is seeded
	// with Seed+i.
	Trials int
	Seed   uint64

	// Parallelism bounds the number of trials running at once.
	// 0 uses GOMAXPROCS.
	Parallelism int

	// Trace receives every round of every trial when non-nil.
	Trace *logging.RoundLogger
}

// Validate checks that the plan can be run.
func (p Plan) Validate() error {
	if p.Graph == nil {
		return fmt.Errorf("nil graph: %w", ErrInvalidPlan)
	}
	if p.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d: %w", p.Rounds, ErrInvalidPlan)
	}
	if p.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d: %w", p.Trials, ErrInvalidPlan)
	}
	if p.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative, got %d: %w", p.Parallelism, ErrInvalidPlan)
	}
	return nil
}

// Result holds the per-step reward statistics of an experiment.
type Result struct {
	// Mean and StdDev are indexed by step, across trials.
	Mean   []float64 `json:"mean"`
	StdDev []float64 `json:"stddev"`

	// FinalMean and FinalStdDev summarize each trial's average reward
	// over its last FinalWindow rounds.
	FinalMean   float64 `json:"final_mean"`
	FinalStdDev float64 `json:"final_stddev"`
	FinalWindow int     `json:"final_window"`

	Trials  int           `json:"trials"`
	Rounds  int           `json:"rounds"`
	Seed    uint64        `json:"seed"`
	Elapsed time.Duration `json:"elapsed"`
}

// Tail returns the mean of the last n step means. n is clamped to
// [1, Rounds].
func (r *Result) Tail(n int) float64 {
	if len(r.Mean) == 0 {
		return 0
	}
	n = min(max(n, 1), len(r.Mean))
	return stat.Mean(r.Mean[len(r.Mean)-n:], nil)
}

// Run executes plan.Trials learners and aggregates their reward curves.
// Aggregation happens in trial order once all trials finish, so the result
// does not depend on scheduling.
func Run(ctx context.Context, plan Plan, logger *slog.Logger) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	limit := plan.Parallelism
	if limit == 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	curves := make([][]float64, plan.Trials)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range plan.Trials {
		g.Go(func() error {
			curve, err := runTrial(gctx, plan, i, logger)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			curves[i] = curve
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := aggregate(curves, plan.Rounds)
	result.Seed = plan.Seed
	result.Elapsed = time.Since(start)

	logger.Info("experiment complete",
		"trials", result.Trials,
		"rounds", result.Rounds,
		"final_mean", result.FinalMean,
		"elapsed", result.Elapsed)

	return result, nil
}

// runTrial plays one learner for plan.Rounds rounds, checking ctx every
// constants.ProgressChunk rounds.
func runTrial(ctx context.Context, plan Plan, trial int, logger *slog.Logger) ([]float64, error) {
	l, err := ljal.NewLearner(plan.Graph, plan.Learner, ljal.NewSource(plan.Seed+uint64(trial)))
	if err != nil {
		return nil, err
	}
	l.SetReward(plan.Reward)
	l.SetTemperature(plan.Temperature)
	l.SetLogger(logger.With("trial", trial))

	curve := make([]float64, plan.Rounds)
	for step := range curve {
		if step%constants.ProgressChunk == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		l.Advance()
		curve[step] = l.LastReward()
		if plan.Trace != nil {
			plan.Trace.Log(logging.Round{
				Trial:       trial,
				Step:        l.Step(),
				Actions:     l.LastActions(),
				Reward:      l.LastReward(),
				Temperature: l.Temperature(),
			})
		}
	}

	logger.Debug("trial complete", "trial", trial, "mean_reward", stat.Mean(curve, nil))
	return curve, nil
}

// aggregate computes per-step statistics over curves, which must all have
// length rounds.
func aggregate(curves [][]float64, rounds int) *Result {
	result := &Result{
		Mean:        make([]float64, rounds),
		StdDev:      make([]float64, rounds),
		FinalWindow: max(1, rounds/10),
		Trials:      len(curves),
		Rounds:      rounds,
	}

	column := make([]float64, len(curves))
	for step := range rounds {
		for i, c := range curves {
			column[i] = c[step]
		}
		result.Mean[step], result.StdDev[step] = meanStdDev(column)
	}

	for i, c := range curves {
		column[i] = stat.Mean(c[rounds-result.FinalWindow:], nil)
	}
	result.FinalMean, result.FinalStdDev = meanStdDev(column)

	return result
}

// meanStdDev is stat.MeanStdDev with a zero deviation for a single sample.
func meanStdDev(x []float64) (mean, std float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	mean, std = stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}
