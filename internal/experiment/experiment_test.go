package experiment

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/IrisYanfGuo/exam/internal/graph"
	"github.com/IrisYanfGuo/exam/internal/ljal"
	"github.com/IrisYanfGuo/exam/internal/logging"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.FromArcs(5, []graph.Arc{{From: 1, To: 2}, {From: 1, To: 3}})
	if err != nil {
		t.Fatalf("FromArcs error: %v", err)
	}
	return g
}

func testPlan(t *testing.T) Plan {
	g := testGraph(t)
	return Plan{
		Graph:   g,
		Learner: ljal.DefaultConfig(),
		Reward:  ljal.ColoringReward(g),
		Rounds:  40,
		Trials:  6,
		Seed:    11,
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestRun_ConstantReward(t *testing.T) {
	plan := testPlan(t)
	plan.Reward = ljal.ConstantReward(1.0)

	res, err := Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Mean) != 40 || len(res.StdDev) != 40 {
		t.Fatalf("curve lengths = %d/%d, want 40", len(res.Mean), len(res.StdDev))
	}
	for i := range res.Mean {
		if res.Mean[i] != 1 || res.StdDev[i] != 0 {
			t.Errorf("step %d: mean=%v std=%v, want 1/0", i, res.Mean[i], res.StdDev[i])
		}
	}
	if res.FinalMean != 1 || res.FinalStdDev != 0 {
		t.Errorf("final = %v ± %v, want 1 ± 0", res.FinalMean, res.FinalStdDev)
	}
	if res.Trials != 6 || res.Rounds != 40 || res.Seed != 11 || res.FinalWindow != 4 {
		t.Errorf("unexpected metadata: %+v", res)
	}
}

func TestRun_MatchesSequentialLearners(t *testing.T) {
	plan := testPlan(t)

	res, err := Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	trial := 0
	want := ljal.AverageSeries(plan.Trials, func() []float64 {
		l, err := ljal.NewLearner(plan.Graph, plan.Learner, ljal.NewSource(plan.Seed+uint64(trial)))
		if err != nil {
			t.Fatalf("NewLearner error: %v", err)
		}
		trial++
		l.SetReward(plan.Reward)
		return l.RunRounds(plan.Rounds)
	})

	for i := range want {
		if !near(res.Mean[i], want[i]) {
			t.Fatalf("Mean[%d] = %v, want %v", i, res.Mean[i], want[i])
		}
	}
}

func TestRun_IndependentOfParallelism(t *testing.T) {
	plan := testPlan(t)

	plan.Parallelism = 1
	serial, err := Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	plan.Parallelism = 4
	parallel, err := Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for i := range serial.Mean {
		if serial.Mean[i] != parallel.Mean[i] || serial.StdDev[i] != parallel.StdDev[i] {
			t.Fatalf("step %d differs: %v±%v vs %v±%v",
				i, serial.Mean[i], serial.StdDev[i], parallel.Mean[i], parallel.StdDev[i])
		}
	}
}

func TestRun_SingleTrialHasZeroDeviation(t *testing.T) {
	plan := testPlan(t)
	plan.Trials = 1

	res, err := Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for i, s := range res.StdDev {
		if s != 0 {
			t.Errorf("StdDev[%d] = %v, want 0", i, s)
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testPlan(t), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRun_InvalidPlan(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Plan)
		want   error
	}{
		{"nil graph", func(s *Plan) { s.Graph = nil }, ErrInvalidPlan},
		{"zero rounds", func(s *Plan) { s.Rounds = 0 }, ErrInvalidPlan},
		{"zero trials", func(s *Plan) { s.Trials = 0 }, ErrInvalidPlan},
		{"negative parallelism", func(s *Plan) { s.Parallelism = -2 }, ErrInvalidPlan},
		{"bad learner config", func(s *Plan) { s.Learner.Alpha = 0 }, ljal.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan(t)
			tt.mutate(&plan)
			_, err := Run(context.Background(), plan, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Run error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRun_Trace(t *testing.T) {
	trace := logging.NewRoundLogger(t.TempDir(), "debug")
	if trace == nil {
		t.Fatal("expected RoundLogger at debug level")
	}

	plan := testPlan(t)
	plan.Trials = 2
	plan.Rounds = 5
	plan.Trace = trace

	if _, err := Run(context.Background(), plan, nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	trace.Close()

	data, err := os.ReadFile(trace.Path())
	if err != nil {
		t.Fatalf("reading trace: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 10 {
		t.Errorf("trace has %d lines, want 10", n)
	}
	if !strings.Contains(string(data), `"trial":1`) {
		t.Errorf("trace missing trial 1 entries:\n%s", data)
	}
}

func TestResultTail(t *testing.T) {
	r := &Result{Mean: []float64{0, 0, 1, 0.5}}
	tests := []struct {
		n    int
		want float64
	}{
		{1, 0.5},
		{2, 0.75},
		{4, 0.375},
		{10, 0.375},
		{0, 0.5},
	}
	for _, tt := range tests {
		if got := r.Tail(tt.n); !near(got, tt.want) {
			t.Errorf("Tail(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	if got := (&Result{}).Tail(3); got != 0 {
		t.Errorf("empty Tail = %v, want 0", got)
	}
}

func TestAggregate(t *testing.T) {
	curves := [][]float64{
		{0, 1, 1},
		{1, 1, 0},
	}
	res := aggregate(curves, 3)

	wantMean := []float64{0.5, 1, 0.5}
	for i, w := range wantMean {
		if !near(res.Mean[i], w) {
			t.Errorf("Mean[%d] = %v, want %v", i, res.Mean[i], w)
		}
	}
	// unbiased std of {0, 1}
	if !near(res.StdDev[0], math.Sqrt(0.5)) || res.StdDev[1] != 0 {
		t.Errorf("StdDev = %v", res.StdDev)
	}
	if res.FinalWindow != 1 || !near(res.FinalMean, 0.5) {
		t.Errorf("final window %d mean %v, want 1 and 0.5", res.FinalWindow, res.FinalMean)
	}
}
