package ljal

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// adjacency is a minimal Graph: adjacency[i] lists agent i's successors.
type adjacency [][]int

func (g adjacency) Nodes() []int {
	nodes := make([]int, len(g))
	for i := range nodes {
		nodes[i] = i
	}
	return nodes
}

func (g adjacency) Successors(agent int) []int { return g[agent] }

// shuffledNodes reports its agents out of index order.
type shuffledNodes struct{ adjacency }

func (g shuffledNodes) Nodes() []int { return []int{1, 0} }

func newTestLearner(t *testing.T, g Graph, cfg Config, seed uint64) *Learner {
	t.Helper()
	l, err := NewLearner(g, cfg, NewSource(seed))
	if err != nil {
		t.Fatalf("NewLearner error: %v", err)
	}
	return l
}

func TestNewLearner_TableShapes(t *testing.T) {
	// Five agents, agent 1 depends on agents 2 and 3.
	g := adjacency{nil, {2, 3}, nil, nil, nil}
	l := newTestLearner(t, g, DefaultConfig(), 1)

	if l.Agents() != 5 {
		t.Fatalf("Agents() = %d, want 5", l.Agents())
	}

	tests := []struct {
		agent    int
		wantRows int
		wantCols int
	}{
		{0, 4, 1},
		{1, 4, 16},
		{2, 4, 1},
		{4, 4, 1},
	}
	for _, tt := range tests {
		rows, cols := l.Table(tt.agent).Shape()
		if rows != tt.wantRows || cols != tt.wantCols {
			t.Errorf("agent %d shape = (%d, %d), want (%d, %d)", tt.agent, rows, cols, tt.wantRows, tt.wantCols)
		}
	}
	if got := l.Table(1).Successors(); got != 2 {
		t.Errorf("agent 1 successor count = %d, want 2", got)
	}
}

func TestNewLearner_RejectsBadGraph(t *testing.T) {
	tests := []struct {
		name string
		g    Graph
	}{
		{"nil graph", nil},
		{"self loop", adjacency{{0}}},
		{"successor out of range", adjacency{{1}, {5}}},
		{"negative successor", adjacency{{-1}, nil}},
		{"duplicate successor", adjacency{{1, 1}, nil}},
		{"nodes out of order", shuffledNodes{adjacency{nil, nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLearner(tt.g, DefaultConfig(), NewSource(1))
			if !errors.Is(err, ErrInvalidGraph) {
				t.Errorf("NewLearner error = %v, want ErrInvalidGraph", err)
			}
		})
	}
}

func TestNewLearner_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero actions", func(c *Config) { c.Actions = 0 }, ErrInvalidConfig},
		{"zero alpha", func(c *Config) { c.Alpha = 0 }, ErrInvalidConfig},
		{"alpha above one", func(c *Config) { c.Alpha = 1.5 }, ErrInvalidConfig},
		{"unknown ev mode", func(c *Config) { c.EVMode = "argmax" }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewLearner(adjacency{nil}, cfg, NewSource(1))
			if !errors.Is(err, tt.want) {
				t.Errorf("NewLearner error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("nil source", func(t *testing.T) {
		_, err := NewLearner(adjacency{nil}, DefaultConfig(), nil)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewLearner error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("table too large", func(t *testing.T) {
		succ := make([]int, 13)
		g := make(adjacency, 14)
		for i := range succ {
			succ[i] = i + 1
		}
		g[0] = succ
		_, err := NewLearner(g, DefaultConfig(), NewSource(1))
		if !errors.Is(err, ErrTableTooLarge) {
			t.Errorf("NewLearner error = %v, want ErrTableTooLarge", err)
		}
	})
}

func TestNewLearner_EmptyEVModeDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EVMode = ""
	l := newTestLearner(t, adjacency{nil}, cfg, 1)
	if l.Config().EVMode != EVVisitWeighted {
		t.Errorf("EVMode = %q, want %q", l.Config().EVMode, EVVisitWeighted)
	}
}

func TestNewLearner_CopiesSuccessors(t *testing.T) {
	g := adjacency{{1}, nil}
	l := newTestLearner(t, g, DefaultConfig(), 1)
	g[0][0] = 0
	if got := l.Successors(0); len(got) != 1 || got[0] != 1 {
		t.Errorf("Successors(0) = %v after caller mutation, want [1]", got)
	}
}

func TestAdvance_CountsOneVisitPerRound(t *testing.T) {
	g := adjacency{nil, {2}, nil, nil, nil}
	l := newTestLearner(t, g, DefaultConfig(), 5)

	const rounds = 7
	for i := 0; i < rounds; i++ {
		l.Advance()
	}

	if l.Step() != rounds {
		t.Errorf("Step() = %d, want %d", l.Step(), rounds)
	}
	for agent := 0; agent < l.Agents(); agent++ {
		if got := l.Table(agent).Visits(); got != rounds {
			t.Errorf("agent %d visits = %d, want %d", agent, got, rounds)
		}
	}

	freqTotal := 0
	for a := 0; a < 4; a++ {
		freqTotal += l.Table(1).Frequency(0, a)
	}
	if freqTotal != rounds {
		t.Errorf("agent 1 successor observations = %d, want %d", freqTotal, rounds)
	}
}

func TestAdvance_UpdatesRealizedCell(t *testing.T) {
	g := adjacency{{1, 2}, nil, nil}
	cfg := DefaultConfig()
	cfg.Alpha = 0.5
	l := newTestLearner(t, g, cfg, 9)
	l.SetReward(ConstantReward(2))

	l.Advance()

	actions := l.LastActions()
	if len(actions) != 3 {
		t.Fatalf("LastActions() length = %d, want 3", len(actions))
	}
	j, err := EncodeContext([]int{actions[1], actions[2]}, 4)
	if err != nil {
		t.Fatalf("EncodeContext error: %v", err)
	}
	if got := l.Table(0).Q(actions[0], j); got != 1.0 {
		t.Errorf("Q at realized cell = %v, want 1.0", got)
	}
	if got := l.Table(0).N(actions[0], j); got != 1 {
		t.Errorf("N at realized cell = %d, want 1", got)
	}
	if l.LastReward() != 2 {
		t.Errorf("LastReward() = %v, want 2", l.LastReward())
	}
}

func TestAdvance_RewardSeesJointAction(t *testing.T) {
	g := adjacency{nil, {0}, {0, 1}}
	l := newTestLearner(t, g, DefaultConfig(), 3)

	var seen []int
	l.SetReward(func(actions []int) float64 {
		seen = append([]int(nil), actions...)
		return float64(actions[0])
	})
	l.Advance()

	got := l.LastActions()
	if len(seen) != len(got) {
		t.Fatalf("reward saw %v, learner recorded %v", seen, got)
	}
	for i := range got {
		if seen[i] != got[i] {
			t.Fatalf("reward saw %v, learner recorded %v", seen, got)
		}
		if got[i] < 0 || got[i] >= 4 {
			t.Errorf("agent %d action %d out of range", i, got[i])
		}
	}
	if l.LastReward() != float64(got[0]) {
		t.Errorf("LastReward() = %v, want %v", l.LastReward(), float64(got[0]))
	}
}

func TestAdvance_TemperatureSchedule(t *testing.T) {
	l := newTestLearner(t, adjacency{nil}, DefaultConfig(), 1)

	var steps []int
	l.SetTemperature(func(step int) float64 {
		steps = append(steps, step)
		return 2.0
	})
	l.RunRounds(3)

	if len(steps) != 3 || steps[0] != 0 || steps[2] != 2 {
		t.Errorf("temperature called with steps %v, want [0 1 2]", steps)
	}
	if l.Temperature() != 2.0 {
		t.Errorf("Temperature() = %v, want 2.0", l.Temperature())
	}
}

func TestRunRounds_ConstantReward(t *testing.T) {
	l := newTestLearner(t, make(adjacency, 5), DefaultConfig(), 1)

	rewards := l.RunRounds(30)
	if len(rewards) != 30 {
		t.Fatalf("RunRounds(30) returned %d rewards", len(rewards))
	}
	for i, r := range rewards {
		if r != 1.0 {
			t.Errorf("reward[%d] = %v, want 1.0", i, r)
		}
	}
	if l.Step() != 30 {
		t.Errorf("Step() = %d, want 30", l.Step())
	}
}

func TestRunRounds_ZeroAndNegative(t *testing.T) {
	l := newTestLearner(t, adjacency{nil}, DefaultConfig(), 1)
	if got := l.RunRounds(0); len(got) != 0 {
		t.Errorf("RunRounds(0) = %v, want empty", got)
	}
	if got := l.RunRounds(-3); len(got) != 0 {
		t.Errorf("RunRounds(-3) = %v, want empty", got)
	}
	if l.Step() != 0 {
		t.Errorf("Step() = %d, want 0", l.Step())
	}
}

func TestLearner_Deterministic(t *testing.T) {
	g := adjacency{{1}, {2}, nil}
	cfg := DefaultConfig()
	cfg.EVMode = EVMarginal

	a := newTestLearner(t, g, cfg, 99)
	b := newTestLearner(t, g, cfg, 99)
	a.SetReward(CoordinationReward())
	b.SetReward(CoordinationReward())

	ra, rb := a.RunRounds(200), b.RunRounds(200)
	for i := range ra {
		if ra[i] != rb[i] {
			t.Fatalf("round %d: rewards diverged: %v vs %v", i, ra[i], rb[i])
		}
	}
	if a.String() != b.String() {
		t.Error("identically seeded learners ended with different tables")
	}
}

func TestLearner_LearnsToCoordinate(t *testing.T) {
	for _, mode := range []EVMode{EVVisitWeighted, EVMarginal} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Actions = 2
			cfg.EVMode = mode
			l := newTestLearner(t, adjacency{nil, {0}}, cfg, 2024)
			l.SetReward(CoordinationReward())
			l.SetTemperature(ConstantTemperature(MinTemperature))

			rewards := l.RunRounds(3000)
			var tail float64
			for _, r := range rewards[2500:] {
				tail += r
			}
			tail /= 500
			if tail < 0.6 {
				t.Errorf("mean reward over last 500 rounds = %.3f, want >= 0.6", tail)
			}
		})
	}
}

func TestLearner_String(t *testing.T) {
	l := newTestLearner(t, adjacency{{1}, nil}, DefaultConfig(), 1)
	l.RunRounds(2)
	s := l.String()
	for _, want := range []string{"n_agents = 2", "n_actions = 4", "alpha = 0.1", "step = 2", "agent 0 successors=[1]", "Q 4x4:", "N 4x1:"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

func TestLearner_TraceLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug - 4}))

	l := newTestLearner(t, adjacency{nil}, DefaultConfig(), 1)
	l.SetLogger(logger)
	l.RunRounds(2)

	out := buf.String()
	if !strings.Contains(out, "learner ready") {
		t.Errorf("expected construction log, got:\n%s", out)
	}
	if strings.Count(out, "msg=round") != 2 {
		t.Errorf("expected 2 round logs, got:\n%s", out)
	}
}
