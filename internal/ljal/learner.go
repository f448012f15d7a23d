// Package ljal implements Learning Joint-Action Learners: cooperative agents
// on a directed dependency graph, each learning a value table over its own
// action and the joint action of its successors.
//
// One round selects an action for every agent by Boltzmann exploration over
// the agent's expected values, computes a shared reward from the joint action
// and applies an exponential-moving-average update to the single cell of each
// agent's table that the round realized. The package is single-threaded and
// deterministic given its Source.
package ljal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IrisYanfGuo/exam/internal/logging"
)

// Graph is the dependency structure a Learner is built from. Nodes must
// return 0..n-1 in order; Successors returns the agents whose actions index
// the given agent's value table. A Learner never modifies either slice.
type Graph interface {
	Nodes() []int
	Successors(agent int) []int
}

// Config holds the learning parameters shared by every agent.
type Config struct {
	// Actions is the number of discrete actions per agent. Default: 4.
	Actions int

	// Alpha is the learning rate in (0, 1]. Default: 0.1.
	Alpha float64

	// Optimistic is the initial value of every Q entry. Default: 0.
	Optimistic float64

	// EVMode selects the expected-value strategy. Default: EVVisitWeighted.
	EVMode EVMode
}

// DefaultConfig returns the default learner configuration.
func DefaultConfig() Config {
	return Config{
		Actions:    4,
		Alpha:      0.1,
		Optimistic: 0,
		EVMode:     EVVisitWeighted,
	}
}

// Validate checks that the configuration can build value tables.
func (c Config) Validate() error {
	if c.Actions < 1 {
		return fmt.Errorf("actions must be at least 1, got %d: %w", c.Actions, ErrInvalidConfig)
	}
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		return fmt.Errorf("alpha must be in (0, 1], got %v: %w", c.Alpha, ErrInvalidConfig)
	}
	if !c.EVMode.Valid() {
		return fmt.Errorf("unknown ev mode %q: %w", c.EVMode, ErrInvalidConfig)
	}
	return nil
}

// Learner runs LJAL rounds over a fixed graph. It owns every agent's
// ValueTable and is not safe for concurrent use.
type Learner struct {
	config      Config
	successors  [][]int
	tables      []*ValueTable
	src         Source
	reward      RewardFunc
	temperature TemperatureFunc
	logger      *slog.Logger

	step       int
	actions    []int
	lastReward float64
	lastTemp   float64
}

// NewLearner validates g and cfg and allocates one ValueTable per agent.
// An empty EVMode selects EVVisitWeighted.
func NewLearner(g Graph, cfg Config, src Source) (*Learner, error) {
	if cfg.EVMode == "" {
		cfg.EVMode = EVVisitWeighted
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("nil graph: %w", ErrInvalidGraph)
	}
	if src == nil {
		return nil, fmt.Errorf("nil random source: %w", ErrInvalidConfig)
	}

	successors, err := snapshotGraph(g)
	if err != nil {
		return nil, err
	}

	tables := make([]*ValueTable, len(successors))
	for agent, succ := range successors {
		t, err := NewValueTable(cfg.Actions, len(succ), cfg.Optimistic)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", agent, err)
		}
		tables[agent] = t
	}

	return &Learner{
		config:      cfg,
		successors:  successors,
		tables:      tables,
		src:         src,
		reward:      ConstantReward(1.0),
		temperature: ConstantTemperature(1.0),
		logger:      slog.New(slog.DiscardHandler),
		actions:     make([]int, len(successors)),
	}, nil
}

// snapshotGraph copies every successor list after checking it can index a
// table: agents in order, successors in range, no self-loops or repeats.
func snapshotGraph(g Graph) ([][]int, error) {
	nodes := g.Nodes()
	n := len(nodes)
	successors := make([][]int, n)
	for i, agent := range nodes {
		if agent != i {
			return nil, fmt.Errorf("node at position %d has id %d, want %d: %w", i, agent, i, ErrInvalidGraph)
		}
		succ := g.Successors(agent)
		seen := make(map[int]bool, len(succ))
		for _, s := range succ {
			switch {
			case s < 0 || s >= n:
				return nil, fmt.Errorf("agent %d: successor %d outside [0, %d): %w", agent, s, n, ErrInvalidGraph)
			case s == agent:
				return nil, fmt.Errorf("agent %d: self-loop: %w", agent, ErrInvalidGraph)
			case seen[s]:
				return nil, fmt.Errorf("agent %d: successor %d listed twice: %w", agent, s, ErrInvalidGraph)
			}
			seen[s] = true
		}
		successors[i] = append([]int(nil), succ...)
	}
	return successors, nil
}

// SetReward replaces the reward function. A nil f restores the constant
// reward of 1.
func (l *Learner) SetReward(f RewardFunc) {
	if f == nil {
		f = ConstantReward(1.0)
	}
	l.reward = f
}

// SetTemperature replaces the temperature schedule. A nil f restores the
// constant temperature of 1.
func (l *Learner) SetTemperature(f TemperatureFunc) {
	if f == nil {
		f = ConstantTemperature(1.0)
	}
	l.temperature = f
}

// SetLogger sets the logger used for round tracing. A nil logger discards.
func (l *Learner) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l.logger = logger
	l.logger.Debug("learner ready",
		"agents", len(l.tables),
		"actions", l.config.Actions,
		"alpha", l.config.Alpha,
		"ev_mode", string(l.config.EVMode))
}

// EVs returns the current expected value of each action for agent.
func (l *Learner) EVs(agent int) []float64 {
	return l.tables[agent].EVs(l.config.EVMode)
}

// Advance plays one round: every agent picks an action, the shared reward
// is computed, and each agent's table is updated at the realized cell.
func (l *Learner) Advance() {
	temp := l.temperature(l.step)

	actions := make([]int, len(l.tables))
	for agent := range l.tables {
		actions[agent] = BoltzmannAction(l.EVs(agent), temp, l.src)
	}

	r := l.reward(actions)

	// Resolve every cell before touching any table so a round is applied
	// to all agents or to none.
	cells := make([]int, len(l.tables))
	contexts := make([][]int, len(l.tables))
	for agent, succ := range l.successors {
		ctx := make([]int, len(succ))
		for i, s := range succ {
			ctx[i] = actions[s]
		}
		cell, err := l.tables[agent].cell(actions[agent], ctx)
		if err != nil {
			panic(fmt.Sprintf("ljal: agent %d at step %d: %v", agent, l.step, err))
		}
		cells[agent] = cell
		contexts[agent] = ctx
	}

	for agent, t := range l.tables {
		t.apply(cells[agent], contexts[agent], r, l.config.Alpha)
	}

	l.actions = actions
	l.lastReward = r
	l.lastTemp = temp
	l.step++

	if l.logger.Enabled(context.Background(), logging.LevelTrace) {
		l.logger.Log(context.Background(), logging.LevelTrace, "round",
			"step", l.step, "actions", actions, "reward", r, "temperature", temp)
	}
}

// RunRounds advances n rounds and returns the reward of each, in order.
func (l *Learner) RunRounds(n int) []float64 {
	if n < 0 {
		n = 0
	}
	rewards := make([]float64, n)
	for i := range rewards {
		l.Advance()
		rewards[i] = l.lastReward
	}
	return rewards
}

// Agents returns the number of agents.
func (l *Learner) Agents() int { return len(l.tables) }

// Config returns the learner's configuration.
func (l *Learner) Config() Config { return l.config }

// Step returns the number of completed rounds.
func (l *Learner) Step() int { return l.step }

// LastReward returns the reward of the most recent round.
func (l *Learner) LastReward() float64 { return l.lastReward }

// Temperature returns the temperature used in the most recent round.
func (l *Learner) Temperature() float64 { return l.lastTemp }

// LastActions returns a copy of the most recent joint action vector.
func (l *Learner) LastActions() []int {
	return append([]int(nil), l.actions...)
}

// Successors returns a copy of agent's successor list.
func (l *Learner) Successors(agent int) []int {
	return append([]int(nil), l.successors[agent]...)
}

// Table returns agent's value table for inspection. Callers must not
// update it.
func (l *Learner) Table(agent int) *ValueTable {
	return l.tables[agent]
}

// String renders the learner parameters and every table. The format is
// for debugging only.
func (l *Learner) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "n_agents = %d\n", len(l.tables))
	fmt.Fprintf(&b, "n_actions = %d\n", l.config.Actions)
	fmt.Fprintf(&b, "alpha = %v\n", l.config.Alpha)
	fmt.Fprintf(&b, "ev_mode = %s\n", l.config.EVMode)
	fmt.Fprintf(&b, "step = %d\n", l.step)
	for agent, t := range l.tables {
		fmt.Fprintf(&b, "agent %d successors=%v\n", agent, l.successors[agent])
		b.WriteString(t.String())
	}
	return b.String()
}
