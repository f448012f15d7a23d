package ljal

import (
	"fmt"
	"strings"
)

// EVMode selects how a ValueTable marginalizes over successor contexts.
type EVMode string

const (
	// EVVisitWeighted averages Q[x, j] over contexts j weighted by how often
	// (x, j) was visited. Unvisited rows evaluate to 0.
	EVVisitWeighted EVMode = "visit-weighted"

	// EVMarginal weights Q[x, j] by the product of each successor's
	// empirical action frequency, treating successors as independent.
	EVMarginal EVMode = "marginal"
)

// Valid reports whether m names a known strategy.
func (m EVMode) Valid() bool {
	return m == EVVisitWeighted || m == EVMarginal
}

// MaxTableCells bounds n_actions^(k+1) for a single agent.
const MaxTableCells = 1 << 24

// ValueTable holds one agent's joint action values Q[a, j] and visit
// counts N[a, j], where a is the agent's own action and j the encoded
// successor context. Both are stored row-major in flat slices. Per-successor
// action counts feed the marginal EV strategy.
type ValueTable struct {
	actions    int
	successors int
	cols       int

	q    []float64
	n    []int
	freq [][]int // freq[s][action]
}

// NewValueTable allocates a table for an agent with nSuccessors successors,
// every Q entry set to initial.
func NewValueTable(nActions, nSuccessors int, initial float64) (*ValueTable, error) {
	if nActions < 1 {
		return nil, fmt.Errorf("value table: %d actions: %w", nActions, ErrInvalidConfig)
	}
	if nSuccessors < 0 {
		return nil, fmt.Errorf("value table: %d successors: %w", nSuccessors, ErrInvalidConfig)
	}
	cols := ContextSize(nActions, nSuccessors)
	if cols < 0 || cols > MaxTableCells/nActions {
		return nil, fmt.Errorf("value table: %d actions with %d successors exceeds %d cells: %w",
			nActions, nSuccessors, MaxTableCells, ErrTableTooLarge)
	}

	cells := nActions * cols
	q := make([]float64, cells)
	if initial != 0 {
		for i := range q {
			q[i] = initial
		}
	}
	freq := make([][]int, nSuccessors)
	for s := range freq {
		freq[s] = make([]int, nActions)
	}

	return &ValueTable{
		actions:    nActions,
		successors: nSuccessors,
		cols:       cols,
		q:          q,
		n:          make([]int, cells),
		freq:       freq,
	}, nil
}

// Shape returns (n_actions, n_actions^k).
func (t *ValueTable) Shape() (rows, cols int) {
	return t.actions, t.cols
}

// Successors returns k, the number of successors the table is indexed by.
func (t *ValueTable) Successors() int {
	return t.successors
}

// Q returns the value estimate at (own action a, context j).
func (t *ValueTable) Q(a, j int) float64 {
	return t.q[t.index(a, j)]
}

// N returns the visit count at (own action a, context j).
func (t *ValueTable) N(a, j int) int {
	return t.n[t.index(a, j)]
}

// Frequency returns how often successor s (by position in the successor
// list) was observed playing action.
func (t *ValueTable) Frequency(s, action int) int {
	return t.freq[s][action]
}

// Visits returns the sum of all visit counts, which equals the number of
// updates applied to the table.
func (t *ValueTable) Visits() int {
	total := 0
	for _, c := range t.n {
		total += c
	}
	return total
}

func (t *ValueTable) index(a, j int) int {
	if a < 0 || a >= t.actions || j < 0 || j >= t.cols {
		panic(fmt.Sprintf("ljal: cell (%d, %d) outside %dx%d table", a, j, t.actions, t.cols))
	}
	return a*t.cols + j
}

// EVs returns one expected value per own action.
func (t *ValueTable) EVs(mode EVMode) []float64 {
	if mode == EVMarginal {
		return t.marginalEVs()
	}
	return t.visitWeightedEVs()
}

func (t *ValueTable) visitWeightedEVs() []float64 {
	evs := make([]float64, t.actions)
	for x := 0; x < t.actions; x++ {
		row := x * t.cols
		var sum float64
		visits := 0
		for j := 0; j < t.cols; j++ {
			sum += t.q[row+j] * float64(t.n[row+j])
			visits += t.n[row+j]
		}
		if visits == 0 {
			visits = 1
		}
		evs[x] = sum / float64(visits)
	}
	return evs
}

func (t *ValueTable) marginalEVs() []float64 {
	// Empirical frequency per successor; an unobserved successor keeps a
	// denominator of 1 and therefore an all-zero row.
	fs := make([][]float64, t.successors)
	for s, counts := range t.freq {
		total := 0
		for _, c := range counts {
			total += c
		}
		if total == 0 {
			total = 1
		}
		fs[s] = make([]float64, t.actions)
		for a, c := range counts {
			fs[s][a] = float64(c) / float64(total)
		}
	}

	probs := make([]float64, t.cols)
	ctx := make([]int, t.successors)
	for j := range probs {
		decodeInto(ctx, j, t.actions)
		p := 1.0
		for s, a := range ctx {
			p *= fs[s][a]
		}
		probs[j] = p
	}

	evs := make([]float64, t.actions)
	for x := 0; x < t.actions; x++ {
		row := x * t.cols
		for j, p := range probs {
			if p != 0 {
				evs[x] += t.q[row+j] * p
			}
		}
	}
	return evs
}

// Update applies Q <- Q + alpha*(reward - Q) at (own, encode(ctx)) and
// records the visit and each successor's observed action.
func (t *ValueTable) Update(own int, ctx []int, reward, alpha float64) error {
	cell, err := t.cell(own, ctx)
	if err != nil {
		return err
	}
	t.apply(cell, ctx, reward, alpha)
	return nil
}

// cell validates an (own, ctx) pair and returns its flat index.
func (t *ValueTable) cell(own int, ctx []int) (int, error) {
	if own < 0 || own >= t.actions {
		return 0, fmt.Errorf("own action %d, want [0, %d): %w", own, t.actions, ErrActionRange)
	}
	if len(ctx) != t.successors {
		return 0, fmt.Errorf("context has %d actions, table expects %d: %w", len(ctx), t.successors, ErrActionRange)
	}
	j, err := EncodeContext(ctx, t.actions)
	if err != nil {
		return 0, err
	}
	return own*t.cols + j, nil
}

// apply mutates the table at a validated cell.
func (t *ValueTable) apply(cell int, ctx []int, reward, alpha float64) {
	t.q[cell] += alpha * (reward - t.q[cell])
	t.n[cell]++
	for s, a := range ctx {
		t.freq[s][a]++
	}
}

// String renders the Q and N matrices and the successor frequency counters.
func (t *ValueTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Q %dx%d:\n", t.actions, t.cols)
	writeRows(&b, t.actions, t.cols, func(i int) string { return fmt.Sprintf("%.4f", t.q[i]) })
	fmt.Fprintf(&b, "N %dx%d:\n", t.actions, t.cols)
	writeRows(&b, t.actions, t.cols, func(i int) string { return fmt.Sprintf("%d", t.n[i]) })
	fmt.Fprintf(&b, "C %dx%d:\n", t.successors, t.actions)
	for _, counts := range t.freq {
		b.WriteString("  [")
		for a, c := range counts {
			if a > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", c)
		}
		b.WriteString("]\n")
	}
	return b.String()
}

func writeRows(b *strings.Builder, rows, cols int, cell func(i int) string) {
	for r := 0; r < rows; r++ {
		b.WriteString("  [")
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(cell(r*cols + c))
		}
		b.WriteString("]\n")
	}
}
