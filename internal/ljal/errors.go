package ljal

import "errors"

var (
	// ErrInvalidConfig is returned when learner parameters are out of range.
	ErrInvalidConfig = errors.New("invalid learner config")

	// ErrInvalidGraph is returned when the dependency graph cannot index a
	// value table: agents out of order, out-of-range successors, self-loops
	// or repeated successors.
	ErrInvalidGraph = errors.New("invalid dependency graph")

	// ErrActionRange is returned when an action or context index falls
	// outside the table.
	ErrActionRange = errors.New("action out of range")

	// ErrTableTooLarge is returned when n_actions^(k+1) exceeds MaxTableCells.
	ErrTableTooLarge = errors.New("value table too large")
)
