package ljal

import (
	"fmt"
	"math"
)

// ContextSize returns n_actions^k, the number of distinct joint successor
// contexts for an agent with k successors. It returns -1 if the result
// would overflow an int.
func ContextSize(nActions, k int) int {
	if nActions < 1 || k < 0 {
		return -1
	}
	size := 1
	for i := 0; i < k; i++ {
		if size > math.MaxInt/nActions {
			return -1
		}
		size *= nActions
	}
	return size
}

// EncodeContext maps a successor-action tuple to its fixed-radix index.
// The first successor is the most significant digit, so for base 4 the tuple
// (1, 2) encodes to 1*4 + 2 = 6. The empty tuple encodes to 0.
func EncodeContext(ctx []int, base int) (int, error) {
	if base < 1 {
		return 0, fmt.Errorf("encode context: base %d: %w", base, ErrActionRange)
	}
	j := 0
	for i, a := range ctx {
		if a < 0 || a >= base {
			return 0, fmt.Errorf("encode context: position %d holds action %d, want [0, %d): %w",
				i, a, base, ErrActionRange)
		}
		j = j*base + a
	}
	return j, nil
}

// DecodeContext is the inverse of EncodeContext for tuples of length k.
func DecodeContext(j, base, k int) ([]int, error) {
	size := ContextSize(base, k)
	if base < 1 || size < 0 || j < 0 || j >= size {
		return nil, fmt.Errorf("decode context: index %d out of range for base %d and %d successors: %w",
			j, base, k, ErrActionRange)
	}
	ctx := make([]int, k)
	decodeInto(ctx, j, base)
	return ctx, nil
}

// decodeInto fills ctx with the digits of j, most significant first.
// Callers guarantee j is in range.
func decodeInto(ctx []int, j, base int) {
	for i := len(ctx) - 1; i >= 0; i-- {
		ctx[i] = j % base
		j /= base
	}
}
