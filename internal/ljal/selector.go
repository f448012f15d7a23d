package ljal

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// MinTemperature is the floor applied to every Boltzmann temperature.
// Below it exp(EV/t) loses all resolution between actions.
const MinTemperature = 0.3

// Source is the random source consumed by action selection.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

// NewSource returns a seeded PCG generator. Two sources built from the same
// seed produce identical streams.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// BoltzmannAction samples an action index from softmax(evs / temperature).
//
// Weights are computed relative to the largest EV so that exp never
// overflows; this leaves the distribution unchanged. If rounding leaves the
// draw past the final cumulative weight, the last index is returned.
// evs must be non-empty.
func BoltzmannAction(evs []float64, temperature float64, src Source) int {
	if len(evs) == 0 {
		panic("ljal: BoltzmannAction called with no expected values")
	}
	if !(temperature >= MinTemperature) {
		temperature = MinTemperature
	}

	top := floats.Max(evs)
	weights := make([]float64, len(evs))
	for i, ev := range evs {
		weights[i] = math.Exp((ev - top) / temperature)
	}
	cumulative := floats.CumSum(make([]float64, len(weights)), weights)
	total := cumulative[len(cumulative)-1]

	r := src.Float64() * total
	for i, c := range cumulative {
		if r <= c {
			return i
		}
	}
	return len(evs) - 1
}
