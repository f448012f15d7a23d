package ljal

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// AverageOf calls get n times and returns the arithmetic mean of the
// results. It panics if n < 1.
func AverageOf(n int, get func() float64) float64 {
	if n < 1 {
		panic(fmt.Sprintf("ljal: AverageOf needs at least one sample, got %d", n))
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += get()
	}
	return sum / float64(n)
}

// AverageSeries calls get n times and returns the element-wise mean of the
// returned series, typically reward curves from independent learners. Every
// series must have the length of the first. It panics if n < 1 or the
// lengths differ.
func AverageSeries(n int, get func() []float64) []float64 {
	if n < 1 {
		panic(fmt.Sprintf("ljal: AverageSeries needs at least one sample, got %d", n))
	}
	sum := append([]float64(nil), get()...)
	for i := 2; i <= n; i++ {
		next := get()
		if len(next) != len(sum) {
			panic(fmt.Sprintf("ljal: AverageSeries sample %d has length %d, want %d", i, len(next), len(sum)))
		}
		floats.Add(sum, next)
	}
	floats.Scale(1/float64(n), sum)
	return sum
}
