package ljal

import "math"

// TemperatureFunc returns the Boltzmann temperature used in round step.
type TemperatureFunc func(step int) float64

// ConstantTemperature keeps the temperature fixed at t.
func ConstantTemperature(t float64) TemperatureFunc {
	return func(int) float64 { return t }
}

// ExponentialTemperature anneals from start by a factor (1-decay) per step,
// never dropping below floor.
func ExponentialTemperature(start, decay, floor float64) TemperatureFunc {
	return func(step int) float64 {
		return math.Max(start*math.Pow(1-decay, float64(step)), floor)
	}
}
