// Package returns computes discounted Monte-Carlo returns for finished
// episodes.
package returns

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Eps is added to the standard deviation during normalisation. It is the
// float32 machine epsilon.
const Eps = 1.1920929e-07

// Discounted returns G_t = sum_k gamma^k * r_{t+k} for every timestep.
func Discounted(rewards []float64, gamma float64) []float64 {
	out := make([]float64, len(rewards))
	var g float64
	for t := len(rewards) - 1; t >= 0; t-- {
		g = rewards[t] + gamma*g
		out[t] = g
	}
	return out
}

// Normalize rescales xs to zero mean and unit population variance. The
// denominator is std+Eps so constant inputs map to zeros.
func Normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}

	mean, variance := stat.PopMeanVariance(xs, nil)
	std := math.Sqrt(variance)

	copy(out, xs)
	floats.AddConst(-mean, out)
	floats.Scale(1/(std+Eps), out)
	return out
}

// NormalizedReturns computes the full-episode returns first and normalises
// them afterwards.
func NormalizedReturns(rewards []float64, gamma float64) []float64 {
	return Normalize(Discounted(rewards, gamma))
}
