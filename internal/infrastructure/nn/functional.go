package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Features converts rows of stored elements into a float matrix, multiplying
// by scale. Pixel states use scale 1/255.
func Features[S rl.Element](data []S, rows int, scale float64) *mat.Dense {
	cols := len(data) / rows
	out := make([]float64, rows*cols)
	for i, v := range data[:rows*cols] {
		out[i] = float64(v) * scale
	}
	return mat.NewDense(rows, cols, out)
}

// Softmax returns the normalised exponentials of logits.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	maxLogit := floats.Max(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// LogSoftmax returns log(Softmax(logits)) computed stably.
func LogSoftmax(logits []float64) []float64 {
	maxLogit := floats.Max(logits)
	var sum float64
	for _, v := range logits {
		sum += math.Exp(v - maxLogit)
	}
	lse := maxLogit + math.Log(sum)

	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = v - lse
	}
	return out
}

// SmoothL1 returns the Huber loss (beta 1) of delta = prediction - target
// and its derivative with respect to the prediction.
func SmoothL1(delta float64) (loss, grad float64) {
	if a := math.Abs(delta); a < 1 {
		return 0.5 * delta * delta, delta
	}
	if delta > 0 {
		return delta - 0.5, 1
	}
	return -delta - 0.5, -1
}
