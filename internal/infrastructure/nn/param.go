// Package nn provides the small dense networks used as function
// approximators, with explicit forward and backward passes on gonum
// matrices.
package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Param is a trainable matrix and its accumulated gradient, stored row-major.
type Param struct {
	Name  string
	Rows  int
	Cols  int
	Value []float64
	Grad  []float64
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Rows:  rows,
		Cols:  cols,
		Value: make([]float64, rows*cols),
		Grad:  make([]float64, rows*cols),
	}
}

// value returns a matrix view over the parameter values.
func (p *Param) value() *mat.Dense {
	return mat.NewDense(p.Rows, p.Cols, p.Value)
}

// grad returns a matrix view over the gradient.
func (p *Param) grad() *mat.Dense {
	return mat.NewDense(p.Rows, p.Cols, p.Grad)
}

// Network maps a batch of states (one per row) to per-action outputs and a
// scalar value estimate per row, and can backpropagate output gradients into
// its parameters.
type Network interface {
	// Forward evaluates the batch and caches what Backward needs.
	Forward(x *mat.Dense) (*mat.Dense, *mat.VecDense)

	// Backward accumulates parameter gradients for the most recent Forward.
	// Either argument may be nil when that head receives no gradient.
	Backward(dOut *mat.Dense, dValue *mat.VecDense)

	// Params enumerates the trainable parameters in a stable order.
	Params() []*Param

	// ZeroGrad clears accumulated gradients.
	ZeroGrad()
}

// CopyParams hard-copies every parameter value of src into dst.
func CopyParams(dst, src Network) error {
	dp, sp := dst.Params(), src.Params()
	if len(dp) != len(sp) {
		return fmt.Errorf("%w: %d parameters, want %d", rl.ErrShapeMismatch, len(sp), len(dp))
	}
	for i := range dp {
		if dp[i].Rows != sp[i].Rows || dp[i].Cols != sp[i].Cols {
			return fmt.Errorf("%w: parameter %s is %dx%d, want %dx%d", rl.ErrShapeMismatch,
				sp[i].Name, sp[i].Rows, sp[i].Cols, dp[i].Rows, dp[i].Cols)
		}
	}
	for i := range dp {
		copy(dp[i].Value, sp[i].Value)
	}
	return nil
}

// ClampGrads clamps every gradient component into [lo, hi].
func ClampGrads(params []*Param, lo, hi float64) {
	for _, p := range params {
		for i, g := range p.Grad {
			p.Grad[i] = math.Max(lo, math.Min(hi, g))
		}
	}
}

// MaxAbsGrad returns the largest gradient magnitude across params.
func MaxAbsGrad(params []*Param) float64 {
	var m float64
	for _, p := range params {
		for _, g := range p.Grad {
			if a := math.Abs(g); a > m {
				m = a
			}
		}
	}
	return m
}
