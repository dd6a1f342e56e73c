package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// MLP is a multi-layer perceptron with ReLU hidden layers, an action head
// (Q-values or logits) and a scalar value head sharing the last hidden layer.
type MLP struct {
	inputs  int
	outputs int
	hidden  []int

	layers []dense
	action dense
	value  dense

	// Cached by Forward for Backward.
	x    *mat.Dense
	acts []*mat.Dense
}

type dense struct {
	w *Param
	b *Param
}

// NewMLP creates a network with Glorot-uniform weights and zero biases.
func NewMLP(inputs, outputs int, hidden []int, rng *rand.Rand) (*MLP, error) {
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: inputs and outputs must be positive", rl.ErrInvalidConfig)
	}

	m := &MLP{
		inputs:  inputs,
		outputs: outputs,
		hidden:  append([]int(nil), hidden...),
	}

	fanIn := inputs
	for i, h := range hidden {
		if h <= 0 {
			return nil, fmt.Errorf("%w: hidden size %d", rl.ErrInvalidConfig, h)
		}
		m.layers = append(m.layers, newDense(fmt.Sprintf("hidden%d", i), fanIn, h, rng))
		fanIn = h
	}
	m.action = newDense("action", fanIn, outputs, rng)
	m.value = newDense("value", fanIn, 1, rng)

	return m, nil
}

func newDense(name string, in, out int, rng *rand.Rand) dense {
	d := dense{
		w: newParam(name+".weight", in, out),
		b: newParam(name+".bias", 1, out),
	}
	limit := math.Sqrt(6.0 / float64(in+out))
	for i := range d.w.Value {
		d.w.Value[i] = (rng.Float64()*2 - 1) * limit
	}
	return d
}

// Inputs returns the input width.
func (m *MLP) Inputs() int {
	return m.inputs
}

// Outputs returns the action head width.
func (m *MLP) Outputs() int {
	return m.outputs
}

// Forward evaluates a batch of rows.
func (m *MLP) Forward(x *mat.Dense) (*mat.Dense, *mat.VecDense) {
	rows, _ := x.Dims()

	m.x = x
	m.acts = m.acts[:0]

	var h mat.Matrix = x
	for _, l := range m.layers {
		z := affine(h, l)
		z.Apply(func(_, _ int, v float64) float64 {
			return math.Max(0, v)
		}, z)
		m.acts = append(m.acts, z)
		h = z
	}

	q := affine(h, m.action)
	vm := affine(h, m.value)
	v := mat.NewVecDense(rows, nil)
	v.CopyVec(vm.ColView(0))

	return q, v
}

// Backward accumulates gradients for the most recent Forward call.
func (m *MLP) Backward(dOut *mat.Dense, dValue *mat.VecDense) {
	if m.x == nil {
		return
	}

	last := m.lastActivation()
	rows, width := last.Dims()
	dH := mat.NewDense(rows, width, nil)

	if dOut != nil {
		accumulate(m.action, last, dOut)
		var back mat.Dense
		back.Mul(dOut, m.action.w.value().T())
		dH.Add(dH, &back)
	}
	if dValue != nil {
		dv := mat.NewDense(rows, 1, nil)
		dv.Copy(dValue)
		accumulate(m.value, last, dv)
		var back mat.Dense
		back.Mul(dv, m.value.w.value().T())
		dH.Add(dH, &back)
	}

	for i := len(m.layers) - 1; i >= 0; i-- {
		act := m.acts[i]
		dH.Apply(func(r, c int, g float64) float64 {
			if act.At(r, c) <= 0 {
				return 0
			}
			return g
		}, dH)

		var input mat.Matrix = m.x
		if i > 0 {
			input = m.acts[i-1]
		}
		accumulate(m.layers[i], input, dH)

		if i > 0 {
			var back mat.Dense
			back.Mul(dH, m.layers[i].w.value().T())
			dH = &back
		}
	}
}

// Params enumerates parameters: hidden layers, action head, value head.
func (m *MLP) Params() []*Param {
	params := make([]*Param, 0, 2*len(m.layers)+4)
	for _, l := range m.layers {
		params = append(params, l.w, l.b)
	}
	return append(params, m.action.w, m.action.b, m.value.w, m.value.b)
}

// ZeroGrad clears accumulated gradients.
func (m *MLP) ZeroGrad() {
	for _, p := range m.Params() {
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}

// Clone returns an independent copy with identical parameters.
func (m *MLP) Clone() *MLP {
	c := &MLP{
		inputs:  m.inputs,
		outputs: m.outputs,
		hidden:  append([]int(nil), m.hidden...),
	}
	cloneDense := func(d dense) dense {
		out := dense{
			w: newParam(d.w.Name, d.w.Rows, d.w.Cols),
			b: newParam(d.b.Name, d.b.Rows, d.b.Cols),
		}
		copy(out.w.Value, d.w.Value)
		copy(out.b.Value, d.b.Value)
		return out
	}
	for _, l := range m.layers {
		c.layers = append(c.layers, cloneDense(l))
	}
	c.action = cloneDense(m.action)
	c.value = cloneDense(m.value)
	return c
}

func (m *MLP) lastActivation() mat.Matrix {
	if len(m.acts) == 0 {
		return m.x
	}
	return m.acts[len(m.acts)-1]
}

// affine computes h*W + b with b broadcast over rows.
func affine(h mat.Matrix, d dense) *mat.Dense {
	var z mat.Dense
	z.Mul(h, d.w.value())
	bias := d.b.Value
	z.Apply(func(_, c int, v float64) float64 {
		return v + bias[c]
	}, &z)
	return &z
}

// accumulate adds input^T * dZ to the weight gradient and the column sums of
// dZ to the bias gradient.
func accumulate(d dense, input mat.Matrix, dZ *mat.Dense) {
	var gw mat.Dense
	gw.Mul(input.T(), dZ)
	g := d.w.grad()
	g.Add(g, &gw)

	rows, cols := dZ.Dims()
	for c := 0; c < cols; c++ {
		var sum float64
		for r := 0; r < rows; r++ {
			sum += dZ.At(r, c)
		}
		d.b.Grad[c] += sum
	}
}

// CopyFrom hard-copies the parameters of src into m.
func (m *MLP) CopyFrom(src Network) error {
	return CopyParams(m, src)
}
