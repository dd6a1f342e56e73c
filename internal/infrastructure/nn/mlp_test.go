package nn

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// lossFor evaluates sum(Q .* wq) + sum(V .* wv) so that its gradient with
// respect to the outputs is exactly wq and wv.
func lossFor(m *MLP, x *mat.Dense, wq *mat.Dense, wv *mat.VecDense) float64 {
	q, v := m.Forward(x)
	var loss float64
	r, c := q.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			loss += q.At(i, j) * wq.At(i, j)
		}
		loss += v.AtVec(i) * wv.AtVec(i)
	}
	return loss
}

func TestMLPBackwardMatchesFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, err := NewMLP(3, 2, []int{5, 4}, rng)
	if err != nil {
		t.Fatalf("NewMLP: %v", err)
	}

	x := mat.NewDense(4, 3, []float64{
		0.5, -0.2, 0.1,
		-0.3, 0.8, 0.4,
		0.9, 0.1, -0.7,
		0.2, 0.2, 0.2,
	})
	wq := mat.NewDense(4, 2, []float64{1, -1, 0.5, 0.3, -0.2, 0.7, 0, 1})
	wv := mat.NewVecDense(4, []float64{0.3, -0.6, 1, 0.1})

	m.ZeroGrad()
	m.Forward(x)
	m.Backward(wq, wv)

	const h = 1e-6
	for _, p := range m.Params() {
		for i := range p.Value {
			orig := p.Value[i]
			p.Value[i] = orig + h
			up := lossFor(m, x, wq, wv)
			p.Value[i] = orig - h
			down := lossFor(m, x, wq, wv)
			p.Value[i] = orig

			numeric := (up - down) / (2 * h)
			if math.Abs(numeric-p.Grad[i]) > 1e-5 {
				t.Fatalf("%s[%d]: analytic %v, numeric %v", p.Name, i, p.Grad[i], numeric)
			}
		}
	}
}

func TestMLPForwardShapes(t *testing.T) {
	m, err := NewMLP(6, 3, []int{8}, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("NewMLP: %v", err)
	}

	q, v := m.Forward(mat.NewDense(5, 6, nil))
	if r, c := q.Dims(); r != 5 || c != 3 {
		t.Errorf("expected q 5x3, got %dx%d", r, c)
	}
	if v.Len() != 5 {
		t.Errorf("expected 5 values, got %d", v.Len())
	}
}

func TestCopyParamsAndClone(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a, _ := NewMLP(4, 2, []int{3}, rng)
	b, _ := NewMLP(4, 2, []int{3}, rng)

	if err := CopyParams(b, a); err != nil {
		t.Fatalf("CopyParams: %v", err)
	}
	x := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	qa, _ := a.Forward(x)
	qb, _ := b.Forward(x)
	if !mat.Equal(qa, qb) {
		t.Error("copied network should produce identical outputs")
	}

	c := a.Clone()
	a.Params()[0].Value[0] += 1
	if c.Params()[0].Value[0] == a.Params()[0].Value[0] {
		t.Error("clone must not share parameter storage")
	}

	wrong, _ := NewMLP(5, 2, []int{3}, rng)
	if err := CopyParams(wrong, a); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestClampGrads(t *testing.T) {
	p := newParam("w", 1, 4)
	copy(p.Grad, []float64{-3, -0.5, 0.5, 7})
	ClampGrads([]*Param{p}, -1, 1)

	want := []float64{-1, -0.5, 0.5, 1}
	for i := range want {
		if p.Grad[i] != want[i] {
			t.Errorf("grad[%d] = %v, want %v", i, p.Grad[i], want[i])
		}
	}
	if MaxAbsGrad([]*Param{p}) != 1 {
		t.Errorf("expected max abs grad 1, got %v", MaxAbsGrad([]*Param{p}))
	}
}

func TestSoftmaxAndLogSoftmax(t *testing.T) {
	logits := []float64{1000, 1001, 999}
	p := Softmax(logits)
	lp := LogSoftmax(logits)

	var sum float64
	for i := range p {
		sum += p[i]
		if math.Abs(math.Log(p[i])-lp[i]) > 1e-9 {
			t.Errorf("log softmax mismatch at %d", i)
		}
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("softmax must sum to 1, got %v", sum)
	}
}

func TestSmoothL1(t *testing.T) {
	tests := []struct {
		delta, loss, grad float64
	}{
		{0.5, 0.125, 0.5},
		{-0.5, 0.125, -0.5},
		{3, 2.5, 1},
		{-2, 1.5, -1},
	}
	for _, tt := range tests {
		loss, grad := SmoothL1(tt.delta)
		if loss != tt.loss || grad != tt.grad {
			t.Errorf("SmoothL1(%v) = (%v, %v), want (%v, %v)", tt.delta, loss, grad, tt.loss, tt.grad)
		}
	}
}

func TestFeaturesScalesBytes(t *testing.T) {
	x := Features([]uint8{0, 255, 51, 102}, 2, 1.0/255)
	if r, c := x.Dims(); r != 2 || c != 2 {
		t.Fatalf("expected 2x2, got %dx%d", r, c)
	}
	if x.At(0, 1) != 1 || math.Abs(x.At(1, 0)-0.2) > 1e-12 {
		t.Errorf("unexpected scaled values: %v", mat.Formatted(x))
	}
}
