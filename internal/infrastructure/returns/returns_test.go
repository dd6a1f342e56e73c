package returns

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDiscountedThreeSteps(t *testing.T) {
	got := Discounted([]float64{1, 1, 1}, 0.5)
	want := []float64{1.75, 1.5, 1.0}

	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("G_%d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDiscountedMatchesSuffixSum(t *testing.T) {
	rewards := []float64{0.5, -1, 2, 0, 3}
	gamma := 0.9
	got := Discounted(rewards, gamma)

	for tt := range rewards {
		var want float64
		for k := 0; tt+k < len(rewards); k++ {
			want += math.Pow(gamma, float64(k)) * rewards[tt+k]
		}
		if !almostEqual(got[tt], want, 1e-9) {
			t.Errorf("G_%d = %v, want %v", tt, got[tt], want)
		}
	}
}

func TestNormalizedReturnsZeroMeanUnitVariance(t *testing.T) {
	got := NormalizedReturns([]float64{1, 1, 1}, 0.5)

	var sum, sq float64
	for _, v := range got {
		sum += v
		sq += v * v
	}
	if !almostEqual(sum, 0, 1e-6) {
		t.Errorf("expected sum ~0, got %v", sum)
	}
	if variance := sq / float64(len(got)); !almostEqual(variance, 1, 1e-5) {
		t.Errorf("expected unit variance, got %v", variance)
	}
	if !(got[0] > got[1] && got[1] > got[2]) {
		t.Errorf("normalisation must preserve ordering: %v", got)
	}
}

func TestNormalizeZeroVarianceIsFinite(t *testing.T) {
	tests := []struct {
		name    string
		rewards []float64
	}{
		{"all zero", []float64{0, 0, 0, 0}},
		{"single step", []float64{5}},
		{"gamma zero constant", []float64{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gamma := 0.99
			if tt.name == "gamma zero constant" {
				gamma = 0
			}
			for i, v := range NormalizedReturns(tt.rewards, gamma) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("value %d is not finite: %v", i, v)
				}
				if v != 0 {
					t.Errorf("expected 0 for constant returns, got %v", v)
				}
			}
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
}
