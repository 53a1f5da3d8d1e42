package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 5},
		{"simple", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.in); !almostEqual(got, tt.want, 1e-12) {
				t.Errorf("Mean(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVarianceAndStd(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Variance(x); !almostEqual(got, 4, 1e-12) {
		t.Errorf("Variance = %v, want 4", got)
	}
	if got := Std(x); !almostEqual(got, 2, 1e-12) {
		t.Errorf("Std = %v, want 2", got)
	}
	if got := Variance([]float64{3}); got != 0 {
		t.Errorf("Variance of single value = %v, want 0", got)
	}
}

func TestQuantile(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.75, 4},
		{1, 5},
	}
	for _, tt := range tests {
		if got := Quantile(x, tt.q); !almostEqual(got, tt.want, 1e-12) {
			t.Errorf("Quantile(q=%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	// Interpolation between order statistics.
	if got := Quantile([]float64{1, 2, 3, 4}, 0.5); !almostEqual(got, 2.5, 1e-12) {
		t.Errorf("Quantile(0.5) on even length = %v, want 2.5", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Median = %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); !almostEqual(got, 2.5, 1e-12) {
		t.Errorf("Median even = %v, want 2.5", got)
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	up := []float64{2, 4, 6, 8, 10}
	down := []float64{10, 8, 6, 4, 2}

	if got := Correlation(x, up); !almostEqual(got, 1, 1e-12) {
		t.Errorf("perfect positive correlation = %v, want 1", got)
	}
	if got := Correlation(x, down); !almostEqual(got, -1, 1e-12) {
		t.Errorf("perfect negative correlation = %v, want -1", got)
	}
	if got := Correlation(x, []float64{7, 7, 7, 7, 7}); got != 0 {
		t.Errorf("correlation with constant = %v, want 0", got)
	}
}

func TestSpearman(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	// Monotone but non-linear: Spearman sees a perfect relationship.
	y := []float64{1, 8, 27, 64, 125}
	if got := Spearman(x, y); !almostEqual(got, 1, 1e-12) {
		t.Errorf("Spearman on monotone cubic = %v, want 1", got)
	}
}

func TestRanksWithTies(t *testing.T) {
	got := Ranks([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("Ranks[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSkewness(t *testing.T) {
	symmetric := []float64{1, 2, 3, 4, 5}
	if got := Skewness(symmetric); !almostEqual(got, 0, 1e-9) {
		t.Errorf("Skewness of symmetric data = %v, want 0", got)
	}
	rightTail := []float64{1, 1, 1, 1, 100}
	if got := Skewness(rightTail); got <= 0 {
		t.Errorf("Skewness of right-tailed data = %v, want > 0", got)
	}
}

func TestEntropyCounts(t *testing.T) {
	// Uniform over 4 outcomes: 2 bits.
	if got := EntropyCounts([]int{5, 5, 5, 5}); !almostEqual(got, 2, 1e-12) {
		t.Errorf("uniform entropy = %v, want 2", got)
	}
	// Degenerate distribution: 0 bits.
	if got := EntropyCounts([]int{10, 0, 0}); !almostEqual(got, 0, 1e-12) {
		t.Errorf("degenerate entropy = %v, want 0", got)
	}
}

func TestHistogram(t *testing.T) {
	counts, centers := Histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 5)
	if len(counts) != 5 || len(centers) != 5 {
		t.Fatalf("got %d counts and %d centers, want 5 each", len(counts), len(centers))
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != 10 {
		t.Errorf("histogram counts sum to %d, want 10", total)
	}
}

func TestAutocorrLag1(t *testing.T) {
	if got := AutocorrLag1([]float64{3, 3, 3, 3}); got != 1 {
		t.Errorf("constant series autocorrelation = %v, want 1", got)
	}
	ramp := make([]float64, 100)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	if got := AutocorrLag1(ramp); got < 0.95 {
		t.Errorf("ramp autocorrelation = %v, want near 1", got)
	}
}

func TestSortedUnique(t *testing.T) {
	got := SortedUnique([]float64{3, 1, 3, 2, 1})
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("SortedUnique returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SortedUnique[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
