package robust

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 2, 3}, 2.5},
		{[]float64{5}, 5},
	}
	for _, c := range cases {
		if got := Median(c.in); got != c.want {
			t.Fatalf("Median(%v): got %g want %g", c.in, got, c.want)
		}
	}
	if !math.IsNaN(Median(nil)) {
		t.Fatal("expected NaN for empty input")
	}
}

func TestMADConstantIsZero(t *testing.T) {
	x := []float64{7, 7, 7, 7, 7}
	if got := MAD(x, GaussianScale); got != 0 {
		t.Fatalf("MAD of constant data: got %g want 0", got)
	}
}

func TestMADGaussianScale(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	// raw MAD is 1, scaled is 1.4826
	if got := MAD(x, 1); got != 1 {
		t.Fatalf("raw MAD: got %g want 1", got)
	}
	if got := MAD(x, GaussianScale); math.Abs(got-1.4826) > 1e-12 {
		t.Fatalf("scaled MAD: got %g want 1.4826", got)
	}
}

func TestOutliersEmptyForConstantMatrix(t *testing.T) {
	m := [][]float64{
		{3, 3, 3},
		{3, 3, 3},
		{3, 3, 3},
	}
	rows, cols := Outliers(m, true, 1e-3)
	if len(rows) != 0 || len(cols) != 0 {
		t.Fatalf("expected no outliers in constant matrix, got %d", len(rows))
	}
}

func TestZeroMADDeviationIsFlagged(t *testing.T) {
	// all columns constant except one deviating element: the global MAD is
	// zero, so the deviation must be flagged rather than divided away into
	// Inf or NaN
	m := [][]float64{
		{1, 1, 1},
		{1, 1, 1},
		{1, 50, 1},
	}
	z := ModifiedZScores(m, true)
	for i, row := range z {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("z[%d][%d] is %g", i, j, v)
			}
		}
	}
	rows, cols := Outliers(m, true, 1e-3)
	if len(rows) != 1 || rows[0] != 2 || cols[0] != 1 {
		t.Fatalf("expected exactly the deviating element flagged, got rows=%v cols=%v", rows, cols)
	}
}

func TestZThreshold(t *testing.T) {
	// sqrt(2)*erfcinv(1e-3)
	if got := ZThreshold(1e-3); math.Abs(got-3.2905) > 1e-3 {
		t.Fatalf("ZThreshold(1e-3): got %g want ~3.2905", got)
	}
	if got := ZThreshold(0.05); math.Abs(got-1.9600) > 1e-3 {
		t.Fatalf("ZThreshold(0.05): got %g want ~1.96", got)
	}
	if !math.IsInf(ZThreshold(0), 1) {
		t.Fatal("ZThreshold(0) must disable rejection")
	}
	if got := ZThreshold(1); got != 0 {
		t.Fatalf("ZThreshold(1): got %g want 0", got)
	}
}

func TestModifiedZScoresGlobalMAD(t *testing.T) {
	m := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	}
	local := ModifiedZScores(m, false)
	global := ModifiedZScores(m, true)
	// column medians are 2 and 20; per-column MADs are 1*scale and
	// 10*scale, the global estimate is their median
	mad0 := GaussianScale * 1
	mad1 := GaussianScale * 10
	if math.Abs(local[0][0]-(-1/mad0)) > 1e-12 {
		t.Fatalf("local z[0][0]: got %g", local[0][0])
	}
	if math.Abs(local[0][1]-(-10/mad1)) > 1e-12 {
		t.Fatalf("local z[0][1]: got %g", local[0][1])
	}
	gmad := (mad0 + mad1) / 2
	if math.Abs(global[0][1]-(-10/gmad)) > 1e-12 {
		t.Fatalf("global z[0][1]: got %g want %g", global[0][1], -10/gmad)
	}
}

func TestRMSConstantSignal(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 3
	}
	out, err := RMS(x, 7)
	if err != nil {
		t.Fatalf("RMS: %v", err)
	}
	if len(out) != len(x) {
		t.Fatalf("RMS must preserve length: got %d want %d", len(out), len(x))
	}
	for i, v := range out {
		if math.Abs(v-3) > 1e-12 {
			t.Fatalf("sample %d: got %g want 3", i, v)
		}
	}
}

func TestRMSWindowValidation(t *testing.T) {
	x := make([]float64, 10)
	if _, err := RMS(x, 4); err == nil {
		t.Fatal("expected error for even window")
	}
	if _, err := RMS(x, 11); err == nil {
		t.Fatal("expected error for window longer than data")
	}
}
