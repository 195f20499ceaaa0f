// Package robust provides median-based statistics primitives: MAD, modified
// Z-scores and outlier detection that stay usable on small or degenerate
// samples where variance-based estimators blow up.
package robust

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// GaussianScale makes the MAD a consistent estimator of the standard
// deviation for normally distributed data.
const GaussianScale = 1.4826

// zeroSpreadScore is the modified Z-score assigned to a value that deviates
// from a zero-MAD (perfectly constant) reference. Any deviation from a
// zero-spread baseline is a definite outlier, so the sentinel sits beyond
// every plausible rejection threshold instead of letting the division
// produce Inf or NaN.
const zeroSpreadScore = 1e9

// Median returns the median of x, or NaN for empty input.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// MAD returns the scaled median absolute deviation from the median of x.
// Use GaussianScale for a stddev-consistent estimate, or 1 for the raw MAD.
func MAD(x []float64, scale float64) float64 {
	med := Median(x)
	devs := make([]float64, len(x))
	for i, v := range x {
		devs[i] = math.Abs(v - med)
	}
	return scale * Median(devs)
}

// ColMedians returns the per-column medians of the row-major matrix m.
func ColMedians(m [][]float64) []float64 {
	if len(m) == 0 {
		return nil
	}
	cols := len(m[0])
	out := make([]float64, cols)
	col := make([]float64, len(m))
	for j := 0; j < cols; j++ {
		for i, row := range m {
			col[i] = row[j]
		}
		out[j] = Median(col)
	}
	return out
}

// ColMADs returns the per-column scaled MADs of m.
func ColMADs(m [][]float64, scale float64) []float64 {
	if len(m) == 0 {
		return nil
	}
	cols := len(m[0])
	out := make([]float64, cols)
	col := make([]float64, len(m))
	for j := 0; j < cols; j++ {
		for i, row := range m {
			col[i] = row[j]
		}
		out[j] = MAD(col, scale)
	}
	return out
}

// ModifiedZScores returns the modified Z-score of every element of m.
// Medians are taken per column. With globalMAD the per-column MADs are
// collapsed to a single matrix-wide estimate (their median); column-local
// MADs can shrink to near zero on small samples and blow the score up.
func ModifiedZScores(m [][]float64, globalMAD bool) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	meds := ColMedians(m)
	mads := ColMADs(m, GaussianScale)
	if globalMAD {
		g := Median(mads)
		for j := range mads {
			mads[j] = g
		}
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		zr := make([]float64, len(row))
		for j, v := range row {
			diff := v - meds[j]
			if mads[j] == 0 {
				if diff != 0 {
					zr[j] = math.Copysign(zeroSpreadScore, diff)
				}
				continue
			}
			zr[j] = diff / mads[j]
		}
		out[i] = zr
	}
	return out
}

// ZThreshold returns the two-sided rejection threshold for false-rejection
// probability p under a normal assumption, i.e. sqrt(2)*erfcinv(p).
func ZThreshold(p float64) float64 {
	if p <= 0 {
		return math.Inf(1)
	}
	if p >= 1 {
		return 0
	}
	return distuv.UnitNormal.Quantile(1 - p/2)
}

// Outliers returns the (row, col) index pairs of elements whose modified
// Z-score magnitude exceeds the threshold for pThreshold.
func Outliers(m [][]float64, globalMAD bool, pThreshold float64) (rows, cols []int) {
	z := ModifiedZScores(m, globalMAD)
	thr := ZThreshold(pThreshold)
	for i, row := range z {
		for j, v := range row {
			if math.Abs(v) > thr {
				rows = append(rows, i)
				cols = append(cols, j)
			}
		}
	}
	return rows, cols
}

// RMS returns the rolling-window RMS of x. The window must be odd and no
// longer than the data; the result is edge-padded back to the input length.
func RMS(x []float64, win int) ([]float64, error) {
	if win%2 != 1 {
		return nil, fmt.Errorf("rms window must be odd, got %d", win)
	}
	if win > len(x) {
		return nil, fmt.Errorf("rms window %d longer than data (%d)", win, len(x))
	}
	sq := make([]float64, len(x))
	for i, v := range x {
		sq[i] = v * v
	}
	sums := runningSum(sq, win)
	core := make([]float64, len(sums))
	for i, s := range sums {
		core[i] = math.Sqrt(s / float64(win))
	}
	pad := (win - 1) / 2
	out := make([]float64, 0, len(x))
	for i := 0; i < pad; i++ {
		out = append(out, core[0])
	}
	out = append(out, core...)
	for i := 0; i < pad; i++ {
		out = append(out, core[len(core)-1])
	}
	return out, nil
}

// runningSum returns the windowed sums of x; the result is shorter by
// win-1.
func runningSum(x []float64, win int) []float64 {
	out := make([]float64, len(x)-win+1)
	sum := 0.0
	for i, v := range x {
		sum += v
		if i >= win {
			sum -= x[i-win]
		}
		if i >= win-1 {
			out[i-win+1] = sum
		}
	}
	return out
}
