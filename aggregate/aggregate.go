// Package aggregate combines cycle-normalized curves from many cycles and
// trials into representative curves with a robust measure of spread,
// rejecting corrupted or outlying cycles automatically.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/gaitlab/gaitstats"
	"github.com/gaitlab/gaitstats/robust"
)

// Mode selects the reduction statistic.
type Mode int

const (
	// MeanStddev reduces to the mean and population standard deviation.
	MeanStddev Mode = iota
	// MedianMAD reduces to the median and the Gaussian-scaled MAD. Robust
	// to outliers but not to small samples; automatic outlier rejection is
	// skipped in this mode.
	MedianMAD
)

// Options controls collection and reduction.
type Options struct {
	// Spec selects which cycles contribute. SpecUnnormalized is rejected:
	// unnormalized curves have no common time base to stack on.
	Spec gaitstats.CycleSpec
	Mode Mode
	// RejectZeros drops curves containing an exact zero value, which marks
	// a data gap in non-kinetic variables. Kinetic variables are exempt
	// since force data can legitimately clamp to zero.
	RejectZeros bool
	// OutlierP is the false-rejection probability for modified-Z-score
	// outlier rejection, Bonferroni-corrected by the curve count. Zero or
	// negative disables rejection.
	OutlierP float64
	// Kinetic classifies force-derived variables. Nil means DefaultKinetic.
	Kinetic func(name string) bool
	Logger  *zap.Logger
}

// DefaultOptions returns the standard collection settings: all cycles,
// mean/stddev reduction, zero-curve rejection on, outlier rejection at
// P=1e-3.
func DefaultOptions() Options {
	return Options{
		Spec:        gaitstats.AllCycles(),
		Mode:        MeanStddev,
		RejectZeros: true,
		OutlierP:    1e-3,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o Options) kinetic() func(string) bool {
	if o.Kinetic != nil {
		return o.Kinetic
	}
	return DefaultKinetic
}

// DefaultKinetic classifies variables by the Plug-in Gait naming
// convention: kinetic (force-derived) variables carry Moment, Power or
// Force in the name.
func DefaultKinetic(name string) bool {
	for _, kw := range []string{"Moment", "Power", "Force"} {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// VarResult is the aggregation outcome for one variable. Curve and Spread
// are nil when no curve survived rejection; that is not an error.
type VarResult struct {
	Curve    []float64
	Spread   []float64
	Accepted int
	Total    int
}

// Result maps variable names to their aggregation outcome.
type Result map[string]VarResult

// Curves gathers one normalized curve per (trial, cycle) pair matching the
// spec, keyed by variable name. Variables prefixed L or R are collected
// only from cycles of that side; kinetic variables are restricted to
// forceplate cycles regardless of the cycle spec. Missing variables and all-NaN
// curves are skipped with a diagnostic log entry. Zero trials is valid and
// yields an empty map. Analog-rate channels keep their native per-cycle
// sample counts and cannot be stacked here; naming one is a
// SpecMismatchError (use AnalogCurves instead).
func Curves(trials []*gaitstats.Trial, vars []string, opts Options) (map[string][][]float64, error) {
	if opts.Spec.Kind == gaitstats.SpecUnnormalized {
		return nil, &gaitstats.SpecMismatchError{Msg: "cannot aggregate unnormalized cycles"}
	}
	log := opts.logger()
	kinetic := opts.kinetic()

	out := make(map[string][][]float64, len(vars))
	if len(trials) == 0 {
		log.Warn("no trials to aggregate")
		return out, nil
	}

	for _, trial := range trials {
		cycles, err := opts.Spec.Select(trial)
		if err != nil {
			return nil, err
		}
		name := trial.Meta().TrialName
		log.Debug("collecting curves", zap.String("trial", name), zap.Int("cycles", len(cycles)))

		for _, v := range vars {
			for _, cyc := range cycles {
				if !matchesContext(v, cyc.Context) {
					continue
				}
				if kinetic(v) && !cyc.OnForceplate {
					continue
				}
				_, data, err := trial.CycleCurve(v, cyc)
				if err != nil {
					var missing *gaitstats.MissingVariableError
					if errors.As(err, &missing) {
						log.Info("variable not in trial, skipping",
							zap.String("trial", name), zap.String("variable", v))
						break
					}
					return nil, err
				}
				if len(data) != gaitstats.NormalizedLen {
					return nil, &gaitstats.SpecMismatchError{
						Msg: fmt.Sprintf("variable %q is analog-rate; aggregate it as an analog channel", v),
					}
				}
				if allNaN(data) {
					log.Info("no data for variable in cycle",
						zap.String("trial", name), zap.String("variable", v))
					continue
				}
				out[v] = append(out[v], data)
			}
		}
	}
	return out, nil
}

// Reduce applies zero-curve and outlier rejection to the stacked curves of
// one variable and reduces the survivors to a representative curve and a
// spread curve. All rows must share one length, as produced by Curves or
// AnalogCurves. An empty matrix or a fully rejected one yields nil curves
// with Accepted 0.
func Reduce(name string, m [][]float64, kinetic bool, opts Options) VarResult {
	log := opts.logger()
	res := VarResult{Total: len(m)}
	if len(m) == 0 {
		return res
	}

	rows := m
	if opts.RejectZeros && !kinetic {
		kept := rows[:0:0]
		for _, row := range rows {
			if hasZero(row) {
				continue
			}
			kept = append(kept, row)
		}
		if n := len(rows) - len(kept); n > 0 {
			log.Info("rejecting curves with zero values",
				zap.String("variable", name), zap.Int("count", n))
		}
		rows = kept
	}

	// Bonferroni-type correction: the threshold probability is divided by
	// the curve count remaining after zero rejection. The MAD behind the
	// modified Z-score is the matrix-global estimate; column-local MADs
	// collapse to near zero on small samples and cause spurious rejections.
	if len(rows) > 0 && opts.Mode == MeanStddev && opts.OutlierP > 0 {
		p := opts.OutlierP / float64(len(rows))
		rIdx, _ := robust.Outliers(rows, true, p)
		bad := make(map[int]bool, len(rIdx))
		for _, i := range rIdx {
			bad[i] = true
		}
		if len(bad) > 0 {
			log.Info("rejecting outlier curves",
				zap.String("variable", name), zap.Int("count", len(bad)), zap.Float64("p", p))
			kept := rows[:0:0]
			for i, row := range rows {
				if !bad[i] {
					kept = append(kept, row)
				}
			}
			rows = kept
		}
	}

	res.Accepted = len(rows)
	if len(rows) == 0 {
		return res
	}

	cols := len(rows[0])
	res.Curve = make([]float64, cols)
	res.Spread = make([]float64, cols)
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		switch opts.Mode {
		case MedianMAD:
			res.Curve[j] = robust.Median(col)
			res.Spread[j] = robust.MAD(col, robust.GaussianScale)
		default:
			res.Curve[j], _ = stats.Mean(col)
			res.Spread[j], _ = stats.StandardDeviationPopulation(col)
		}
	}
	log.Debug("reduced variable", zap.String("variable", name),
		zap.Int("accepted", res.Accepted), zap.Int("total", res.Total))
	return res
}

// Aggregate runs Curves and Reduce for every requested variable. Variables
// absent from all trials produce a nil result with zero counts.
func Aggregate(trials []*gaitstats.Trial, vars []string, opts Options) (Result, error) {
	data, err := Curves(trials, vars, opts)
	if err != nil {
		return nil, err
	}
	kinetic := opts.kinetic()
	res := make(Result, len(vars))
	for _, v := range vars {
		r := Reduce(v, data[v], kinetic(v), opts)
		if r.Accepted == 0 {
			opts.logger().Warn("no accepted curves for variable", zap.String("variable", v))
		}
		res[v] = r
	}
	return res, nil
}

// matchesContext applies the side-prefix convention: variables named with a
// leading L or R belong to that side; anything else is side-free and
// collected for all cycles.
func matchesContext(name string, ctx gaitstats.Context) bool {
	if len(name) == 0 {
		return true
	}
	switch name[0] {
	case 'L':
		return ctx == gaitstats.Left
	case 'R':
		return ctx == gaitstats.Right
	}
	return true
}

func hasZero(row []float64) bool {
	for _, v := range row {
		if v == 0 {
			return true
		}
	}
	return false
}

func allNaN(row []float64) bool {
	for _, v := range row {
		if !math.IsNaN(v) {
			return false
		}
	}
	return len(row) > 0
}
