package aggregate

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/gaitlab/gaitstats"
	"github.com/gaitlab/gaitstats/robust"
)

// AnalogOptions controls collection of analog (EMG-style) channels.
type AnalogOptions struct {
	Spec gaitstats.CycleSpec
	// RMSWindow is the rolling RMS envelope window in samples; must be odd.
	RMSWindow int
	// GridPoints is the normalized grid the envelope is resampled onto.
	GridPoints int
	Logger     *zap.Logger
}

// DefaultAnalogOptions returns the standard analog collection settings.
func DefaultAnalogOptions() AnalogOptions {
	return AnalogOptions{
		Spec:       gaitstats.AllCycles(),
		RMSWindow:  31,
		GridPoints: gaitstats.NormalizedLen,
	}
}

func (o AnalogOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// AnalogCurves gathers per-cycle analog channels across trials. Each cycle's
// channel data is cropped on its native sample grid, RMS-enveloped, and only
// then resampled onto the normalized grid, so the envelope always reflects
// the cycle's true sample count. Channels prefixed L or R are collected only
// from cycles of that side.
func AnalogCurves(trials []*gaitstats.Trial, channels []string, opts AnalogOptions) (map[string][][]float64, error) {
	if opts.Spec.Kind == gaitstats.SpecUnnormalized {
		return nil, &gaitstats.SpecMismatchError{Msg: "cannot aggregate unnormalized cycles"}
	}
	if opts.GridPoints < 2 {
		return nil, fmt.Errorf("analog grid needs at least 2 points, got %d", opts.GridPoints)
	}
	log := opts.logger()

	out := make(map[string][][]float64, len(channels))
	if len(trials) == 0 {
		log.Warn("no trials to aggregate")
		return out, nil
	}

	grid := floats.Span(make([]float64, opts.GridPoints), 0, 100)
	for _, trial := range trials {
		cycles, err := opts.Spec.Select(trial)
		if err != nil {
			return nil, err
		}
		name := trial.Meta().TrialName
		for _, ch := range channels {
			for _, cyc := range cycles {
				if !matchesContext(ch, cyc.Context) {
					continue
				}
				t, data, err := trial.CycleCurve(ch, cyc)
				if err != nil {
					log.Info("skipping analog channel",
						zap.String("trial", name), zap.String("channel", ch), zap.Error(err))
					break
				}
				env, err := robust.RMS(data, opts.RMSWindow)
				if err != nil {
					return nil, fmt.Errorf("channel %q: %w", ch, err)
				}
				var pl interp.PiecewiseLinear
				if err := pl.Fit(t, env); err != nil {
					return nil, fmt.Errorf("channel %q: fit envelope: %w", ch, err)
				}
				row := make([]float64, opts.GridPoints)
				for i, x := range grid {
					row[i] = pl.Predict(x)
				}
				out[ch] = append(out[ch], row)
			}
		}
	}
	return out, nil
}

// AggregateAnalog collects analog channels with aopts and reduces them with
// ropts. Analog channels are never kinetic.
func AggregateAnalog(trials []*gaitstats.Trial, channels []string, aopts AnalogOptions, ropts Options) (Result, error) {
	data, err := AnalogCurves(trials, channels, aopts)
	if err != nil {
		return nil, err
	}
	res := make(Result, len(channels))
	for _, ch := range channels {
		res[ch] = Reduce(ch, data[ch], false, ropts)
	}
	return res, nil
}
