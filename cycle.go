package gaitstats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// NormalizedLen is the length of the canonical cycle-normalized time axis:
// 0..100% of the gait cycle in 1% steps.
const NormalizedLen = 101

// Context identifies the side whose foot strike begins a gait cycle.
type Context int

const (
	Left Context = iota
	Right
)

// Contexts lists both sides in scan order.
var Contexts = []Context{Left, Right}

func (c Context) String() string {
	switch c {
	case Left:
		return "L"
	case Right:
		return "R"
	}
	return fmt.Sprintf("Context(%d)", int(c))
}

// Gaitcycle describes one stride: the interval between two consecutive
// same-side foot strikes. Frame indices are 0-based relative to the first
// frame of the recording. Values are created by a Trial during its cycle
// scan and never mutated afterwards.
type Gaitcycle struct {
	Start  int
	End    int
	Toeoff int

	Context      Context
	OnForceplate bool

	startSmp  int
	lenSmp    int
	toeoffPct int

	// raw frame axis of the cycle expressed in percent, same length as the
	// cycle; used as the interpolation source grid
	t []float64
}

func newGaitcycle(start, end, toeoff, offset int, context Context, onForceplate bool, smpPerFrame float64) (*Gaitcycle, error) {
	// convert the provider's frame numbering to 0-based
	start -= offset
	end -= offset
	toeoff -= offset
	if start < 0 || start >= end {
		return nil, fmt.Errorf("invalid cycle bounds [%d, %d)", start, end)
	}
	if toeoff <= start || toeoff >= end {
		return nil, fmt.Errorf("toeoff %d outside cycle [%d, %d)", toeoff, start, end)
	}
	lenFrames := end - start
	c := &Gaitcycle{
		Start:        start,
		End:          end,
		Toeoff:       toeoff,
		Context:      context,
		OnForceplate: onForceplate,
		startSmp:     int(math.Round(float64(start) * smpPerFrame)),
		lenSmp:       int(math.Round(float64(lenFrames) * smpPerFrame)),
		toeoffPct:    int(math.Round(100 * float64(toeoff-start) / float64(lenFrames))),
		t:            percentAxis(lenFrames),
	}
	return c, nil
}

func (c *Gaitcycle) String() string {
	fp := "not on forceplate"
	if c.OnForceplate {
		fp = "on forceplate"
	}
	return fmt.Sprintf("<cycle %s [%d, %d) toeoff %d, %s>", c.Context, c.Start, c.End, c.Toeoff, fp)
}

// LenFrames is the cycle length on the frame axis.
func (c *Gaitcycle) LenFrames() int { return c.End - c.Start }

// LenSamples is the cycle length on the analog sample axis.
func (c *Gaitcycle) LenSamples() int { return c.lenSmp }

// ToeoffPct is the toe-off instant expressed as a percentage of the cycle,
// rounded to the nearest whole percent. Always in [0, 100].
func (c *Gaitcycle) ToeoffPct() int { return c.toeoffPct }

// Normalize resamples a frame-rate curve onto the canonical 101-point
// 0..100% axis via linear interpolation. The input is the full-trial curve;
// the cycle's slice of it is interpolated. Returns the normalized time axis
// and the resampled data.
func (c *Gaitcycle) Normalize(curve []float64) ([]float64, []float64, error) {
	if c.End > len(curve) {
		return nil, nil, fmt.Errorf("cycle end %d beyond curve length %d", c.End, len(curve))
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(c.t, curve[c.Start:c.End]); err != nil {
		return nil, nil, fmt.Errorf("fit cycle interpolant: %w", err)
	}
	tn := percentAxis(NormalizedLen)
	data := make([]float64, NormalizedLen)
	for i, x := range tn {
		data[i] = pl.Predict(x)
	}
	return tn, data, nil
}

// CropAnalog crops an analog-rate curve to the cycle without interpolation.
// Analog data keeps its native sample count per cycle; the returned axis is
// 0..100% with LenSamples points.
func (c *Gaitcycle) CropAnalog(curve []float64) ([]float64, []float64, error) {
	if c.lenSmp < 2 {
		return nil, nil, fmt.Errorf("cycle too short on analog axis (%d samples)", c.lenSmp)
	}
	end := c.startSmp + c.lenSmp
	if end > len(curve) {
		return nil, nil, fmt.Errorf("cycle end sample %d beyond curve length %d", end, len(curve))
	}
	return percentAxis(c.lenSmp), curve[c.startSmp:end], nil
}

// percentAxis returns n points linearly spanning 0..100 inclusive.
func percentAxis(n int) []float64 {
	return floats.Span(make([]float64, n), 0, 100)
}
