package gaitstats

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
)

// strikeTol is the tolerance (in frames) for matching a cycle-starting
// strike against a detected forceplate strike.
const strikeTol = 4

// Metadata holds the sampling and event information for one recording, as
// returned by the trial-data provider. Event frames use the provider's own
// numbering, which starts at Offset.
type Metadata struct {
	TrialName   string
	SubjectName string

	FrameRate  float64 // video frame rate, Hz
	AnalogRate float64 // analog channel rate, Hz
	Offset     int     // first frame index of the recording
	Length     int     // frame count

	Strikes map[Context][]int
	Toeoffs map[Context][]int
}

// SamplesPerFrame is the analog-to-frame rate ratio. Not necessarily
// integral.
func (m *Metadata) SamplesPerFrame() float64 {
	return m.AnalogRate / m.FrameRate
}

// Validate rejects metadata a Trial cannot be built from. Missing event
// lists are allowed (a side may have no events); bad rates or bounds are
// not.
func (m *Metadata) Validate() error {
	if m.FrameRate <= 0 {
		return fmt.Errorf("metadata: frame rate must be positive, got %g", m.FrameRate)
	}
	if m.AnalogRate <= 0 {
		return fmt.Errorf("metadata: analog rate must be positive, got %g", m.AnalogRate)
	}
	if m.Length <= 0 {
		return fmt.Errorf("metadata: frame count must be positive, got %d", m.Length)
	}
	if m.Offset < 0 {
		return fmt.Errorf("metadata: negative frame offset %d", m.Offset)
	}
	last := m.Offset + m.Length
	for _, ctx := range Contexts {
		for _, ev := range append(append([]int(nil), m.Strikes[ctx]...), m.Toeoffs[ctx]...) {
			if ev < m.Offset || ev >= last {
				return fmt.Errorf("metadata: %s event at frame %d outside recording [%d, %d)", ctx, ev, m.Offset, last)
			}
		}
	}
	return nil
}

// DataSource provides metadata and named curve arrays for one recording.
// Implementations wrap external backends and stay outside this module;
// StaticSource is the in-memory implementation used by the pipeline and the
// tests.
//
// Curve returns a frame-rate signal of Length points or an analog-rate
// signal of round(Length*SamplesPerFrame) points; an unresolvable name is
// reported as a MissingVariableError.
type DataSource interface {
	Metadata() (Metadata, error)
	Curve(name string) ([]float64, error)
}

// ForceplateDetector reports strike frames independently verified against a
// forceplate, keyed by side. Frames are 0-based relative to the first frame
// of the recording. An empty result is valid and means no strike could be
// verified; every cycle is then off-forceplate.
type ForceplateDetector interface {
	ForceplateStrikes() (map[Context][]int, error)
}

// StaticSource is a DataSource and ForceplateDetector backed by
// already-materialized arrays.
type StaticSource struct {
	Meta   Metadata
	Curves map[string][]float64
	FP     map[Context][]int
}

func (s *StaticSource) Metadata() (Metadata, error) { return s.Meta, nil }

func (s *StaticSource) Curve(name string) ([]float64, error) {
	data, ok := s.Curves[name]
	if !ok {
		return nil, &MissingVariableError{Name: name}
	}
	return data, nil
}

func (s *StaticSource) ForceplateStrikes() (map[Context][]int, error) {
	return s.FP, nil
}

// Trial owns the event lists and sampling metadata of one recording and the
// ordered gait-cycle list built from them. Curve lookups are memoized per
// name; the cache is not invalidated automatically if the underlying source
// changes and is not safe for concurrent writers.
type Trial struct {
	src  DataSource
	meta Metadata
	spf  float64
	log  *zap.Logger

	cycles []*Gaitcycle
	curves map[string][]float64
}

// TrialOption configures optional Trial behavior.
type TrialOption func(*Trial)

// WithLogger sets the diagnostic logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) TrialOption {
	return func(t *Trial) { t.log = log }
}

// NewTrial reads metadata from src, sorts the event lists (recordings do
// not guarantee temporal order) and scans the gait cycles. fp may be nil
// when no forceplate detection is available; all cycles are then
// off-forceplate.
func NewTrial(src DataSource, fp ForceplateDetector, opts ...TrialOption) (*Trial, error) {
	meta, err := src.Metadata()
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	t := &Trial{
		src:    src,
		meta:   meta,
		spf:    meta.SamplesPerFrame(),
		log:    zap.NewNop(),
		curves: make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(t)
	}

	// sorted copies; the provider's own event lists stay untouched
	t.meta.Strikes = sortedEvents(meta.Strikes)
	t.meta.Toeoffs = sortedEvents(meta.Toeoffs)

	fpStrikes := map[Context][]int{}
	if fp != nil {
		fpStrikes, err = fp.ForceplateStrikes()
		if err != nil {
			return nil, fmt.Errorf("read forceplate strikes: %w", err)
		}
	}

	if err := t.scanCycles(fpStrikes); err != nil {
		return nil, err
	}
	t.log.Debug("trial created",
		zap.String("trial", meta.TrialName),
		zap.Int("cycles", len(t.cycles)))
	return t, nil
}

func sortedEvents(ev map[Context][]int) map[Context][]int {
	out := make(map[Context][]int, len(ev))
	for ctx, frames := range ev {
		s := append([]int(nil), frames...)
		sort.Ints(s)
		out[ctx] = s
	}
	return out
}

// scanCycles builds the cycle list from consecutive same-side strike pairs.
// A side with fewer than two strikes yields no cycles for that side only.
func (t *Trial) scanCycles(fpStrikes map[Context][]int) error {
	for _, ctx := range Contexts {
		strikes := t.meta.Strikes[ctx]
		if len(strikes) < 2 {
			continue
		}
		toeoffs := t.meta.Toeoffs[ctx]
		for k := 0; k+1 < len(strikes); k++ {
			start, end := strikes[k], strikes[k+1]

			var toeoff []int
			for _, x := range toeoffs {
				if x > start && x < end {
					toeoff = append(toeoff, x)
				}
			}
			switch {
			case len(toeoff) == 0:
				return &CycleError{Context: ctx, Start: start, Reason: "no toeoff in cycle"}
			case len(toeoff) > 1:
				return &CycleError{Context: ctx, Start: start, Reason: "ambiguous toeoff"}
			}

			cyc, err := newGaitcycle(start, end, toeoff[0], t.meta.Offset, ctx,
				t.onForceplate(start, fpStrikes[ctx]), t.spf)
			if err != nil {
				return &CycleError{Context: ctx, Start: start, Reason: err.Error()}
			}
			t.cycles = append(t.cycles, cyc)
		}
	}
	return nil
}

// onForceplate reports whether a cycle-starting strike lies within
// strikeTol frames of any detected forceplate strike of the same side.
// Forceplate frames are 0-based; the strike uses provider numbering.
func (t *Trial) onForceplate(strike int, fpStrikes []int) bool {
	start := strike - t.meta.Offset
	for _, fp := range fpStrikes {
		if d := fp - start; d <= strikeTol && d >= -strikeTol {
			return true
		}
	}
	return false
}

// Meta returns the trial metadata with events in sorted order.
func (t *Trial) Meta() Metadata { return t.meta }

// Cycles returns the ordered cycle list. Cycles of the same side are
// non-overlapping and ordered by start frame.
func (t *Trial) Cycles() []*Gaitcycle { return t.cycles }

// NumCycles is the total cycle count across both sides.
func (t *Trial) NumCycles() int { return len(t.cycles) }

// Cycle returns the n:th cycle (1-based) of the given side.
func (t *Trial) Cycle(ctx Context, n int) (*Gaitcycle, error) {
	if n < 1 {
		return nil, fmt.Errorf("cycle index must be >= 1, got %d", n)
	}
	seen := 0
	for _, c := range t.cycles {
		if c.Context != ctx {
			continue
		}
		seen++
		if seen == n {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s cycle %d does not exist (trial has %d)", ctx, n, seen)
}

// Curve returns the raw curve for name, memoized on first access. The
// result is classified as frame- or analog-rate by its length; anything
// else is rejected.
func (t *Trial) Curve(name string) ([]float64, error) {
	if data, ok := t.curves[name]; ok {
		return data, nil
	}
	data, err := t.src.Curve(name)
	if err != nil {
		return nil, err
	}
	if _, err := t.classify(data); err != nil {
		return nil, fmt.Errorf("curve %q: %w", name, err)
	}
	t.curves[name] = data
	return data, nil
}

// InvalidateCurves drops every memoized curve so the next lookup re-reads
// the source.
func (t *Trial) InvalidateCurves() {
	t.curves = make(map[string][]float64)
}

type curveKind int

const (
	frameCurve curveKind = iota
	analogCurve
)

func (t *Trial) classify(data []float64) (curveKind, error) {
	analogLen := int(math.Round(float64(t.meta.Length) * t.spf))
	switch len(data) {
	case t.meta.Length:
		return frameCurve, nil
	case analogLen:
		return analogCurve, nil
	}
	return 0, fmt.Errorf("length %d matches neither frame (%d) nor analog (%d) axis",
		len(data), t.meta.Length, analogLen)
}

// CycleCurve returns the curve for name expressed on cycle c: frame-rate
// curves are resampled onto the canonical 101-point axis, analog curves are
// cropped to the cycle. A nil cycle returns the raw curve on its native
// axis (unnormalized).
func (t *Trial) CycleCurve(name string, c *Gaitcycle) ([]float64, []float64, error) {
	data, err := t.Curve(name)
	if err != nil {
		return nil, nil, err
	}
	kind, err := t.classify(data)
	if err != nil {
		return nil, nil, fmt.Errorf("curve %q: %w", name, err)
	}
	if c == nil {
		ax := make([]float64, len(data))
		for i := range ax {
			ax[i] = float64(i)
		}
		return ax, data, nil
	}
	if kind == analogCurve {
		return c.CropAnalog(data)
	}
	return c.Normalize(data)
}
