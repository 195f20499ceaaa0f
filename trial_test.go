package gaitstats

import (
	"errors"
	"math"
	"testing"
)

func testMeta() Metadata {
	return Metadata{
		TrialName:  "trial01",
		FrameRate:  100,
		AnalogRate: 1000,
		Offset:     0,
		Length:     100,
		Strikes: map[Context][]int{
			Left: {10, 40, 70},
		},
		Toeoffs: map[Context][]int{
			Left: {25, 55},
		},
	}
}

func testSource() *StaticSource {
	frame := make([]float64, 100)
	analog := make([]float64, 1000)
	for i := range frame {
		frame[i] = math.Sin(float64(i) / 10)
	}
	for i := range analog {
		analog[i] = 2
	}
	return &StaticSource{
		Meta: testMeta(),
		Curves: map[string][]float64{
			"LKneeAnglesX": frame,
			"LGas":         analog,
		},
	}
}

func TestScanCyclesBounds(t *testing.T) {
	trial, err := NewTrial(testSource(), nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	cycles := trial.Cycles()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	want := []struct{ start, end, toeoff int }{
		{10, 40, 25},
		{40, 70, 55},
	}
	for i, w := range want {
		c := cycles[i]
		if c.Start != w.start || c.End != w.end || c.Toeoff != w.toeoff {
			t.Fatalf("cycle %d: got [%d,%d) toeoff %d, want [%d,%d) toeoff %d",
				i, c.Start, c.End, c.Toeoff, w.start, w.end, w.toeoff)
		}
		if c.Context != Left {
			t.Fatalf("cycle %d: unexpected context %s", i, c.Context)
		}
		if c.OnForceplate {
			t.Fatalf("cycle %d: on forceplate without a detector", i)
		}
	}
}

func TestScanCyclesSortsEvents(t *testing.T) {
	src := testSource()
	src.Meta.Strikes[Left] = []int{70, 10, 40}
	src.Meta.Toeoffs[Left] = []int{55, 25}
	trial, err := NewTrial(src, nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	if trial.NumCycles() != 2 {
		t.Fatalf("expected 2 cycles from unsorted events, got %d", trial.NumCycles())
	}
	if c := trial.Cycles()[0]; c.Start != 10 || c.End != 40 {
		t.Fatalf("first cycle: got [%d,%d)", c.Start, c.End)
	}
}

func TestNewTrialDoesNotMutateProviderEvents(t *testing.T) {
	src := testSource()
	src.Meta.Strikes[Left] = []int{70, 10, 40}
	src.Meta.Toeoffs[Left] = []int{55, 25}
	trial, err := NewTrial(src, nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	wantStrikes := []int{70, 10, 40}
	for i, v := range src.Meta.Strikes[Left] {
		if v != wantStrikes[i] {
			t.Fatalf("provider strikes reordered: %v", src.Meta.Strikes[Left])
		}
	}
	wantToeoffs := []int{55, 25}
	for i, v := range src.Meta.Toeoffs[Left] {
		if v != wantToeoffs[i] {
			t.Fatalf("provider toeoffs reordered: %v", src.Meta.Toeoffs[Left])
		}
	}
	if got := trial.Meta().Strikes[Left]; got[0] != 10 || got[1] != 40 || got[2] != 70 {
		t.Fatalf("trial strikes not sorted: %v", got)
	}
}

func TestScanCyclesShortSideDoesNotStopScan(t *testing.T) {
	src := testSource()
	src.Meta.Strikes = map[Context][]int{
		Left:  {10},
		Right: {12, 42, 72},
	}
	src.Meta.Toeoffs = map[Context][]int{
		Right: {27, 57},
	}
	trial, err := NewTrial(src, nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	if trial.NumCycles() != 2 {
		t.Fatalf("expected 2 right cycles, got %d", trial.NumCycles())
	}
	for _, c := range trial.Cycles() {
		if c.Context != Right {
			t.Fatalf("unexpected context %s", c.Context)
		}
	}
}

func TestScanCyclesNoToeoff(t *testing.T) {
	src := testSource()
	src.Meta.Toeoffs[Left] = []int{25}
	_, err := NewTrial(src, nil)
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if cerr.Start != 40 || cerr.Reason != "no toeoff in cycle" {
		t.Fatalf("unexpected error detail: %+v", cerr)
	}
}

func TestScanCyclesAmbiguousToeoff(t *testing.T) {
	src := testSource()
	src.Meta.Toeoffs[Left] = []int{20, 25, 55}
	_, err := NewTrial(src, nil)
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if cerr.Start != 10 || cerr.Reason != "ambiguous toeoff" {
		t.Fatalf("unexpected error detail: %+v", cerr)
	}
}

func TestOnForceplateTolerance(t *testing.T) {
	src := testSource()
	src.FP = map[Context][]int{Left: {43}}
	trial, err := NewTrial(src, src)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	cycles := trial.Cycles()
	if cycles[0].OnForceplate {
		t.Fatal("cycle at 10 should be off forceplate (distance 33)")
	}
	if !cycles[1].OnForceplate {
		t.Fatal("cycle at 40 should be on forceplate (distance 3)")
	}
}

func TestOnForceplateAccountsForOffset(t *testing.T) {
	src := testSource()
	src.Meta.Offset = 100
	src.Meta.Length = 100
	src.Meta.Strikes[Left] = []int{110, 140, 170}
	src.Meta.Toeoffs[Left] = []int{125, 155}
	// forceplate strikes are 0-based relative to the recording start
	src.FP = map[Context][]int{Left: {12}}
	trial, err := NewTrial(src, src)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	cycles := trial.Cycles()
	if !cycles[0].OnForceplate {
		t.Fatal("cycle at 110 should match forceplate strike at 0-based frame 12")
	}
	if c := cycles[0]; c.Start != 10 || c.End != 40 {
		t.Fatalf("cycle bounds must be 0-based: got [%d,%d)", c.Start, c.End)
	}
}

func TestEmptyForceplateDetectorIsNotAnError(t *testing.T) {
	src := testSource()
	src.FP = map[Context][]int{}
	trial, err := NewTrial(src, src)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	for _, c := range trial.Cycles() {
		if c.OnForceplate {
			t.Fatal("no cycle can be on forceplate with no detected strikes")
		}
	}
}

type countingSource struct {
	*StaticSource
	calls int
}

func (s *countingSource) Curve(name string) ([]float64, error) {
	s.calls++
	return s.StaticSource.Curve(name)
}

func TestCurveCacheMemoization(t *testing.T) {
	src := &countingSource{StaticSource: testSource()}
	trial, err := NewTrial(src, nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	if _, err := trial.Curve("LKneeAnglesX"); err != nil {
		t.Fatalf("Curve: %v", err)
	}
	if _, err := trial.Curve("LKneeAnglesX"); err != nil {
		t.Fatalf("Curve: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 source read, got %d", src.calls)
	}
	trial.InvalidateCurves()
	if _, err := trial.Curve("LKneeAnglesX"); err != nil {
		t.Fatalf("Curve after invalidate: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected re-read after invalidate, got %d calls", src.calls)
	}
}

func TestCurveMissingVariable(t *testing.T) {
	trial, err := NewTrial(testSource(), nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	_, err = trial.Curve("NoSuchVar")
	var missing *MissingVariableError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingVariableError, got %v", err)
	}
}

func TestCurveRejectsBadLength(t *testing.T) {
	src := testSource()
	src.Curves["Broken"] = make([]float64, 55)
	trial, err := NewTrial(src, nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	if _, err := trial.Curve("Broken"); err == nil {
		t.Fatal("expected error for curve on neither axis")
	}
}

func TestCycleCurveNormalized(t *testing.T) {
	trial, err := NewTrial(testSource(), nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	cyc := trial.Cycles()[0]
	tn, data, err := trial.CycleCurve("LKneeAnglesX", cyc)
	if err != nil {
		t.Fatalf("CycleCurve: %v", err)
	}
	if len(tn) != NormalizedLen || len(data) != NormalizedLen {
		t.Fatalf("expected %d points, got %d", NormalizedLen, len(data))
	}
}

func TestCycleCurveAnalogCropped(t *testing.T) {
	trial, err := NewTrial(testSource(), nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	cyc := trial.Cycles()[0]
	ta, data, err := trial.CycleCurve("LGas", cyc)
	if err != nil {
		t.Fatalf("CycleCurve: %v", err)
	}
	if len(data) != cyc.LenSamples() || len(ta) != cyc.LenSamples() {
		t.Fatalf("expected %d samples, got %d", cyc.LenSamples(), len(data))
	}
}

func TestCycleCurveUnnormalized(t *testing.T) {
	trial, err := NewTrial(testSource(), nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	ax, data, err := trial.CycleCurve("LKneeAnglesX", nil)
	if err != nil {
		t.Fatalf("CycleCurve: %v", err)
	}
	if len(data) != 100 {
		t.Fatalf("expected raw length 100, got %d", len(data))
	}
	if ax[0] != 0 || ax[99] != 99 {
		t.Fatalf("expected raw frame axis, got %g..%g", ax[0], ax[len(ax)-1])
	}
}

func TestCycleByIndex(t *testing.T) {
	trial, err := NewTrial(testSource(), nil)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	c, err := trial.Cycle(Left, 2)
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if c.Start != 40 {
		t.Fatalf("expected 2nd left cycle at 40, got %d", c.Start)
	}
	if _, err := trial.Cycle(Left, 0); err == nil {
		t.Fatal("expected error for index 0")
	}
	if _, err := trial.Cycle(Left, 5); err == nil {
		t.Fatal("expected error for out-of-range cycle")
	}
	if _, err := trial.Cycle(Right, 1); err == nil {
		t.Fatal("expected error for side with no cycles")
	}
}

func TestMetadataValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Metadata)
	}{
		{"zero frame rate", func(m *Metadata) { m.FrameRate = 0 }},
		{"negative analog rate", func(m *Metadata) { m.AnalogRate = -1 }},
		{"zero length", func(m *Metadata) { m.Length = 0 }},
		{"negative offset", func(m *Metadata) { m.Offset = -5 }},
		{"event beyond recording", func(m *Metadata) { m.Strikes[Left] = []int{10, 400} }},
		{"toeoff before offset", func(m *Metadata) {
			m.Offset = 50
			m.Toeoffs[Left] = []int{25}
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := testMeta()
			c.mutate(&m)
			if err := m.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", c.name)
			}
		})
	}
	m := testMeta()
	if err := m.Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}
}
