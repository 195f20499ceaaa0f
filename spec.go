package gaitstats

import "fmt"

// SpecKind enumerates the cycle-selection modes.
type SpecKind int

const (
	// SpecAll selects every cycle of a trial.
	SpecAll SpecKind = iota
	// SpecForceplate selects only cycles beginning with a verified
	// forceplate strike.
	SpecForceplate
	// SpecFirstN selects the first N cycles per side.
	SpecFirstN
	// SpecUnnormalized selects raw, non-cycle-normalized data.
	SpecUnnormalized
)

// CycleSpec is a closed cycle-selection spec: which cycles of a trial to
// use, or whether to bypass cycle normalization entirely.
type CycleSpec struct {
	Kind SpecKind
	N    int // per-side count for SpecFirstN
}

// AllCycles selects every cycle.
func AllCycles() CycleSpec { return CycleSpec{Kind: SpecAll} }

// ForceplateCycles selects forceplate-verified cycles only.
func ForceplateCycles() CycleSpec { return CycleSpec{Kind: SpecForceplate} }

// FirstNCycles selects the first n cycles of each side.
func FirstNCycles(n int) CycleSpec { return CycleSpec{Kind: SpecFirstN, N: n} }

// Unnormalized bypasses cycle normalization; data stays on raw frame or
// sample indices.
func Unnormalized() CycleSpec { return CycleSpec{Kind: SpecUnnormalized} }

func (s CycleSpec) String() string {
	switch s.Kind {
	case SpecAll:
		return "all"
	case SpecForceplate:
		return "forceplate"
	case SpecFirstN:
		return fmt.Sprintf("first %d", s.N)
	case SpecUnnormalized:
		return "unnormalized"
	}
	return fmt.Sprintf("SpecKind(%d)", int(s.Kind))
}

// Select filters the trial's cycle list. For SpecUnnormalized
// the result is a single nil cycle, which Trial.CycleCurve interprets as
// raw data.
func (s CycleSpec) Select(t *Trial) ([]*Gaitcycle, error) {
	switch s.Kind {
	case SpecAll:
		return t.Cycles(), nil
	case SpecForceplate:
		var out []*Gaitcycle
		for _, c := range t.Cycles() {
			if c.OnForceplate {
				out = append(out, c)
			}
		}
		return out, nil
	case SpecFirstN:
		if s.N < 1 {
			return nil, &SpecMismatchError{Msg: fmt.Sprintf("first-N spec needs N >= 1, got %d", s.N)}
		}
		var out []*Gaitcycle
		seen := map[Context]int{}
		for _, c := range t.Cycles() {
			if seen[c.Context] < s.N {
				seen[c.Context]++
				out = append(out, c)
			}
		}
		return out, nil
	case SpecUnnormalized:
		return []*Gaitcycle{nil}, nil
	}
	return nil, &SpecMismatchError{Msg: fmt.Sprintf("unrecognized spec kind %d", int(s.Kind))}
}
