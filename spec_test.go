package gaitstats

import (
	"errors"
	"testing"
)

func twoSidedTrial(t *testing.T) *Trial {
	t.Helper()
	src := testSource()
	src.Meta.Strikes = map[Context][]int{
		Left:  {10, 40, 70},
		Right: {25, 55, 85},
	}
	src.Meta.Toeoffs = map[Context][]int{
		Left:  {25, 55},
		Right: {40, 70},
	}
	src.FP = map[Context][]int{Left: {40}}
	trial, err := NewTrial(src, src)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	return trial
}

func TestSelectAll(t *testing.T) {
	trial := twoSidedTrial(t)
	cycles, err := AllCycles().Select(trial)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(cycles) != 4 {
		t.Fatalf("expected 4 cycles, got %d", len(cycles))
	}
}

func TestSelectForceplate(t *testing.T) {
	trial := twoSidedTrial(t)
	cycles, err := ForceplateCycles().Select(trial)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(cycles) != 1 {
		t.Fatalf("expected 1 forceplate cycle, got %d", len(cycles))
	}
	if c := cycles[0]; c.Context != Left || c.Start != 40 {
		t.Fatalf("unexpected forceplate cycle %s", c)
	}
}

func TestSelectFirstN(t *testing.T) {
	trial := twoSidedTrial(t)
	cycles, err := FirstNCycles(1).Select(trial)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("expected 1 cycle per side, got %d", len(cycles))
	}
	seen := map[Context]int{}
	for _, c := range cycles {
		seen[c.Context]++
	}
	if seen[Left] != 1 || seen[Right] != 1 {
		t.Fatalf("expected one cycle per side, got %v", seen)
	}
}

func TestSelectFirstNRejectsBadCount(t *testing.T) {
	trial := twoSidedTrial(t)
	_, err := FirstNCycles(0).Select(trial)
	var mismatch *SpecMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SpecMismatchError, got %v", err)
	}
}

func TestSelectUnnormalized(t *testing.T) {
	trial := twoSidedTrial(t)
	cycles, err := Unnormalized().Select(trial)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(cycles) != 1 || cycles[0] != nil {
		t.Fatalf("expected a single nil cycle, got %v", cycles)
	}
}

func TestSelectUnknownKind(t *testing.T) {
	trial := twoSidedTrial(t)
	_, err := CycleSpec{Kind: SpecKind(42)}.Select(trial)
	var mismatch *SpecMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SpecMismatchError, got %v", err)
	}
}
