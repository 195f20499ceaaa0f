package gaitstats

import "fmt"

// CycleError reports a malformed cycle window found during segmentation.
// Segmentation errors always propagate: a recording with missing or
// ambiguous events cannot be silently patched.
type CycleError struct {
	Context Context
	Start   int // strike frame beginning the offending window, provider numbering
	Reason  string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle starting at frame %d: %s", e.Context, e.Start, e.Reason)
}

// MissingVariableError signals a curve name the data source cannot resolve.
// The aggregator absorbs it (the variable is skipped for that trial); other
// callers should treat it as fatal.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("variable %q not found in data source", e.Name)
}

// SpecMismatchError signals an unusable cycle-selection spec: an
// unrecognized kind, an invalid payload, or mixing unnormalized data into a
// normalized aggregation. Surfaced before any computation proceeds.
type SpecMismatchError struct {
	Msg string
}

func (e *SpecMismatchError) Error() string {
	return "cycle spec mismatch: " + e.Msg
}
