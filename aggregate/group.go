package aggregate

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/gaitlab/gaitstats"
)

// ScalarValue is one scalar analysis value (e.g. a time-distance parameter)
// with per-side readings and a unit.
type ScalarValue struct {
	Unit   string
	Values map[gaitstats.Context]float64
}

// ValueTable holds the scalar analysis values of one trial, keyed by
// condition and then variable name.
type ValueTable map[string]map[string]ScalarValue

// Reducer collapses the values gathered across trials for one variable and
// side. NaN entries are filtered out before the reducer runs.
type Reducer func([]float64) float64

// MeanReducer averages the gathered values.
func MeanReducer(vals []float64) float64 {
	m, err := stats.Mean(vals)
	if err != nil {
		return math.NaN()
	}
	return m
}

// GroupAnalysis combines scalar value tables across trials by applying the
// reducer per variable and side. The condition sets must match across
// tables; only variables present in every table are combined, the rest are
// dropped. A side with no finite values reduces to NaN. Empty input yields
// a nil table.
func GroupAnalysis(tables []ValueTable, fun Reducer) (ValueTable, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	if fun == nil {
		fun = MeanReducer
	}

	first := tables[0]
	for _, tab := range tables[1:] {
		if !sameConditions(first, tab) {
			return nil, fmt.Errorf("group analysis: condition sets do not match between tables")
		}
	}

	out := make(ValueTable, len(first))
	for cond := range first {
		common := commonVars(tables, cond)
		out[cond] = make(map[string]ScalarValue, len(common))
		for _, v := range common {
			sv := ScalarValue{
				Unit:   first[cond][v].Unit,
				Values: make(map[gaitstats.Context]float64, len(gaitstats.Contexts)),
			}
			for _, ctx := range gaitstats.Contexts {
				var vals []float64
				for _, tab := range tables {
					x, ok := tab[cond][v].Values[ctx]
					if !ok || math.IsNaN(x) {
						continue
					}
					vals = append(vals, x)
				}
				if len(vals) == 0 {
					sv.Values[ctx] = math.NaN()
					continue
				}
				sv.Values[ctx] = fun(vals)
			}
			out[cond][v] = sv
		}
	}
	return out, nil
}

func sameConditions(a, b ValueTable) bool {
	if len(a) != len(b) {
		return false
	}
	for cond := range a {
		if _, ok := b[cond]; !ok {
			return false
		}
	}
	return true
}

// commonVars returns the variables present under cond in every table.
func commonVars(tables []ValueTable, cond string) []string {
	var out []string
	for v := range tables[0][cond] {
		inAll := true
		for _, tab := range tables[1:] {
			if _, ok := tab[cond][v]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, v)
		}
	}
	return out
}
