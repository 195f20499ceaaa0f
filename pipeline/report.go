package pipeline

import (
	"fmt"
	"strings"
)

// BuildReport renders a plain-text run summary: per-trial cycle inventory
// and per-variable acceptance counts, readable without any tooling.
func BuildReport(spec string, inventory []TrialCycles, summary []SummaryEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Aggregation run (%d trials, cycle spec: %s)\n", len(inventory), spec)

	b.WriteString("\nTrials\n")
	for _, tc := range inventory {
		onPlate := 0
		left := 0
		for _, c := range tc.Cycles {
			if c.OnForceplate {
				onPlate++
			}
			if c.Context == "L" {
				left++
			}
		}
		fmt.Fprintf(
			&b,
			"- %s: %d cycles (%dL/%dR), %d on forceplate\n",
			tc.TrialName,
			len(tc.Cycles),
			left,
			len(tc.Cycles)-left,
			onPlate,
		)
	}

	b.WriteString("\nVariables\n")
	if len(summary) == 0 {
		b.WriteString("- none aggregated\n")
	}
	for _, s := range summary {
		switch {
		case s.Total == 0:
			fmt.Fprintf(&b, "- %s: no curves collected\n", s.Variable)
		case s.Accepted < s.Total:
			fmt.Fprintf(
				&b,
				"- %s: %d/%d curves accepted (%d rejected)\n",
				s.Variable,
				s.Accepted,
				s.Total,
				s.Total-s.Accepted,
			)
		default:
			fmt.Fprintf(&b, "- %s: %d/%d curves accepted\n", s.Variable, s.Accepted, s.Total)
		}
	}

	return strings.TrimSpace(b.String()) + "\n"
}
