package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gaitlab/gaitstats"
)

// TrialBundle is the plain interchange form of one trial, as exported by an
// external data provider: sampling metadata, event lists, detected
// forceplate strikes and named curve arrays. Proprietary-format parsing
// stays with the provider; this module only reads the exported form.
type TrialBundle struct {
	TrialName         string               `json:"trial_name"`
	SubjectName       string               `json:"subject_name,omitempty"`
	FrameRate         float64              `json:"frame_rate"`
	AnalogRate        float64              `json:"analog_rate"`
	Offset            int                  `json:"offset"`
	Length            int                  `json:"length"`
	Strikes           SideEvents           `json:"strikes"`
	Toeoffs           SideEvents           `json:"toeoffs"`
	ForceplateStrikes SideEvents           `json:"forceplate_strikes"`
	Curves            map[string][]float64 `json:"curves"`
}

// SideEvents holds per-side event frame lists.
type SideEvents struct {
	Left  []int `json:"left"`
	Right []int `json:"right"`
}

func (e SideEvents) toMap() map[gaitstats.Context][]int {
	return map[gaitstats.Context][]int{
		gaitstats.Left:  e.Left,
		gaitstats.Right: e.Right,
	}
}

// Source converts the bundle into an in-memory data source.
func (b *TrialBundle) Source() *gaitstats.StaticSource {
	return &gaitstats.StaticSource{
		Meta: gaitstats.Metadata{
			TrialName:   b.TrialName,
			SubjectName: b.SubjectName,
			FrameRate:   b.FrameRate,
			AnalogRate:  b.AnalogRate,
			Offset:      b.Offset,
			Length:      b.Length,
			Strikes:     b.Strikes.toMap(),
			Toeoffs:     b.Toeoffs.toMap(),
		},
		Curves: b.Curves,
		FP:     b.ForceplateStrikes.toMap(),
	}
}

// LoadBundle reads one JSON trial bundle from disk.
func LoadBundle(path string) (*TrialBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trial bundle: %w", err)
	}
	var b TrialBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode trial bundle %s: %w", path, err)
	}
	if b.TrialName == "" {
		b.TrialName = path
	}
	return &b, nil
}
