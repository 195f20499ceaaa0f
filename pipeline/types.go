package pipeline

import "go.uber.org/zap"

// Options configures one batch aggregation run.
type Options struct {
	ConfigPath string
	TrialPaths []string
	OutDir     string
	Format     string // parquet|csv
	Logger     *zap.Logger
}

// Result returns generated output paths.
type Result struct {
	OutputDir        string `json:"output_dir"`
	CurvesPath       string `json:"curves_path,omitempty"`
	AnalogCurvesPath string `json:"analog_curves_path,omitempty"`
	SummaryPath      string `json:"summary_path"`
	CyclesPath       string `json:"cycles_path"`
	ReportPath       string `json:"report_path"`
}

// Config is the YAML run configuration.
type Config struct {
	// Variables lists the model variables to aggregate.
	Variables []string `yaml:"variables"`
	// AnalogChannels lists analog (EMG-style) channels to RMS-envelope and
	// aggregate.
	AnalogChannels []string `yaml:"analog_channels"`
	// CycleSpec is one of all|forceplate|first_n|unnormalized.
	CycleSpec string `yaml:"cycle_spec"`
	FirstN    int    `yaml:"first_n"`
	// UseMedians switches the reduction to median/MAD.
	UseMedians bool `yaml:"use_medians"`
	// RejectZeros defaults to true when omitted.
	RejectZeros *bool `yaml:"reject_zeros"`
	// RejectOutliers is the false-rejection P value; omitted means 1e-3,
	// zero disables rejection.
	RejectOutliers *float64 `yaml:"reject_outliers"`
	RMSWindow      int      `yaml:"rms_window"`
}

// SummaryEntry reports per-variable curve acceptance counts.
type SummaryEntry struct {
	Variable string `json:"variable"`
	Accepted int    `json:"accepted"`
	Total    int    `json:"total"`
}

// CycleRecord is one cycle in the per-trial inventory artifact.
type CycleRecord struct {
	Context      string `json:"context"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Toeoff       int    `json:"toeoff"`
	ToeoffPct    int    `json:"toeoff_pct"`
	OnForceplate bool   `json:"on_forceplate"`
}

// TrialCycles is the cycle inventory of one trial.
type TrialCycles struct {
	TrialName string        `json:"trial_name"`
	Cycles    []CycleRecord `json:"cycles"`
}
