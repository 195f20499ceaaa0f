// Package pipeline runs batch curve aggregation over exported trial
// bundles and writes the per-variable results as Parquet/CSV/JSON
// artifacts.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gaitlab/gaitstats"
	"github.com/gaitlab/gaitstats/aggregate"
)

// Run executes the full aggregation pipeline and writes all artifacts.
func Run(opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if len(opts.TrialPaths) == 0 {
		return nil, fmt.Errorf("at least one trial bundle is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	spec, err := cfg.spec()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	trials := make([]*gaitstats.Trial, 0, len(opts.TrialPaths))
	inventory := make([]TrialCycles, 0, len(opts.TrialPaths))
	for _, path := range opts.TrialPaths {
		bundle, err := LoadBundle(path)
		if err != nil {
			return nil, err
		}
		src := bundle.Source()
		trial, err := gaitstats.NewTrial(src, src, gaitstats.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("build trial from %s: %w", path, err)
		}
		log.Info("loaded trial",
			zap.String("trial", trial.Meta().TrialName),
			zap.Int("cycles", trial.NumCycles()))
		trials = append(trials, trial)
		inventory = append(inventory, cycleInventory(trial))
	}

	aggOpts := cfg.aggregateOptions(spec, log)
	res := &Result{OutputDir: opts.OutDir}
	var summary []SummaryEntry

	if len(cfg.Variables) > 0 {
		agg, err := aggregate.Aggregate(trials, cfg.Variables, aggOpts)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutDir, "aggregate_curves."+format)
		if err := writeCurves(path, format, curveRows(agg, cfg.Variables)); err != nil {
			return nil, fmt.Errorf("write aggregate curves: %w", err)
		}
		res.CurvesPath = path
		summary = append(summary, summaryEntries(agg, cfg.Variables)...)
	}

	if len(cfg.AnalogChannels) > 0 {
		agg, err := aggregate.AggregateAnalog(trials, cfg.AnalogChannels, cfg.analogOptions(spec, log), aggOpts)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutDir, "analog_curves."+format)
		if err := writeCurves(path, format, curveRows(agg, cfg.AnalogChannels)); err != nil {
			return nil, fmt.Errorf("write analog curves: %w", err)
		}
		res.AnalogCurvesPath = path
		summary = append(summary, summaryEntries(agg, cfg.AnalogChannels)...)
	}

	res.SummaryPath = filepath.Join(opts.OutDir, "aggregate_summary.json")
	if err := writeJSON(res.SummaryPath, summary); err != nil {
		return nil, fmt.Errorf("write aggregate_summary.json: %w", err)
	}

	res.CyclesPath = filepath.Join(opts.OutDir, "cycles.json")
	if err := writeJSON(res.CyclesPath, inventory); err != nil {
		return nil, fmt.Errorf("write cycles.json: %w", err)
	}

	res.ReportPath = filepath.Join(opts.OutDir, "report.txt")
	report := BuildReport(spec.String(), inventory, summary)
	if err := os.WriteFile(res.ReportPath, []byte(report), 0o644); err != nil {
		return nil, fmt.Errorf("write report.txt: %w", err)
	}
	return res, nil
}

func loadConfig(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if len(cfg.Variables) == 0 && len(cfg.AnalogChannels) == 0 {
		return nil, fmt.Errorf("config %s selects no variables or analog channels", path)
	}
	return &cfg, nil
}

func (c *Config) spec() (gaitstats.CycleSpec, error) {
	switch strings.ToLower(strings.TrimSpace(c.CycleSpec)) {
	case "", "all":
		return gaitstats.AllCycles(), nil
	case "forceplate":
		return gaitstats.ForceplateCycles(), nil
	case "first_n":
		return gaitstats.FirstNCycles(c.FirstN), nil
	case "unnormalized":
		return gaitstats.Unnormalized(), nil
	}
	return gaitstats.CycleSpec{}, &gaitstats.SpecMismatchError{
		Msg: fmt.Sprintf("unrecognized cycle spec %q", c.CycleSpec),
	}
}

func (c *Config) aggregateOptions(spec gaitstats.CycleSpec, log *zap.Logger) aggregate.Options {
	o := aggregate.DefaultOptions()
	o.Spec = spec
	o.Logger = log
	if c.UseMedians {
		o.Mode = aggregate.MedianMAD
	}
	if c.RejectZeros != nil {
		o.RejectZeros = *c.RejectZeros
	}
	if c.RejectOutliers != nil {
		o.OutlierP = *c.RejectOutliers
	}
	return o
}

func (c *Config) analogOptions(spec gaitstats.CycleSpec, log *zap.Logger) aggregate.AnalogOptions {
	a := aggregate.DefaultAnalogOptions()
	a.Spec = spec
	a.Logger = log
	if c.RMSWindow > 0 {
		a.RMSWindow = c.RMSWindow
	}
	return a
}

func cycleInventory(t *gaitstats.Trial) TrialCycles {
	out := TrialCycles{TrialName: t.Meta().TrialName}
	for _, c := range t.Cycles() {
		out.Cycles = append(out.Cycles, CycleRecord{
			Context:      c.Context.String(),
			Start:        c.Start,
			End:          c.End,
			Toeoff:       c.Toeoff,
			ToeoffPct:    c.ToeoffPct(),
			OnForceplate: c.OnForceplate,
		})
	}
	return out
}

// curveRow is one grid point of one aggregated variable.
type curveRow struct {
	Variable string
	Pct      float64
	Value    float64
	Spread   float64
	N        int
}

func curveRows(agg aggregate.Result, vars []string) []curveRow {
	var rows []curveRow
	for _, v := range vars {
		r := agg[v]
		if r.Curve == nil {
			continue
		}
		for i := range r.Curve {
			rows = append(rows, curveRow{
				Variable: v,
				Pct:      100 * float64(i) / float64(len(r.Curve)-1),
				Value:    r.Curve[i],
				Spread:   r.Spread[i],
				N:        r.Accepted,
			})
		}
	}
	return rows
}

func summaryEntries(agg aggregate.Result, vars []string) []SummaryEntry {
	out := make([]SummaryEntry, 0, len(vars))
	for _, v := range vars {
		r := agg[v]
		out = append(out, SummaryEntry{Variable: v, Accepted: r.Accepted, Total: r.Total})
	}
	return out
}

func writeCurves(path, format string, rows []curveRow) error {
	if format == "csv" {
		return writeCurvesCSV(path, rows)
	}
	return writeCurvesParquet(path, rows)
}

func writeCurvesCSV(path string, rows []curveRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"variable", "pct", "value", "spread", "n"}); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.Variable,
			formatFloat(r.Pct),
			formatFloat(r.Value),
			formatFloat(r.Spread),
			strconv.Itoa(r.N),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type curveParquetRow struct {
	Variable string  `parquet:"name=variable, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Pct      float64 `parquet:"name=pct, type=DOUBLE"`
	Value    float64 `parquet:"name=value, type=DOUBLE"`
	Spread   float64 `parquet:"name=spread, type=DOUBLE"`
	N        int64   `parquet:"name=n, type=INT64"`
}

func writeCurvesParquet(path string, rows []curveRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(curveParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		row := curveParquetRow{
			Variable: r.Variable,
			Pct:      r.Pct,
			Value:    r.Value,
			Spread:   r.Spread,
			N:        int64(r.N),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
