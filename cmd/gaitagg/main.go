package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gaitlab/gaitstats/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML run configuration")
		outDir     = flag.String("out", "", "Output directory")
		format     = flag.String("format", "parquet", "Curve artifact format: parquet|csv")
		verbose    = flag.Bool("v", false, "Verbose diagnostics")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --config run.yaml --out outdir [--format parquet|csv] trial1.json [trial2.json ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*configPath) == "" || strings.TrimSpace(*outDir) == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logCfg := zap.NewProductionConfig()
	if *verbose {
		logCfg = zap.NewDevelopmentConfig()
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gaitagg: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	result, err := pipeline.Run(pipeline.Options{
		ConfigPath: *configPath,
		TrialPaths: flag.Args(),
		OutDir:     *outDir,
		Format:     *format,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "gaitagg failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("gaitagg complete\n")
	fmt.Printf("Output dir:        %s\n", result.OutputDir)
	if result.CurvesPath != "" {
		fmt.Printf("aggregate curves:  %s\n", result.CurvesPath)
	}
	if result.AnalogCurvesPath != "" {
		fmt.Printf("analog curves:     %s\n", result.AnalogCurvesPath)
	}
	fmt.Printf("summary:           %s\n", result.SummaryPath)
	fmt.Printf("cycle inventory:   %s\n", result.CyclesPath)
	fmt.Printf("report:            %s\n", result.ReportPath)
}
