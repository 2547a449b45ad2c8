package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/openfoodfacts/nutrieval/internal/cache"
	"github.com/openfoodfacts/nutrieval/internal/groundtruth"
	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/openfoodfacts/nutrieval/internal/observability"
	"github.com/openfoodfacts/nutrieval/internal/orchestration"
	"github.com/openfoodfacts/nutrieval/internal/prediction"
	"github.com/openfoodfacts/nutrieval/internal/projectconfig"
	"github.com/openfoodfacts/nutrieval/internal/reporting"
	"github.com/openfoodfacts/nutrieval/internal/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	dataDir      string
	outputPath   string
	codesPath    string
	tolerance    float64
	workers      int
	detail       bool
	enableCache  bool
	disableCache bool
	runCacheDir  string
	jsonPath     string
	junitPath    string
	metricsPath  string
	interpret    bool
	minScore1    float64
	minScore2    float64
	codeFilters  []string
	verbose      bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate predictions against ground-truth files",
		Long: `Evaluate nutrient predictions against ground-truth files.

Every *.nutriments.json file below the data directory is a ground-truth
record named after its product code. For each product the prediction is
fetched from Robotoff, compared nutrient by nutrient and scored. One row per
product is written to the report, in processing order.

Settings are read from .nutrieval.yaml and NUTRIEVAL_* environment variables;
flags override both.`,
		Args: cobra.NoArgs,
		RunE: runCommandE,
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", projectconfig.DefaultDataDir, "Directory containing *.nutriments.json ground-truth files")
	cmd.Flags().StringVarP(&outputPath, "output", "o", projectconfig.DefaultOutput, "Report file (';'-separated)")
	cmd.Flags().StringVar(&codesPath, "codes", "", "CSV file with a 'code' column restricting and ordering the products")
	cmd.Flags().Float64Var(&tolerance, "tolerance", projectconfig.DefaultTolerance, "Relative tolerance of the comparison")
	cmd.Flags().IntVar(&workers, "workers", projectconfig.DefaultWorkers, "Number of products evaluated concurrently")
	cmd.Flags().BoolVar(&detail, "detail", false, "Add status and per-nutrient columns to the report")
	cmd.Flags().BoolVar(&enableCache, "cache", false, "Cache successful predictions on disk")
	cmd.Flags().BoolVar(&disableCache, "no-cache", false, "Disable the prediction cache")
	cmd.Flags().StringVar(&runCacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory for predictions")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Also save the full outcome as JSON")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Also export the outcome as JUnit XML")
	cmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus metrics in text format")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().Float64Var(&minScore1, "min-score1", 0, "Fail with exit code 1 if mean score1 is below this value")
	cmd.Flags().Float64Var(&minScore2, "min-score2", 0, "Fail with exit code 1 if mean score2 is below this value")
	cmd.Flags().StringArrayVar(&codeFilters, "filter", nil, "Only evaluate codes matching this glob pattern (can be repeated)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print one line per product")

	cmd.MarkFlagsMutuallyExclusive("cache", "no-cache")

	return cmd
}

func runCommandE(cmd *cobra.Command, _ []string) error {
	cfg, err := projectconfig.Load(".")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyRunFlags(cmd, cfg)
	if err := checkSettings(cfg); err != nil {
		return err
	}

	entries, err := groundtruth.Discover(cfg.Paths.Data)
	if err != nil {
		return fmt.Errorf("discovering ground truth: %w", err)
	}
	store := groundtruth.NewStore(entries)

	codes := groundtruth.Codes(entries)
	if cfg.Paths.Codes != "" {
		codes, err = groundtruth.LoadCodes(cfg.Paths.Codes)
		if err != nil {
			return err
		}
	}
	codes, err = orchestration.FilterCodes(codes, codeFilters)
	if err != nil {
		return err
	}

	source, err := newPredictionSource(cfg)
	if err != nil {
		return err
	}

	m := observability.New()
	runner := orchestration.NewRunner(source, store,
		orchestration.WithTolerance(*cfg.Evaluation.Tolerance),
		orchestration.WithWorkers(cfg.Evaluation.Workers),
		orchestration.WithMetrics(m),
	)

	out := cmd.OutOrStdout()
	var spin *spinner.Spinner
	switch {
	case verbose:
		runner.OnProgress(verboseProgressListener(out))
	case isTerminal(os.Stderr):
		spin = spinner.Start(os.Stderr, "Evaluating products...")
		runner.OnProgress(spinnerProgressListener(spin))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "Ground truth: %s (%d file(s))\n", cfg.Paths.Data, len(entries))
	fmt.Fprintf(out, "Products:     %d\n", len(codes))
	fmt.Fprintf(out, "Tolerance:    %.0f%%\n", *cfg.Evaluation.Tolerance*100)
	if cfg.Evaluation.Workers > 1 {
		fmt.Fprintf(out, "Parallel:     %d workers\n", cfg.Evaluation.Workers)
	}
	fmt.Fprintln(out)

	outcome, err := runner.Run(ctx, codes)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if err := writeReports(out, cfg, outcome, m); err != nil {
		return err
	}

	printSummary(out, outcome)
	if interpret {
		fmt.Fprintln(out)
		fmt.Fprint(out, reporting.FormatSummaryReport(outcome))
	}

	return checkGates(cfg.Gates, outcome.Digest)
}

// applyRunFlags overlays the flags set on the command line onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Paths.Data = dataDir
	}
	if flags.Changed("output") {
		cfg.Paths.Output = outputPath
	}
	if flags.Changed("codes") {
		cfg.Paths.Codes = codesPath
	}
	if flags.Changed("tolerance") {
		t := tolerance
		cfg.Evaluation.Tolerance = &t
	}
	if flags.Changed("workers") {
		cfg.Evaluation.Workers = workers
	}
	if flags.Changed("detail") {
		d := detail
		cfg.Evaluation.Detail = &d
	}
	if flags.Changed("cache") || flags.Changed("no-cache") {
		enabled := enableCache && !disableCache
		cfg.Cache.Enabled = &enabled
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir = runCacheDir
	}
	if flags.Changed("min-score1") {
		s := minScore1
		cfg.Gates.MinScore1 = &s
	}
	if flags.Changed("min-score2") {
		s := minScore2
		cfg.Gates.MinScore2 = &s
	}
}

func checkSettings(cfg *projectconfig.ProjectConfig) error {
	if t := *cfg.Evaluation.Tolerance; t < 0 || t > 1 {
		return fmt.Errorf("tolerance must be between 0 and 1, got %v", t)
	}
	if cfg.Evaluation.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Evaluation.Workers)
	}
	if cfg.Services.Timeout < 1 {
		return fmt.Errorf("services timeout must be at least 1 second, got %d", cfg.Services.Timeout)
	}
	return nil
}

// newPredictionSource builds the Robotoff client, wrapped in the on-disk
// cache when enabled.
func newPredictionSource(cfg *projectconfig.ProjectConfig) (prediction.Source, error) {
	client := prediction.NewClient(prediction.ClientOptions{
		ProductAPI:        cfg.Services.ProductAPI,
		StaticBase:        cfg.Services.StaticBase,
		Robotoff:          cfg.Services.Robotoff,
		ImageKeys:         cfg.Services.ImageKeys,
		Timeout:           time.Duration(cfg.Services.Timeout) * time.Second,
		RequestsPerSecond: cfg.Services.RequestsPerSecond,
	})

	if cfg.Cache.Enabled == nil || !*cfg.Cache.Enabled {
		return client, nil
	}
	absCacheDir, err := filepath.Abs(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	namespace := cfg.Services.Robotoff + "|" + strings.Join(cfg.Services.ImageKeys, ",")
	return prediction.NewCachedSource(client, cache.New(absCacheDir), namespace), nil
}

func writeReports(out io.Writer, cfg *projectconfig.ProjectConfig, outcome *models.EvaluationOutcome, m *observability.Metrics) error {
	if err := ensureParentDir(cfg.Paths.Output); err != nil {
		return err
	}
	withDetail := cfg.Evaluation.Detail != nil && *cfg.Evaluation.Detail
	if err := reporting.WriteCSVFile(outcome, cfg.Paths.Output, withDetail); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	fmt.Fprintf(out, "Report saved to: %s\n", cfg.Paths.Output)

	if jsonPath != "" {
		if err := saveOutcome(outcome, jsonPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(out, "Results saved to: %s\n", jsonPath)
	}
	if junitPath != "" {
		if err := reporting.WriteJUnitXML(outcome, junitPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "JUnit report saved to: %s\n", junitPath)
	}
	if metricsPath != "" {
		if err := m.WriteTextfile(metricsPath); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		fmt.Fprintf(out, "Metrics saved to: %s\n", metricsPath)
	}
	fmt.Fprintln(out)
	return nil
}

// checkGates returns a ThresholdError when a mean score is below its gate.
func checkGates(gates projectconfig.GatesConfig, d models.OutcomeDigest) error {
	var failed []string
	if gates.MinScore1 != nil && d.MeanScore1 < *gates.MinScore1 {
		failed = append(failed, fmt.Sprintf("mean score1 %.2f < %.2f", d.MeanScore1, *gates.MinScore1))
	}
	if gates.MinScore2 != nil && d.MeanScore2 < *gates.MinScore2 {
		failed = append(failed, fmt.Sprintf("mean score2 %.2f < %.2f", d.MeanScore2, *gates.MinScore2))
	}
	if len(failed) > 0 {
		return &ThresholdError{
			Message: "quality gate failed: " + strings.Join(failed, ", "),
		}
	}
	return nil
}

func verboseProgressListener(w io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventBatchStart:
			fmt.Fprintf(w, "Starting evaluation of %d product(s)...\n\n", event.TotalProducts)
		case orchestration.EventProductComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(w, "✓ [%d/%d] %s (%v)\n", event.ProductNum, event.TotalProducts, event.Code, duration)
		case orchestration.EventProductSkipped:
			reason, _ := event.Details["reason"].(string)
			fmt.Fprintf(w, "✗ [%d/%d] %s [%s] %s\n", event.ProductNum, event.TotalProducts, event.Code, event.Status, reason)
		case orchestration.EventBatchComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(w, "\nEvaluation completed in %v\n\n", duration)
		}
	}
}

// spinnerProgressListener counts finished products. Events of a concurrent
// run arrive out of order, so ProductNum is not a progress counter.
func spinnerProgressListener(s *spinner.Spinner) orchestration.ProgressListener {
	var finished atomic.Int64
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventProductComplete, orchestration.EventProductSkipped:
			n := finished.Add(1)
			s.Update(fmt.Sprintf("Evaluating products %d/%d", n, event.TotalProducts))
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func printSummary(w io.Writer, outcome *models.EvaluationOutcome) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " EVALUATION RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	d := outcome.Digest

	fmt.Fprintf(w, "Total Products:       %d\n", d.TotalProducts)
	fmt.Fprintf(w, "Scored:               %d\n", d.Scored)
	fmt.Fprintf(w, "No Prediction:        %d\n", d.NoPrediction)
	fmt.Fprintf(w, "Fetch Failed:         %d\n", d.FetchFailed)
	fmt.Fprintf(w, "Invalid Ground Truth: %d\n", d.InvalidGroundTruth)
	fmt.Fprintf(w, "Mean Score1:          %.2f\n", d.MeanScore1)
	fmt.Fprintf(w, "Mean Score2:          %.2f\n", d.MeanScore2)

	duration := time.Duration(d.DurationMs) * time.Millisecond
	fmt.Fprintf(w, "Duration:             %v\n", duration)
	fmt.Fprintln(w)

	var skipped []models.ProductOutcome
	for _, p := range outcome.Products {
		if !p.Status.Scored() {
			skipped = append(skipped, p)
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintln(w, "Skipped Products:")
		for _, p := range skipped {
			fmt.Fprintf(w, "  - %s (%s)", p.Code, p.Status)
			if p.Reason != "" {
				fmt.Fprintf(w, " %s", p.Reason)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
}

func saveOutcome(outcome *models.EvaluationOutcome, path string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
