package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openfoodfacts/nutrieval/internal/groundtruth"
	"github.com/openfoodfacts/nutrieval/internal/metrics"
	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/openfoodfacts/nutrieval/internal/observability"
	"github.com/openfoodfacts/nutrieval/internal/prediction"
	"github.com/openfoodfacts/nutrieval/internal/scoring"
	"github.com/openfoodfacts/nutrieval/internal/statistics"
	"golang.org/x/sync/errgroup"
)

// Runner evaluates a batch of products: for each code it fetches the
// prediction, loads the ground truth, compares and scores them.
type Runner struct {
	predictions prediction.Source
	truths      groundtruth.Source
	scorer      scoring.Scorer

	tolerance float64
	workers   int
	logger    *slog.Logger
	metrics   *observability.Metrics
	ciOpts    []statistics.Option

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventBatchStart      EventType = "batch_start"
	EventProductStart    EventType = "product_start"
	EventProductComplete EventType = "product_complete"
	EventProductSkipped  EventType = "product_skipped"
	EventBatchComplete   EventType = "batch_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType     EventType
	Code          string
	ProductNum    int
	TotalProducts int
	Status        models.Status
	DurationMs    int64
	Details       map[string]any
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTolerance sets the relative tolerance of the comparison.
func WithTolerance(t float64) RunnerOption {
	return func(r *Runner) {
		r.tolerance = t
	}
}

// WithWorkers sets how many products are evaluated at once. Values of one or
// less evaluate sequentially.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithLogger sets the logger for skipped and scored products.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records every product and the batch digest on m.
func WithMetrics(m *observability.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithScorer replaces the default Score1/Score2 scorer.
func WithScorer(s scoring.Scorer) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithConfidenceOptions tunes the bootstrap behind the digest intervals.
func WithConfidenceOptions(opts ...statistics.Option) RunnerOption {
	return func(r *Runner) {
		r.ciOpts = append(r.ciOpts, opts...)
	}
}

// NewRunner creates a runner reading predictions and ground truth from the
// given sources.
func NewRunner(predictions prediction.Source, truths groundtruth.Source, opts ...RunnerOption) *Runner {
	r := &Runner{
		predictions: predictions,
		truths:      truths,
		scorer:      scoring.VerdictScorer{},
		tolerance:   scoring.DefaultTolerance,
		workers:     1,
		logger:      slog.Default(),
		listeners:   []ProgressListener{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener. With more than one worker,
// listeners are called from several goroutines.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run evaluates codes and returns one outcome per code, in input order.
// Products that cannot be evaluated get a placeholder outcome; only a
// scoring contract violation or a cancelled context aborts the run.
func (r *Runner) Run(ctx context.Context, codes []string) (*models.EvaluationOutcome, error) {
	startTime := time.Now()

	r.notifyProgress(ProgressEvent{
		EventType:     EventBatchStart,
		TotalProducts: len(codes),
	})

	var (
		products []models.ProductOutcome
		err      error
	)
	if r.workers > 1 {
		products, err = r.runConcurrent(ctx, codes)
	} else {
		products, err = r.runSequential(ctx, codes)
	}
	if err != nil {
		return nil, err
	}

	outcome := r.buildOutcome(products, startTime)
	if r.metrics != nil {
		r.metrics.ObserveDigest(outcome.Digest, time.Now())
	}

	r.notifyProgress(ProgressEvent{
		EventType:     EventBatchComplete,
		TotalProducts: len(codes),
		DurationMs:    outcome.Digest.DurationMs,
		Details: map[string]any{
			"scored":      outcome.Digest.Scored,
			"mean_score1": outcome.Digest.MeanScore1,
			"mean_score2": outcome.Digest.MeanScore2,
		},
	})

	return outcome, nil
}

func (r *Runner) runSequential(ctx context.Context, codes []string) ([]models.ProductOutcome, error) {
	outcomes := make([]models.ProductOutcome, len(codes))

	for i, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := r.runProduct(ctx, code, i+1, len(codes))
		if err != nil {
			return nil, err
		}
		outcomes[i] = outcome
	}

	return outcomes, nil
}

func (r *Runner) runConcurrent(ctx context.Context, codes []string) ([]models.ProductOutcome, error) {
	outcomes := make([]models.ProductOutcome, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, code := range codes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := r.runProduct(gctx, code, i+1, len(codes))
			if err != nil {
				return err
			}
			// Each goroutine owns its slot, so order is the input order.
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) runProduct(ctx context.Context, code string, num, total int) (models.ProductOutcome, error) {
	r.notifyProgress(ProgressEvent{
		EventType:     EventProductStart,
		Code:          code,
		ProductNum:    num,
		TotalProducts: total,
	})

	start := time.Now()
	outcome, err := r.evaluate(ctx, code)
	if err != nil {
		return models.ProductOutcome{}, err
	}
	elapsed := time.Since(start)
	outcome.DurationMs = elapsed.Milliseconds()

	if r.metrics != nil {
		r.metrics.ObserveProduct(outcome, elapsed)
	}

	if !outcome.Status.Scored() {
		r.logger.Warn("product skipped", "code", code, "status", outcome.Status, "reason", outcome.Reason)
		r.notifyProgress(ProgressEvent{
			EventType:     EventProductSkipped,
			Code:          code,
			ProductNum:    num,
			TotalProducts: total,
			Status:        outcome.Status,
			DurationMs:    outcome.DurationMs,
			Details:       map[string]any{"reason": outcome.Reason},
		})
		return outcome, nil
	}

	r.logger.Debug("product scored",
		"code", code,
		"determinate", outcome.DeterminateCount,
		"score1", outcome.Score1,
		"score2", outcome.Score2,
	)
	r.notifyProgress(ProgressEvent{
		EventType:     EventProductComplete,
		Code:          code,
		ProductNum:    num,
		TotalProducts: total,
		Status:        outcome.Status,
		DurationMs:    outcome.DurationMs,
		Details: map[string]any{
			"determinate_count": outcome.DeterminateCount,
			"score1":            outcome.Score1,
			"score2":            outcome.Score2,
		},
	})
	return outcome, nil
}

// evaluate runs the pipeline of one product. Retrieval and ground-truth
// failures become placeholders; the returned error is always fatal.
func (r *Runner) evaluate(ctx context.Context, code string) (models.ProductOutcome, error) {
	pred, err := r.predictions.Fetch(ctx, code)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ProductOutcome{}, ctxErr
		}
		var rerr *prediction.RetrievalError
		if errors.As(err, &rerr) {
			return models.NewPlaceholder(code, models.StatusNoPrediction, err.Error()), nil
		}
		return models.NewPlaceholder(code, models.StatusFetchFailed, err.Error()), nil
	}

	truth, err := r.truths.Load(ctx, code)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ProductOutcome{}, ctxErr
		}
		var perr *groundtruth.ParseError
		if !errors.As(err, &perr) {
			r.logger.Debug("ground truth source returned an untyped error", "code", code, "error", err)
		}
		return models.NewPlaceholder(code, models.StatusInvalidGroundTruth, err.Error()), nil
	}

	verdicts := scoring.Compare(pred, truth, r.tolerance)
	score, err := r.scorer.Score(verdicts)
	if err != nil {
		return models.ProductOutcome{}, fmt.Errorf("scoring product %s: %w", code, err)
	}

	return models.ProductOutcome{
		Code:             code,
		Status:           models.StatusScored,
		DeterminateCount: score.DeterminateCount,
		Score1:           score.Score1,
		Score2:           score.Score2,
		Verdicts:         verdicts,
		Prediction:       pred,
		GroundTruth:      truth,
	}, nil
}

func (r *Runner) buildOutcome(products []models.ProductOutcome, startTime time.Time) *models.EvaluationOutcome {
	digest := metrics.Digest(products, r.ciOpts...)
	digest.DurationMs = time.Since(startTime).Milliseconds()

	return &models.EvaluationOutcome{
		RunID:     uuid.NewString(),
		Timestamp: startTime.UTC(),
		Setup: models.OutcomeSetup{
			Tolerance: r.tolerance,
			Workers:   r.workers,
		},
		Digest:   digest,
		Products: products,
	}
}
