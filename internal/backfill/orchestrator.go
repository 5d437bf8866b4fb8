// Package backfill coordinates multi-month extraction runs. Each
// requested period moves through its own state machine, failures stay
// isolated to their month, and the report always comes back in
// chronological order regardless of how the work was scheduled.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"meralcocli/internal/config"
	"meralcocli/internal/fetch"
	"meralcocli/internal/infrastructure"
	"meralcocli/pkg/contracts/domain"
)

// Source discovers publications and downloads their documents. The
// production implementation is fetch.Client.
type Source interface {
	LatestItem(ctx context.Context) (*fetch.Item, error)
	ArchiveItems(ctx context.Context, start, end domain.Period) ([]fetch.Item, error)
	FetchDocument(ctx context.Context, item fetch.Item) (*domain.RateDocument, error)
}

// DocumentProcessor turns a fetched document into a canonical payload.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *domain.RateDocument) (*domain.RatesPayload, error)
}

// PeriodStatus tracks one month through the backfill pipeline.
type PeriodStatus string

const (
	StatusPending    PeriodStatus = "pending"
	StatusFetching   PeriodStatus = "fetching"
	StatusFetched    PeriodStatus = "fetched"
	StatusExtracting PeriodStatus = "extracting"
	StatusDone       PeriodStatus = "done"
	StatusFailed     PeriodStatus = "failed"
)

// periodTask carries one month's state through a run. Tasks live in a
// slice ordered by period, so results never need re-sorting even when
// the periods complete out of order.
type periodTask struct {
	Period   domain.Period
	Item     *fetch.Item
	Status   PeriodStatus
	Attempts int
	Payload  *domain.RatesPayload
	Failure  *domain.PeriodFailure
}

// Orchestrator runs backfills: discover once, then fetch and extract
// every requested month with per-period retry and failure isolation.
type Orchestrator struct {
	source    Source
	processor DocumentProcessor
	cfg       config.BackfillConfig
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
	tracer    trace.Tracer
}

// NewOrchestrator builds an orchestrator. metrics may be nil.
func NewOrchestrator(cfg *config.Config, source Source, processor DocumentProcessor, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:    source,
		processor: processor,
		cfg:       cfg.Backfill,
		logger:    infrastructure.WithComponent(logger, "backfill"),
		metrics:   metrics,
		tracer:    otel.Tracer(infrastructure.MeterName),
	}
}

// Run backfills the inclusive [start, end] month range. Per-period
// failures land in the report; only invalid input, failed discovery or
// a canceled context abort the run as a whole.
func (o *Orchestrator) Run(ctx context.Context, start, end domain.Period) (*domain.BackfillReport, error) {
	periods, err := domain.PeriodRange(start, end)
	if err != nil {
		return nil, err
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	report := &domain.BackfillReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	o.logger.InfoContext(ctx, "backfill started",
		slog.String("run_id", report.RunID),
		slog.String("start", start.String()),
		slog.String("end", end.String()),
		slog.Int("months", len(periods)),
		slog.Int("concurrency", o.cfg.Concurrency))

	items, err := o.source.ArchiveItems(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("archive discovery: %w", err)
	}

	byPeriod := make(map[domain.Period]fetch.Item, len(items))
	for _, item := range items {
		if _, ok := byPeriod[item.Period]; !ok {
			byPeriod[item.Period] = item
		}
	}

	tasks := make([]*periodTask, len(periods))
	for i, p := range periods {
		tasks[i] = &periodTask{Period: p, Status: StatusPending}
		if item, ok := byPeriod[p]; ok {
			item := item
			tasks[i].Item = &item
		}
	}

	if o.cfg.Concurrency > 1 {
		err = o.runParallel(ctx, tasks)
	} else {
		err = o.runSequential(ctx, tasks)
	}
	if err != nil {
		return nil, err
	}

	for _, task := range tasks {
		switch {
		case task.Payload != nil:
			report.Documents = append(report.Documents, *task.Payload)
		case task.Failure != nil:
			report.Failures = append(report.Failures, *task.Failure)
		}
	}
	report.FinishedAt = time.Now().UTC()

	o.logger.InfoContext(ctx, "backfill finished",
		slog.String("run_id", report.RunID),
		slog.Int("documents", len(report.Documents)),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// RunLatest discovers, fetches and processes the newest publication.
func (o *Orchestrator) RunLatest(ctx context.Context) (*domain.RatesPayload, error) {
	ctx = infrastructure.EnsureTraceID(ctx)

	item, err := o.source.LatestItem(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover latest publication: %w", err)
	}
	o.logger.InfoContext(ctx, "latest publication discovered",
		slog.String("period", item.Period.String()),
		slog.String("pdf_url", item.PDFURL))

	doc, err := o.source.FetchDocument(ctx, *item)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", item.Period, err)
	}
	return o.processor.Process(ctx, doc)
}

func (o *Orchestrator) runSequential(ctx context.Context, tasks []*periodTask) error {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.runPeriod(ctx, task)
	}
	return nil
}

func (o *Orchestrator) runParallel(ctx context.Context, tasks []*periodTask) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o.runPeriod(gctx, task)
			return nil
		})
	}
	return g.Wait()
}

// runPeriod drives one month through the state machine. It never
// returns an error: failures are recorded on the task so one bad month
// cannot abort its siblings.
func (o *Orchestrator) runPeriod(ctx context.Context, task *periodTask) {
	ctx, span := o.tracer.Start(ctx, "backfill.period",
		trace.WithAttributes(attribute.String("period", task.Period.String())))
	defer span.End()

	infrastructure.RecordActivePeriodChange(ctx, o.metrics, 1)
	defer infrastructure.RecordActivePeriodChange(ctx, o.metrics, -1)

	logger := o.logger.With(slog.String("period", task.Period.String()))

	if task.Item == nil {
		o.fail(ctx, task, domain.StageDiscovery, "no publication found in archive")
		logger.WarnContext(ctx, "period failed",
			slog.String("stage", domain.StageDiscovery),
			slog.String("reason", task.Failure.Reason))
		return
	}

	doc, err := o.fetchWithRetry(ctx, logger, task)
	if err != nil {
		o.fail(ctx, task, domain.StageFetch, err.Error())
		logger.ErrorContext(ctx, "period failed",
			slog.String("stage", domain.StageFetch),
			slog.Int("attempts", task.Attempts),
			slog.String("error", err.Error()))
		return
	}

	o.transition(ctx, logger, task, StatusExtracting)
	payload, err := o.processor.Process(ctx, doc)
	if err != nil {
		o.fail(ctx, task, domain.StageExtract, err.Error())
		logger.ErrorContext(ctx, "period failed",
			slog.String("stage", domain.StageExtract),
			slog.String("error", err.Error()))
		return
	}

	task.Payload = payload
	o.transition(ctx, logger, task, StatusDone)
	infrastructure.RecordPeriodOutcome(ctx, o.metrics, domain.StageExtract, true)
	logger.InfoContext(ctx, "period complete", slog.Int("brackets", len(payload.Rates)))
}

// fetchWithRetry downloads one month's document, retrying only
// transient failures. Permanent failures and exhausted attempts return
// the last error.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, logger *slog.Logger, task *periodTask) (*domain.RateDocument, error) {
	o.transition(ctx, logger, task, StatusFetching)

	var lastErr error
	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		task.Attempts = attempt
		doc, err := o.source.FetchDocument(ctx, *task.Item)
		if err == nil {
			o.transition(ctx, logger, task, StatusFetched)
			return doc, nil
		}
		lastErr = err

		if !fetch.IsTransient(err) || attempt >= o.cfg.RetryAttempts {
			return nil, err
		}

		delay := backoffDelay(attempt, o.cfg)
		logger.WarnContext(ctx, "period fetch retry",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", o.cfg.RetryAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) fail(ctx context.Context, task *periodTask, stage, reason string) {
	task.Status = StatusFailed
	task.Failure = &domain.PeriodFailure{Period: task.Period, Stage: stage, Reason: reason}
	infrastructure.RecordPeriodOutcome(ctx, o.metrics, stage, false)
}

func (o *Orchestrator) transition(ctx context.Context, logger *slog.Logger, task *periodTask, status PeriodStatus) {
	task.Status = status
	logger.DebugContext(ctx, "period status", slog.String("status", string(status)))
}

// backoffDelay doubles the base delay each attempt and caps it.
func backoffDelay(attempt int, cfg config.BackfillConfig) time.Duration {
	delay := time.Duration(float64(cfg.BackoffBase) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1)))
	if delay > cfg.BackoffMax {
		delay = cfg.BackoffMax
	}
	return delay
}
