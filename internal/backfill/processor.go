package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meralcocli/internal/config"
	"meralcocli/internal/extract"
	"meralcocli/internal/infrastructure"
	"meralcocli/internal/pdf"
	"meralcocli/internal/provenance"
	"meralcocli/pkg/contracts/domain"
)

// Processor turns one fetched document into a canonical payload: cell
// grids, layout-adaptive extraction, provenance tagging, payload
// validation.
type Processor struct {
	cells     pdf.CellExtractor
	extractor *extract.Extractor
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
	tracer    trace.Tracer
}

// NewProcessor wires the extraction pipeline. metrics may be nil.
func NewProcessor(cfg *config.Config, cells pdf.CellExtractor, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cells: cells,
		extractor: extract.NewExtractor(extract.Options{
			HeaderDepth:     cfg.Extract.HeaderDepth,
			MaxFailureRatio: cfg.Extract.FailureRatio,
		}, logger),
		validate: validator.New(),
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer(infrastructure.MeterName),
	}
}

// Process extracts, tags and validates one document.
func (p *Processor) Process(ctx context.Context, doc *domain.RateDocument) (*domain.RatesPayload, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract",
		trace.WithAttributes(attribute.String("period", doc.Period.String())))
	defer span.End()

	start := time.Now()
	grids, err := p.cells.ExtractGrids(ctx, doc)
	if err != nil {
		infrastructure.RecordExtractMetrics(ctx, p.metrics, 0, 0, 0, time.Since(start), false)
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("extract cell grids: %w", err)
	}

	ext, err := p.extractor.ExtractResidentialRates(ctx, grids)
	if err != nil {
		infrastructure.RecordExtractMetrics(ctx, p.metrics, 0, 0, 0, time.Since(start), false)
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("canonicalize %s: %w", doc.Period, err)
	}
	infrastructure.RecordExtractMetrics(ctx, p.metrics,
		ext.RowsParsed, ext.RowsSkipped, ext.RowsFailed, time.Since(start), true)

	_, tagSpan := p.tracer.Start(ctx, "pipeline.tag")
	payload := &domain.RatesPayload{
		Period:   doc.Period,
		Metadata: provenance.Tag(doc.SourceURL, doc.ItemURL, doc.Raw, ext.Signature, doc.FetchedAt),
		Rates:    ext.Records,
	}
	tagSpan.End()

	if err := p.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("canonical payload for %s failed validation: %w", doc.Period, err)
	}

	p.logger.InfoContext(ctx, "document processed",
		slog.String("period", doc.Period.String()),
		slog.Int("brackets", len(payload.Rates)),
		slog.String("signature", string(ext.Signature)),
		slog.String("sha256", payload.Metadata.PDFSHA256))
	return payload, nil
}
