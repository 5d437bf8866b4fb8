// Package fetch discovers and downloads the monthly rate schedule
// documents from the publisher's site: the RSS feed for the newest
// publication, the paginated HTML archive for history, and the PDFs
// themselves.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"meralcocli/internal/config"
	"meralcocli/internal/infrastructure"
	"meralcocli/pkg/contracts/domain"
)

const (
	// maxBodyBytes caps any single download. The rate schedules run a
	// few hundred kilobytes; anything near this limit is not one.
	maxBodyBytes = 32 << 20

	// maxArchivePages bounds the archive crawl so a markup change can
	// never turn it into an unbounded walk.
	maxArchivePages = 40
)

// RetryConfig defines retry behavior for requests against the site.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Client talks to the publisher's site. All requests share one rate
// limiter so archive crawls stay polite, and transient failures are
// retried with exponential backoff.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	source     config.SourceConfig
	retry      RetryConfig
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics
	tracer     trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics attaches pipeline metrics to the client.
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetryConfig overrides the retry behavior.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a site client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	retry := NewRetryConfig()
	if cfg.HTTP.Retries > 0 {
		retry.MaxAttempts = cfg.HTTP.Retries
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.HTTP.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimitRPS), cfg.HTTP.RateLimitBurst),
		userAgent:  cfg.HTTP.UserAgent,
		source:     cfg.Source,
		retry:      retry,
		logger:     logger,
		tracer:     otel.Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDocument downloads the PDF behind a discovered item and seals it
// into an immutable RateDocument with its content hash.
func (c *Client) FetchDocument(ctx context.Context, item Item) (*domain.RateDocument, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.fetch",
		trace.WithAttributes(
			attribute.String("pdf_url", item.PDFURL),
			attribute.String("period", item.Period.String()),
		))
	defer span.End()

	body, err := c.getWithRetry(ctx, item.PDFURL)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	sum := sha256.Sum256(body)
	doc := &domain.RateDocument{
		Period:      item.Period,
		SourceURL:   item.PDFURL,
		ItemURL:     item.ItemURL,
		Raw:         body,
		ContentHash: hex.EncodeToString(sum[:]),
		FetchedAt:   time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "document fetched",
		slog.String("period", item.Period.String()),
		slog.Int("bytes", len(body)),
		slog.String("sha256", doc.ContentHash))
	return doc, nil
}

// getWithRetry requests a URL, retrying transient failures with
// exponentially increasing delays. Permanent failures and exhausted
// attempts surface the last error unchanged.
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		body, err := c.get(ctx, url, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt >= c.retry.MaxAttempts {
			return nil, err
		}

		delay := retryDelay(attempt, c.retry)
		c.logger.WarnContext(ctx, "fetch retry",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.retry.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &Error{URL: url, Err: ctx.Err()}
		}
	}
	return nil, lastErr
}

// get performs a single GET, classifying every failure as transient or
// permanent.
func (c *Client) get(ctx context.Context, url string, attempt int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		infrastructure.RecordFetchMetrics(ctx, c.metrics, attempt, 0, time.Since(start), false)
		return nil, &Error{URL: url, Transient: transientNetErr(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		infrastructure.RecordFetchMetrics(ctx, c.metrics, attempt, 0, time.Since(start), false)
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Transient: transientStatus(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		infrastructure.RecordFetchMetrics(ctx, c.metrics, attempt, 0, time.Since(start), false)
		return nil, &Error{URL: url, Transient: transientNetErr(err), Err: err}
	}
	if len(body) > maxBodyBytes {
		infrastructure.RecordFetchMetrics(ctx, c.metrics, attempt, len(body), time.Since(start), false)
		return nil, &Error{URL: url, Err: fmt.Errorf("response exceeds %d bytes", maxBodyBytes)}
	}

	infrastructure.RecordFetchMetrics(ctx, c.metrics, attempt, len(body), time.Since(start), true)
	return body, nil
}

// retryDelay grows the wait exponentially and caps it.
func retryDelay(attempt int, rc RetryConfig) time.Duration {
	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.Multiplier, float64(attempt-1)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}
