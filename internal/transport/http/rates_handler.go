package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "meralcocli/internal/errors"
	"meralcocli/pkg/contracts/domain"
)

// periodCtxKey carries the parsed period between PeriodCtx and the
// handlers under /{period}.
const periodCtxKey = "rates-period"

// RatesHandler serves the extracted rate schedules.
type RatesHandler struct {
	store        RatesReader
	logger       *slog.Logger
	errorHandler *apierrors.Handler
}

// NewRatesHandler creates a new rates handler.
func NewRatesHandler(store RatesReader, logger *slog.Logger, errorHandler *apierrors.Handler) *RatesHandler {
	return &RatesHandler{
		store:        store,
		logger:       logger.With(slog.String("component", "rates_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the rates routes with proper Chi patterns.
func (h *RatesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListPeriods)
	r.Get("/latest", h.GetLatest)

	r.Route("/{period}", func(r chi.Router) {
		r.Use(h.PeriodCtx)
		r.Get("/", h.GetByPeriod)
	})

	return r
}

// PeriodCtx middleware validates the period parameter and loads the
// parsed value into the request context.
func (h *RatesHandler) PeriodCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "period")
		period, err := domain.ParsePeriod(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apierrors.InvalidPeriod(raw, err))
			return
		}

		ctx := context.WithValue(r.Context(), periodCtxKey, period)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLatest handles GET /api/rates/latest. The body is the canonical
// payload itself, identical to what the CLI writes to stdout.
func (h *RatesHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.store.Latest()
	if !ok {
		h.errorHandler.Handle(w, r, apierrors.NoPayloads())
		return
	}

	h.logger.InfoContext(r.Context(), "serving latest schedule",
		slog.String("period", payload.Period.String()),
	)
	render.JSON(w, r, payload)
}

// GetByPeriod handles GET /api/rates/{period}.
func (h *RatesHandler) GetByPeriod(w http.ResponseWriter, r *http.Request) {
	period, ok := r.Context().Value(periodCtxKey).(domain.Period)
	if !ok {
		h.errorHandler.Handle(w, r, apierrors.ErrInternalServer)
		return
	}

	payload, ok := h.store.Get(period)
	if !ok {
		h.errorHandler.Handle(w, r, apierrors.PeriodNotFound(period.String()))
		return
	}

	render.JSON(w, r, payload)
}

// ListPeriods handles GET /api/rates. It returns the months the store
// currently holds, in chronological order.
func (h *RatesHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods := h.store.Periods()

	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"periods": periods,
		"count":   len(periods),
	})
}
