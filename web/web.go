// Package web provides the read-only reporting API. Mutations (ingesting
// invoices, recalculating penalties) go through the CLI; the web surface
// only exposes settled state.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/fleetbill/app"
	"github.com/artpar/fleetbill/domain/billing"
	"github.com/artpar/fleetbill/ports"
)

// Handler serves the reporting endpoints.
type Handler struct {
	plans   ports.PlanStore
	phones  ports.PhoneStore
	bills   ports.BillStore
	fleets  ports.FleetStore
	reports *app.ReportService

	metricsEnabled bool
	logger         zerolog.Logger
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Plans          ports.PlanStore
	Phones         ports.PhoneStore
	Bills          ports.BillStore
	Fleets         ports.FleetStore
	Reports        *app.ReportService
	MetricsEnabled bool
	Logger         zerolog.Logger
}

// NewHandler creates a new reporting handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		plans:          deps.Plans,
		phones:         deps.Phones,
		bills:          deps.Bills,
		fleets:         deps.Fleets,
		reports:        deps.Reports,
		metricsEnabled: deps.MetricsEnabled,
		logger:         deps.Logger,
	}
}

// Router returns the reporting API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newLoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.Health)
	if h.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/plans", h.Plans)
	r.Get("/phones", h.Phones)
	r.Get("/fleets/{id}/bills", h.FleetBills)
	r.Get("/bills/{id}", h.Bill)
	r.Get("/bills/{id}/summary", h.BillSummary)
	r.Get("/bills/{id}/outcome", h.BillOutcome)

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Plans lists every registered plan.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// Phones lists every phone line.
func (h *Handler) Phones(w http.ResponseWriter, r *http.Request) {
	phones, err := h.phones.List(r.Context())
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phones)
}

// FleetBills lists a fleet's bills, newest first.
func (h *Handler) FleetBills(w http.ResponseWriter, r *http.Request) {
	fleetID := chi.URLParam(r, "id")
	if _, err := h.fleets.Get(r.Context(), fleetID); err != nil {
		h.error(w, r, err)
		return
	}
	bills, err := h.bills.List(r.Context(), fleetID)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// Bill returns one bill's header fields.
func (h *Handler) Bill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.bills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// BillSummary returns the per-leader settlement view of a parsed bill.
func (h *Handler) BillSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.reports.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// BillOutcome returns just the reconciliation figures of a parsed bill.
func (h *Handler) BillOutcome(w http.ResponseWriter, r *http.Request) {
	sum, err := h.reports.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bill_id":        sum.BillID,
		"grand_total":    sum.GrandTotal,
		"reported_total": sum.ReportedTotal,
		"reported_debt":  sum.ReportedDebt,
		"outcome":        sum.Outcome,
	})
}

// error maps domain errors onto HTTP statuses and logs server-side failures.
func (h *Handler) error(w http.ResponseWriter, r *http.Request, err error) {
	var pe *billing.ParseError
	var ae *billing.AdjustmentError
	var ie *billing.IntegrityError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	case errors.As(err, &pe), errors.As(err, &ie):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err))
	case errors.As(err, &ae):
		writeJSON(w, http.StatusConflict, errorBody(err))
	default:
		h.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// newLoggingMiddleware logs one line per request with status and duration.
func newLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
