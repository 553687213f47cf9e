package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/httpx"
)

// Handler wires the read-only report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/income-statement", h.incomeStatement)
		r.Get("/balance-sheet", h.balanceSheet)
		r.Get("/dashboard", h.dashboard)
	})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context())
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	from := parseDate(r.URL.Query().Get("from"))
	to := parseDate(r.URL.Query().Get("to"))
	is, err := h.service.IncomeStatement(r.Context(), from, to)
	if err != nil {
		h.logger.Error("income statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	bs, err := h.service.BalanceSheet(r.Context())
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
