package sales

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/observability"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/httpx"
)

// ReportInvalidator drops cached reports after a ledger-changing commit.
type ReportInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// Handler wires HTTP endpoints for sales invoices.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	reports  ReportInvalidator
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs a Handler instance; reports and metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, reports ReportInvalidator, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, reports: reports, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers invoice routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales/invoices", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/post", h.post)
	})
}

type invoiceItemRequest struct {
	ProductID int64            `json:"productId" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type invoiceRequest struct {
	Number     string               `json:"number" validate:"max=32"`
	Date       time.Time            `json:"date"`
	CustomerID int64                `json:"customerId" validate:"required"`
	TaxRate    decimal.Decimal      `json:"taxRate"`
	Items      []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req invoiceRequest) toInput() InvoiceInput {
	in := InvoiceInput{
		Number:     req.Number,
		Date:       req.Date,
		CustomerID: req.CustomerID,
		TaxRate:    req.TaxRate,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return in
}

func (h *Handler) invalidateReports(ctx context.Context) {
	if h.reports != nil {
		h.reports.InvalidateCache(ctx)
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.CreateDraft(r.Context(), req.toInput())
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.UpdateDraft(r.Context(), id, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	inv, err := h.service.Post(r.Context(), id)
	if err != nil {
		h.logger.Error("post invoice", slog.Int64("id", id), slog.Any("error", err))
		h.metrics.PostingFailed("SALES_INVOICE")
		httpx.RespondError(w, err)
		return
	}
	h.metrics.DocumentPosted("SALES_INVOICE")
	h.invalidateReports(r.Context())
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidateReports(r.Context())
	httpx.NoContent(w)
}
