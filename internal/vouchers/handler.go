package vouchers

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

// Handler wires HTTP endpoints for receipt and payment vouchers.
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

// MountRoutes registers voucher routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vouchers/receipts", func(r chi.Router) {
		r.Get("/", h.listKind(KindReceipt))
		r.Post("/", h.createKind(KindReceipt))
	})
	r.Route("/vouchers/payments", func(r chi.Router) {
		r.Get("/", h.listKind(KindPayment))
		r.Post("/", h.createKind(KindPayment))
	})
	r.Route("/vouchers/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Post("/post", h.post)
	})
}

type allocationRequest struct {
	InvoiceID int64           `json:"invoiceId" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

type voucherRequest struct {
	Number      string              `json:"number" validate:"max=32"`
	Date        time.Time           `json:"date"`
	PartnerID   int64               `json:"partnerId" validate:"required"`
	Amount      decimal.Decimal     `json:"amount" validate:"required"`
	Method      string              `json:"method" validate:"required"`
	CheckNumber string              `json:"checkNumber" validate:"max=64"`
	CheckDate   *time.Time          `json:"checkDate"`
	AccountID   int64               `json:"accountId" validate:"required"`
	Allocations []allocationRequest `json:"allocations" validate:"dive"`
}

func (req voucherRequest) toInput() VoucherInput {
	in := VoucherInput{
		Number:      req.Number,
		Date:        req.Date,
		PartnerID:   req.PartnerID,
		Amount:      req.Amount,
		Method:      Method(req.Method),
		CheckNumber: req.CheckNumber,
		CheckDate:   req.CheckDate,
		AccountID:   req.AccountID,
	}
	for _, a := range req.Allocations {
		in.Allocations = append(in.Allocations, AllocationInput{InvoiceID: a.InvoiceID, Amount: a.Amount})
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

func (h *Handler) listKind(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var (
			out []Voucher
			err error
		)
		if kind == KindPayment {
			out, err = h.service.ListPayments(r.Context(), limit)
		} else {
			out, err = h.service.ListReceipts(r.Context(), limit)
		}
		if err != nil {
			h.logger.Error("list vouchers", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func (h *Handler) createKind(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voucherRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		v, err := h.service.Create(r.Context(), kind, req.toInput())
		if err != nil {
			h.logger.Error("create voucher", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, v)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	v, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	v, err := h.service.Post(r.Context(), id)
	if err != nil {
		h.logger.Error("post voucher", slog.Int64("id", id), slog.Any("error", err))
		h.metrics.PostingFailed("VOUCHER")
		httpx.RespondError(w, err)
		return
	}
	h.metrics.DocumentPosted(string(v.Kind) + "_VOUCHER")
	h.invalidateReports(r.Context())
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
