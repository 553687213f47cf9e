package partners

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/httpx"
)

// Handler wires HTTP endpoints for customers and suppliers. Both kinds
// share one handler; the mounted route decides the kind.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers partner routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listKind(ledger.PartnerCustomer))
		r.Post("/", h.createKind(ledger.PartnerCustomer))
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listKind(ledger.PartnerSupplier))
		r.Post("/", h.createKind(ledger.PartnerSupplier))
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type partnerRequest struct {
	Code           string          `json:"code" validate:"required,max=32"`
	Name           string          `json:"name" validate:"required,max=255"`
	Phone          string          `json:"phone" validate:"max=32"`
	Email          string          `json:"email" validate:"omitempty,email"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) listKind(kind ledger.PartnerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			out []Partner
			err error
		)
		if kind == ledger.PartnerSupplier {
			out, err = h.service.ListSuppliers(r.Context())
		} else {
			out, err = h.service.ListCustomers(r.Context())
		}
		if err != nil {
			h.logger.Error("list partners", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func (h *Handler) createKind(kind ledger.PartnerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req partnerRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		partner, err := h.service.Create(r.Context(), PartnerInput{
			Kind:           kind,
			Code:           req.Code,
			Name:           req.Name,
			Phone:          req.Phone,
			Email:          req.Email,
			OpeningBalance: req.OpeningBalance,
		})
		if err != nil {
			h.logger.Error("create partner", slog.String("code", req.Code), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, partner)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid partner id")
		return
	}
	partner, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, partner)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid partner id")
		return
	}
	var req partnerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	partner, err := h.service.Update(r.Context(), id, PartnerInput{
		Code:  req.Code,
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, partner)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid partner id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
