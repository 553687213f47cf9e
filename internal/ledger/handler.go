package ledger

import (
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

// Handler wires HTTP endpoints for the chart of accounts and manual
// journal entries.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs a Handler instance; metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Get("/{id}", h.getAccount)
		r.Put("/{id}", h.updateAccount)
		r.Delete("/{id}", h.deleteAccount)
	})
	r.Route("/journal-entries", func(r chi.Router) {
		r.Get("/", h.listEntries)
		r.Post("/", h.postManualEntry)
		r.Get("/{id}", h.getEntry)
		r.Delete("/{id}", h.deleteEntry)
	})
}

type accountRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=255"`
	Type     string `json:"type" validate:"required"`
	ParentID *int64 `json:"parentId"`
	Active   *bool  `json:"active"`
}

func (req accountRequest) toInput() AccountInput {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return AccountInput{
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		ParentID: req.ParentID,
		Active:   active,
	}
}

type entryLineRequest struct {
	AccountID   int64           `json:"accountId" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=255"`
}

type manualEntryRequest struct {
	Number      string             `json:"number" validate:"max=32"`
	Date        time.Time          `json:"date"`
	Description string             `json:"description" validate:"max=255"`
	Lines       []entryLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req.toInput())
	if err != nil {
		h.logger.Error("create account", slog.String("code", req.Code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), id, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.ListEntries(r.Context(), limit)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) postManualEntry(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := PostingInput{
		Number:      req.Number,
		Date:        req.Date,
		Description: req.Description,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, PostingLine{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	entry, err := h.service.PostManualEntry(r.Context(), input)
	if err != nil {
		h.logger.Error("post manual entry", slog.Any("error", err))
		h.metrics.PostingFailed("MANUAL")
		httpx.RespondError(w, err)
		return
	}
	h.metrics.DocumentPosted("MANUAL")
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
