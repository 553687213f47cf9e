package httpx

import (
	"errors"
	"net/http"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Errors outside the shared taxonomy are reported opaquely; the caller is
// expected to have logged them with full context already.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
