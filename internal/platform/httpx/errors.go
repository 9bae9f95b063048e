package httpx

import (
	"errors"
	"net/http"

	"github.com/tradewell-erp/tradewell/internal/shared"
)

// RespondError maps core errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var coreErr *shared.Error
	if !errors.As(err, &coreErr) {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	switch coreErr.Kind {
	case shared.KindValidation:
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: coreErr.Message,
			Field:  coreErr.Field,
		})
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", coreErr.Message)
	case shared.KindInvariant:
		Problem(w, http.StatusConflict, "Invariant Violation", coreErr.Message)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
