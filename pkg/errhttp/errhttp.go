// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/lotdesk/pkg/httpx"
	lotservices "github.com/ghuser/lotdesk/services/lot/application/services"
	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
// Validation failures also carry the offending field.
func WriteError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	var verr *lotdomain.ValidationError
	if errors.As(err, &verr) {
		body.Error = verr.Message
		body.Field = verr.Field
	}
	httpx.JSON(w, mapErrorToStatus(err), body)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, lotdomain.ErrItemNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, lotservices.ErrNothingToRetry):
		return http.StatusConflict // 409
	case errors.Is(err, lotdomain.ErrValidation):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, lotdomain.ErrTransport):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
