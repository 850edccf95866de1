package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"datashield/internal/domain"
)

// errorResponse is the uniform error body returned by every route.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// httpStatusFromError maps domain errors to HTTP status codes. Unknown errors
// return 500.
func httpStatusFromError(err error) int {
	var notFound *domain.NotFoundError
	var keyNotFound *domain.KeyNotFoundError
	var unknownPrincipal *domain.UnknownPrincipalError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound), errors.As(err, &keyNotFound), errors.As(err, &unknownPrincipal):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := httpStatusFromError(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		// Internal details stay out of responses.
		message = "internal server error"
	}
	writeJSON(w, code, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}
