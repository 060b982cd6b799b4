// Package api holds the JSON handlers for the storefront's server surface:
// the cart wire contract, the address book, checkout and orders.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/middleware"
)

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError maps a domain error to its HTTP status and writes a
// structured JSON error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := errorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	body := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if fields := domain.GetValidationFields(err); fields != nil {
		body["error"].(map[string]any)["fields"] = fields
	}

	respondJSON(w, status, body)
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT, domain.ESTALE:
		return http.StatusConflict // 409
	case domain.EGATEWAY, domain.EPARTIAL:
		return http.StatusBadGateway // 502
	case domain.ENETWORK:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("api.decode", "invalid JSON request body")
	}
	return nil
}
