package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/fakestore/internal/catalog"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// responder writes JSON responses and logs through the handler's logger.
type responder struct {
	log *logger.Logger
}

func (rs responder) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.log.Error(r.Context(), "failed to encode response", err)
	}
}

func (rs responder) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	rs.respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleCatalogError converts catalog failures to HTTP status codes. The
// upstream message is passed through when there is one.
func (rs responder) handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *catalog.Error
	if !errors.As(err, &ce) {
		rs.log.Error(r.Context(), "catalog call failed", err)
		rs.respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	var httpStatus int
	var code, message string

	switch ce.Kind {
	case catalog.KindNotFound:
		httpStatus = http.StatusNotFound
		code = "not_found"
		message = "product not found"
	case catalog.KindServerError:
		httpStatus = http.StatusBadGateway
		code = "upstream_error"
		message = "catalog service error"
	case catalog.KindNetworkUnreachable:
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
		message = "catalog service unreachable"
	case catalog.KindInvalidResponseShape:
		httpStatus = http.StatusBadGateway
		code = "invalid_upstream_response"
		message = "invalid product data"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
		message = "internal server error"
	}
	if ce.Message != "" {
		message = ce.Message
	}

	rs.respondError(w, r, httpStatus, code, message)
}
