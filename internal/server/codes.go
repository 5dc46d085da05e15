package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"lexrelay/internal/registry"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	RequestID string            `json:"requestId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func writeValidationError(w http.ResponseWriter, verr *registry.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     "form validation failed",
		Code:      "FORM_VALIDATION_FAILED",
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
		Fields:    verr.Fields,
	})
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "profile required":
		return "PROFILE_REQUIRED"
	case message == "forbidden":
		return "DOCUMENT_FORBIDDEN"
	case message == "no active price for product":
		return "CHECKOUT_NO_ACTIVE_PRICE"
	case message == "too many checkout attempts", message == "too many generation attempts":
		return "SYSTEM_RATE_LIMITED"
	case message == "invalid signature":
		return "WEBHOOK_INVALID_SIGNATURE"
	case strings.HasPrefix(message, "payment processor error"):
		return "CHECKOUT_PROCESSOR_ERROR"
	case message == "catalog unavailable":
		return "CATALOG_UNAVAILABLE"
	case message == "attachment must be a pdf":
		return "DOCUMENT_INVALID_ATTACHMENT"
	case message == "invalid json body", message == "invalid form data":
		return "STORE_INVALID_REQUEST"
	case strings.Contains(message, "file is required"):
		return "DOCUMENT_FILE_REQUIRED"
	case message == "session_id is required":
		return "CHECKOUT_SESSION_REQUIRED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "STORE_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "DOCUMENT_FORBIDDEN"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	case http.StatusBadGateway:
		return "SYSTEM_UPSTREAM_ERROR"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
