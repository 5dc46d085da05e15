package server

import (
	"io"
	"net/http"
	"time"

	"lexrelay/internal/payment"
)

const maxWebhookBytes = 1 << 20

// handleWebhook receives processor event notifications. The signature is
// verified against the raw body before the payload is even parsed; nothing
// is recorded for requests that fail verification.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.webhookLimiter, "too many requests") {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	header := r.Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(header, body, s.webhookSecret, payment.DefaultTolerance, time.Now()); err != nil {
		s.audit(r, "store.webhook.verify", "fail", "reason", err.Error())
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		s.audit(r, "store.webhook.parse", "fail")
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	if err := s.app.HandleEvent(r.Context(), event); err != nil {
		s.audit(r, "store.webhook.handle", "fail", "event_id", event.ID, "type", event.Type)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "store.webhook.handle", "success", "event_id", event.ID, "type", event.Type)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
