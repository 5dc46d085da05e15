package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"lexrelay/internal/app"
	"lexrelay/internal/payment"
	"lexrelay/internal/registry"
	"lexrelay/internal/util"
)

func requestCurrency(r *http.Request) string {
	if c := r.URL.Query().Get("currency"); c != "" {
		return c
	}
	return r.Header.Get("X-Currency")
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	products, err := s.app.Products(r.Context(), requestCurrency(r))
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("catalog fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": products,
		"count": len(products),
	})
}

// /api/products/{slug}, /api/products/{slug}/form, /api/products/{slug}/preview
func (s *Server) handleProductBySlug(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/products/")
	parts := strings.SplitN(path, "/", 2)
	slug := parts[0]
	if slug == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "form":
			s.handleProductForm(w, r, slug)
		case "preview":
			s.handleProductPreview(w, r, slug)
		default:
			notFound(w, "not found")
		}
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	product, err := s.app.ProductBySlug(r.Context(), slug, requestCurrency(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleProductForm(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	kit := s.app.FormKit(slug)
	writeJSON(w, http.StatusOK, kit.Form)
}

// handleProductPreview renders the template with partial data so the
// storefront can show a live preview while the form is being filled in.
func (s *Server) handleProductPreview(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		FormData map[string]string `json:"formData"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	doc, err := s.app.Preview(r.Context(), slug, req.FormData)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("preview render failed", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleCatalogRefresh(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	count, err := s.app.RefreshCatalog(r.Context())
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("catalog refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	s.audit(r, "store.catalog.refresh", "success", "user_id", userID, "count", count)
	writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "count": count})
}

func (s *Server) handleCheckoutSession(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.checkoutLimiter, "too many checkout attempts") {
		return
	}
	var req app.CheckoutRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.app.CreateCheckoutSession(r.Context(), userID, req)
	if err != nil {
		s.audit(r, "store.checkout.create", "fail", "user_id", userID, "product_slug", req.ProductSlug)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "store.checkout.create", "success", "user_id", userID, "purchase_id", result.PurchaseID)
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleCheckoutIntent(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.checkoutLimiter, "too many checkout attempts") {
		return
	}
	var req app.IntentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	intent, err := s.app.CreatePaymentIntent(r.Context(), userID, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

func (s *Server) handleCheckoutVerify(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	status, err := s.app.VerifySession(r.Context(), userID, sessionID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		profile, err := s.app.Profile(userID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var req struct {
			DisplayName string `json:"displayName"`
			Email       string `json:"email"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		profile, err := s.app.UpsertProfile(userID, req.DisplayName, req.Email)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, profile)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	purchases, err := s.app.Purchases(userID)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("purchase listing failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": purchases,
		"count": len(purchases),
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.app.Documents(userID)
		if err != nil {
			util.LoggerFromContext(r.Context()).Error("document listing failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": docs,
			"count": len(docs),
		})
	case http.MethodPost:
		s.handleGenerateDocument(w, r, userID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGenerateDocument(w http.ResponseWriter, r *http.Request, userID string) {
	if !s.allowRate(w, r, s.generateLimiter, "too many generation attempts") {
		return
	}
	var req app.GenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	doc, err := s.app.GenerateDocument(r.Context(), userID, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "store.document.generate", "success",
		"user_id", userID, "document_id", doc.ID, "product_slug", doc.ProductSlug)
	writeJSON(w, http.StatusCreated, doc)
}

// /api/documents/{id}, /api/documents/{id}/download, /api/documents/{id}/attachments
func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request, userID string) {
	path := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "download":
			s.handleDownloadDocument(w, r, userID, id)
		case "attachments":
			s.handleAttachments(w, r, userID, id)
		default:
			notFound(w, "not found")
		}
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	doc, attachments, err := s.app.Document(userID, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document":    doc,
		"attachments": attachments,
	})
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rc, doc, filename, err := s.app.Download(r.Context(), userID, id)
	if err != nil {
		s.audit(r, "store.document.download", "fail", "user_id", userID, "document_id", id)
		s.writeAppError(w, r, err)
		return
	}
	defer rc.Close()
	s.audit(r, "store.document.download", "success", "user_id", userID, "document_id", id)
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if doc.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (s *Server) handleAttachments(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	att, err := s.app.AddAttachment(r.Context(), userID, id, header.Filename, data)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// writeAppError translates app-layer failures to HTTP responses. Processor
// failures pass their message through; everything unmapped is logged and
// masked as an internal error.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *registry.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, verr)
		return
	}
	var apiErr *payment.APIError
	if errors.As(err, &apiErr) {
		util.LoggerFromContext(r.Context()).Warn("payment processor error",
			"status", apiErr.Status, "message", apiErr.Message)
		writeError(w, http.StatusBadGateway, "payment processor error: "+apiErr.Message)
		return
	}
	switch {
	case errors.Is(err, app.ErrProfileRequired):
		writeError(w, http.StatusUnauthorized, "profile required")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrNoActivePrice):
		writeError(w, http.StatusBadRequest, "no active price for product")
	case errors.Is(err, app.ErrBadAttachment):
		writeError(w, http.StatusBadRequest, "attachment must be a pdf")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
