// Package server exposes the storefront HTTP API.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lexrelay/internal/app"
	"lexrelay/internal/ratelimit"
	"lexrelay/internal/usertoken"
	"lexrelay/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	TokenVerifier *usertoken.Verifier
	WebhookSecret string

	RedisAddr     string
	RedisPassword string

	CheckoutRateLimitPerMinute int
	GenerateRateLimitPerMinute int
	WebhookRateLimitPerMinute  int

	MaxUploadBytes int64
	// WebURL is the storefront front-end, used for browser redirects.
	WebURL string
	// LoginURL receives unauthenticated browser navigation; defaults to
	// WebURL + "/login".
	LoginURL string
}

// Server exposes HTTP endpoints for the storefront.
type Server struct {
	app             *app.App
	tokenVerifier   *usertoken.Verifier
	webhookSecret   string
	mux             *http.ServeMux
	maxUploadBytes  int64
	webURL          string
	loginURL        string
	checkoutLimiter *ratelimit.FixedWindowLimiter
	generateLimiter *ratelimit.FixedWindowLimiter
	webhookLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	checkoutLimit := cfg.CheckoutRateLimitPerMinute
	if checkoutLimit <= 0 {
		checkoutLimit = 10
	}
	generateLimit := cfg.GenerateRateLimitPerMinute
	if generateLimit <= 0 {
		generateLimit = 20
	}
	webhookLimit := cfg.WebhookRateLimitPerMinute
	if webhookLimit <= 0 {
		webhookLimit = 120
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "lexrelay:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	checkoutLimiter, err := newLimiter("checkout", checkoutLimit)
	if err != nil {
		return nil, err
	}
	generateLimiter, err := newLimiter("generate", generateLimit)
	if err != nil {
		return nil, err
	}
	webhookLimiter, err := newLimiter("webhook", webhookLimit)
	if err != nil {
		return nil, err
	}
	webURL := strings.TrimRight(cfg.WebURL, "/")
	loginURL := strings.TrimSpace(cfg.LoginURL)
	if loginURL == "" && webURL != "" {
		loginURL = webURL + "/login"
	}
	s := &Server{
		app:             cfg.App,
		tokenVerifier:   cfg.TokenVerifier,
		webhookSecret:   cfg.WebhookSecret,
		mux:             http.NewServeMux(),
		maxUploadBytes:  maxUploadBytes,
		webURL:          webURL,
		loginURL:        loginURL,
		checkoutLimiter: checkoutLimiter,
		generateLimiter: generateLimiter,
		webhookLimiter:  webhookLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// catalog (public)
	s.mux.HandleFunc("/api/products", s.handleProducts)
	s.mux.HandleFunc("/api/products/", s.handleProductBySlug)
	s.mux.Handle("/api/catalog/refresh", s.authenticated(s.handleCatalogRefresh))

	// checkout
	s.mux.Handle("/api/checkout/session", s.authenticated(s.handleCheckoutSession))
	s.mux.Handle("/api/checkout/intent", s.authenticated(s.handleCheckoutIntent))
	s.mux.Handle("/api/checkout/verify", s.authenticated(s.handleCheckoutVerify))

	// processor callbacks
	s.mux.HandleFunc("/api/webhooks/payment", s.handleWebhook)

	// account
	s.mux.Handle("/api/profile", s.authenticated(s.handleProfile))
	s.mux.Handle("/api/purchases", s.authenticated(s.handlePurchases))

	// documents
	s.mux.Handle("/api/documents", s.authenticated(s.handleDocuments))
	s.mux.Handle("/api/documents/", s.authenticated(s.handleDocumentByID))

	// browser entry points served by the front-end
	s.mux.HandleFunc("/dashboard", s.redirectToWeb)
	s.mux.HandleFunc("/account", s.redirectToWeb)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionCookieName carries the session token on plain browser navigation,
// which has no Authorization header.
const sessionCookieName = "lexrelay_session"

// redirectToWeb gates browser entry points: visitors without a valid session
// are sent to the login page, signed-in ones to the front-end with path and
// query preserved (the post-checkout redirect lands on /dashboard with a
// session_id to verify).
func (s *Server) redirectToWeb(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.browserUser(r); !ok {
		if s.loginURL == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.audit(r, "store.browser.gate", "fail", "reason", "no_session")
		http.Redirect(w, r, s.loginURL, http.StatusSeeOther)
		return
	}
	if s.webURL == "" {
		notFound(w, "not found")
		return
	}
	target := s.webURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// browserUser resolves the session token from the Authorization header or
// the session cookie.
func (s *Server) browserUser(r *http.Request) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			return "", false
		}
		token = strings.TrimSpace(cookie.Value)
	}
	if s.tokenVerifier == nil {
		return "", false
	}
	userID, err := s.tokenVerifier.VerifySubject(token)
	if err != nil {
		return "", false
	}
	return userID, true
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, userID)
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "store.token.verify", "fail", "reason", "missing_token")
		return "", false
	}
	if s.tokenVerifier == nil {
		s.audit(r, "store.token.verify", "fail", "reason", "verifier_not_configured")
		return "", false
	}
	userID, err := s.tokenVerifier.VerifySubject(token)
	if err != nil {
		s.audit(r, "store.token.verify", "fail", "reason", "invalid_signature_or_claims")
		return "", false
	}
	return userID, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}
