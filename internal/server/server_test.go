package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"lexrelay/internal/app"
	"lexrelay/internal/catalog"
	"lexrelay/internal/payment"
	"lexrelay/internal/store"
	"lexrelay/internal/usertoken"
	"lexrelay/pkg/domain"
)

const testTokenSecret = "test-session-secret"

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "lexrelay-auth",
		Audience:  jwt.ClaimStrings{"lexrelay-api"},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testTokenSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type stubCatalog struct {
	products map[string]domain.Product
	err      error
}

func (c *stubCatalog) Products(ctx context.Context) ([]domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *stubCatalog) ProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if c.err != nil {
		return domain.Product{}, c.err
	}
	p, ok := c.products[slug]
	if !ok {
		return domain.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c *stubCatalog) Refresh(ctx context.Context) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return len(c.products), nil
}

type stubPayments struct {
	sessionErr error
}

func (stubPayments) ListPrices(ctx context.Context, productID string) ([]payment.Price, error) {
	return nil, nil
}

func (p stubPayments) CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (payment.Session, error) {
	if p.sessionErr != nil {
		return payment.Session{}, p.sessionErr
	}
	return payment.Session{ID: "cs_stub", URL: "https://pay.example/cs_stub"}, nil
}

func (stubPayments) GetCheckoutSession(ctx context.Context, id string) (payment.Session, error) {
	return payment.Session{ID: id, PaymentStatus: "paid"}, nil
}

func (stubPayments) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error) {
	return payment.Intent{ID: "pi_stub", ClientSecret: "pi_stub_secret", Amount: amount, Currency: currency}, nil
}

type stubObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *stubObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.objects == nil {
		o.objects = map[string][]byte{}
	}
	o.objects[key] = data
	return nil
}

func (o *stubObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (o *stubObjects) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://objects.example/" + key, nil
}

func (o *stubObjects) Delete(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	a, err := app.New(app.Config{
		Store:   st,
		Objects: &stubObjects{},
		Catalog: &stubCatalog{products: map[string]domain.Product{
			"nnn-agreement-cn": {
				Slug:      "nnn-agreement-cn",
				Name:      "NNN Agreement (China)",
				BasePrice: 9900,
				Currency:  "usd",
			},
		}},
		Payments: stubPayments{},
		BaseURL:  "https://shop.example",
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	verifier, err := usertoken.NewVerifier(usertoken.Config{Secret: testTokenSecret})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	redis := miniredis.RunT(t)
	srv, err := New(Config{
		App:           a,
		TokenVerifier: verifier,
		WebhookSecret: "whsec_test",
		RedisAddr:     redis.Addr(),
		WebURL:        "https://www.example",
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

// startServer spins up a server over a prebuilt app for tests that need
// failing collaborators.
func startServer(t *testing.T, a *app.App) *httptest.Server {
	t.Helper()
	verifier, err := usertoken.NewVerifier(usertoken.Config{Secret: testTokenSecret})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	redis := miniredis.RunT(t)
	srv, err := New(Config{
		App:           a,
		TokenVerifier: verifier,
		WebhookSecret: "whsec_test",
		RedisAddr:     redis.Addr(),
		WebURL:        "https://www.example",
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestProductsEndpointIsPublic(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/products")
	if err != nil {
		t.Fatalf("GET /api/products: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Items []domain.Product `json:"items"`
		Count int              `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || out.Items[0].Slug != "nnn-agreement-cn" {
		t.Fatalf("unexpected catalog: %+v", out)
	}
}

func TestProductFormEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/products/nnn-agreement-cn/form")
	if err != nil {
		t.Fatalf("GET form: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var form struct {
		Title  string `json:"title"`
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&form); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if form.Title == "" || len(form.Fields) == 0 {
		t.Fatalf("empty form: %+v", form)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/checkout/session", "", map[string]string{"productSlug": "nnn-agreement-cn"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCheckoutSessionFlow(t *testing.T) {
	ts, st := newTestServer(t)
	token := mintToken(t, "user-1")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/checkout/session", token, map[string]string{"productSlug": "nnn-agreement-cn"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var result app.CheckoutResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.URL == "" || result.PurchaseID == "" {
		t.Fatalf("incomplete result: %+v", result)
	}
	if _, ok, _ := st.GetPurchase(result.PurchaseID); !ok {
		t.Fatal("pending purchase not recorded")
	}
}

func generateDocument(t *testing.T, ts *httptest.Server, st *store.MemoryStore, userID string) domain.Document {
	t.Helper()
	if err := st.SaveProfile(domain.Profile{ID: userID, Email: userID + "@example.com"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	token := mintToken(t, userID)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/documents", token, map[string]any{
		"productSlug": "nnn-agreement-cn",
		"title":       "my totally custom title",
		"formData": map[string]string{
			"disclosing_party": "Acme GmbH",
			"receiving_party":  "Shenzhen Widget Co., Ltd.",
			"product_description": "Evaluation of a product line.",
			"effective_date":   "2026-09-01",
			"term_years":       "3",
			"governing_city":   "Shanghai",
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("generate status = %d, body %s", resp.StatusCode, body)
	}
	var doc domain.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestGenerateWithoutProfileIs401(t *testing.T) {
	ts, _ := newTestServer(t)
	token := mintToken(t, "user-noprofile")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/documents", token, map[string]any{
		"productSlug": "nnn-agreement-cn",
		"formData":    map[string]string{},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var errResp struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "PROFILE_REQUIRED" {
		t.Fatalf("code = %q, want PROFILE_REQUIRED", errResp.Code)
	}
}

func TestGenerateValidationErrorListsFields(t *testing.T) {
	ts, st := newTestServer(t)
	if err := st.SaveProfile(domain.Profile{ID: "user-1", Email: "u@example.com"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	token := mintToken(t, "user-1")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/documents", token, map[string]any{
		"productSlug": "nnn-agreement-cn",
		"formData":    map[string]string{"disclosing_party": "Acme"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var errResp struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "FORM_VALIDATION_FAILED" || len(errResp.Fields) == 0 {
		t.Fatalf("unexpected error payload: %+v", errResp)
	}
}

func TestDownloadMatrix(t *testing.T) {
	ts, st := newTestServer(t)
	doc := generateDocument(t, ts, st, "owner-1")

	owner := mintToken(t, "owner-1")
	other := mintToken(t, "other-2")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/documents/"+doc.ID+"/download", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner download status = %d, want 200", resp.StatusCode)
	}
	// Filename derives from the product name plus truncated id, never the
	// caller-chosen title.
	wantCD := `attachment; filename="NNN-Agreement-China-` + doc.ID[:8] + `.html"`
	if cd := resp.Header.Get("Content-Disposition"); cd != wantCD {
		t.Fatalf("Content-Disposition = %q, want %q", cd, wantCD)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(body) == 0 {
		t.Fatal("empty download")
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/documents/"+doc.ID+"/download", other, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign download status = %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/documents/missing/download", owner, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing download status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/documents/"+doc.ID+"/download", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous download status = %d, want 401", resp.StatusCode)
	}
}

func webhookPayload(t *testing.T, sessionID, purchaseID string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      "evt_" + purchaseID,
		"type":    payment.EventCheckoutCompleted,
		"created": time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_status": "paid",
				"metadata":       map[string]string{"purchase_id": purchaseID},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func postWebhook(t *testing.T, ts *httptest.Server, payload []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/webhooks/payment", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	return resp
}

func TestWebhookEndpoint(t *testing.T) {
	ts, st := newTestServer(t)
	token := mintToken(t, "user-1")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/checkout/session", token, map[string]string{"productSlug": "nnn-agreement-cn"})
	var result app.CheckoutResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	resp.Body.Close()

	payload := webhookPayload(t, result.SessionID, result.PurchaseID)

	// Unsigned and tampered deliveries are rejected before any state change.
	resp = postWebhook(t, ts, payload, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsigned status = %d, want 400", resp.StatusCode)
	}
	badSig := payment.Sign("wrong-secret", time.Now(), payload)
	resp = postWebhook(t, ts, payload, badSig)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad signature status = %d, want 400", resp.StatusCode)
	}
	purchase, _, _ := st.GetPurchase(result.PurchaseID)
	if purchase.Status != domain.PurchasePending {
		t.Fatal("rejected webhook mutated purchase state")
	}

	sig := payment.Sign("whsec_test", time.Now(), payload)
	resp = postWebhook(t, ts, payload, sig)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signed status = %d, want 200", resp.StatusCode)
	}
	purchase, _, _ = st.GetPurchase(result.PurchaseID)
	if purchase.Status != domain.PurchasePaid {
		t.Fatalf("purchase status = %q, want paid", purchase.Status)
	}

	// Stale timestamps are outside the tolerance window.
	staleSig := payment.Sign("whsec_test", time.Now().Add(-10*time.Minute), payload)
	resp = postWebhook(t, ts, payload, staleSig)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("stale status = %d, want 400", resp.StatusCode)
	}
}

func TestDashboardGate(t *testing.T) {
	ts, _ := newTestServer(t)
	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	// No session: off to the login page.
	resp, err := client.Get(ts.URL + "/dashboard?session_id=cs_1")
	if err != nil {
		t.Fatalf("GET /dashboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("anonymous status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://www.example/login" {
		t.Fatalf("anonymous Location = %q", loc)
	}

	// Bearer session: through to the front-end, path and query preserved.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/dashboard?session_id=cs_1", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user-1"))
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("GET /dashboard with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("bearer status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://www.example/dashboard?session_id=cs_1" {
		t.Fatalf("bearer Location = %q", loc)
	}

	// Plain browser navigation carries the session as a cookie.
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/account", nil)
	req.AddCookie(&http.Cookie{Name: "lexrelay_session", Value: mintToken(t, "user-1")})
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("GET /account with cookie: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("cookie status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://www.example/account" {
		t.Fatalf("cookie Location = %q", loc)
	}

	// A forged cookie does not pass the gate.
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "lexrelay_session", Value: "not-a-token"})
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("GET /dashboard with bad cookie: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("bad cookie status = %d, want 303", resp.StatusCode)
	}
}

func TestCheckoutSurfacesProcessorMessage(t *testing.T) {
	st := store.NewMemoryStore()
	a, err := app.New(app.Config{
		Store:   st,
		Objects: &stubObjects{},
		Catalog: &stubCatalog{products: map[string]domain.Product{
			"nnn-agreement-cn": {Slug: "nnn-agreement-cn", Name: "NNN", BasePrice: 9900, Currency: "usd"},
		}},
		Payments: stubPayments{sessionErr: &payment.APIError{Status: 402, Message: "Your card was declined."}},
		BaseURL:  "https://shop.example",
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	ts := startServer(t, a)

	token := mintToken(t, "user-1")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/checkout/session", token, map[string]string{"productSlug": "nnn-agreement-cn"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var errResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "CHECKOUT_PROCESSOR_ERROR" {
		t.Fatalf("code = %q, want CHECKOUT_PROCESSOR_ERROR", errResp.Code)
	}
	if !strings.Contains(errResp.Error, "Your card was declined.") {
		t.Fatalf("error = %q, want processor message included", errResp.Error)
	}
}

func TestCatalogFailureIsLoggedAndMasked(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	st := store.NewMemoryStore()
	a, err := app.New(app.Config{
		Store:    st,
		Objects:  &stubObjects{},
		Catalog:  &stubCatalog{err: errors.New("content api: connection refused")},
		Payments: stubPayments{},
		BaseURL:  "https://shop.example",
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	ts := startServer(t, a)

	resp, err := http.Get(ts.URL + "/api/products")
	if err != nil {
		t.Fatalf("GET /api/products: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var errResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != "CATALOG_UNAVAILABLE" || strings.Contains(errResp.Error, "connection refused") {
		t.Fatalf("unexpected error payload: %+v", errResp)
	}
	logged := buf.String()
	if !strings.Contains(logged, "catalog fetch failed") || !strings.Contains(logged, "connection refused") {
		t.Fatalf("underlying error not logged: %q", logged)
	}
}

func TestCheckoutRateLimit(t *testing.T) {
	st := store.NewMemoryStore()
	a, err := app.New(app.Config{
		Store:   st,
		Objects: &stubObjects{},
		Catalog: &stubCatalog{products: map[string]domain.Product{
			"nnn-agreement-cn": {Slug: "nnn-agreement-cn", Name: "NNN", BasePrice: 9900, Currency: "usd"},
		}},
		Payments: stubPayments{},
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	verifier, err := usertoken.NewVerifier(usertoken.Config{Secret: testTokenSecret})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	redis := miniredis.RunT(t)
	srv, err := New(Config{
		App:                        a,
		TokenVerifier:              verifier,
		WebhookSecret:              "whsec_test",
		RedisAddr:                  redis.Addr(),
		CheckoutRateLimitPerMinute: 1,
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	token := mintToken(t, "user-1")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/checkout/session", token, map[string]string{"productSlug": "nnn-agreement-cn"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first request status = %d, want 201", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/checkout/session", token, map[string]string{"productSlug": "nnn-agreement-cn"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", resp.StatusCode)
	}
}
