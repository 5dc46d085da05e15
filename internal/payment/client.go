// Package payment wraps the payment processor's REST API: checkout sessions,
// payment intents, price lookup, and webhook signature verification.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the payment processor over HTTP.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// APIError represents a processor error response. Its message is surfaced to
// callers unmodified; processor failures are never retried.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a processor client.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Price is an active or retired price attached to a processor product.
type Price struct {
	ID         string `json:"id"`
	ProductID  string `json:"product"`
	Active     bool   `json:"active"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

// Session is a processor-hosted checkout page for one purchase attempt.
type Session struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
	LineItems       []SessionLineItem `json:"line_items"`
}

// SessionLineItem is one line on a checkout session.
type SessionLineItem struct {
	PriceID    string `json:"price"`
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Quantity   int    `json:"quantity"`
}

// Intent is a directly created payment intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// SessionParams configures checkout session creation. Exactly one of
// PriceID or AdHoc should be set; precedence is resolved by the caller.
type SessionParams struct {
	PriceID    string            `json:"price,omitempty"`
	AdHoc      *AdHocPrice       `json:"price_data,omitempty"`
	Quantity   int               `json:"quantity"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AdHocPrice creates a transient product/price inline on the session.
type AdHocPrice struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

// ListPrices returns the prices attached to a processor product, active
// first, in the processor's creation order.
func (c *Client) ListPrices(ctx context.Context, productID string) ([]Price, error) {
	var resp struct {
		Data []Price `json:"data"`
	}
	path := "/v1/prices?product=" + productID
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateCheckoutSession creates a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (Session, error) {
	if params.Quantity <= 0 {
		params.Quantity = 1
	}
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/checkout/sessions", params, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// GetCheckoutSession fetches current session state from the processor.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodGet, "/v1/checkout/sessions/"+id, nil, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// CreatePaymentIntent creates a payment intent for client-side confirmation.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error) {
	payload := map[string]any{
		"amount":   amount,
		"currency": currency,
		"metadata": metadata,
	}
	var intent Intent
	if err := c.doJSON(ctx, http.MethodPost, "/v1/payment_intents", payload, &intent); err != nil {
		return Intent{}, err
	}
	return intent, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read processor response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode processor response: %w", err)
	}
	return nil
}

func errorMessage(data []byte, status int) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("processor returned status %d", status)
}
