package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexrelay/internal/payment"
	"lexrelay/internal/util"
	"lexrelay/pkg/domain"
)

// CheckoutRequest is the storefront's checkout form payload.
type CheckoutRequest struct {
	ProductSlug string `json:"productSlug"`
	Currency    string `json:"currency,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

// CheckoutResult points the browser at the processor-hosted payment page.
type CheckoutResult struct {
	PurchaseID string `json:"purchaseId"`
	SessionID  string `json:"sessionId"`
	URL        string `json:"url"`
}

// CreateCheckoutSession resolves the product to a processor price, creates a
// hosted checkout session, and records a pending purchase tagged with enough
// metadata for the webhook to reconcile it later.
//
// Price resolution order: the product's pinned price id wins; otherwise the
// first active price listed under the product's processor product id; a
// product carrying neither is sold ad hoc at the catalog price.
func (a *App) CreateCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (CheckoutResult, error) {
	product, err := a.ProductBySlug(ctx, req.ProductSlug, req.Currency)
	if err != nil {
		return CheckoutResult{}, err
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	purchaseID := util.NewID()
	params := payment.SessionParams{
		Quantity:   quantity,
		SuccessURL: a.baseURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  a.baseURL + "/store/" + product.Slug,
		Metadata: map[string]string{
			"purchase_id":  purchaseID,
			"user_id":      userID,
			"product_slug": product.Slug,
		},
	}

	unitAmount := product.BasePrice
	currency := product.Currency
	switch {
	case product.ProcessorPriceID != "":
		params.PriceID = product.ProcessorPriceID
	case product.ProcessorProductID != "":
		prices, err := a.payments.ListPrices(ctx, product.ProcessorProductID)
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("list prices: %w", err)
		}
		var active *payment.Price
		for i := range prices {
			if prices[i].Active {
				active = &prices[i]
				break
			}
		}
		if active == nil {
			return CheckoutResult{}, ErrNoActivePrice
		}
		params.PriceID = active.ID
		unitAmount = active.UnitAmount
		currency = active.Currency
	default:
		params.AdHoc = &payment.AdHocPrice{
			Name:       product.Name,
			UnitAmount: unitAmount,
			Currency:   currency,
		}
	}

	session, err := a.payments.CreateCheckoutSession(ctx, params)
	if err != nil {
		return CheckoutResult{}, err
	}

	now := time.Now().UTC()
	purchase := domain.Purchase{
		ID:                purchaseID,
		UserID:            userID,
		Status:            domain.PurchasePending,
		CheckoutSessionID: session.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
		Lines: []domain.OrderLine{{
			ID:                   util.NewID(),
			PurchaseID:           purchaseID,
			ProductSlug:          product.Slug,
			ProductName:          product.Name,
			UnitAmount:           unitAmount,
			Currency:             currency,
			GenerationsRemaining: a.allowanceFor(product),
			PriceSnapshot:        product.Prices,
			CreatedAt:            now,
		}},
	}
	if err := a.store.SavePurchase(purchase); err != nil {
		return CheckoutResult{}, fmt.Errorf("save purchase: %w", err)
	}

	slog.Info("checkout session created",
		"purchase_id", purchaseID,
		"session_id", session.ID,
		"product_slug", product.Slug)
	return CheckoutResult{PurchaseID: purchaseID, SessionID: session.ID, URL: session.URL}, nil
}

// IntentRequest asks for a raw payment intent, used by the embedded
// payment-element flow instead of the hosted page.
type IntentRequest struct {
	ProductSlug string `json:"productSlug"`
	Currency    string `json:"currency,omitempty"`
}

// CreatePaymentIntent creates a processor payment intent at the product's
// catalog price.
func (a *App) CreatePaymentIntent(ctx context.Context, userID string, req IntentRequest) (payment.Intent, error) {
	product, err := a.ProductBySlug(ctx, req.ProductSlug, req.Currency)
	if err != nil {
		return payment.Intent{}, err
	}
	return a.payments.CreatePaymentIntent(ctx, product.BasePrice, product.Currency, map[string]string{
		"user_id":      userID,
		"product_slug": product.Slug,
	})
}

// SessionStatus summarizes a checkout session for the post-payment redirect.
type SessionStatus struct {
	SessionID     string                `json:"sessionId"`
	PaymentStatus string                `json:"paymentStatus"`
	PurchaseID    string                `json:"purchaseId,omitempty"`
	Purchase      domain.PurchaseStatus `json:"purchaseStatus,omitempty"`
}

// VerifySession queries the processor for the session's payment state and,
// when the webhook has not arrived yet, reconciles the local purchase on the
// spot so the dashboard is accurate immediately after the redirect.
func (a *App) VerifySession(ctx context.Context, userID, sessionID string) (SessionStatus, error) {
	session, err := a.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return SessionStatus{}, err
	}
	status := SessionStatus{SessionID: session.ID, PaymentStatus: session.PaymentStatus}

	purchase, ok, err := a.store.GetPurchaseBySession(session.ID)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("get purchase by session: %w", err)
	}
	if !ok {
		return status, nil
	}
	if purchase.UserID != userID {
		return SessionStatus{}, ErrForbidden
	}
	if session.PaymentStatus == "paid" && purchase.Status == domain.PurchasePending {
		if err := a.store.MarkPurchasePaid(purchase.ID, session.PaymentIntentID); err != nil {
			return SessionStatus{}, fmt.Errorf("mark purchase paid: %w", err)
		}
		purchase.Status = domain.PurchasePaid
	}
	status.PurchaseID = purchase.ID
	status.Purchase = purchase.Status
	return status, nil
}

func (a *App) allowanceFor(product domain.Product) int {
	if product.Generations > 0 {
		return product.Generations
	}
	return a.defaultAllowance
}
