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

// HandleEvent applies a verified processor event. Each event id is recorded
// in a ledger first, so redelivered events are acknowledged without touching
// any purchase twice.
func (a *App) HandleEvent(ctx context.Context, event payment.Event) error {
	fresh, err := a.store.RecordWebhookEvent(event.ID, event.Type)
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if !fresh {
		slog.Info("webhook event replayed, skipping", "event_id", event.ID, "type", event.Type)
		return nil
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		return a.reconcileCompletedSession(ctx, event.Data.Object)
	default:
		slog.Debug("ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}
}

// reconcileCompletedSession marks the referenced purchase paid. Sessions
// created outside this service (payment links, older clients) carry no
// purchase id; those are inserted as new paid purchases from the session's
// user and product metadata.
func (a *App) reconcileCompletedSession(ctx context.Context, session payment.Session) error {
	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		slog.Info("completed session not paid, skipping",
			"session_id", session.ID, "payment_status", session.PaymentStatus)
		return nil
	}

	if purchaseID := session.Metadata["purchase_id"]; purchaseID != "" {
		purchase, ok, err := a.store.GetPurchase(purchaseID)
		if err != nil {
			return fmt.Errorf("get purchase: %w", err)
		}
		if ok {
			if purchase.Status == domain.PurchasePaid {
				return nil
			}
			if err := a.store.MarkPurchasePaid(purchase.ID, session.PaymentIntentID); err != nil {
				return fmt.Errorf("mark purchase paid: %w", err)
			}
			slog.Info("purchase reconciled from webhook",
				"purchase_id", purchase.ID, "session_id", session.ID)
			return nil
		}
		slog.Warn("webhook references unknown purchase, inserting from metadata",
			"purchase_id", purchaseID, "session_id", session.ID)
	}

	userID := session.Metadata["user_id"]
	slug := session.Metadata["product_slug"]
	if userID == "" || slug == "" {
		slog.Warn("completed session has no reconcilable metadata", "session_id", session.ID)
		return nil
	}
	return a.insertPaidPurchase(ctx, session, userID, slug)
}

func (a *App) insertPaidPurchase(ctx context.Context, session payment.Session, userID, slug string) error {
	name := slug
	unitAmount := int64(0)
	currency := a.defaultCurrency
	allowance := a.defaultAllowance
	var snapshot map[string]int64
	if product, err := a.catalog.ProductBySlug(ctx, slug); err == nil {
		name = product.Name
		unitAmount, currency = product.PriceFor(a.defaultCurrency)
		allowance = a.allowanceFor(product)
		snapshot = product.Prices
	}
	if len(session.LineItems) > 0 {
		unitAmount = session.LineItems[0].UnitAmount
		if session.LineItems[0].Currency != "" {
			currency = session.LineItems[0].Currency
		}
	}

	now := time.Now().UTC()
	purchaseID := session.Metadata["purchase_id"]
	if purchaseID == "" {
		purchaseID = util.NewID()
	}
	purchase := domain.Purchase{
		ID:                purchaseID,
		UserID:            userID,
		Status:            domain.PurchasePaid,
		CheckoutSessionID: session.ID,
		PaymentIntentID:   session.PaymentIntentID,
		CreatedAt:         now,
		UpdatedAt:         now,
		Lines: []domain.OrderLine{{
			ID:                   util.NewID(),
			PurchaseID:           purchaseID,
			ProductSlug:          slug,
			ProductName:          name,
			UnitAmount:           unitAmount,
			Currency:             currency,
			GenerationsRemaining: allowance,
			PriceSnapshot:        snapshot,
			CreatedAt:            now,
		}},
	}
	if err := a.store.SavePurchase(purchase); err != nil {
		return fmt.Errorf("save purchase: %w", err)
	}
	slog.Info("paid purchase inserted from webhook",
		"purchase_id", purchaseID, "session_id", session.ID, "product_slug", slug)
	return nil
}
