package domain

import "time"

type PurchaseStatus string

const (
	PurchasePending PurchaseStatus = "pending"
	PurchasePaid    PurchaseStatus = "paid"
	PurchaseFailed  PurchaseStatus = "failed"
)

type DocumentStatus string

const (
	DocumentGenerated DocumentStatus = "generated"
)

// Product is a catalog entry authored in the headless content source.
// Read-only to this service.
type Product struct {
	Slug               string           `json:"slug"`
	Name               string           `json:"name"`
	Category           string           `json:"category"`
	Description        string           `json:"description,omitempty"`
	BasePrice          int64            `json:"basePrice"`
	Currency           string           `json:"currency"`
	ProcessorProductID string           `json:"processorProductId,omitempty"`
	ProcessorPriceID   string           `json:"processorPriceId,omitempty"`
	Prices             map[string]int64 `json:"prices,omitempty"`
	Generations        int              `json:"generations,omitempty"`
}

// PriceFor returns the price in minor units for the given currency, falling
// back to the base price when no localized entry exists.
func (p Product) PriceFor(currency string) (int64, string) {
	if amount, ok := p.Prices[currency]; ok {
		return amount, currency
	}
	return p.BasePrice, p.Currency
}

type Purchase struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	Status            PurchaseStatus `json:"status"`
	CheckoutSessionID string         `json:"checkoutSessionId,omitempty"`
	PaymentIntentID   string         `json:"paymentIntentId,omitempty"`
	Lines             []OrderLine    `json:"lines"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type OrderLine struct {
	ID                   string           `json:"id"`
	PurchaseID           string           `json:"purchaseId"`
	ProductSlug          string           `json:"productSlug"`
	ProductName          string           `json:"productName"`
	UnitAmount           int64            `json:"unitAmount"`
	Currency             string           `json:"currency"`
	GenerationsRemaining int              `json:"generationsRemaining"`
	PriceSnapshot        map[string]int64 `json:"-"`
	CreatedAt            time.Time        `json:"createdAt"`
}

type Document struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	PurchaseID   string            `json:"purchaseId,omitempty"`
	OrderLineID  string            `json:"orderLineId,omitempty"`
	ProductSlug  string            `json:"productSlug"`
	ProductName  string            `json:"productName"`
	Title        string            `json:"title"`
	StorageKey   string            `json:"-"`
	ContentType  string            `json:"contentType"`
	FormData     map[string]string `json:"formData,omitempty"`
	TextSnapshot string            `json:"textSnapshot,omitempty"`
	Status       DocumentStatus    `json:"status"`
	SizeBytes    int64             `json:"sizeBytes"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type Attachment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"-"`
	Pages      int       `json:"pages"`
	SizeBytes  int64     `json:"sizeBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Profile is the locally stored projection of an auth-provider identity,
// created during onboarding after first authentication.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
}
