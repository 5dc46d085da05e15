package store

import (
	"errors"

	"lexrelay/pkg/domain"
)

// ErrNoAllowance is returned when a document insert is linked to an order
// line whose generation allowance is already exhausted.
var ErrNoAllowance = errors.New("order line has no generations remaining")

// Store defines persistence operations for profiles, purchases, and documents.
type Store interface {
	// profiles
	SaveProfile(domain.Profile) error
	GetProfile(id string) (domain.Profile, bool, error)

	// purchases
	SavePurchase(domain.Purchase) error
	GetPurchase(id string) (domain.Purchase, bool, error)
	GetPurchaseBySession(sessionID string) (domain.Purchase, bool, error)
	ListPurchasesByUser(userID string) ([]domain.Purchase, error)
	MarkPurchasePaid(id, paymentIntentID string) error

	// documents
	// CreateDocument inserts the document row and, when orderLineID is
	// non-empty, decrements that line's generation allowance in the same
	// transaction. ErrNoAllowance rolls both back.
	CreateDocument(doc domain.Document, orderLineID string) error
	GetDocument(id string) (domain.Document, bool, error)
	ListDocumentsByUser(userID string) ([]domain.Document, error)

	// attachments
	SaveAttachment(domain.Attachment) error
	ListAttachments(documentID string) ([]domain.Attachment, error)

	// webhook ledger
	// RecordWebhookEvent returns false when the event id was already seen.
	RecordWebhookEvent(eventID, eventType string) (bool, error)
}
