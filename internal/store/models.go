package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type ProfileModel struct {
	ID          string    `gorm:"primaryKey"`
	DisplayName string    `gorm:"not null"`
	Email       string    `gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (ProfileModel) TableName() string { return "profiles" }

type PurchaseModel struct {
	ID                string    `gorm:"primaryKey"`
	UserID            string    `gorm:"not null;index"`
	Status            string    `gorm:"not null"`
	CheckoutSessionID string    `gorm:"index"`
	PaymentIntentID   string
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`

	Lines []OrderLineModel `gorm:"foreignKey:PurchaseID"`
}

func (PurchaseModel) TableName() string { return "purchases" }

type OrderLineModel struct {
	ID                   string         `gorm:"primaryKey"`
	PurchaseID           string         `gorm:"not null;index"`
	ProductSlug          string         `gorm:"not null;index"`
	ProductName          string         `gorm:"not null"`
	UnitAmount           int64          `gorm:"not null"`
	Currency             string         `gorm:"not null"`
	GenerationsRemaining int            `gorm:"not null"`
	PriceSnapshot        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time      `gorm:"not null"`
}

func (OrderLineModel) TableName() string { return "order_lines" }

type DocumentModel struct {
	ID           string         `gorm:"primaryKey"`
	UserID       string         `gorm:"not null;index"`
	PurchaseID   string         `gorm:"index"`
	OrderLineID  string         `gorm:"index"`
	ProductSlug  string         `gorm:"not null"`
	ProductName  string         `gorm:"not null"`
	Title        string         `gorm:"not null"`
	StorageKey   string         `gorm:"not null"`
	ContentType  string         `gorm:"not null"`
	Snapshot     datatypes.JSON `gorm:"type:jsonb"`
	Status       string         `gorm:"not null"`
	SizeBytes    int64          `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

func (DocumentModel) TableName() string { return "documents" }

type AttachmentModel struct {
	ID         string    `gorm:"primaryKey"`
	DocumentID string    `gorm:"not null;index"`
	Filename   string    `gorm:"not null"`
	StorageKey string    `gorm:"not null"`
	Pages      int       `gorm:"not null"`
	SizeBytes  int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (AttachmentModel) TableName() string { return "attachments" }

// WebhookEventModel is the dedup ledger for processor event deliveries.
type WebhookEventModel struct {
	EventID    string    `gorm:"primaryKey"`
	Type       string    `gorm:"not null"`
	ReceivedAt time.Time `gorm:"not null"`
}

func (WebhookEventModel) TableName() string { return "webhook_events" }
