package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"lexrelay/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&ProfileModel{},
		&PurchaseModel{},
		&OrderLineModel{},
		&DocumentModel{},
		&AttachmentModel{},
		&WebhookEventModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveProfile creates or updates a profile.
func (s *GormStore) SaveProfile(p domain.Profile) error {
	model := profileToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email"}),
	}).Create(&model).Error
}

// GetProfile returns a profile by id.
func (s *GormStore) GetProfile(id string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// SavePurchase stores or updates a purchase with its order lines.
func (s *GormStore) SavePurchase(p domain.Purchase) error {
	model, err := purchaseToModel(p)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "checkout_session_id", "payment_intent_id", "updated_at"}),
		}).Omit("Lines").Create(&model).Error; err != nil {
			return err
		}
		for i := range model.Lines {
			line := model.Lines[i]
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"generations_remaining"}),
			}).Create(&line).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPurchase retrieves a purchase with lines.
func (s *GormStore) GetPurchase(id string) (domain.Purchase, bool, error) {
	return s.getPurchase("id = ?", id)
}

// GetPurchaseBySession retrieves a purchase by checkout session id.
func (s *GormStore) GetPurchaseBySession(sessionID string) (domain.Purchase, bool, error) {
	return s.getPurchase("checkout_session_id = ?", sessionID)
}

func (s *GormStore) getPurchase(cond string, arg any) (domain.Purchase, bool, error) {
	var model PurchaseModel
	if err := s.db.Preload("Lines").First(&model, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Purchase{}, false, nil
		}
		return domain.Purchase{}, false, err
	}
	return purchaseFromModel(model), true, nil
}

// ListPurchasesByUser returns purchases newest first.
func (s *GormStore) ListPurchasesByUser(userID string) ([]domain.Purchase, error) {
	var models []PurchaseModel
	if err := s.db.Preload("Lines").Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Purchase, 0, len(models))
	for _, m := range models {
		res = append(res, purchaseFromModel(m))
	}
	return res, nil
}

// MarkPurchasePaid transitions a purchase to paid and records the intent id.
func (s *GormStore) MarkPurchasePaid(id, paymentIntentID string) error {
	return s.db.Model(&PurchaseModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            string(domain.PurchasePaid),
			"payment_intent_id": paymentIntentID,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// CreateDocument inserts the document and decrements the linked order line's
// allowance in one transaction.
func (s *GormStore) CreateDocument(doc domain.Document, orderLineID string) error {
	model, err := documentToModel(doc)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if orderLineID != "" {
			res := tx.Model(&OrderLineModel{}).
				Where("id = ? AND generations_remaining > 0", orderLineID).
				Update("generations_remaining", gorm.Expr("generations_remaining - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNoAllowance
			}
		}
		return tx.Create(&model).Error
	})
}

// GetDocument retrieves a document.
func (s *GormStore) GetDocument(id string) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// ListDocumentsByUser returns documents newest first.
func (s *GormStore) ListDocumentsByUser(userID string) ([]domain.Document, error) {
	var models []DocumentModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Document, 0, len(models))
	for _, m := range models {
		res = append(res, documentFromModel(m))
	}
	return res, nil
}

// SaveAttachment records an uploaded attachment.
func (s *GormStore) SaveAttachment(a domain.Attachment) error {
	model := attachmentToModel(a)
	return s.db.Create(&model).Error
}

// ListAttachments returns a document's attachments oldest first.
func (s *GormStore) ListAttachments(documentID string) ([]domain.Attachment, error) {
	var models []AttachmentModel
	if err := s.db.Where("document_id = ?", documentID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Attachment, 0, len(models))
	for _, m := range models {
		res = append(res, attachmentFromModel(m))
	}
	return res, nil
}

// RecordWebhookEvent inserts the event id, reporting false on a duplicate.
func (s *GormStore) RecordWebhookEvent(eventID, eventType string) (bool, error) {
	model := WebhookEventModel{
		EventID:    eventID,
		Type:       eventType,
		ReceivedAt: time.Now().UTC(),
	}
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// documentSnapshot is the JSONB payload stored per document.
type documentSnapshot struct {
	FormData map[string]string `json:"formData,omitempty"`
	Text     string            `json:"text,omitempty"`
}

func profileToModel(p domain.Profile) ProfileModel {
	return ProfileModel{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		CreatedAt:   p.CreatedAt,
	}
}

func profileFromModel(m ProfileModel) domain.Profile {
	return domain.Profile{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		CreatedAt:   m.CreatedAt,
	}
}

func purchaseToModel(p domain.Purchase) (PurchaseModel, error) {
	model := PurchaseModel{
		ID:                p.ID,
		UserID:            p.UserID,
		Status:            string(p.Status),
		CheckoutSessionID: p.CheckoutSessionID,
		PaymentIntentID:   p.PaymentIntentID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	for _, line := range p.Lines {
		lineModel, err := orderLineToModel(line)
		if err != nil {
			return PurchaseModel{}, err
		}
		model.Lines = append(model.Lines, lineModel)
	}
	return model, nil
}

func purchaseFromModel(m PurchaseModel) domain.Purchase {
	purchase := domain.Purchase{
		ID:                m.ID,
		UserID:            m.UserID,
		Status:            domain.PurchaseStatus(m.Status),
		CheckoutSessionID: m.CheckoutSessionID,
		PaymentIntentID:   m.PaymentIntentID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for _, line := range m.Lines {
		purchase.Lines = append(purchase.Lines, orderLineFromModel(line))
	}
	return purchase
}

func orderLineToModel(line domain.OrderLine) (OrderLineModel, error) {
	var snapshot []byte
	if len(line.PriceSnapshot) > 0 {
		data, err := json.Marshal(line.PriceSnapshot)
		if err != nil {
			return OrderLineModel{}, fmt.Errorf("marshal price snapshot: %w", err)
		}
		snapshot = data
	}
	return OrderLineModel{
		ID:                   line.ID,
		PurchaseID:           line.PurchaseID,
		ProductSlug:          line.ProductSlug,
		ProductName:          line.ProductName,
		UnitAmount:           line.UnitAmount,
		Currency:             line.Currency,
		GenerationsRemaining: line.GenerationsRemaining,
		PriceSnapshot:        snapshot,
		CreatedAt:            line.CreatedAt,
	}, nil
}

func orderLineFromModel(m OrderLineModel) domain.OrderLine {
	line := domain.OrderLine{
		ID:                   m.ID,
		PurchaseID:           m.PurchaseID,
		ProductSlug:          m.ProductSlug,
		ProductName:          m.ProductName,
		UnitAmount:           m.UnitAmount,
		Currency:             m.Currency,
		GenerationsRemaining: m.GenerationsRemaining,
		CreatedAt:            m.CreatedAt,
	}
	if len(m.PriceSnapshot) > 0 {
		_ = json.Unmarshal(m.PriceSnapshot, &line.PriceSnapshot)
	}
	return line
}

func documentToModel(doc domain.Document) (DocumentModel, error) {
	snapshot, err := json.Marshal(documentSnapshot{
		FormData: doc.FormData,
		Text:     doc.TextSnapshot,
	})
	if err != nil {
		return DocumentModel{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return DocumentModel{
		ID:          doc.ID,
		UserID:      doc.UserID,
		PurchaseID:  doc.PurchaseID,
		OrderLineID: doc.OrderLineID,
		ProductSlug: doc.ProductSlug,
		ProductName: doc.ProductName,
		Title:       doc.Title,
		StorageKey:  doc.StorageKey,
		ContentType: doc.ContentType,
		Snapshot:    snapshot,
		Status:      string(doc.Status),
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func documentFromModel(m DocumentModel) domain.Document {
	doc := domain.Document{
		ID:          m.ID,
		UserID:      m.UserID,
		PurchaseID:  m.PurchaseID,
		OrderLineID: m.OrderLineID,
		ProductSlug: m.ProductSlug,
		ProductName: m.ProductName,
		Title:       m.Title,
		StorageKey:  m.StorageKey,
		ContentType: m.ContentType,
		Status:      domain.DocumentStatus(m.Status),
		SizeBytes:   m.SizeBytes,
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Snapshot) > 0 {
		var snapshot documentSnapshot
		if err := json.Unmarshal(m.Snapshot, &snapshot); err == nil {
			doc.FormData = snapshot.FormData
			doc.TextSnapshot = snapshot.Text
		}
	}
	return doc
}

func attachmentToModel(a domain.Attachment) AttachmentModel {
	return AttachmentModel{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		Filename:   a.Filename,
		StorageKey: a.StorageKey,
		Pages:      a.Pages,
		SizeBytes:  a.SizeBytes,
		CreatedAt:  a.CreatedAt,
	}
}

func attachmentFromModel(m AttachmentModel) domain.Attachment {
	return domain.Attachment{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		Filename:   m.Filename,
		StorageKey: m.StorageKey,
		Pages:      m.Pages,
		SizeBytes:  m.SizeBytes,
		CreatedAt:  m.CreatedAt,
	}
}
