package store

import (
	"sync"
	"time"

	"lexrelay/pkg/domain"
)

// MemoryStore keeps everything in-process. Used in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]domain.Profile
	purchases   map[string]domain.Purchase
	order       []string
	documents   map[string]domain.Document
	docOrder    []string
	attachments map[string][]domain.Attachment
	events      map[string]string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]domain.Profile),
		purchases:   make(map[string]domain.Purchase),
		documents:   make(map[string]domain.Document),
		attachments: make(map[string][]domain.Attachment),
		events:      make(map[string]string),
	}
}

func (m *MemoryStore) SaveProfile(p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

func (m *MemoryStore) GetProfile(id string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *MemoryStore) SavePurchase(p domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.purchases[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.purchases[p.ID] = p
	return nil
}

func (m *MemoryStore) GetPurchase(id string) (domain.Purchase, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	return p, ok, nil
}

func (m *MemoryStore) GetPurchaseBySession(sessionID string) (domain.Purchase, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessionID == "" {
		return domain.Purchase{}, false, nil
	}
	for _, p := range m.purchases {
		if p.CheckoutSessionID == sessionID {
			return p, true, nil
		}
	}
	return domain.Purchase{}, false, nil
}

func (m *MemoryStore) ListPurchasesByUser(userID string) ([]domain.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Purchase, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		if p, ok := m.purchases[m.order[i]]; ok && p.UserID == userID {
			res = append(res, p)
		}
	}
	return res, nil
}

func (m *MemoryStore) MarkPurchasePaid(id, paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil
	}
	p.Status = domain.PurchasePaid
	p.PaymentIntentID = paymentIntentID
	p.UpdatedAt = time.Now().UTC()
	m.purchases[id] = p
	return nil
}

func (m *MemoryStore) CreateDocument(doc domain.Document, orderLineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if orderLineID != "" {
		decremented := false
		for pid, p := range m.purchases {
			for i, line := range p.Lines {
				if line.ID != orderLineID {
					continue
				}
				if line.GenerationsRemaining <= 0 {
					return ErrNoAllowance
				}
				p.Lines[i].GenerationsRemaining--
				m.purchases[pid] = p
				decremented = true
			}
		}
		if !decremented {
			return ErrNoAllowance
		}
	}
	m.documents[doc.ID] = doc
	m.docOrder = append(m.docOrder, doc.ID)
	return nil
}

func (m *MemoryStore) GetDocument(id string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	return doc, ok, nil
}

func (m *MemoryStore) ListDocumentsByUser(userID string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Document, 0)
	for i := len(m.docOrder) - 1; i >= 0; i-- {
		if doc, ok := m.documents[m.docOrder[i]]; ok && doc.UserID == userID {
			res = append(res, doc)
		}
	}
	return res, nil
}

func (m *MemoryStore) SaveAttachment(a domain.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachments[a.DocumentID] = append(m.attachments[a.DocumentID], a)
	return nil
}

func (m *MemoryStore) ListAttachments(documentID string) ([]domain.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Attachment(nil), m.attachments[documentID]...), nil
}

func (m *MemoryStore) RecordWebhookEvent(eventID, eventType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.events[eventID]; seen {
		return false, nil
	}
	m.events[eventID] = eventType
	return true, nil
}
