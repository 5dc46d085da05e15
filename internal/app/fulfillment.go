package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"lexrelay/internal/render"
	"lexrelay/internal/store"
	"lexrelay/internal/util"
	"lexrelay/pkg/domain"
)

// ErrBadAttachment is returned for uploads that are not readable PDFs.
var ErrBadAttachment = errors.New("attachment is not a valid pdf")

const maxAttachmentBytes = 10 << 20

// GenerateRequest is the document generation form payload.
type GenerateRequest struct {
	ProductSlug       string            `json:"productSlug"`
	CheckoutSessionID string            `json:"checkoutSessionId,omitempty"`
	Title             string            `json:"title,omitempty"`
	FormData          map[string]string `json:"formData"`
}

// GenerateDocument validates the form against the product's schema, renders
// the document, stores the HTML, and records the document row. When the
// request names a checkout session it is linked to that purchase's order
// line, consuming one generation from its allowance in the same transaction
// as the insert. A request with no usable session still generates; the
// document simply carries no order link.
func (a *App) GenerateDocument(ctx context.Context, userID string, req GenerateRequest) (domain.Document, error) {
	log := util.LoggerFromContext(ctx)

	if _, _, err := a.requireProfile(userID); err != nil {
		return domain.Document{}, err
	}

	kit := a.registry.Lookup(req.ProductSlug)
	if err := kit.Schema.Validate(req.FormData); err != nil {
		return domain.Document{}, err
	}

	purchaseID, lineID := a.resolveOrderLine(userID, req.ProductSlug, req.CheckoutSessionID, log)

	productName := req.ProductSlug
	if product, err := a.catalog.ProductBySlug(ctx, req.ProductSlug); err == nil {
		productName = product.Name
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = kit.Form.Title
	}

	html, err := a.renderer.Render(kit.Template, render.Input{
		ProductName: productName,
		Title:       title,
		Fields:      req.FormData,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Document{}, fmt.Errorf("render document: %w", err)
	}

	docID := util.NewID()
	key := fmt.Sprintf("documents/%s/%s.html", docID, sanitizeFilename(title))
	if err := a.objects.Put(ctx, key, bytes.NewReader(html), int64(len(html)), "text/html; charset=utf-8"); err != nil {
		return domain.Document{}, fmt.Errorf("store document: %w", err)
	}

	doc := domain.Document{
		ID:           docID,
		UserID:       userID,
		PurchaseID:   purchaseID,
		OrderLineID:  lineID,
		ProductSlug:  req.ProductSlug,
		ProductName:  productName,
		Title:        title,
		StorageKey:   key,
		ContentType:  "text/html; charset=utf-8",
		FormData:     req.FormData,
		TextSnapshot: render.Snapshot(html),
		Status:       domain.DocumentGenerated,
		SizeBytes:    int64(len(html)),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateDocument(doc, lineID); err != nil {
		if errors.Is(err, store.ErrNoAllowance) {
			// The allowance was consumed between lookup and insert.
			// Generation still succeeds, just without an order link.
			log.Warn("order line allowance exhausted concurrently, unlinking",
				"document_id", docID, "order_line_id", lineID)
			doc.PurchaseID = ""
			doc.OrderLineID = ""
			err = a.store.CreateDocument(doc, "")
		}
		if err != nil {
			if delErr := a.objects.Delete(ctx, key); delErr != nil {
				log.Warn("orphan object cleanup failed", "key", key, "error", delErr)
			}
			return domain.Document{}, fmt.Errorf("create document: %w", err)
		}
	}

	log.Info("document generated",
		"document_id", docID,
		"product_slug", req.ProductSlug,
		"order_line_id", lineID)
	return doc, nil
}

// resolveOrderLine maps a checkout session to one of the caller's paid order
// lines with allowance left. Any mismatch degrades to an unlinked generation
// rather than failing the request.
func (a *App) resolveOrderLine(userID, slug, sessionID string, log *slog.Logger) (purchaseID, lineID string) {
	if sessionID == "" {
		return "", ""
	}
	purchase, ok, err := a.store.GetPurchaseBySession(sessionID)
	if err != nil {
		log.Warn("purchase lookup failed, generating unlinked", "session_id", sessionID, "error", err)
		return "", ""
	}
	if !ok || purchase.UserID != userID || purchase.Status != domain.PurchasePaid {
		log.Info("session not linkable, generating unlinked", "session_id", sessionID)
		return "", ""
	}
	for _, line := range purchase.Lines {
		if line.ProductSlug == slug && line.GenerationsRemaining > 0 {
			return purchase.ID, line.ID
		}
	}
	log.Info("no order line with allowance, generating unlinked", "session_id", sessionID)
	return "", ""
}

// Download streams a generated document to its owner.
func (a *App) Download(ctx context.Context, userID, documentID string) (io.ReadCloser, domain.Document, string, error) {
	doc, ok, err := a.store.GetDocument(documentID)
	if err != nil {
		return nil, domain.Document{}, "", fmt.Errorf("get document: %w", err)
	}
	if !ok {
		return nil, domain.Document{}, "", ErrNotFound
	}
	if doc.UserID != userID {
		return nil, domain.Document{}, "", ErrForbidden
	}
	rc, err := a.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, domain.Document{}, "", fmt.Errorf("open document object: %w", err)
	}
	// Filename comes from the product name, not the caller-supplied title.
	filename := fmt.Sprintf("%s-%s.html", sanitizeFilename(doc.ProductName), shortID(doc.ID))
	return rc, doc, filename, nil
}

// Document returns one document with its attachments, owner only.
func (a *App) Document(userID, documentID string) (domain.Document, []domain.Attachment, error) {
	doc, ok, err := a.store.GetDocument(documentID)
	if err != nil {
		return domain.Document{}, nil, fmt.Errorf("get document: %w", err)
	}
	if !ok {
		return domain.Document{}, nil, ErrNotFound
	}
	if doc.UserID != userID {
		return domain.Document{}, nil, ErrForbidden
	}
	attachments, err := a.store.ListAttachments(documentID)
	if err != nil {
		return domain.Document{}, nil, fmt.Errorf("list attachments: %w", err)
	}
	return doc, attachments, nil
}

// AddAttachment stores a supporting PDF (e.g. a trademark specimen) under a
// document the caller owns. The upload must parse as a PDF with at least one
// page.
func (a *App) AddAttachment(ctx context.Context, userID, documentID, filename string, data []byte) (domain.Attachment, error) {
	doc, ok, err := a.store.GetDocument(documentID)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("get document: %w", err)
	}
	if !ok {
		return domain.Attachment{}, ErrNotFound
	}
	if doc.UserID != userID {
		return domain.Attachment{}, ErrForbidden
	}
	if len(data) == 0 || len(data) > maxAttachmentBytes {
		return domain.Attachment{}, ErrBadAttachment
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Attachment{}, ErrBadAttachment
	}
	pages := reader.NumPage()
	if pages < 1 {
		return domain.Attachment{}, ErrBadAttachment
	}

	id := util.NewID()
	key := fmt.Sprintf("documents/%s/attachments/%s-%s", documentID, shortID(id), sanitizeFilename(filename))
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		return domain.Attachment{}, fmt.Errorf("store attachment: %w", err)
	}

	att := domain.Attachment{
		ID:         id,
		DocumentID: documentID,
		Filename:   filename,
		StorageKey: key,
		Pages:      pages,
		SizeBytes:  int64(len(data)),
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveAttachment(att); err != nil {
		if delErr := a.objects.Delete(ctx, key); delErr != nil {
			util.LoggerFromContext(ctx).Warn("orphan attachment cleanup failed", "key", key, "error", delErr)
		}
		return domain.Attachment{}, fmt.Errorf("save attachment: %w", err)
	}
	return att, nil
}

func (a *App) requireProfile(userID string) (domain.Profile, bool, error) {
	profile, ok, err := a.store.GetProfile(userID)
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		return domain.Profile{}, false, ErrProfileRequired
	}
	return profile, true, nil
}

// sanitizeFilename keeps letters, digits, dash, and underscore, collapsing
// everything else to a dash so the name is safe as an object key segment.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "document"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
