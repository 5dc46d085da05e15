// Package app holds the storefront's core flows: checkout session creation,
// webhook reconciliation, document fulfillment, and dashboard reads.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lexrelay/internal/catalog"
	"lexrelay/internal/payment"
	"lexrelay/internal/registry"
	"lexrelay/internal/render"
	"lexrelay/internal/store"
	"lexrelay/pkg/domain"
	"lexrelay/pkg/storage"
)

// Sentinel errors translated to HTTP statuses at the server boundary.
var (
	ErrProfileRequired = errors.New("profile required")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNoActivePrice   = errors.New("no active price found for product")
)

// Catalog is the product source consumed by the app.
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
	ProductBySlug(ctx context.Context, slug string) (domain.Product, error)
	Refresh(ctx context.Context) (int, error)
}

// Payments is the processor surface consumed by the app.
type Payments interface {
	ListPrices(ctx context.Context, productID string) ([]payment.Price, error)
	CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (payment.Session, error)
	GetCheckoutSession(ctx context.Context, id string) (payment.Session, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error)
}

// Config wires the application's dependencies.
type Config struct {
	Store           store.Store
	Objects         storage.ObjectStore
	Catalog         Catalog
	Payments        Payments
	Registry        *registry.Registry
	Renderer        *render.Renderer
	BaseURL         string
	DefaultCurrency string
	// DefaultAllowance is the generation allowance granted per order line
	// when the product does not specify one.
	DefaultAllowance int
}

// App is the core application service.
type App struct {
	store            store.Store
	objects          storage.ObjectStore
	catalog          Catalog
	payments         Payments
	registry         *registry.Registry
	renderer         *render.Renderer
	baseURL          string
	defaultCurrency  string
	defaultAllowance int
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog required")
	}
	if cfg.Payments == nil {
		return nil, errors.New("payments client required")
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	renderer := cfg.Renderer
	if renderer == nil {
		var err error
		renderer, err = render.New()
		if err != nil {
			return nil, fmt.Errorf("init renderer: %w", err)
		}
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.DefaultCurrency))
	if currency == "" {
		currency = "usd"
	}
	allowance := cfg.DefaultAllowance
	if allowance <= 0 {
		allowance = 1
	}
	return &App{
		store:            cfg.Store,
		objects:          cfg.Objects,
		catalog:          cfg.Catalog,
		payments:         cfg.Payments,
		registry:         reg,
		renderer:         renderer,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		defaultCurrency:  currency,
		defaultAllowance: allowance,
	}, nil
}

// Products lists the catalog with prices resolved for the given currency.
func (a *App) Products(ctx context.Context, currency string) ([]domain.Product, error) {
	products, err := a.catalog.Products(ctx)
	if err != nil {
		return nil, err
	}
	currency = a.normalizeCurrency(currency)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		amount, cur := p.PriceFor(currency)
		p.BasePrice = amount
		p.Currency = cur
		out = append(out, p)
	}
	return out, nil
}

// ProductBySlug resolves one product for the given currency.
func (a *App) ProductBySlug(ctx context.Context, slug, currency string) (domain.Product, error) {
	product, err := a.catalog.ProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, err
	}
	amount, cur := product.PriceFor(a.normalizeCurrency(currency))
	product.BasePrice = amount
	product.Currency = cur
	return product, nil
}

// FormKit returns the registry kit for a product slug.
func (a *App) FormKit(slug string) registry.Kit {
	return a.registry.Lookup(slug)
}

// Preview renders the document template with whatever data is present,
// for the storefront's live preview pane. No validation is applied.
func (a *App) Preview(ctx context.Context, slug string, data map[string]string) ([]byte, error) {
	kit := a.registry.Lookup(slug)
	name := slug
	if product, err := a.catalog.ProductBySlug(ctx, slug); err == nil {
		name = product.Name
	}
	return a.renderer.Render(kit.Template, render.Input{
		ProductName: name,
		Title:       kit.Form.Title,
		Fields:      data,
	})
}

// RefreshCatalog re-fetches the catalog into the cache.
func (a *App) RefreshCatalog(ctx context.Context) (int, error) {
	return a.catalog.Refresh(ctx)
}

// Profile returns the stored profile for a user id.
func (a *App) Profile(userID string) (domain.Profile, error) {
	profile, ok, err := a.store.GetProfile(userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		return domain.Profile{}, ErrNotFound
	}
	return profile, nil
}

// UpsertProfile creates or updates the profile row during onboarding.
func (a *App) UpsertProfile(userID, displayName, email string) (domain.Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" {
		return domain.Profile{}, errors.New("email required")
	}
	profile, ok, err := a.store.GetProfile(userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		profile = domain.Profile{ID: userID, CreatedAt: time.Now().UTC()}
	}
	profile.DisplayName = displayName
	profile.Email = email
	if err := a.store.SaveProfile(profile); err != nil {
		return domain.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// Purchases lists a user's purchases for the dashboard.
func (a *App) Purchases(userID string) ([]domain.Purchase, error) {
	return a.store.ListPurchasesByUser(userID)
}

// Documents lists a user's generated documents for the dashboard.
func (a *App) Documents(userID string) ([]domain.Document, error) {
	return a.store.ListDocumentsByUser(userID)
}

func (a *App) normalizeCurrency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return a.defaultCurrency
	}
	return currency
}
