package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"lexrelay/pkg/domain"
)

const cacheKey = "lexrelay:catalog:products"

// ErrProductNotFound is returned for slugs absent from the catalog.
var ErrProductNotFound = errors.New("product not found")

// Source is the catalog origin consumed by the cache.
type Source interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

// Cache serves the product catalog from Redis with TTL, falling through to
// the content source on misses or Redis failures.
type Cache struct {
	source Source
	client *redis.Client
	ttl    time.Duration
}

// NewCache wires a catalog cache.
func NewCache(source Source, addr, password string, ttl time.Duration) (*Cache, error) {
	if source == nil {
		return nil, errors.New("catalog source required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	var client *redis.Client
	if addr != "" {
		client = redis.NewClient(&redis.Options{Addr: addr, Password: password})
	}
	return &Cache{source: source, client: client, ttl: ttl}, nil
}

// Products returns the catalog, preferring the cache.
func (c *Cache) Products(ctx context.Context) ([]domain.Product, error) {
	if products, ok := c.cached(ctx); ok {
		return products, nil
	}
	products, err := c.source.FetchProducts(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, products)
	return products, nil
}

// ProductBySlug resolves one product. Returns ErrProductNotFound when the
// slug is absent.
func (c *Cache) ProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

// Refresh re-fetches the catalog from the origin and overwrites the cache.
func (c *Cache) Refresh(ctx context.Context) (int, error) {
	products, err := c.source.FetchProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh catalog: %w", err)
	}
	c.store(ctx, products)
	return len(products), nil
}

func (c *Cache) cached(ctx context.Context) ([]domain.Product, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("catalog cache read failed", "err", err)
		}
		return nil, false
	}
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		slog.Warn("catalog cache payload invalid, ignoring", "err", err)
		return nil, false
	}
	return products, true
}

func (c *Cache) store(ctx context.Context, products []domain.Product) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		slog.Warn("catalog cache write failed", "err", err)
	}
}
