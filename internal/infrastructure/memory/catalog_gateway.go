package memory

import (
	"context"
	"fmt"
	"sync"

	"orderflow/internal/domain/catalog"
)

// CatalogGateway is the embedded catalog/inventory used in local mode and
// tests. AdjustStock is atomic across the whole batch: every delta is
// validated against current stock before any is applied, under one lock.
// This is the guarantee the orchestrator's compensation protocol leans on.
type CatalogGateway struct {
	mu       sync.Mutex
	products map[string]catalog.Product
}

func NewCatalogGateway(seed ...catalog.Product) *CatalogGateway {
	g := &CatalogGateway{
		products: make(map[string]catalog.Product, len(seed)),
	}
	for _, p := range seed {
		g.products[p.ID] = p
	}
	return g
}

var _ catalog.Gateway = (*CatalogGateway)(nil)

// Put inserts or replaces a product record.
func (g *CatalogGateway) Put(p catalog.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products[p.ID] = p
}

// GetProducts returns the requested products; unknown ids are omitted from
// the result, not erred.
func (g *CatalogGateway) GetProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	_ = ctx

	g.mu.Lock()
	defer g.mu.Unlock()

	result := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := g.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

// AdjustStock applies all signed deltas or none of them.
func (g *CatalogGateway) AdjustStock(ctx context.Context, adjustments []catalog.StockAdjustment) error {
	_ = ctx

	g.mu.Lock()
	defer g.mu.Unlock()

	// Validate the whole batch before touching anything.
	next := make(map[string]catalog.Product, len(adjustments))
	for _, adj := range adjustments {
		p, ok := g.products[adj.ProductID]
		if !ok {
			return fmt.Errorf("%w: %s", catalog.ErrProductNotFound, adj.ProductID)
		}
		if prev, seen := next[adj.ProductID]; seen {
			p = prev
		}
		p.StockQuantity += adj.QuantityChange
		if p.StockQuantity < 0 {
			return &catalog.InsufficientStockError{
				ProductName: p.Name,
				Available:   g.products[adj.ProductID].StockQuantity,
				Requested:   -adj.QuantityChange,
			}
		}
		next[adj.ProductID] = p
	}

	for id, p := range next {
		g.products[id] = p
	}
	return nil
}

// StockOf reports the current stock of a product, for tests and seeding.
func (g *CatalogGateway) StockOf(id string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.products[id]
	return p.StockQuantity, ok
}
