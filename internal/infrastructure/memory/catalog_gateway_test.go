package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/domain/catalog"
)

func TestCatalogGateway_GetProductsOmitsUnknown(t *testing.T) {
	g := NewCatalogGateway(
		catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 5},
	)

	products, err := g.GetProducts(context.Background(), []string{"P1", "P9"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products["P1"].Name)
}

func TestCatalogGateway_AdjustStockAtomic(t *testing.T) {
	g := NewCatalogGateway(
		catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 5},
		catalog.Product{ID: "P2", Name: "Gadget", Price: 500, StockQuantity: 1},
	)

	err := g.AdjustStock(context.Background(), []catalog.StockAdjustment{
		{ProductID: "P1", QuantityChange: -3},
		{ProductID: "P2", QuantityChange: -2},
	})

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Gadget", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	// The P1 line was valid but must not have been applied.
	stock, ok := g.StockOf("P1")
	require.True(t, ok)
	assert.Equal(t, 5, stock)
}

func TestCatalogGateway_AdjustStockUnknownProduct(t *testing.T) {
	g := NewCatalogGateway(
		catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 5},
	)

	err := g.AdjustStock(context.Background(), []catalog.StockAdjustment{
		{ProductID: "P1", QuantityChange: -1},
		{ProductID: "P9", QuantityChange: -1},
	})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)

	stock, _ := g.StockOf("P1")
	assert.Equal(t, 5, stock)
}

func TestCatalogGateway_AdjustStockAccumulatesWithinBatch(t *testing.T) {
	g := NewCatalogGateway(
		catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 3},
	)

	// Two deltas on the same product must be validated against each other,
	// not each against the starting stock.
	err := g.AdjustStock(context.Background(), []catalog.StockAdjustment{
		{ProductID: "P1", QuantityChange: -2},
		{ProductID: "P1", QuantityChange: -2},
	})
	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	stock, _ := g.StockOf("P1")
	assert.Equal(t, 3, stock)
}

func TestCatalogGateway_ConcurrentDeductionsNeverOversell(t *testing.T) {
	const workers = 50
	g := NewCatalogGateway(
		catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 20},
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.AdjustStock(context.Background(), []catalog.StockAdjustment{
				{ProductID: "P1", QuantityChange: -1},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, succeeded)
	stock, _ := g.StockOf("P1")
	assert.Equal(t, 0, stock)
}

func TestCatalogGateway_RestockAfterDeduction(t *testing.T) {
	g := NewCatalogGateway(
		catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 5},
	)

	require.NoError(t, g.AdjustStock(context.Background(), []catalog.StockAdjustment{
		{ProductID: "P1", QuantityChange: -5},
	}))
	require.NoError(t, g.AdjustStock(context.Background(), []catalog.StockAdjustment{
		{ProductID: "P1", QuantityChange: 5},
	}))

	stock, _ := g.StockOf("P1")
	assert.Equal(t, 5, stock)
}
