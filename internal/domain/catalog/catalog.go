package catalog

import (
	"context"
	"errors"
	"fmt"
)

var ErrProductNotFound = errors.New("catalog: product not found")

// Product is the catalog view of an item: name and price feed the order
// snapshot, StockQuantity feeds the advisory sufficiency check.
type Product struct {
	ID            string
	Name          string
	Price         int64 // cents
	StockQuantity int
}

// StockAdjustment is one signed stock delta. Negative deducts, positive
// restores.
type StockAdjustment struct {
	ProductID      string
	QuantityChange int
}

// Gateway is the inventory collaborator consumed by the orchestrator.
//
// GetProducts batches the lookup for a set of ids; ids absent from the
// catalog are omitted from the result, not individually erred.
//
// AdjustStock must be atomic across all adjustments it receives: either all
// deltas apply or none do. The orchestrator's compensation protocol depends
// on this guarantee.
type Gateway interface {
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	AdjustStock(ctx context.Context, adjustments []StockAdjustment) error
}

// InsufficientStockError reports an advisory stock check failure or a
// rejected deduction, carrying the numbers the caller needs to act on.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("catalog: product %q has only %d items left in stock, but %d were requested",
		e.ProductName, e.Available, e.Requested)
}
