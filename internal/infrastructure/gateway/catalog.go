package gateway

import (
	"context"
	"fmt"
	"net/http"

	"orderflow/internal/domain/catalog"
)

// CatalogGateway talks to the product/inventory service over HTTP. The
// service owns the atomicity of the batched stock update; this adapter only
// carries the batch across the wire in one call.
type CatalogGateway struct {
	client  *Client
	baseURL string
}

func NewCatalogGateway(client *Client, baseURL string) *CatalogGateway {
	return &CatalogGateway{client: client, baseURL: baseURL}
}

var _ catalog.Gateway = (*CatalogGateway)(nil)

type productsByIDsRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type productResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
}

func (g *CatalogGateway) GetProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	status, raw, err := g.client.do(ctx, http.MethodPost, g.baseURL+"/products/by-ids", productsByIDsRequest{ProductIDs: ids})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gateway: catalog service returned status %d", status)
	}

	var body []productResponse
	if err := decode(raw, &body); err != nil {
		return nil, err
	}
	products := make(map[string]catalog.Product, len(body))
	for _, p := range body {
		products[p.ID] = catalog.Product{
			ID:            p.ID,
			Name:          p.Name,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
		}
	}
	return products, nil
}

type stockUpdateRequest struct {
	StockUpdates []stockUpdateItem `json:"stock_updates"`
}

type stockUpdateItem struct {
	ProductID      string `json:"product_id"`
	QuantityChange int    `json:"quantity_change"`
}

type stockUpdateError struct {
	Error       string `json:"error"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

func (g *CatalogGateway) AdjustStock(ctx context.Context, adjustments []catalog.StockAdjustment) error {
	items := make([]stockUpdateItem, 0, len(adjustments))
	for _, adj := range adjustments {
		items = append(items, stockUpdateItem{
			ProductID:      adj.ProductID,
			QuantityChange: adj.QuantityChange,
		})
	}

	status, raw, err := g.client.do(ctx, http.MethodPost, g.baseURL+"/products/stock", stockUpdateRequest{StockUpdates: items})
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		var body stockUpdateError
		if err := decode(raw, &body); err == nil && body.ProductName != "" {
			return &catalog.InsufficientStockError{
				ProductName: body.ProductName,
				Available:   body.Available,
				Requested:   body.Requested,
			}
		}
		return fmt.Errorf("gateway: stock update rejected: %s", raw)
	case http.StatusNotFound:
		return catalog.ErrProductNotFound
	default:
		return fmt.Errorf("gateway: catalog service returned status %d", status)
	}
}
