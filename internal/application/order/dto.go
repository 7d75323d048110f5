package order

import (
	"fmt"
	"time"

	domain "orderflow/internal/domain/order"
)

// LineInput is one requested product position.
type LineInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrderInput is the intake shape of a placement request.
type PlaceOrderInput struct {
	UserID          string
	Items           []LineInput
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
}

// Validate checks every intake constraint up front, before any external call
// is made, so a rejected request has no side effects at all.
func (in PlaceOrderInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for i, item := range in.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d: product id is required", ErrInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalidInput, i)
		}
	}
	if in.ShippingAddress == "" {
		return fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}
	if in.BillingAddress == "" {
		return fmt.Errorf("%w: billing address is required", ErrInvalidInput)
	}
	if in.PaymentMethod == "" {
		return fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	}
	return nil
}

// distinctProductIDs preserves request order while dropping duplicates, so
// the catalog lookup stays a single batched call.
func (in PlaceOrderInput) distinctProductIDs() []string {
	seen := make(map[string]struct{}, len(in.Items))
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// UpdateOrderInput carries the intake fields a caller may change after
// placement. Blank fields are left untouched; items and the money snapshot
// are immutable once persisted.
type UpdateOrderInput struct {
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
}

// LineView is the read model of an order line.
type LineView struct {
	ProductID   string
	ProductName string
	Price       int64
	Quantity    int
	Total       int64
}

// OrderView is the consolidated read model returned by every operation.
type OrderView struct {
	OrderID         string
	UserID          string
	Items           []LineView
	TotalAmount     int64
	Status          domain.Status
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	OrderDate       time.Time
	UpdatedAt       time.Time
	PaymentID       string
}

// viewOf builds the read model field by field; every mapping is a visible,
// testable line.
func viewOf(o *domain.Order) *OrderView {
	items := make([]LineView, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, LineView{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Price:       line.Price,
			Quantity:    line.Quantity,
			Total:       line.Total,
		})
	}
	return &OrderView{
		OrderID:         o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		PaymentMethod:   o.PaymentMethod,
		OrderDate:       o.OrderDate,
		UpdatedAt:       o.UpdatedAt,
		PaymentID:       o.PaymentID,
	}
}

func viewsOf(orders []*domain.Order) []*OrderView {
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOf(o))
	}
	return views
}
