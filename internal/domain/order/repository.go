package order

import "context"

// Repository is the durable keyed store for order records.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	Update(ctx context.Context, order *Order) error
}
