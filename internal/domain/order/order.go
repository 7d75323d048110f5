package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: already exists")
	ErrNoOrders          = errors.New("order: no orders found for user")
	ErrAlreadyDelivered  = errors.New("order: already delivered, cannot be cancelled")
	ErrAlreadyCancelled  = errors.New("order: already cancelled")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

// Line is one product position of an order. Name and price are snapshots
// taken from the catalog at placement time and never re-read afterwards.
type Line struct {
	ProductID   string
	ProductName string
	Price       int64 // unit price in cents
	Quantity    int
	Total       int64 // Price * Quantity, computed once
}

// Order is the aggregate root of a placement.
type Order struct {
	ID              string
	UserID          string
	Items           []Line
	TotalAmount     int64 // cents, always the sum of line totals
	Status          Status
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	PaymentID       string // set only after a successful payment
	OrderDate       time.Time
	UpdatedAt       time.Time
}

// ComputeTotal sums the line totals. TotalAmount is always derived from the
// lines, never taken from the request.
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, line := range o.Items {
		total += line.Total
	}
	return total
}

// TransitionTo moves the order to the next status if the transition is legal.
func (o *Order) TransitionTo(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.Touch()
	return nil
}

// Cancel transitions the order to CANCELLED. Terminal orders are rejected
// with a distinct error per case; cancellation is never silently accepted.
func (o *Order) Cancel() error {
	switch o.Status {
	case StatusDelivered:
		return ErrAlreadyDelivered
	case StatusCancelled:
		return ErrAlreadyCancelled
	}
	return o.TransitionTo(StatusCancelled)
}

func (o *Order) Touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repositories can hand out orders without
// sharing the items slice with callers.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]Line, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
