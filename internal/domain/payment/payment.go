package payment

import "context"

type Status string

const (
	StatusSucceeded Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// Authorization is the charge request submitted for an order.
type Authorization struct {
	OrderID string
	UserID  string
	Amount  int64 // cents
	Method  string
}

// Receipt is the settlement outcome. A FAILED status is a legitimate
// business outcome, not a transport error.
type Receipt struct {
	Status    Status
	PaymentID string
}

// Gateway submits authorization requests to the payment service.
type Gateway interface {
	Authorize(ctx context.Context, auth Authorization) (*Receipt, error)
}
