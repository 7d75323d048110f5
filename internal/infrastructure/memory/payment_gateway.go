package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"orderflow/internal/domain/payment"
)

// PaymentGateway is the embedded payment collaborator. Authorizations
// succeed unless a Decide hook says otherwise.
type PaymentGateway struct {
	mu sync.Mutex

	// Decide, when set, determines the settlement outcome per request.
	Decide func(auth payment.Authorization) payment.Status
}

func NewPaymentGateway() *PaymentGateway {
	return &PaymentGateway{}
}

var _ payment.Gateway = (*PaymentGateway)(nil)

func (g *PaymentGateway) Authorize(ctx context.Context, auth payment.Authorization) (*payment.Receipt, error) {
	_ = ctx

	g.mu.Lock()
	decide := g.Decide
	g.mu.Unlock()

	status := payment.StatusSucceeded
	if decide != nil {
		status = decide(auth)
	}
	receipt := &payment.Receipt{Status: status}
	if status == payment.StatusSucceeded {
		receipt.PaymentID = "pay-" + uuid.NewString()
	}
	return receipt, nil
}

// SetDecide swaps the outcome hook.
func (g *PaymentGateway) SetDecide(fn func(auth payment.Authorization) payment.Status) {
	g.mu.Lock()
	g.Decide = fn
	g.mu.Unlock()
}
