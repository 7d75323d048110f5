package gateway

import (
	"context"
	"fmt"
	"net/http"

	"orderflow/internal/domain/payment"
)

// PaymentGateway submits authorizations to the payment service over HTTP.
type PaymentGateway struct {
	client  *Client
	baseURL string
}

func NewPaymentGateway(client *Client, baseURL string) *PaymentGateway {
	return &PaymentGateway{client: client, baseURL: baseURL}
}

var _ payment.Gateway = (*PaymentGateway)(nil)

type paymentRequest struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

type paymentResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
}

func (g *PaymentGateway) Authorize(ctx context.Context, auth payment.Authorization) (*payment.Receipt, error) {
	status, raw, err := g.client.do(ctx, http.MethodPost, g.baseURL+"/payments", paymentRequest{
		OrderID:       auth.OrderID,
		UserID:        auth.UserID,
		Amount:        auth.Amount,
		PaymentMethod: auth.Method,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("gateway: payment service returned status %d", status)
	}

	var body paymentResponse
	if err := decode(raw, &body); err != nil {
		return nil, err
	}
	receipt := &payment.Receipt{PaymentID: body.PaymentID}
	if body.Status == string(payment.StatusSucceeded) {
		receipt.Status = payment.StatusSucceeded
	} else {
		receipt.Status = payment.StatusFailed
	}
	return receipt, nil
}
