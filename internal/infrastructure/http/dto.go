package httptransport

import (
	"time"

	appOrder "orderflow/internal/application/order"
)

type placeOrderRequest struct {
	UserID          string             `json:"user_id"`
	Items           []orderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	BillingAddress  string             `json:"billing_address"`
	PaymentMethod   string             `json:"payment_method"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (r placeOrderRequest) toInput() appOrder.PlaceOrderInput {
	items := make([]appOrder.LineInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, appOrder.LineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return appOrder.PlaceOrderInput{
		UserID:          r.UserID,
		Items:           items,
		ShippingAddress: r.ShippingAddress,
		BillingAddress:  r.BillingAddress,
		PaymentMethod:   r.PaymentMethod,
	}
}

type updateOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`
	PaymentMethod   string `json:"payment_method"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	OrderID         string              `json:"order_id"`
	UserID          string              `json:"user_id"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     int64               `json:"total_amount"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shipping_address"`
	BillingAddress  string              `json:"billing_address"`
	PaymentMethod   string              `json:"payment_method"`
	OrderDate       time.Time           `json:"order_date"`
	UpdatedAt       time.Time           `json:"updated_at"`
	PaymentID       string              `json:"payment_id,omitempty"`
}

type orderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	Total       int64  `json:"total"`
}

func orderResponseOf(view *appOrder.OrderView) orderResponse {
	items := make([]orderItemResponse, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Total:       item.Total,
		})
	}
	return orderResponse{
		OrderID:         view.OrderID,
		UserID:          view.UserID,
		Items:           items,
		TotalAmount:     view.TotalAmount,
		Status:          string(view.Status),
		ShippingAddress: view.ShippingAddress,
		BillingAddress:  view.BillingAddress,
		PaymentMethod:   view.PaymentMethod,
		OrderDate:       view.OrderDate,
		UpdatedAt:       view.UpdatedAt,
		PaymentID:       view.PaymentID,
	}
}

type errorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Available   int    `json:"available,omitempty"`
	Requested   int    `json:"requested,omitempty"`
}
