package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	appOrder "orderflow/internal/application/order"
	"orderflow/internal/domain/catalog"
	"orderflow/internal/domain/identity"
	domainOrder "orderflow/internal/domain/order"
)

// OrderService is the application surface the transport depends on.
type OrderService interface {
	PlaceOrder(ctx context.Context, in appOrder.PlaceOrderInput) (*appOrder.OrderView, error)
	GetOrder(ctx context.Context, id string) (*appOrder.OrderView, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*appOrder.OrderView, error)
	UpdateOrder(ctx context.Context, id string, in appOrder.UpdateOrderInput) (*appOrder.OrderView, error)
	CancelOrder(ctx context.Context, id string) (*appOrder.OrderView, error)
	SetStatus(ctx context.Context, id string, next domainOrder.Status) (*appOrder.OrderView, error)
}

type Handler struct {
	orders OrderService
	logger *zap.Logger
}

func NewHandler(orders OrderService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{orders: orders, logger: logger}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Patch("/orders/{id}/status", h.setStatus)
	r.Get("/users/{userID}/orders", h.listUserOrders)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.orders.PlaceOrder(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponseOf(view))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponseOf(view))
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orders.ListOrdersByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(views))
	for _, view := range views {
		out = append(out, orderResponseOf(view))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.orders.UpdateOrder(r.Context(), chi.URLParam(r, "id"), appOrder.UpdateOrderInput{
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponseOf(view))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponseOf(view))
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status, err := domainOrder.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponseOf(view))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: business-rule
// rejections become 4xx outcomes, workflow/infrastructure failures 5xx.
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *catalog.InsufficientStockError
	var compensation *appOrder.CompensationFailedError
	var stockUpdate *appOrder.StockUpdateFailedError
	var persistence *appOrder.PersistenceFailedError

	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:       insufficient.Error(),
			ProductName: insufficient.ProductName,
			Available:   insufficient.Available,
			Requested:   insufficient.Requested,
		})
	case errors.Is(err, appOrder.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainOrder.ErrNoOrders),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrAlreadyDelivered),
		errors.Is(err, domainOrder.ErrAlreadyCancelled),
		errors.Is(err, domainOrder.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &compensation):
		// Known-inconsistent state: distinct code so operators can page on it.
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: err.Error(),
			Code:  "compensation_failed",
		})
	case errors.As(err, &stockUpdate), errors.As(err, &persistence):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
