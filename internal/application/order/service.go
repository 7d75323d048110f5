package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"orderflow/internal/domain/catalog"
	"orderflow/internal/domain/identity"
	domain "orderflow/internal/domain/order"
	"orderflow/internal/domain/payment"
	"orderflow/internal/pkg/logging"
)

const defaultCallTimeout = 5 * time.Second

// IDGenerator assigns opaque unique order identifiers.
type IDGenerator interface {
	NewID() string
}

// Service drives the place-order saga and the simpler order operations. Each
// invocation runs as one unit of work; independent placements run fully in
// parallel, and only mutations of an existing order are serialised per id.
type Service struct {
	repo     domain.Repository
	users    identity.Gateway
	products catalog.Gateway
	payments payment.Gateway
	ids      IDGenerator

	callTimeout time.Duration
	tracer      trace.Tracer
	metrics     *Metrics
	locks       *keyedMutex
}

type Option func(*Service)

// WithCallTimeout bounds every outbound gateway call. A timed-out call is
// treated exactly like an explicit failure response.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(
	repo domain.Repository,
	users identity.Gateway,
	products catalog.Gateway,
	payments payment.Gateway,
	ids IDGenerator,
	opts ...Option,
) *Service {
	s := &Service{
		repo:        repo,
		users:       users,
		products:    products,
		payments:    payments,
		ids:         ids,
		callTimeout: defaultCallTimeout,
		tracer:      otel.Tracer("orderflow/order"),
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder executes the placement saga: verify user, snapshot the catalog,
// check and deduct stock, persist, pay, and settle into PLACED or FAILED.
// Every forward step that mutates shared state records its inverse; on a
// later failure the inverses run in reverse order, exactly once.
//
// A payment decline is a legitimate business outcome: it yields a FAILED
// order view and a nil error, with the stock deduction fully reversed.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*OrderView, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "order_orchestrator"))

	if err := in.Validate(); err != nil {
		s.metrics.placed("rejected")
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "PlaceOrder",
		trace.WithAttributes(attribute.String("order.user_id", in.UserID)),
	)
	defer span.End()

	// Step 1: the user must exist before anything else happens.
	var user *identity.User
	err := s.step(ctx, "verify_user", func(ctx context.Context) error {
		cctx, cancel := s.callCtx(ctx)
		defer cancel()
		u, err := s.users.GetUser(cctx, in.UserID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			err = fmt.Errorf("%w: %s: lookup failed: %v", identity.ErrUserNotFound, in.UserID, err)
		}
		s.metrics.placed("user_not_found")
		return nil, err
	}
	if user.Degraded {
		logger.Warn("identity_degraded_fallback",
			zap.String("user_id", in.UserID),
		)
	}

	// Step 2: one batched catalog lookup for the distinct product set.
	ids := in.distinctProductIDs()
	var products map[string]catalog.Product
	err = s.step(ctx, "fetch_products", func(ctx context.Context) error {
		cctx, cancel := s.callCtx(ctx)
		defer cancel()
		ps, err := s.products.GetProducts(cctx, ids)
		if err != nil {
			return err
		}
		products = ps
		return nil
	})
	if err != nil {
		s.metrics.placed("error")
		return nil, fmt.Errorf("order: catalog lookup: %w", err)
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			s.metrics.placed("product_not_found")
			return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, id)
		}
	}

	// Steps 3 and 4: snapshot name and price per line and check advisory
	// stock sufficiency. No mutation has happened yet, so any failure here
	// leaves no side effects at all.
	now := time.Now().UTC()
	ord := &domain.Order{
		ID:              s.ids.NewID(),
		UserID:          in.UserID,
		Status:          domain.StatusPending,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		PaymentMethod:   in.PaymentMethod,
		OrderDate:       now,
		UpdatedAt:       now,
	}
	for _, item := range in.Items {
		product, ok := products[item.ProductID]
		if !ok {
			s.metrics.placed("product_not_found")
			return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, item.ProductID)
		}
		if item.Quantity > product.StockQuantity {
			s.metrics.placed("insufficient_stock")
			return nil, &catalog.InsufficientStockError{
				ProductName: product.Name,
				Available:   product.StockQuantity,
				Requested:   item.Quantity,
			}
		}
		ord.Items = append(ord.Items, domain.Line{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    item.Quantity,
			Total:       product.Price * int64(item.Quantity),
		})
	}
	ord.TotalAmount = ord.ComputeTotal()

	comp := &compensator{}

	// Step 5: deduct stock, the first externally visible side effect. The
	// gateway applies the batch atomically, so a failure leaves nothing to
	// undo.
	err = s.step(ctx, "reserve_stock", func(ctx context.Context) error {
		cctx, cancel := s.callCtx(ctx)
		defer cancel()
		return s.products.AdjustStock(cctx, deductions(ord.Items))
	})
	if err != nil {
		s.metrics.placed("stock_update_failed")
		return nil, &StockUpdateFailedError{Err: err}
	}
	comp.push("restore_stock", func(ctx context.Context) error {
		cctx, cancel := s.callCtx(ctx)
		defer cancel()
		return s.products.AdjustStock(cctx, restorations(ord.Items))
	})

	// Step 6: persist the PENDING order before payment.
	err = s.step(ctx, "persist_order", func(ctx context.Context) error {
		return s.repo.Create(ctx, ord)
	})
	if err != nil {
		s.metrics.placed("persistence_failed")
		return nil, s.compensate(ctx, logger, comp, &PersistenceFailedError{Op: "create", Err: err})
	}

	// Step 7: payment. A gateway transport failure is treated as a decline,
	// not as a distinct error.
	var receipt *payment.Receipt
	err = s.step(ctx, "authorize_payment", func(ctx context.Context) error {
		cctx, cancel := s.callCtx(ctx)
		defer cancel()
		r, err := s.payments.Authorize(cctx, payment.Authorization{
			OrderID: ord.ID,
			UserID:  ord.UserID,
			Amount:  ord.TotalAmount,
			Method:  ord.PaymentMethod,
		})
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil || receipt.Status != payment.StatusSucceeded {
		if err != nil {
			logger.Warn("payment_gateway_error",
				zap.String("order_id", ord.ID),
				zap.Error(err),
			)
		}
		return s.settleDeclined(ctx, logger, comp, ord)
	}

	ord.PaymentID = receipt.PaymentID
	if err := ord.TransitionTo(domain.StatusPlaced); err != nil {
		s.metrics.placed("error")
		return nil, err
	}
	if err := s.repo.Update(ctx, ord); err != nil {
		s.metrics.placed("persistence_failed")
		return nil, &PersistenceFailedError{Op: "update", Err: err}
	}

	s.metrics.placed("placed")
	logger.Info("order_placed",
		zap.String("order_id", ord.ID),
		zap.String("user_id", ord.UserID),
		zap.Int64("total_amount", ord.TotalAmount),
	)
	return viewOf(ord), nil
}

// settleDeclined finishes a placement whose payment was declined: mark the
// order FAILED, give the deducted stock back, persist the failure record.
// The order record survives as a permanent failure record.
func (s *Service) settleDeclined(ctx context.Context, logger *zap.Logger, comp *compensator, ord *domain.Order) (*OrderView, error) {
	if err := ord.TransitionTo(domain.StatusFailed); err != nil {
		s.metrics.placed("error")
		return nil, err
	}

	if err := s.compensate(ctx, logger, comp, nil); err != nil {
		// Persist the FAILED record best-effort, but surface the
		// compensation failure: stock is now known-inconsistent.
		if uerr := s.repo.Update(ctx, ord); uerr != nil {
			logger.Error("failed_order_persist_error",
				zap.String("order_id", ord.ID),
				zap.Error(uerr),
			)
		}
		s.metrics.placed("compensation_failed")
		return nil, err
	}

	if err := s.repo.Update(ctx, ord); err != nil {
		s.metrics.placed("persistence_failed")
		return nil, &PersistenceFailedError{Op: "update", Err: err}
	}

	s.metrics.placed("payment_declined")
	logger.Info("order_payment_declined",
		zap.String("order_id", ord.ID),
		zap.String("user_id", ord.UserID),
	)
	return viewOf(ord), nil
}

// compensate runs the recorded inverse actions. cause, when non-nil, is the
// failure that triggered the rollback; it is returned unchanged when every
// inverse succeeds and wrapped into a CompensationFailedError otherwise.
func (s *Service) compensate(ctx context.Context, logger *zap.Logger, comp *compensator, cause error) error {
	errs := comp.run(ctx)
	if len(errs) == 0 {
		s.metrics.compensated("ok")
		return cause
	}
	s.metrics.compensated("failed")
	for _, err := range errs {
		logger.Error("compensation_failed",
			zap.Error(err),
		)
	}
	return &CompensationFailedError{Cause: cause, Errs: errs}
}

// GetOrder returns the stored order view by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*OrderView, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	ord, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(ord), nil
}

// ListOrdersByUser returns every order of a user. An empty result set is
// surfaced as ErrNoOrders, not as an empty success.
func (s *Service) ListOrdersByUser(ctx context.Context, userID string) ([]*OrderView, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoOrders, userID)
	}
	return viewsOf(orders), nil
}

// UpdateOrder changes the mutable intake fields of an existing order. Blank
// fields keep their current value; items and the money snapshot are
// immutable once persisted.
func (s *Service) UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (*OrderView, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	unlock := s.locks.lock(id)
	defer unlock()

	ord, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ShippingAddress != "" {
		ord.ShippingAddress = in.ShippingAddress
	}
	if in.BillingAddress != "" {
		ord.BillingAddress = in.BillingAddress
	}
	if in.PaymentMethod != "" {
		ord.PaymentMethod = in.PaymentMethod
	}
	ord.Touch()

	if err := s.repo.Update(ctx, ord); err != nil {
		return nil, &PersistenceFailedError{Op: "update", Err: err}
	}
	return viewOf(ord), nil
}

// CancelOrder restores the reserved stock of a non-terminal order and moves
// it to CANCELLED. Refund and user notification are future extension points.
func (s *Service) CancelOrder(ctx context.Context, id string) (*OrderView, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "order_orchestrator"))
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	unlock := s.locks.lock(id)
	defer unlock()

	ord, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Guards first: a terminal order must be rejected loudly, and in
	// particular before any stock is touched.
	switch ord.Status {
	case domain.StatusDelivered:
		return nil, domain.ErrAlreadyDelivered
	case domain.StatusCancelled:
		return nil, domain.ErrAlreadyCancelled
	}
	if !ord.Status.CanTransitionTo(domain.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, ord.Status, domain.StatusCancelled)
	}

	// Give every line back; this is the same inverse the placement
	// compensation uses.
	cctx, cancel := s.callCtx(ctx)
	err = s.products.AdjustStock(cctx, restorations(ord.Items))
	cancel()
	if err != nil {
		return nil, &StockUpdateFailedError{Err: err}
	}

	if err := ord.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ord); err != nil {
		return nil, &PersistenceFailedError{Op: "update", Err: err}
	}

	logger.Info("order_cancelled",
		zap.String("order_id", id),
	)
	return viewOf(ord), nil
}

// SetStatus moves an order to the requested status. Transitions go through
// the same legality table as the rest of the lifecycle; a direct overwrite
// cannot skip it.
func (s *Service) SetStatus(ctx context.Context, id string, next domain.Status) (*OrderView, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	unlock := s.locks.lock(id)
	defer unlock()

	ord, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ord.TransitionTo(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ord); err != nil {
		return nil, &PersistenceFailedError{Op: "update", Err: err}
	}
	return viewOf(ord), nil
}

// step wraps one workflow step with a span and a duration observation.
func (s *Service) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "place."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.observeStep(name, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
	}
	return err
}

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.callTimeout)
}

func deductions(items []domain.Line) []catalog.StockAdjustment {
	out := make([]catalog.StockAdjustment, 0, len(items))
	for _, line := range items {
		out = append(out, catalog.StockAdjustment{ProductID: line.ProductID, QuantityChange: -line.Quantity})
	}
	return out
}

func restorations(items []domain.Line) []catalog.StockAdjustment {
	out := make([]catalog.StockAdjustment, 0, len(items))
	for _, line := range items {
		out = append(out, catalog.StockAdjustment{ProductID: line.ProductID, QuantityChange: line.Quantity})
	}
	return out
}
