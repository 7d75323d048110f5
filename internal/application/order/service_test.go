package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/domain/catalog"
	"orderflow/internal/domain/identity"
	domain "orderflow/internal/domain/order"
	"orderflow/internal/domain/payment"
	"orderflow/internal/infrastructure/memory"
)

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("order-%d", g.n)
}

type fixture struct {
	repo     *memory.OrderRepository
	users    *memory.IdentityGateway
	catalog  *memory.CatalogGateway
	payments *memory.PaymentGateway
	svc      *Service
}

// newFixture wires the orchestrator against embedded collaborators: user U1
// exists and product P1 costs 10.00 with 5 in stock.
func newFixture() *fixture {
	f := &fixture{
		repo: memory.NewOrderRepository(),
		users: memory.NewIdentityGateway(
			identity.User{ID: "U1", Name: "Test User", Email: "u1@example.com"},
		),
		catalog: memory.NewCatalogGateway(
			catalog.Product{ID: "P1", Name: "Widget", Price: 1000, StockQuantity: 5},
		),
		payments: memory.NewPaymentGateway(),
	}
	f.svc = NewService(f.repo, f.users, f.catalog, f.payments, &seqIDs{})
	return f
}

func validInput() PlaceOrderInput {
	return PlaceOrderInput{
		UserID:          "U1",
		Items:           []LineInput{{ProductID: "P1", Quantity: 2}},
		ShippingAddress: "1 Ship St",
		BillingAddress:  "2 Bill Ave",
		PaymentMethod:   "card",
	}
}

func stockOf(t *testing.T, f *fixture, id string) int {
	t.Helper()
	stock, ok := f.catalog.StockOf(id)
	require.True(t, ok)
	return stock
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture()

	view, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPlaced, view.Status)
	assert.Equal(t, int64(2000), view.TotalAmount)
	assert.NotEmpty(t, view.PaymentID)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Widget", view.Items[0].ProductName)
	assert.Equal(t, int64(1000), view.Items[0].Price)
	assert.Equal(t, int64(2000), view.Items[0].Total)
	assert.Equal(t, 3, stockOf(t, f, "P1"))

	stored, err := f.repo.Get(context.Background(), view.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaced, stored.Status)
	assert.Equal(t, stored.ComputeTotal(), stored.TotalAmount)
}

func TestPlaceOrder_PaymentDeclined(t *testing.T) {
	f := newFixture()
	f.payments.SetDecide(func(payment.Authorization) payment.Status {
		return payment.StatusFailed
	})

	view, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err, "a decline is a business outcome, not an error")

	assert.Equal(t, domain.StatusFailed, view.Status)
	assert.Empty(t, view.PaymentID)
	assert.Equal(t, 5, stockOf(t, f, "P1"), "deduction must be fully reversed")

	stored, err := f.repo.Get(context.Background(), view.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status, "failure record persists")
}

// erroringPayments simulates an unreachable payment gateway.
type erroringPayments struct{}

func (erroringPayments) Authorize(context.Context, payment.Authorization) (*payment.Receipt, error) {
	return nil, errors.New("payment: connection refused")
}

func TestPlaceOrder_PaymentGatewayDown_TreatedAsDecline(t *testing.T) {
	f := newFixture()
	f.svc = NewService(f.repo, f.users, f.catalog, erroringPayments{}, &seqIDs{})

	view, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, view.Status)
	assert.Equal(t, 5, stockOf(t, f, "P1"))
}

func TestPlaceOrder_UserNotFound(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.UserID = "ghost"

	_, err := f.svc.PlaceOrder(context.Background(), in)
	require.ErrorIs(t, err, identity.ErrUserNotFound)
	assert.Equal(t, 5, stockOf(t, f, "P1"), "no side effects before the first mutation")
	assert.Equal(t, 0, f.repo.Len())
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Items = append(in.Items, LineInput{ProductID: "P2", Quantity: 1})

	_, err := f.svc.PlaceOrder(context.Background(), in)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.Equal(t, 5, stockOf(t, f, "P1"))
	assert.Equal(t, 0, f.repo.Len())
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Items = []LineInput{{ProductID: "P1", Quantity: 6}}

	_, err := f.svc.PlaceOrder(context.Background(), in)

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Widget", stockErr.ProductName)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockOf(t, f, "P1"))
	assert.Equal(t, 0, f.repo.Len())
}

func TestPlaceOrder_ExactStockBoundary(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Items = []LineInput{{ProductID: "P1", Quantity: 5}}

	view, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaced, view.Status)
	assert.Equal(t, 0, stockOf(t, f, "P1"))
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"blank user", func(in *PlaceOrderInput) { in.UserID = "" }},
		{"no items", func(in *PlaceOrderInput) { in.Items = nil }},
		{"blank product id", func(in *PlaceOrderInput) { in.Items[0].ProductID = "" }},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }},
		{"negative quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = -1 }},
		{"blank shipping address", func(in *PlaceOrderInput) { in.ShippingAddress = "" }},
		{"blank billing address", func(in *PlaceOrderInput) { in.BillingAddress = "" }},
		{"blank payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := f.svc.PlaceOrder(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, 5, stockOf(t, f, "P1"))
			assert.Equal(t, 0, f.repo.Len())
		})
	}
}

func TestPlaceOrder_DuplicateLinesUseOneCatalogLookup(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Items = []LineInput{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P1", Quantity: 1},
	}

	view, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, view.Items, 2, "lines stay in request order, one per position")
	assert.Equal(t, int64(3000), view.TotalAmount)
	assert.Equal(t, 2, stockOf(t, f, "P1"))
}

// failingRepo lets tests break specific store operations.
type failingRepo struct {
	domain.Repository
	createErr error
	updateErr error
}

func (r *failingRepo) Create(ctx context.Context, o *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.Repository.Create(ctx, o)
}

func (r *failingRepo) Update(ctx context.Context, o *domain.Order) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.Repository.Update(ctx, o)
}

func TestPlaceOrder_PersistenceFailureCompensatesStock(t *testing.T) {
	f := newFixture()
	broken := &failingRepo{Repository: f.repo, createErr: errors.New("store down")}
	f.svc = NewService(broken, f.users, f.catalog, f.payments, &seqIDs{})

	_, err := f.svc.PlaceOrder(context.Background(), validInput())

	var persistErr *PersistenceFailedError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "create", persistErr.Op)
	assert.Equal(t, 5, stockOf(t, f, "P1"), "deduction must be rolled back")
}

// restoreFailingCatalog applies deductions but rejects restorations, which
// makes the compensation path itself fail.
type restoreFailingCatalog struct {
	catalog.Gateway
}

func (g *restoreFailingCatalog) AdjustStock(ctx context.Context, adjs []catalog.StockAdjustment) error {
	for _, adj := range adjs {
		if adj.QuantityChange > 0 {
			return errors.New("catalog: stock update rejected")
		}
	}
	return g.Gateway.AdjustStock(ctx, adjs)
}

func TestPlaceOrder_CompensationFailureIsSurfaced(t *testing.T) {
	f := newFixture()
	f.payments.SetDecide(func(payment.Authorization) payment.Status {
		return payment.StatusFailed
	})
	f.svc = NewService(f.repo, f.users, &restoreFailingCatalog{Gateway: f.catalog}, f.payments, &seqIDs{})

	_, err := f.svc.PlaceOrder(context.Background(), validInput())

	var compErr *CompensationFailedError
	require.ErrorAs(t, err, &compErr)
	require.Len(t, compErr.Errs, 1)
	assert.Equal(t, 3, stockOf(t, f, "P1"), "stock stays deducted when the restore failed")
}

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	f := newFixture()
	placed, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, 3, stockOf(t, f, "P1"))

	view, err := f.svc.CancelOrder(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, view.Status)
	assert.Equal(t, 5, stockOf(t, f, "P1"))

	_, err = f.svc.CancelOrder(context.Background(), placed.OrderID)
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 5, stockOf(t, f, "P1"), "stock restored exactly once")
}

func TestCancelOrder_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CancelOrder(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelOrder_DeliveredRejected(t *testing.T) {
	f := newFixture()
	placed, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(context.Background(), placed.OrderID, domain.StatusShipped)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(context.Background(), placed.OrderID, domain.StatusDelivered)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), placed.OrderID)
	require.ErrorIs(t, err, domain.ErrAlreadyDelivered)
	assert.Equal(t, 3, stockOf(t, f, "P1"), "no stock movement on a rejected cancel")
}

func TestCancelOrder_FailedOrderRejected(t *testing.T) {
	f := newFixture()
	f.payments.SetDecide(func(payment.Authorization) payment.Status {
		return payment.StatusFailed
	})
	declined, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	// The decline already restored the stock; cancelling the failure record
	// must not restore it again.
	_, err = f.svc.CancelOrder(context.Background(), declined.OrderID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 5, stockOf(t, f, "P1"))
}

func TestSetStatus_GatedByTransitionTable(t *testing.T) {
	f := newFixture()
	placed, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(context.Background(), placed.OrderID, domain.StatusPending)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	view, err := f.svc.SetStatus(context.Background(), placed.OrderID, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, view.Status)
}

func TestGetOrder(t *testing.T) {
	f := newFixture()
	placed, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	view, err := f.svc.GetOrder(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderID, view.OrderID)
	assert.Equal(t, int64(2000), view.TotalAmount)

	_, err = f.svc.GetOrder(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrdersByUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListOrdersByUser(context.Background(), "U1")
	require.ErrorIs(t, err, domain.ErrNoOrders, "empty result is an error, not an empty success")

	_, err = f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	views, err := f.svc.ListOrdersByUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestUpdateOrder_MutableFieldsOnly(t *testing.T) {
	f := newFixture()
	placed, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	view, err := f.svc.UpdateOrder(context.Background(), placed.OrderID, UpdateOrderInput{
		ShippingAddress: "9 New Rd",
	})
	require.NoError(t, err)
	assert.Equal(t, "9 New Rd", view.ShippingAddress)
	assert.Equal(t, "2 Bill Ave", view.BillingAddress, "blank fields keep their value")
	assert.Equal(t, placed.TotalAmount, view.TotalAmount, "money snapshot is immutable")
	assert.Equal(t, placed.Items, view.Items, "items are immutable")

	_, err = f.svc.UpdateOrder(context.Background(), "missing", UpdateOrderInput{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceOrder_DegradedIdentityStillPlaces(t *testing.T) {
	f := newFixture()
	f.svc = NewService(f.repo, degradedIdentity{}, f.catalog, f.payments, &seqIDs{})

	view, err := f.svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaced, view.Status)
}

type degradedIdentity struct{}

func (degradedIdentity) GetUser(_ context.Context, id string) (*identity.User, error) {
	return &identity.User{ID: id, Name: "Default User", Degraded: true}, nil
}
