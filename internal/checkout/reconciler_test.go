package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saqibmurtaza/ai-mart/internal/cart"
	"github.com/saqibmurtaza/ai-mart/internal/catalog"
	"github.com/saqibmurtaza/ai-mart/internal/order"
	"github.com/saqibmurtaza/ai-mart/internal/payment"
)

type fakeCartRepo struct {
	items map[string][]cart.Item
}

func (f *fakeCartRepo) ItemsFor(_ context.Context, userID string) ([]cart.Item, error) {
	return f.items[userID], nil
}

func (f *fakeCartRepo) Upsert(_ context.Context, it *cart.Item) error {
	f.items[it.UserID] = append(f.items[it.UserID], *it)
	return nil
}

func (f *fakeCartRepo) Remove(_ context.Context, _, _ string) error { return nil }

func (f *fakeCartRepo) Clear(_ context.Context, userID string) error {
	delete(f.items, userID)
	return nil
}

// fakeOrderRepo mimics the real repository's transactional contract: a
// successful CreateFinalized also empties the owning user's cart, and a
// second insert for the same payment order id fails with
// ErrDuplicatePayment.
type fakeOrderRepo struct {
	carts     *fakeCartRepo
	byPayment map[string]*order.Order
	created   []*order.Order
	// missNextLookup makes the next GetByPaymentOrderID miss, simulating a
	// concurrent commit landing between the idempotency check and the insert.
	missNextLookup bool
}

func newFakeOrderRepo(carts *fakeCartRepo) *fakeOrderRepo {
	return &fakeOrderRepo{carts: carts, byPayment: make(map[string]*order.Order)}
}

func (f *fakeOrderRepo) CreateFinalized(ctx context.Context, o *order.Order) error {
	if _, exists := f.byPayment[o.PaymentOrderID]; exists {
		return order.ErrDuplicatePayment
	}
	if o.ID == "" {
		o.ID = "order-" + o.PaymentOrderID
	}
	f.byPayment[o.PaymentOrderID] = o
	f.created = append(f.created, o)
	return f.carts.Clear(ctx, o.UserID)
}

func (f *fakeOrderRepo) GetByID(_ context.Context, orderID string) (*order.Order, error) {
	for _, o := range f.byPayment {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) GetByPaymentOrderID(_ context.Context, paymentOrderID string) (*order.Order, error) {
	if f.missNextLookup {
		f.missNextLookup = false
		return nil, nil
	}
	return f.byPayment[paymentOrderID], nil
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

type fakeLookup struct {
	prices map[string]float64
}

func (f *fakeLookup) PriceOf(_ context.Context, productID string) (float64, error) {
	p, ok := f.prices[productID]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	return p, nil
}

type fakeProvider struct {
	createFunc  func(total float64, currency, customID string) (string, error)
	captureFunc func(providerOrderID string) (*payment.CaptureResult, error)
}

func (f *fakeProvider) CreateOrder(_ context.Context, total float64, currency, customID string) (string, error) {
	if f.createFunc != nil {
		return f.createFunc(total, currency, customID)
	}
	return "PAY-1", nil
}

func (f *fakeProvider) CaptureOrder(_ context.Context, providerOrderID string) (*payment.CaptureResult, error) {
	if f.captureFunc != nil {
		return f.captureFunc(providerOrderID)
	}
	return &payment.CaptureResult{PaymentOrderID: providerOrderID, Status: payment.StatusCompleted}, nil
}

func (f *fakeProvider) VerifyWebhook(_ context.Context, _ http.Header, _ []byte) (bool, error) {
	return true, nil
}

type fakePublisher struct {
	published []*order.Order
}

func (f *fakePublisher) PublishOrderCompleted(_ context.Context, o *order.Order) error {
	f.published = append(f.published, o)
	return nil
}

type fixture struct {
	carts      *fakeCartRepo
	orders     *fakeOrderRepo
	lookup     *fakeLookup
	provider   *fakeProvider
	publisher  *fakePublisher
	reconciler *Reconciler
}

func newFixture() *fixture {
	carts := &fakeCartRepo{items: make(map[string][]cart.Item)}
	orders := newFakeOrderRepo(carts)
	lookup := &fakeLookup{prices: make(map[string]float64)}
	provider := &fakeProvider{}
	publisher := &fakePublisher{}
	logger := log.New(io.Discard, "", 0)

	return &fixture{
		carts:      carts,
		orders:     orders,
		lookup:     lookup,
		provider:   provider,
		publisher:  publisher,
		reconciler: NewReconciler(orders, carts, lookup, provider, publisher, logger),
	}
}

func approvedEvent(paymentOrderID, customID string) payment.WebhookEvent {
	resource := map[string]any{
		"id":     paymentOrderID,
		"status": "APPROVED",
		"purchase_units": []map[string]any{
			{
				"custom_id": customID,
				"amount":    map[string]string{"currency_code": "USD", "value": "20.00"},
			},
		},
	}
	raw, _ := json.Marshal(resource)
	return payment.WebhookEvent{ID: "WH-1", EventType: payment.EventCheckoutApproved, Resource: raw}
}

func TestCreateProviderOrder_TotalsAtCatalogPrices(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 2, Price: 10.00}}
	fx.lookup.prices["P1"] = 12.50

	var gotTotal float64
	var gotCustomID string
	fx.provider.createFunc = func(total float64, currency, customID string) (string, error) {
		gotTotal, gotCustomID = total, customID
		return "PAY-1", nil
	}

	id, err := fx.reconciler.CreateProviderOrder(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", id)
	assert.Equal(t, 25.00, gotTotal)
	assert.Equal(t, "user-1", gotCustomID)
}

func TestCreateProviderOrder_EmptyCart(t *testing.T) {
	fx := newFixture()

	_, err := fx.reconciler.CreateProviderOrder(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCapture_FinalizesOrder(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 2, Price: 10.00}}
	fx.lookup.prices["P1"] = 10.00

	orderID, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	o := fx.orders.byPayment["PAY-1"]
	require.NotNil(t, o)
	assert.Equal(t, orderID, o.ID)
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.Equal(t, 20.00, o.TotalAmount)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "P1", o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)

	assert.Empty(t, fx.carts.items["user-1"], "cart must be consumed by finalization")
	require.Len(t, fx.publisher.published, 1)
	assert.Equal(t, orderID, fx.publisher.published[0].ID)
}

func TestCapture_PricesFromCatalogNotCart(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 1, Price: 9.99}}
	fx.lookup.prices["P1"] = 12.50

	_, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	require.NoError(t, err)

	o := fx.orders.byPayment["PAY-1"]
	require.NotNil(t, o)
	assert.Equal(t, 12.50, o.Items[0].Price)
	assert.Equal(t, 12.50, o.TotalAmount)
}

func TestCapture_FallsBackToCartPriceWhenUnknown(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P-gone", Quantity: 1, Price: 7.00}}

	_, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	require.NoError(t, err)

	assert.Equal(t, 7.00, fx.orders.byPayment["PAY-1"].TotalAmount)
}

func TestCapture_PaymentNotCompleted(t *testing.T) {
	fx := newFixture()
	fx.provider.captureFunc = func(providerOrderID string) (*payment.CaptureResult, error) {
		return &payment.CaptureResult{PaymentOrderID: providerOrderID, Status: "PENDING"}, nil
	}

	_, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
}

func TestCapture_ProviderError(t *testing.T) {
	fx := newFixture()
	fx.provider.captureFunc = func(string) (*payment.CaptureResult, error) {
		return nil, errors.New("gateway timeout")
	}

	_, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	assert.Error(t, err)
}

func TestCapture_IdempotentWhenWebhookWon(t *testing.T) {
	fx := newFixture()
	fx.orders.byPayment["PAY-1"] = &order.Order{ID: "order-existing", PaymentOrderID: "PAY-1", UserID: "user-1"}

	orderID, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, "order-existing", orderID)
	assert.Len(t, fx.orders.created, 0, "no second order may be created")
}

func TestCapture_EmptyCartIsInconsistent(t *testing.T) {
	fx := newFixture()

	_, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestCapture_ResolvesLostInsertRace(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 1, Price: 5.00}}
	fx.lookup.prices["P1"] = 5.00

	// The webhook commits between our idempotency check and our insert: the
	// first lookup misses, the insert hits the constraint, and the re-fetch
	// finds the winner's row.
	winner := &order.Order{ID: "order-winner", PaymentOrderID: "PAY-1", UserID: "user-1"}
	fx.orders.byPayment["PAY-1"] = winner
	fx.orders.missNextLookup = true

	orderID, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, "order-winner", orderID)
	assert.Empty(t, fx.orders.created, "loser must not create a second order")
}

func TestHandleProviderEvent_FinalizesOrder(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 2, Price: 10.00}}
	fx.lookup.prices["P1"] = 10.00

	err := fx.reconciler.HandleProviderEvent(context.Background(), approvedEvent("PAY-9", "user-1"))
	require.NoError(t, err)

	o := fx.orders.byPayment["PAY-9"]
	require.NotNil(t, o)
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, 20.00, o.TotalAmount)
	assert.Empty(t, fx.carts.items["user-1"])
	assert.Len(t, fx.publisher.published, 1)
}

func TestHandleProviderEvent_IgnoresOtherEventTypes(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 1, Price: 5}}

	ev := approvedEvent("PAY-9", "user-1")
	ev.EventType = "PAYMENT.CAPTURE.DENIED"

	require.NoError(t, fx.reconciler.HandleProviderEvent(context.Background(), ev))
	assert.Empty(t, fx.orders.created)
	assert.Len(t, fx.carts.items["user-1"], 1)
}

func TestHandleProviderEvent_MissingCorrelationID(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 1, Price: 5}}

	require.NoError(t, fx.reconciler.HandleProviderEvent(context.Background(), approvedEvent("PAY-9", "")))
	assert.Empty(t, fx.orders.created, "no order without a correlation user id")
	assert.Len(t, fx.carts.items["user-1"], 1, "cart must be left for the capture path")
}

func TestHandleProviderEvent_AlreadyFinalized(t *testing.T) {
	fx := newFixture()
	fx.orders.byPayment["PAY-9"] = &order.Order{ID: "order-1", PaymentOrderID: "PAY-9", UserID: "user-1"}
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 1, Price: 5}}

	require.NoError(t, fx.reconciler.HandleProviderEvent(context.Background(), approvedEvent("PAY-9", "user-1")))
	assert.Empty(t, fx.orders.created)
}

func TestHandleProviderEvent_EmptyCartIsProcessed(t *testing.T) {
	fx := newFixture()

	require.NoError(t, fx.reconciler.HandleProviderEvent(context.Background(), approvedEvent("PAY-9", "user-1")))
	assert.Empty(t, fx.orders.created)
}

func TestRace_ExactlyOneOrderAcrossBothPaths(t *testing.T) {
	fx := newFixture()
	fx.carts.items["user-1"] = []cart.Item{{UserID: "user-1", ProductID: "P1", Quantity: 2, Price: 10.00}}
	fx.lookup.prices["P1"] = 10.00

	captureID, err := fx.reconciler.Capture(context.Background(), "user-1", "PAY-1")
	require.NoError(t, err)

	require.NoError(t, fx.reconciler.HandleProviderEvent(context.Background(), approvedEvent("PAY-1", "user-1")))

	require.Len(t, fx.orders.created, 1)
	assert.Equal(t, captureID, fx.orders.created[0].ID)
	assert.Len(t, fx.publisher.published, 1)
}
