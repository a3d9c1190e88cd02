package http

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/saqibmurtaza/ai-mart/internal/cart"
	"github.com/saqibmurtaza/ai-mart/internal/catalog"
	"github.com/saqibmurtaza/ai-mart/internal/checkout"
	"github.com/saqibmurtaza/ai-mart/internal/order"
	"github.com/saqibmurtaza/ai-mart/internal/payment"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type fakeOrderRepo struct {
	getByIDFunc    func(ctx context.Context, orderID string) (*order.Order, error)
	listByUserFunc func(ctx context.Context, userID string) ([]order.Order, error)
	byPayment      map[string]*order.Order
	created        []*order.Order
}

func (f *fakeOrderRepo) CreateFinalized(_ context.Context, o *order.Order) error {
	if f.byPayment == nil {
		f.byPayment = make(map[string]*order.Order)
	}
	if _, exists := f.byPayment[o.PaymentOrderID]; exists {
		return order.ErrDuplicatePayment
	}
	if o.ID == "" {
		o.ID = "order-" + o.PaymentOrderID
	}
	f.byPayment[o.PaymentOrderID] = o
	f.created = append(f.created, o)
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, orderID)
	}
	return nil, nil
}

func (f *fakeOrderRepo) GetByPaymentOrderID(_ context.Context, paymentOrderID string) (*order.Order, error) {
	return f.byPayment[paymentOrderID], nil
}

func (f *fakeOrderRepo) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	if f.listByUserFunc != nil {
		return f.listByUserFunc(ctx, userID)
	}
	return nil, nil
}

type fakeCartRepo struct {
	items      map[string][]cart.Item
	upsertErr  error
	lastUpsert *cart.Item
}

func (f *fakeCartRepo) ItemsFor(_ context.Context, userID string) ([]cart.Item, error) {
	return f.items[userID], nil
}

func (f *fakeCartRepo) Upsert(_ context.Context, it *cart.Item) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.lastUpsert = it
	if f.items == nil {
		f.items = make(map[string][]cart.Item)
	}
	f.items[it.UserID] = append(f.items[it.UserID], *it)
	return nil
}

func (f *fakeCartRepo) Remove(_ context.Context, userID, productID string) error {
	kept := f.items[userID][:0]
	for _, it := range f.items[userID] {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	f.items[userID] = kept
	return nil
}

func (f *fakeCartRepo) Clear(_ context.Context, userID string) error {
	delete(f.items, userID)
	return nil
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
	verifyOK    bool
	verifyErr   error
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
	return f.verifyOK, f.verifyErr
}

type checkoutFixture struct {
	orders   *fakeOrderRepo
	carts    *fakeCartRepo
	provider *fakeProvider
	lookup   *fakeLookup
}

func newReconciler(t *testing.T, fx *checkoutFixture) *checkout.Reconciler {
	t.Helper()
	if fx.orders == nil {
		fx.orders = &fakeOrderRepo{byPayment: make(map[string]*order.Order)}
	}
	if fx.carts == nil {
		fx.carts = &fakeCartRepo{items: make(map[string][]cart.Item)}
	}
	if fx.provider == nil {
		fx.provider = &fakeProvider{verifyOK: true}
	}
	if fx.lookup == nil {
		fx.lookup = &fakeLookup{prices: make(map[string]float64)}
	}
	return checkout.NewReconciler(fx.orders, fx.carts, fx.lookup, fx.provider, nil, discardLogger())
}
