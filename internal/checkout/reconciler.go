package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/saqibmurtaza/ai-mart/internal/cart"
	"github.com/saqibmurtaza/ai-mart/internal/catalog"
	"github.com/saqibmurtaza/ai-mart/internal/order"
	"github.com/saqibmurtaza/ai-mart/internal/payment"
)

// CompletedPublisher is the post-commit notification hook; *events.Publisher
// satisfies it. May be nil to run without a broker.
type CompletedPublisher interface {
	PublishOrderCompleted(ctx context.Context, o *order.Order) error
}

// Reconciler finalizes paid checkouts. Payment success arrives through two
// independent, racing triggers: the client's synchronous capture call and the
// provider's webhook. Whichever commits first wins; the loser observes the
// existing order or the emptied cart and exits cleanly. The orders table's
// uniqueness constraint on payment_order_id is the single arbiter; no
// in-process lock is held across provider calls.
type Reconciler struct {
	orders    order.Repository
	carts     cart.Repository
	catalog   catalog.Lookup
	provider  payment.Provider
	publisher CompletedPublisher
	logger    *log.Logger
}

func NewReconciler(
	orders order.Repository,
	carts cart.Repository,
	lookup catalog.Lookup,
	provider payment.Provider,
	publisher CompletedPublisher,
	logger *log.Logger,
) *Reconciler {
	return &Reconciler{
		orders:    orders,
		carts:     carts,
		catalog:   lookup,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
	}
}

const checkoutCurrency = "USD"

// CreateProviderOrder totals the user's cart at authoritative catalog prices
// and opens an order with the provider, embedding the user id as the
// correlation field the webhook path will need. Returns the provider order
// id.
func (r *Reconciler) CreateProviderOrder(ctx context.Context, userID string) (string, error) {
	items, err := r.carts.ItemsFor(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("read cart: %w", err)
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	var total float64
	for _, it := range items {
		total += r.authoritativePrice(ctx, it) * float64(it.Quantity)
	}

	providerOrderID, err := r.provider.CreateOrder(ctx, total, checkoutCurrency, userID)
	if err != nil {
		return "", fmt.Errorf("create provider order: %w", err)
	}

	r.logger.Printf("created provider order %s for user %s (total %.2f)", providerOrderID, userID, total)
	return providerOrderID, nil
}

// Capture is the synchronous finalization path: the client approved the
// payment in the provider UI and calls back with the provider order id.
func (r *Reconciler) Capture(ctx context.Context, userID, providerOrderID string) (string, error) {
	res, err := r.provider.CaptureOrder(ctx, providerOrderID)
	if err != nil {
		return "", fmt.Errorf("capture provider order: %w", err)
	}
	if res.Status != payment.StatusCompleted {
		return "", fmt.Errorf("%w: provider status %s", ErrPaymentNotCompleted, res.Status)
	}

	// Idempotency check before any write: the webhook path may already have
	// finalized this payment.
	existing, err := r.orders.GetByPaymentOrderID(ctx, providerOrderID)
	if err != nil {
		return "", fmt.Errorf("lookup existing order: %w", err)
	}
	if existing != nil {
		r.logger.Printf("capture: payment %s already finalized as order %s", providerOrderID, existing.ID)
		return existing.ID, nil
	}

	items, err := r.carts.ItemsFor(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("read cart: %w", err)
	}
	if len(items) == 0 {
		return "", ErrInconsistentState
	}

	o := r.buildOrder(ctx, userID, providerOrderID, res.ShippingAddress, res.Amount, items)
	if err := r.finalize(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicatePayment) {
			// Lost the race between our check and our commit; the winner's
			// row is the order.
			return r.resolveWinner(ctx, providerOrderID)
		}
		return "", err
	}

	return o.ID, nil
}

// HandleProviderEvent is the asynchronous finalization path. Only a checkout
// approval finalizes; every recoverable condition returns nil so the HTTP
// handler acknowledges and the provider stops redelivering.
func (r *Reconciler) HandleProviderEvent(ctx context.Context, ev payment.WebhookEvent) error {
	if ev.EventType != payment.EventCheckoutApproved {
		r.logger.Printf("webhook: ignoring event type %s", ev.EventType)
		return nil
	}

	res, err := ev.OrderEventResource()
	if err != nil {
		return fmt.Errorf("parse event %s: %w", ev.ID, err)
	}

	if res.CustomID == "" {
		// Without the correlation field there is no way to know whose cart
		// to consume. The capture path can still finalize this payment.
		r.logger.Printf("webhook: event %s for payment %s carries no correlation user id, skipping", ev.ID, res.PaymentOrderID)
		return nil
	}

	userID := res.CustomID

	existing, err := r.orders.GetByPaymentOrderID(ctx, res.PaymentOrderID)
	if err != nil {
		return fmt.Errorf("lookup existing order: %w", err)
	}
	if existing != nil {
		r.logger.Printf("webhook: payment %s already finalized as order %s", res.PaymentOrderID, existing.ID)
		return nil
	}

	items, err := r.carts.ItemsFor(ctx, userID)
	if err != nil {
		return fmt.Errorf("read cart: %w", err)
	}
	if len(items) == 0 {
		// Capture path won, or this is a duplicate delivery.
		r.logger.Printf("webhook: cart for user %s already empty, payment %s treated as processed", userID, res.PaymentOrderID)
		return nil
	}

	o := r.buildOrder(ctx, userID, res.PaymentOrderID, res.ShippingAddress, res.Amount, items)
	if err := r.finalize(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicatePayment) {
			r.logger.Printf("webhook: payment %s finalized concurrently", res.PaymentOrderID)
			return nil
		}
		return err
	}

	return nil
}

// buildOrder prices every line from the catalog, never from the client's
// cart rows; the cart price only survives as a fallback when no catalog
// source knows the product.
func (r *Reconciler) buildOrder(ctx context.Context, userID, paymentOrderID, shippingAddress string, capturedAmount float64, items []cart.Item) *order.Order {
	o := &order.Order{
		PaymentOrderID:  paymentOrderID,
		UserID:          userID,
		ShippingAddress: shippingAddress,
		Status:          order.StatusCompleted,
		CreatedAt:       time.Now().UTC(),
	}

	for _, it := range items {
		price := r.authoritativePrice(ctx, it)
		o.Items = append(o.Items, order.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     price,
		})
		o.TotalAmount += price * float64(it.Quantity)
	}

	if capturedAmount != 0 && capturedAmount != o.TotalAmount {
		r.logger.Printf("payment %s: captured amount %.2f differs from recomputed total %.2f", paymentOrderID, capturedAmount, o.TotalAmount)
	}

	return o
}

func (r *Reconciler) authoritativePrice(ctx context.Context, it cart.Item) float64 {
	price, err := r.catalog.PriceOf(ctx, it.ProductID)
	if err != nil {
		r.logger.Printf("catalog lookup failed for %s, falling back to cart price %.2f: %v", it.ProductID, it.Price, err)
		return it.Price
	}
	if price != it.Price {
		r.logger.Printf("price mismatch for product %s: cart price %.2f, catalog price %.2f, corrected", it.ProductID, it.Price, price)
	}
	return price
}

func (r *Reconciler) finalize(ctx context.Context, o *order.Order) error {
	if err := r.orders.CreateFinalized(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicatePayment) {
			return err
		}
		return fmt.Errorf("create order: %w", err)
	}

	r.logger.Printf("finalized order %s for user %s (payment %s, total %.2f)", o.ID, o.UserID, o.PaymentOrderID, o.TotalAmount)

	if r.publisher != nil {
		if err := r.publisher.PublishOrderCompleted(ctx, o); err != nil {
			// The order is committed; a lost notification must not fail
			// finalization.
			r.logger.Printf("publish OrderCompleted for %s: %v", o.ID, err)
		}
	}

	return nil
}

func (r *Reconciler) resolveWinner(ctx context.Context, providerOrderID string) (string, error) {
	existing, err := r.orders.GetByPaymentOrderID(ctx, providerOrderID)
	if err != nil {
		return "", fmt.Errorf("lookup winning order: %w", err)
	}
	if existing == nil {
		return "", fmt.Errorf("duplicate payment %s reported but no order found", providerOrderID)
	}
	return existing.ID, nil
}
