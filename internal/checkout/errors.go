package checkout

import "errors"

var (
	// ErrPaymentNotCompleted means the provider reported a capture status
	// other than completed; no order is created.
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrInconsistentState means the cart is empty and no order exists for
	// the payment: the other finalization path most likely consumed the cart,
	// or the client state is stale.
	ErrInconsistentState = errors.New("cart empty and no matching order")

	// ErrEmptyCart rejects starting a checkout with nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")
)
