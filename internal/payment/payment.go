package payment

import (
	"context"

	"nochex-be/internal/order"
)

// MethodID is the storefront identifier of the Nochex payment method. It is
// also the path segment of the notification endpoint.
const MethodID = "nochex"

// Warner is the free-text diagnostics sink. Implementations must not fail.
type Warner interface {
	Warn(message string)
}

// LinkProvider resolves the storefront pages the buyer returns to.
type LinkProvider interface {
	ThankYouLink(o *order.Order) string
	CancelLink(o *order.Order) string
}

// CallbackURLProvider resolves the public URL of a payment method's
// notification endpoint.
type CallbackURLProvider interface {
	CallbackURL(methodID string) string
}

// Verifier confirms a notification with the gateway.
type Verifier interface {
	Verify(ctx context.Context, n *Notification) VerificationOutcome
}
