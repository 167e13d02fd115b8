package payments

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// Refunder pushes a refund toward the payment gateway after a
// cancellation commits. It is strictly best-effort: the booking state
// is authoritative and a gateway hiccup is retried out-of-band, so
// failures are logged, never propagated.
type Refunder interface {
	IssueRefund(ctx context.Context, bookingID int64, gatewayRef string, amount float64, currency string)
}

type StripeRefunder struct {
	api     *client.API
	Enabled bool
}

func NewStripeRefunder(secretKey string) *StripeRefunder {
	r := &StripeRefunder{Enabled: secretKey != ""}
	if r.Enabled {
		r.api = &client.API{}
		r.api.Init(secretKey, nil)
	}
	return r
}

func (r *StripeRefunder) IssueRefund(ctx context.Context, bookingID int64, gatewayRef string, amount float64, currency string) {
	if !r.Enabled || gatewayRef == "" || amount <= 0 {
		return
	}

	// Stripe amounts are integer minor units.
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(gatewayRef),
		Amount:        stripe.Int64(int64(amount * 100)),
	}
	params.Context = ctx

	ref, err := r.api.Refunds.New(params)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue gateway refund",
			"booking_id", bookingID, "amount", amount, "currency", currency, "error", err)
		return
	}

	logger.InfoContext(ctx, "Gateway refund issued",
		"booking_id", bookingID, "refund_id", ref.ID, "amount", amount, "currency", currency)
}

// NoopRefunder is wired when no gateway key is configured.
type NoopRefunder struct{}

func (NoopRefunder) IssueRefund(ctx context.Context, bookingID int64, gatewayRef string, amount float64, currency string) {
	logger.DebugContext(ctx, "Refund skipped, no payment gateway configured",
		"booking_id", bookingID, "amount", amount)
}
