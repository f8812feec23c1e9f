package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no processor credential is present.
// The checkout flow treats it as the signal to take the simulated path.
var ErrNotConfigured = errors.New("payment processor not configured")

// Gateway abstracts the card processor. The single implementation talks to
// Stripe's payment-intent API.
type Gateway interface {
	// CreatePaymentIntent registers an intent to collect amount (decimal
	// currency units, converted to minor units internally) for orderID and
	// returns the client secret used for browser-side confirmation.
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, orderID string, metadata map[string]string) (*IntentResponse, error)

	// VerifySignature checks the processor's signature over the raw webhook
	// body. It must be called before the body is parsed or acted upon.
	VerifySignature(r *http.Request, body []byte) error
}

type IntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}
