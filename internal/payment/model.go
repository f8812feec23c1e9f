package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProviderStripe    = "STRIPE"
	ProviderSimulated = "SIMULATED"
)

// Payment records one collection attempt against an order. Simulated
// payments carry ProviderSimulated so they stay distinguishable from real
// ones in the audit trail.
type Payment struct {
	ID        int64
	OrderID   string
	Provider  string
	IntentID  string
	Amount    decimal.Decimal
	Currency  string
	Status    string
	CreatedAt time.Time
}

// WebhookEvent is a persisted webhook delivery. The unique (provider,
// event_id) pair makes redelivery a no-op at the store level.
type WebhookEvent struct {
	ID             int64
	Provider       string
	EventID        string
	EventType      string
	IntentID       string
	SignatureValid bool
	Status         string
	CreatedAt      time.Time
}
