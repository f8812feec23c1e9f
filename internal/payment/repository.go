package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type Repository interface {
	SavePayment(ctx context.Context, p *Payment) error
	SavePaymentTx(ctx context.Context, tx *sql.Tx, p *Payment) error
	GetPaymentByOrder(ctx context.Context, orderID string) (*Payment, error)

	SaveWebhookEvent(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		intentID string,
		payload json.RawMessage,
		signatureValid bool,
	) (webhookID int64, isDuplicate bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const insertPayment = `
	INSERT INTO payments (order_id, provider, intent_id, amount, currency, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (order_id) DO UPDATE
	SET provider = EXCLUDED.provider,
	    intent_id = EXCLUDED.intent_id,
	    status = EXCLUDED.status
`

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	_, err := r.db.ExecContext(ctx, insertPayment,
		p.OrderID, p.Provider, p.IntentID, p.Amount, p.Currency, p.Status)
	return err
}

// SavePaymentTx writes the payment row inside the finalization transaction.
func (r *repository) SavePaymentTx(ctx context.Context, tx *sql.Tx, p *Payment) error {
	_, err := tx.ExecContext(ctx, insertPayment,
		p.OrderID, p.Provider, p.IntentID, p.Amount, p.Currency, p.Status)
	return err
}

func (r *repository) GetPaymentByOrder(ctx context.Context, orderID string) (*Payment, error) {
	var p Payment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, provider, intent_id, amount, currency, status, created_at
		FROM payments WHERE order_id = $1
	`, orderID).Scan(
		&p.ID, &p.OrderID, &p.Provider, &p.IntentID,
		&p.Amount, &p.Currency, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveWebhookEvent records one delivery. A conflict on (provider, event_id)
// means the processor redelivered an event we already hold.
func (r *repository) SaveWebhookEvent(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	intentID string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, bool, error) {

	const q = `
		INSERT INTO payment_webhooks (provider, event_id, event_type, intent_id, signature_valid, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, event_id) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		provider, eventID, eventType, intentID, signatureValid, []byte(payload)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_webhooks SET status = 'processed', processed_at = NOW()
		WHERE id = $1
	`, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_webhooks SET status = 'failed', failure_reason = $2, processed_at = NOW()
		WHERE id = $1
	`, webhookID, reason)
	return err
}
