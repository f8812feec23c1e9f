package order

import (
	"context"
	"database/sql"
	"errors"

	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/payment"
	"bijouterie-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUnauthorized  = errors.New("unauthorized")
)

// FinalizeResult reports what the finalization transaction did.
type FinalizeResult struct {
	// Applied is false when the order had already left the pending payment
	// state, in which case nothing was changed.
	Applied bool
	UserID  string
	Amount  decimal.Decimal
}

type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	FinalizeOrder(ctx context.Context, orderID, provider, intentID string) (*FinalizeResult, error)
	MarkPaymentFailed(ctx context.Context, orderID string) (bool, error)
	SetPaymentRef(ctx context.Context, orderID, intentID string) error

	GetDetail(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context, statusFilter string) ([]AdminOrder, error)

	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
	RefundOrder(ctx context.Context, orderID string) error

	Stats(ctx context.Context) (revenue decimal.Decimal, orderCount int64, err error)
	RecentOrders(ctx context.Context, limit int) ([]AdminOrder, error)
}

type repository struct {
	db          *sql.DB
	paymentRepo payment.Repository
}

func NewRepository(db *sql.DB, paymentRepo payment.Repository) Repository {
	return &repository{db: db, paymentRepo: paymentRepo}
}

// CreateOrder persists the order header and its items in one transaction.
// Stock is not touched and the cart is kept: both wait for payment.
func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "CreateOrder"),
		zap.String("order_id", o.ID),
		zap.Int("item_count", len(o.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, total_amount, status, payment_status,
			shipping_address, shipping_city, shipping_postal_code, shipping_country
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		o.ID, o.UserID, o.TotalAmount, o.Status, o.PaymentStatus,
		o.ShippingAddress, o.ShippingCity, o.ShippingPostalCode, o.ShippingCountry,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)
		`, item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return err
	}

	committed = true
	log.Info("order created")
	return nil
}

// FinalizeOrder is the single idempotent settlement step, reachable from the
// client confirmation, the webhook, and the simulated path. The guarded
// transition in the first statement makes a second invocation a no-op, so
// the two paths can race without double-decrementing stock or reinserting
// side effects.
func (r *repository) FinalizeOrder(ctx context.Context, orderID, provider, intentID string) (*FinalizeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "FinalizeOrder"),
		zap.String("order_id", orderID),
		zap.String("provider", provider),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var userID string
	var amount decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		UPDATE orders
		SET payment_status = 'paid', status = 'processing',
		    payment_ref = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
		RETURNING user_id, total_amount
	`, orderID, intentID).Scan(&userID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		// Already finalized (or failed): the other path won the race.
		log.Info("order not in pending payment state, finalization skipped")
		return &FinalizeResult{Applied: false}, nil
	}
	if err != nil {
		log.Error("failed to transition order to paid", zap.Error(err))
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}

	type line struct {
		productID string
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, l := range lines {
		if err := product.DecrementStock(ctx, tx, l.productID, l.qty); err != nil {
			log.Warn("stock decrement refused, rolling back finalization",
				zap.String("product_id", l.productID),
				zap.Int("quantity", l.qty),
				zap.Error(err),
			)
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		log.Error("failed to clear cart", zap.Error(err))
		return nil, err
	}

	if err := r.paymentRepo.SavePaymentTx(ctx, tx, &payment.Payment{
		OrderID:  orderID,
		Provider: provider,
		IntentID: intentID,
		Amount:   amount,
		Currency: "EUR",
		Status:   "succeeded",
	}); err != nil {
		log.Error("failed to record payment", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit finalization", zap.Error(err))
		return nil, err
	}

	committed = true
	log.Info("order finalized")
	return &FinalizeResult{Applied: true, UserID: userID, Amount: amount}, nil
}

// MarkPaymentFailed flips payment_status to failed, but only while the
// order is still awaiting payment.
func (r *repository) MarkPaymentFailed(ctx context.Context, orderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, orderID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *repository) SetPaymentRef(ctx context.Context, orderID, intentID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_ref = $2, updated_at = NOW() WHERE id = $1
	`, orderID, intentID)
	return err
}

func (r *repository) GetDetail(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, status, payment_status, payment_ref,
		       shipping_address, shipping_city, shipping_postal_code, shipping_country,
		       created_at, updated_at
		FROM orders WHERE id = $1
	`, orderID).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentStatus, &o.PaymentRef,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingPostalCode, &o.ShippingCountry,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.fetchItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *repository) fetchItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, p.name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.ProductName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, status, payment_status,
		       shipping_address, shipping_city, shipping_postal_code, shipping_country,
		       created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentStatus,
			&o.ShippingAddress, &o.ShippingCity, &o.ShippingPostalCode, &o.ShippingCountry,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.fetchItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *repository) ListAll(ctx context.Context, statusFilter string) ([]AdminOrder, error) {
	query := `
		SELECT o.id, o.user_id, o.total_amount, o.status, o.payment_status,
		       o.shipping_address, o.shipping_city, o.shipping_postal_code, o.shipping_country,
		       o.created_at, o.updated_at,
		       COALESCE(p.email, ''), COALESCE(p.full_name, ''), p.phone
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
	`

	args := []any{}
	if statusFilter != "" {
		query += " WHERE o.status = $1"
		args = append(args, statusFilter)
	}
	query += " ORDER BY o.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []AdminOrder
	for rows.Next() {
		var o AdminOrder
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentStatus,
			&o.ShippingAddress, &o.ShippingCity, &o.ShippingPostalCode, &o.ShippingCountry,
			&o.CreatedAt, &o.UpdatedAt,
			&o.CustomerEmail, &o.CustomerName, &o.CustomerPhone,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus applies a fulfillment transition conditionally on the state
// the caller validated against, so concurrent admin updates cannot skip a
// step.
func (r *repository) UpdateStatus(ctx context.Context, orderID string, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) RefundOrder(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = 'refunded', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'paid'
	`, orderID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) Stats(ctx context.Context) (decimal.Decimal, int64, error) {
	var revenue decimal.Decimal
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'paid'), 0),
		       COUNT(*)
		FROM orders
	`).Scan(&revenue, &count)
	return revenue, count, err
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]AdminOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, o.total_amount, o.status, o.payment_status,
		       o.created_at, COALESCE(p.email, ''), COALESCE(p.full_name, '')
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []AdminOrder
	for rows.Next() {
		var o AdminOrder
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentStatus,
			&o.CreatedAt, &o.CustomerEmail, &o.CustomerName,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
