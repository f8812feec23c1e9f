package order

import (
	"context"
	"errors"
	"strings"

	"bijouterie-be/internal/cart"
	"bijouterie-be/internal/events"
	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/metrics"
	"bijouterie-be/internal/payment"
	"bijouterie-be/internal/product"
	"bijouterie-be/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCartEmpty         = errors.New("cart is empty")
	ErrMissingShipping   = errors.New("shipping address is incomplete")
	ErrPaymentInit       = errors.New("failed to initiate payment")
	ErrNotAwaitingPay    = errors.New("order is not awaiting payment")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PaymentSession is what the checkout page needs to collect the card:
// either a client secret for the processor's embedded form, or the marker
// that the simulated path already settled the order.
type PaymentSession struct {
	ClientSecret string `json:"client_secret,omitempty"`
	Simulated    bool   `json:"simulated"`
}

type Service interface {
	// Checkout validates stock and creates the pending order from the cart.
	Checkout(ctx context.Context, userID string, shipping ShippingInfo) (*Order, error)

	// CreatePaymentSession obtains a client secret for the order, falling
	// back to the simulated settlement when no processor is configured.
	CreatePaymentSession(ctx context.Context, userID, orderID string) (*PaymentSession, error)

	// ConfirmPayment finalizes the order after browser-side confirmation.
	ConfirmPayment(ctx context.Context, userID, orderID, intentID string) error

	// HandlePaymentSucceeded / HandlePaymentFailed are the webhook entry
	// points; they may race ConfirmPayment for the same order.
	HandlePaymentSucceeded(ctx context.Context, orderID, intentID string) error
	HandlePaymentFailed(ctx context.Context, orderID string) error

	ListOrders(ctx context.Context, userID string) ([]Order, error)
	GetOrder(ctx context.Context, userID string, isAdmin bool, orderID string) (*Order, error)

	AdminListOrders(ctx context.Context, statusFilter string) ([]AdminOrder, error)
	UpdateStatus(ctx context.Context, orderID string, to Status) error
	Refund(ctx context.Context, orderID string) error
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type service struct {
	repo        Repository
	cartRepo    cart.Repository
	productRepo product.Repository
	userRepo    user.Repository
	gateway     payment.Gateway
	producer    *events.Producer
}

func NewService(
	repo Repository,
	cartRepo cart.Repository,
	productRepo product.Repository,
	userRepo user.Repository,
	gateway payment.Gateway,
	producer *events.Producer,
) Service {
	return &service{
		repo:        repo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		producer:    producer,
	}
}

// Checkout is the order initiator. Every cart line is checked against
// current stock before anything is written; a single failure aborts with the
// offending product and performs no writes. Stock decrement and cart
// clearing are deferred until payment confirmation, so an order that never
// pays never holds inventory.
func (s *service) Checkout(ctx context.Context, userID string, shipping ShippingInfo) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "Checkout"),
		zap.String("user_id", userID),
	)

	if strings.TrimSpace(shipping.Address) == "" ||
		strings.TrimSpace(shipping.City) == "" ||
		strings.TrimSpace(shipping.PostalCode) == "" {
		return nil, ErrMissingShipping
	}
	if shipping.Country == "" {
		shipping.Country = "France"
	}

	items, err := s.cartRepo.GetCart(ctx, userID)
	if err != nil {
		log.Error("failed to load cart", zap.Error(err))
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	total := decimal.Zero
	orderItems := make([]OrderItem, 0, len(items))

	for _, item := range items {
		if item.Quantity > item.Stock {
			log.Warn("stock check failed",
				zap.String("product_id", item.ProductID),
				zap.Int("requested", item.Quantity),
				zap.Int("available", item.Stock),
			)
			return nil, &StockError{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Requested:   item.Quantity,
				Available:   item.Stock,
			}
		}

		// Unit price is captured from the live catalog price at this moment.
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)

		orderItems = append(orderItems, OrderItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	o := &Order{
		ID:                 uuid.NewString(),
		UserID:             userID,
		TotalAmount:        total,
		Status:             StatusPending,
		PaymentStatus:      PaymentPending,
		ShippingAddress:    shipping.Address,
		ShippingCity:       shipping.City,
		ShippingPostalCode: shipping.PostalCode,
		ShippingCountry:    shipping.Country,
		Items:              orderItems,
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.producer.Publish(ctx, events.EventOrderCreated, o.ID, events.OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      userID,
		TotalAmount: total.StringFixed(2),
		ItemCount:   len(orderItems),
	})

	log.Info("checkout completed",
		zap.String("order_id", o.ID),
		zap.String("total", total.StringFixed(2)),
	)

	return o, nil
}

func (s *service) CreatePaymentSession(ctx context.Context, userID, orderID string) (*PaymentSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "CreatePaymentSession"),
		zap.String("order_id", orderID),
	)

	o, err := s.repo.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrUnauthorized
	}
	if o.PaymentStatus != PaymentPending {
		return nil, ErrNotAwaitingPay
	}

	res, err := s.gateway.CreatePaymentIntent(ctx, o.TotalAmount, o.ID, map[string]string{
		"userId": userID,
	})
	if errors.Is(err, payment.ErrNotConfigured) {
		// No processor credential: settle immediately so the storefront
		// stays usable. The payment row keeps the SIMULATED provider so
		// these orders remain distinguishable from genuinely paid ones.
		log.Warn("payment processor not configured, taking simulated path")

		if err := s.finalize(ctx, orderID, payment.ProviderSimulated, "simulated"); err != nil {
			return nil, err
		}
		metrics.PaymentsSimulated.Inc()
		return &PaymentSession{Simulated: true}, nil
	}
	if err != nil {
		// Order stays pending/pending; the user may retry.
		log.Error("payment intent creation failed", zap.Error(err))
		return nil, ErrPaymentInit
	}

	if err := s.repo.SetPaymentRef(ctx, orderID, res.IntentID); err != nil {
		log.Error("failed to record payment ref", zap.Error(err))
	}

	return &PaymentSession{ClientSecret: res.ClientSecret}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, userID, orderID, intentID string) error {
	o, err := s.repo.GetDetail(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrUnauthorized
	}

	return s.finalize(ctx, orderID, payment.ProviderStripe, intentID)
}

func (s *service) HandlePaymentSucceeded(ctx context.Context, orderID, intentID string) error {
	return s.finalize(ctx, orderID, payment.ProviderStripe, intentID)
}

func (s *service) HandlePaymentFailed(ctx context.Context, orderID string) error {
	applied, err := s.repo.MarkPaymentFailed(ctx, orderID)
	if err != nil {
		return err
	}
	if applied {
		metrics.PaymentsFailed.Inc()
		s.producer.Publish(ctx, events.EventOrderPaymentFailed, orderID, events.OrderPaymentFailedPayload{
			OrderID: orderID,
		})
	}
	return nil
}

// finalize runs the guarded settlement and publishes the paid event exactly
// once, on the invocation that actually applied the transition.
func (s *service) finalize(ctx context.Context, orderID, provider, intentID string) error {
	res, err := s.repo.FinalizeOrder(ctx, orderID, provider, intentID)
	if err != nil {
		return err
	}
	if !res.Applied {
		return nil
	}

	metrics.OrdersFinalized.Inc()
	s.producer.Publish(ctx, events.EventOrderPaid, orderID, events.OrderPaidPayload{
		OrderID:    orderID,
		PaymentRef: intentID,
		Provider:   provider,
	})
	return nil
}

func (s *service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) GetOrder(ctx context.Context, userID string, isAdmin bool, orderID string) (*Order, error) {
	o, err := s.repo.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

func (s *service) AdminListOrders(ctx context.Context, statusFilter string) ([]AdminOrder, error) {
	if statusFilter != "" && !ValidStatus(statusFilter) {
		return nil, errors.New("invalid status filter")
	}
	return s.repo.ListAll(ctx, statusFilter)
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, to Status) error {
	if !ValidStatus(string(to)) {
		return ErrInvalidTransition
	}

	o, err := s.repo.GetDetail(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, orderID, o.Status, to); err != nil {
		return err
	}

	s.producer.Publish(ctx, events.EventOrderStatusChanged, orderID, events.OrderStatusChangedPayload{
		OrderID: orderID,
		From:    string(o.Status),
		To:      string(to),
	})
	return nil
}

func (s *service) Refund(ctx context.Context, orderID string) error {
	o, err := s.repo.GetDetail(ctx, orderID)
	if err != nil {
		return err
	}
	if o.PaymentStatus != PaymentPaid {
		return ErrInvalidTransition
	}
	return s.repo.RefundOrder(ctx, orderID)
}

func (s *service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	revenue, orderCount, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	productCount, err := s.productRepo.CountProducts(ctx)
	if err != nil {
		return nil, err
	}

	userCount, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.RecentOrders(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Revenue:      revenue,
		OrderCount:   orderCount,
		ProductCount: productCount,
		UserCount:    userCount,
		RecentOrders: recent,
	}, nil
}
