package order

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"bijouterie-be/internal/cart"
	"bijouterie-be/internal/payment"
	"bijouterie-be/internal/product"
	"bijouterie-be/internal/user"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrder(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockRepository) FinalizeOrder(ctx context.Context, orderID, provider, intentID string) (*FinalizeResult, error) {
	args := m.Called(ctx, orderID, provider, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FinalizeResult), args.Error(1)
}

func (m *MockRepository) MarkPaymentFailed(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SetPaymentRef(ctx context.Context, orderID, intentID string) error {
	args := m.Called(ctx, orderID, intentID)
	return args.Error(0)
}

func (m *MockRepository) GetDetail(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}

func (m *MockRepository) ListAll(ctx context.Context, statusFilter string) ([]AdminOrder, error) {
	args := m.Called(ctx, statusFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AdminOrder), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, orderID string, from, to Status) error {
	args := m.Called(ctx, orderID, from, to)
	return args.Error(0)
}

func (m *MockRepository) RefundOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockRepository) Stats(ctx context.Context) (decimal.Decimal, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) RecentOrders(ctx context.Context, limit int) ([]AdminOrder, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AdminOrder), args.Error(1)
}

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetCart(ctx context.Context, userID string) ([]cart.Item, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Item), args.Error(1)
}

func (m *MockCartRepository) GetItem(ctx context.Context, userID, productID string) (*cart.Item, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Item), args.Error(1)
}

func (m *MockCartRepository) Create(ctx context.Context, params cart.AddParams) (*cart.Item, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Item), args.Error(1)
}

func (m *MockCartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	args := m.Called(ctx, userID, itemID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) Remove(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, params product.UpsertParams) (*product.Product, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, id string, params product.UpsertParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) CountProducts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, email, passwordHash, fullName string) (user.Profile, error) {
	args := m.Called(ctx, email, passwordHash, fullName)
	return args.Get(0).(user.Profile), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (user.Profile, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(user.Profile), args.Error(1)
}

func (m *MockUserRepository) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(user.Profile), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, params user.UpdateProfileParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockUserRepository) GetRole(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]user.AdminUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.AdminUser), args.Error(1)
}

func (m *MockUserRepository) ReplaceRole(ctx context.Context, userID, role string) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockUserRepository) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, orderID string, metadata map[string]string) (*payment.IntentResponse, error) {
	args := m.Called(ctx, amount, orderID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentResponse), args.Error(1)
}

func (m *MockGateway) VerifySignature(r *http.Request, body []byte) error {
	args := m.Called(r, body)
	return args.Error(0)
}

// --- Helpers ---

func newTestService(repo *MockRepository, cartRepo *MockCartRepository, gateway *MockGateway) Service {
	return NewService(repo, cartRepo, new(MockProductRepository), new(MockUserRepository), gateway, nil)
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

var testShipping = ShippingInfo{
	Address:    "12 rue des Bijoutiers",
	City:       "Lyon",
	PostalCode: "69002",
	Country:    "France",
}

// --- Tests ---

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		cartRepo := new(MockCartRepository)
		svc := newTestService(repo, cartRepo, new(MockGateway))

		cartRepo.On("GetCart", ctx, "user-1").Return([]cart.Item{
			{ProductID: "prod-1", ProductName: "Broche Art Déco", Quantity: 2, UnitPrice: price("120.50"), Stock: 5},
			{ProductID: "prod-2", ProductName: "Bague saphir", Quantity: 1, UnitPrice: price("890.00"), Stock: 1},
		}, nil)

		var created *Order
		repo.On("CreateOrder", ctx, mock.AnythingOfType("*order.Order")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*Order) }).
			Return(nil)

		o, err := svc.Checkout(ctx, "user-1", testShipping)
		require.NoError(t, err)
		require.NotNil(t, created)

		// 2 * 120.50 + 890.00
		assert.True(t, o.TotalAmount.Equal(price("1131.00")), "total = %s", o.TotalAmount)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentPending, o.PaymentStatus)
		assert.Len(t, o.Items, 2)
		assert.True(t, o.Items[0].UnitPrice.Equal(price("120.50")))

		repo.AssertExpectations(t)
	})

	t.Run("Insufficient stock aborts with no writes", func(t *testing.T) {
		repo := new(MockRepository)
		cartRepo := new(MockCartRepository)
		svc := newTestService(repo, cartRepo, new(MockGateway))

		cartRepo.On("GetCart", ctx, "user-1").Return([]cart.Item{
			{ProductID: "prod-1", ProductName: "Collier perles", Quantity: 3, UnitPrice: price("45.00"), Stock: 1},
		}, nil)

		_, err := svc.Checkout(ctx, "user-1", testShipping)

		var stockErr *StockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "Collier perles", stockErr.ProductName)
		assert.Equal(t, 3, stockErr.Requested)
		assert.Equal(t, 1, stockErr.Available)

		repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("Empty cart", func(t *testing.T) {
		repo := new(MockRepository)
		cartRepo := new(MockCartRepository)
		svc := newTestService(repo, cartRepo, new(MockGateway))

		cartRepo.On("GetCart", ctx, "user-1").Return([]cart.Item{}, nil)

		_, err := svc.Checkout(ctx, "user-1", testShipping)
		assert.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("Missing shipping fields", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockCartRepository), new(MockGateway))

		_, err := svc.Checkout(ctx, "user-1", ShippingInfo{City: "Paris"})
		assert.ErrorIs(t, err, ErrMissingShipping)
	})
}

func TestCreatePaymentSession(t *testing.T) {
	ctx := context.Background()

	pendingOrder := func() *Order {
		return &Order{
			ID:            "order-1",
			UserID:        "user-1",
			TotalAmount:   price("250.00"),
			Status:        StatusPending,
			PaymentStatus: PaymentPending,
		}
	}

	t.Run("Returns client secret", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := newTestService(repo, new(MockCartRepository), gateway)

		repo.On("GetDetail", ctx, "order-1").Return(pendingOrder(), nil)
		gateway.On("CreatePaymentIntent", ctx, mock.Anything, "order-1", mock.Anything).
			Return(&payment.IntentResponse{IntentID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method"}, nil)
		repo.On("SetPaymentRef", ctx, "order-1", "pi_123").Return(nil)

		session, err := svc.CreatePaymentSession(ctx, "user-1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, "pi_123_secret", session.ClientSecret)
		assert.False(t, session.Simulated)

		repo.AssertExpectations(t)
	})

	t.Run("Simulated fallback when gateway not configured", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := newTestService(repo, new(MockCartRepository), gateway)

		repo.On("GetDetail", ctx, "order-1").Return(pendingOrder(), nil)
		gateway.On("CreatePaymentIntent", ctx, mock.Anything, "order-1", mock.Anything).
			Return(nil, payment.ErrNotConfigured)
		repo.On("FinalizeOrder", ctx, "order-1", payment.ProviderSimulated, "simulated").
			Return(&FinalizeResult{Applied: true, UserID: "user-1", Amount: price("250.00")}, nil)

		session, err := svc.CreatePaymentSession(ctx, "user-1", "order-1")
		require.NoError(t, err)
		assert.True(t, session.Simulated)
		assert.Empty(t, session.ClientSecret)

		repo.AssertExpectations(t)
	})

	t.Run("Gateway failure leaves order pending", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := newTestService(repo, new(MockCartRepository), gateway)

		repo.On("GetDetail", ctx, "order-1").Return(pendingOrder(), nil)
		gateway.On("CreatePaymentIntent", ctx, mock.Anything, "order-1", mock.Anything).
			Return(nil, errors.New("stripe: 500"))

		_, err := svc.CreatePaymentSession(ctx, "user-1", "order-1")
		assert.ErrorIs(t, err, ErrPaymentInit)
		repo.AssertNotCalled(t, "FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "MarkPaymentFailed", mock.Anything, mock.Anything)
	})

	t.Run("Rejects other user's order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("GetDetail", ctx, "order-1").Return(pendingOrder(), nil)

		_, err := svc.CreatePaymentSession(ctx, "intruder", "order-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Rejects already settled order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		o := pendingOrder()
		o.PaymentStatus = PaymentPaid
		repo.On("GetDetail", ctx, "order-1").Return(o, nil)

		_, err := svc.CreatePaymentSession(ctx, "user-1", "order-1")
		assert.ErrorIs(t, err, ErrNotAwaitingPay)
	})
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Finalizes once", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", UserID: "user-1"}, nil)
		repo.On("FinalizeOrder", ctx, "order-1", payment.ProviderStripe, "pi_123").
			Return(&FinalizeResult{Applied: true, UserID: "user-1"}, nil)

		assert.NoError(t, svc.ConfirmPayment(ctx, "user-1", "order-1", "pi_123"))
		repo.AssertExpectations(t)
	})

	t.Run("Second confirmation is a no-op", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", UserID: "user-1"}, nil)
		repo.On("FinalizeOrder", ctx, "order-1", payment.ProviderStripe, "pi_123").
			Return(&FinalizeResult{Applied: false}, nil)

		assert.NoError(t, svc.ConfirmPayment(ctx, "user-1", "order-1", "pi_123"))
	})

	t.Run("Rejects other user's order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", UserID: "user-1"}, nil)

		err := svc.ConfirmPayment(ctx, "intruder", "order-1", "pi_123")
		assert.ErrorIs(t, err, ErrUnauthorized)
		repo.AssertNotCalled(t, "FinalizeOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandlePaymentFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("Marks pending order failed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("MarkPaymentFailed", ctx, "order-1").Return(true, nil)
		assert.NoError(t, svc.HandlePaymentFailed(ctx, "order-1"))
	})

	t.Run("Ignores already settled order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("MarkPaymentFailed", ctx, "order-1").Return(false, nil)
		assert.NoError(t, svc.HandlePaymentFailed(ctx, "order-1"))
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"processing to shipped", StatusProcessing, StatusShipped, true},
		{"shipped to delivered", StatusShipped, StatusDelivered, true},
		{"pending to shipped skips a step", StatusPending, StatusShipped, false},
		{"delivered is terminal", StatusDelivered, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusProcessing, false},
		{"no backwards transition", StatusShipped, StatusProcessing, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

			repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", Status: tc.from}, nil)
			if tc.allowed {
				repo.On("UpdateStatus", ctx, "order-1", tc.from, tc.to).Return(nil)
			}

			err := svc.UpdateStatus(ctx, "order-1", tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("Rejects unknown status", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockCartRepository), new(MockGateway))
		assert.ErrorIs(t, svc.UpdateStatus(ctx, "order-1", Status("teleported")), ErrInvalidTransition)
	})
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("Refunds paid order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", PaymentStatus: PaymentPaid}, nil)
		repo.On("RefundOrder", ctx, "order-1").Return(nil)

		assert.NoError(t, svc.Refund(ctx, "order-1"))
	})

	t.Run("Rejects unpaid order", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockCartRepository), new(MockGateway))

		repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", PaymentStatus: PaymentPending}, nil)

		assert.ErrorIs(t, svc.Refund(ctx, "order-1"), ErrInvalidTransition)
		repo.AssertNotCalled(t, "RefundOrder", mock.Anything, mock.Anything)
	})
}

func TestGetOrderOwnership(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	svc := newTestService(repo, new(MockCartRepository), new(MockGateway))
	repo.On("GetDetail", ctx, "order-1").Return(&Order{ID: "order-1", UserID: "user-1"}, nil)

	t.Run("Owner can read", func(t *testing.T) {
		o, err := svc.GetOrder(ctx, "user-1", false, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", o.ID)
	})

	t.Run("Admin can read any", func(t *testing.T) {
		_, err := svc.GetOrder(ctx, "someone-else", true, "order-1")
		assert.NoError(t, err)
	})

	t.Run("Stranger cannot read", func(t *testing.T) {
		_, err := svc.GetOrder(ctx, "someone-else", false, "order-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
