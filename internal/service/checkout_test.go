package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextskill/course-commerce-api/internal/dto"
	"github.com/nextskill/course-commerce-api/internal/gateway"
	"github.com/nextskill/course-commerce-api/internal/model"
)

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (m *mockOrderRepo) GetByUserAndKey(_ context.Context, userID uuid.UUID, key string) (*model.Order, error) {
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*model.Order, error) {
	for _, o := range m.orders {
		if o.GatewayOrderID == gatewayOrderID && gatewayOrderID != "" {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) SetGatewayOrderID(_ context.Context, id uuid.UUID, gatewayOrderID string) error {
	if o, ok := m.orders[id]; ok {
		o.GatewayOrderID = gatewayOrderID
	}
	return nil
}

func (m *mockOrderRepo) UpdatePayment(_ context.Context, id uuid.UUID, status model.OrderStatus, paymentID, method, signature string) error {
	o, ok := m.orders[id]
	if !ok {
		return nil
	}
	o.Status = status
	if paymentID != "" {
		o.GatewayPaymentID = paymentID
	}
	if method != "" {
		o.PaymentMethod = method
	}
	if signature != "" {
		o.GatewaySignature = signature
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) ListByUserAndStatus(_ context.Context, userID uuid.UUID, status model.OrderStatus) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID && o.Status == status {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	for id, o := range m.orders {
		if o.UserID == userID {
			delete(m.orders, id)
		}
	}
	return nil
}

type mockGateway struct {
	createCalls  int
	captureCalls []string
	payments     map[string]*gateway.Payment
	nextOrderID  string
}

func newMockGateway() *mockGateway {
	return &mockGateway{payments: make(map[string]*gateway.Payment), nextOrderID: "order_test_1"}
}

func (m *mockGateway) CreateOrder(_ context.Context, _ int64, _ string, _ string) (string, error) {
	m.createCalls++
	return m.nextOrderID, nil
}

func (m *mockGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	if p, ok := m.payments[paymentID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("payment %s not found", paymentID)
}

func (m *mockGateway) CapturePayment(_ context.Context, paymentID string, _ int64, _ string) error {
	m.captureCalls = append(m.captureCalls, paymentID)
	if p, ok := m.payments[paymentID]; ok {
		p.Status = gateway.PaymentStatusCaptured
	}
	return nil
}

const (
	testKeySecret     = "test-key-secret"
	testWebhookSecret = "test-webhook-secret"
)

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type checkoutFixture struct {
	svc       *CheckoutService
	orderRepo *mockOrderRepo
	cartRepo  *mockCartRepo
	gw        *mockGateway
	userID    uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		orderRepo: newMockOrderRepo(),
		cartRepo:  newMockCartRepo(),
		gw:        newMockGateway(),
		userID:    uuid.New(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewCheckoutService(
		f.orderRepo, f.cartRepo, newMockCourseRepo(), f.gw,
		testKeySecret, testWebhookSecret, nil, log,
	)
	return f
}

func (f *checkoutFixture) fillCart(t *testing.T, items ...model.CartItem) {
	t.Helper()
	cart, err := f.cartRepo.GetOrCreate(context.Background(), f.userID)
	require.NoError(t, err)
	require.NoError(t, f.cartRepo.ReplaceItems(context.Background(), cart.ID, items))
}

func (f *checkoutFixture) checkout(t *testing.T, key string) *model.Order {
	t.Helper()
	order, err := f.svc.CreateCheckout(context.Background(), f.userID, key, dto.CreateCheckoutRequest{
		Name: "Buyer", Email: "buyer@example.com",
	})
	require.NoError(t, err)
	return order
}

func TestCheckout_MissingIdempotencyKey(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.CreateCheckout(context.Background(), f.userID, "", dto.CreateCheckoutRequest{})
	assert.ErrorIs(t, err, ErrIdempotencyKeyRequired)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.CreateCheckout(context.Background(), f.userID, "key-1", dto.CreateCheckoutRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_AmountAndTax(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))

	order := f.checkout(t, "key-1")

	assert.True(t, order.Amount.Equal(decimal.NewFromInt(1000)), "amount %s", order.Amount)
	// 18% GST extracted from a tax-inclusive ₹1000.
	assert.Equal(t, "152.54", order.Tax.Round(2).String())
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "order_test_1", order.GatewayOrderID)
	assert.Equal(t, int64(100000), MinorUnits(order.Amount))
}

func TestCheckout_MultipleQuantities(t *testing.T) {
	f := newCheckoutFixture(t)
	item := testCartItem("c1")
	item.Quantity = 3
	f.fillCart(t, item)

	order := f.checkout(t, "key-1")
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(3000)), "amount %s", order.Amount)
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))

	first := f.checkout(t, "key-1")
	second := f.checkout(t, "key-1")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.gw.createCalls)
}

func TestCheckout_ReplayFinishesGatewayHalf(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))

	first := f.checkout(t, "key-1")

	// Simulate a crash between order creation and the gateway call.
	f.orderRepo.orders[first.ID].GatewayOrderID = ""

	second := f.checkout(t, "key-1")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "order_test_1", second.GatewayOrderID)
	assert.Equal(t, 2, f.gw.createCalls)
}

func TestVerifyPayment_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	f.gw.payments["pay_1"] = &gateway.Payment{
		ID: "pay_1", OrderID: order.GatewayOrderID,
		Status: gateway.PaymentStatusCaptured, Method: "upi",
		Amount: 100000, Currency: "INR",
	}

	verified, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        signPayment(order.GatewayOrderID, "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, verified.Status)
	assert.Equal(t, "upi", verified.PaymentMethod)

	cart, err := f.cartRepo.GetOrCreate(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestVerifyPayment_CapturesAuthorized(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	f.gw.payments["pay_1"] = &gateway.Payment{
		ID: "pay_1", OrderID: order.GatewayOrderID,
		Status: gateway.PaymentStatusAuthorized, Method: "card",
		Amount: 100000, Currency: "INR",
	}

	verified, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        signPayment(order.GatewayOrderID, "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, verified.Status)
	assert.Equal(t, []string{"pay_1"}, f.gw.captureCalls)
}

func TestVerifyPayment_ForgedSignature(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	_, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "forged",
	})
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	stored := f.orderRepo.orders[order.ID]
	assert.Equal(t, model.OrderStatusFailed, stored.Status)
}

func TestVerifyPayment_AmountMismatch(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	f.gw.payments["pay_1"] = &gateway.Payment{
		ID: "pay_1", OrderID: order.GatewayOrderID,
		Status: gateway.PaymentStatusCaptured, Method: "upi",
		Amount: 1, Currency: "INR",
	}

	_, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        signPayment(order.GatewayOrderID, "pay_1"),
	})
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	// A mismatch is suspicious, not a terminal failure.
	stored := f.orderRepo.orders[order.ID]
	assert.Equal(t, model.OrderStatusPending, stored.Status)
}

func TestVerifyPayment_WrongUser(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	_, err := f.svc.VerifyPayment(context.Background(), uuid.New(), dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        signPayment(order.GatewayOrderID, "pay_1"),
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestVerifyPayment_AlreadyPaidShortCircuits(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	stored := f.orderRepo.orders[order.ID]
	stored.Status = model.OrderStatusPaid
	stored.GatewayPaymentID = "pay_1"

	verified, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "whatever",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, verified.Status)
}

func TestVerifyPayment_PaidOrderSurvivesForgedRetry(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	stored := f.orderRepo.orders[order.ID]
	stored.Status = model.OrderStatusPaid
	stored.GatewayPaymentID = "pay_real"

	verified, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_other",
		Signature:        "forged",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, verified.Status)

	stored = f.orderRepo.orders[order.ID]
	assert.Equal(t, model.OrderStatusPaid, stored.Status)
	assert.Equal(t, "pay_real", stored.GatewayPaymentID)
}

func TestVerifyPayment_FailedOrderCannotReopen(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	stored := f.orderRepo.orders[order.ID]
	stored.Status = model.OrderStatusFailed

	f.gw.payments["pay_2"] = &gateway.Payment{
		ID: "pay_2", OrderID: order.GatewayOrderID,
		Status: gateway.PaymentStatusCaptured, Method: "upi",
		Amount: MinorUnits(order.Amount), Currency: "INR",
	}

	_, err := f.svc.VerifyPayment(context.Background(), f.userID, dto.VerifyPaymentRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: "pay_2",
		Signature:        signPayment(order.GatewayOrderID, "pay_2"),
	})
	assert.ErrorIs(t, err, ErrOrderClosed)
	assert.Equal(t, model.OrderStatusFailed, f.orderRepo.orders[order.ID].Status)
}

func TestWebhook_BadSignature(t *testing.T) {
	f := newCheckoutFixture(t)

	err := f.svc.HandleWebhook(context.Background(), []byte(`{"event":"payment.captured"}`), "forged")
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestWebhook_UnknownOrderIsAcked(t *testing.T) {
	f := newCheckoutFixture(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown","status":"captured"}}}}`)
	err := f.svc.HandleWebhook(context.Background(), body, signBody(body))
	assert.NoError(t, err)
	assert.Empty(t, f.orderRepo.orders)
}

func TestWebhook_CapturedMarksPaidAndClearsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"%s","method":"upi","status":"captured"}}}}`,
		order.GatewayOrderID,
	))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, signBody(body)))

	stored := f.orderRepo.orders[order.ID]
	assert.Equal(t, model.OrderStatusPaid, stored.Status)
	assert.Equal(t, "pay_1", stored.GatewayPaymentID)

	cart, err := f.cartRepo.GetOrCreate(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestWebhook_FailedNeverDowngradesPaid(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	f.orderRepo.orders[order.ID].Status = model.OrderStatusPaid

	body := []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"%s","status":"failed"}}}}`,
		order.GatewayOrderID,
	))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, signBody(body)))

	assert.Equal(t, model.OrderStatusPaid, f.orderRepo.orders[order.ID].Status)
}

func TestWebhook_FailedFromPending(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	body := []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"%s","status":"failed"}}}}`,
		order.GatewayOrderID,
	))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, signBody(body)))

	assert.Equal(t, model.OrderStatusFailed, f.orderRepo.orders[order.ID].Status)
}

func TestWebhook_RefundFromPaid(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")
	f.orderRepo.orders[order.ID].Status = model.OrderStatusPaid

	body := []byte(fmt.Sprintf(
		`{"event":"refund.processed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"%s"}}}}`,
		order.GatewayOrderID,
	))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, signBody(body)))

	assert.Equal(t, model.OrderStatusRefunded, f.orderRepo.orders[order.ID].Status)
}

func TestWebhook_UnknownEventIsAcked(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")

	body := []byte(fmt.Sprintf(
		`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1","order_id":"%s"}}}}`,
		order.GatewayOrderID,
	))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, signBody(body)))

	assert.Equal(t, model.OrderStatusPending, f.orderRepo.orders[order.ID].Status)
}

func TestCourseAccess_DeduplicatesAcrossOrders(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	first := f.checkout(t, "key-1")
	f.orderRepo.orders[first.ID].Status = model.OrderStatusPaid

	f.fillCart(t, testCartItem("c1"), testCartItem("c2"))
	second := f.checkout(t, "key-2")
	f.orderRepo.orders[second.ID].Status = model.OrderStatusPaid

	items, err := f.svc.CourseAccess(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, "paid", item.PaymentStatus)
		assert.NotEmpty(t, item.VideoURL)
	}
}

func TestCourseAccess_IgnoresUnpaidOrders(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, testCartItem("c1"))
	f.checkout(t, "key-1")

	items, err := f.svc.CourseAccess(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckout_EndToEndWebhookFlow(t *testing.T) {
	f := newCheckoutFixture(t)

	// Empty cart cannot check out.
	_, err := f.svc.CreateCheckout(context.Background(), f.userID, "key-1", dto.CreateCheckoutRequest{})
	require.ErrorIs(t, err, ErrEmptyCart)

	f.fillCart(t, testCartItem("c1"))
	order := f.checkout(t, "key-1")
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(1000)))

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"%s","method":"upi","status":"captured"}}}}`,
		order.GatewayOrderID,
	))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, signBody(body)))

	assert.Equal(t, model.OrderStatusPaid, f.orderRepo.orders[order.ID].Status)

	cart, err := f.cartRepo.GetOrCreate(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	access, err := f.svc.CourseAccess(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, access, 1)
	assert.Equal(t, "c1", access[0].ID)
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, "1000", ParsePrice("₹1000").String())
	assert.Equal(t, "1499.5", ParsePrice("₹1,499.50").String())
	assert.Equal(t, "0", ParsePrice("free").String())
}
