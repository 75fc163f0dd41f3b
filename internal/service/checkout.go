package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextskill/course-commerce-api/internal/dto"
	"github.com/nextskill/course-commerce-api/internal/events"
	"github.com/nextskill/course-commerce-api/internal/gateway"
	"github.com/nextskill/course-commerce-api/internal/model"
	"github.com/nextskill/course-commerce-api/internal/repository"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrOrderNotFound          = errors.New("order not found")
	ErrSignatureMismatch      = errors.New("payment signature mismatch")
	ErrOrderClosed            = errors.New("order already settled")
	ErrPaymentMismatch        = errors.New("payment does not match order")
)

const (
	currencyINR = "INR"

	// All stored prices are tax-inclusive at 18% GST; tax is always
	// extracted from the amount, never supplied independently.
	taxInclusiveRate = 1.18

	fallbackVideoURL   = "/Showreel_trim.mp4"
	fallbackCourseImge = "/courses.png"
)

type CheckoutService struct {
	orderRepo     repository.OrderRepository
	cartRepo      repository.CartRepository
	courseRepo    repository.CourseRepository
	gw            gateway.PaymentGateway
	keySecret     string
	webhookSecret string
	publisher     *events.Publisher
	log           *slog.Logger
}

func NewCheckoutService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	courseRepo repository.CourseRepository,
	gw gateway.PaymentGateway,
	keySecret, webhookSecret string,
	publisher *events.Publisher,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:     orderRepo,
		cartRepo:      cartRepo,
		courseRepo:    courseRepo,
		gw:            gw,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		publisher:     publisher,
		log:           log,
	}
}

// ParsePrice turns a display price like "₹1,000" into its numeric
// value, stripping every rune that is not a digit or a dot.
func ParsePrice(price string) decimal.Decimal {
	var b strings.Builder
	for _, r := range price {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MinorUnits converts a major-unit amount to the gateway's minor
// currency unit (paise for INR), rounded to the nearest unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func generateOrderCode() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return fmt.Sprintf("ORD-%s-%d", ts, rand.Intn(900)+100)
}

// CreateCheckout snapshots the cart into a pending order and registers
// it with the payment gateway. The (user, idempotency key) pair makes
// retried submissions return the already-created order instead of
// charging twice.
func (s *CheckoutService) CreateCheckout(ctx context.Context, userID uuid.UUID, idempotencyKey string, req dto.CreateCheckoutRequest) (*model.Order, error) {
	if idempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}

	existing, err := s.orderRepo.GetByUserAndKey(ctx, userID, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if existing != nil {
		// A previous attempt may have died between persisting the order
		// and the gateway call; finish the gateway half on replay.
		if existing.GatewayOrderID == "" && existing.Status == model.OrderStatusPending {
			if err := s.attachGatewayOrder(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	amount := decimal.Zero
	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		price := ParsePrice(ci.NewPrice)
		amount = amount.Add(price.Mul(decimal.NewFromInt(int64(ci.Quantity))))
		items = append(items, model.OrderItem{
			CourseID: ci.CourseID,
			Title:    ci.Title,
			Image:    ci.Image,
			Price:    price,
			Quantity: ci.Quantity,
		})
	}
	tax := amount.Sub(amount.Div(decimal.NewFromFloat(taxInclusiveRate)))

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = model.PaymentTypeIndia
	}

	order := &model.Order{
		Code:           generateOrderCode(),
		UserID:         userID,
		Name:           req.Name,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		BillingAddress: req.BillingAddress,
		Whatsapp:       req.Whatsapp,
		Items:          items,
		Amount:         amount,
		Tax:            tax,
		IdempotencyKey: idempotencyKey,
		PaymentType:    paymentType,
		PaymentMethod:  model.PaymentMethodPending,
		Status:         model.OrderStatusPending,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.publish(ctx, order, "")

	if err := s.attachGatewayOrder(ctx, order); err != nil {
		// The pending order stays behind without a gateway id; the
		// idempotency lookup above resurfaces it on retry.
		return nil, err
	}
	return order, nil
}

func (s *CheckoutService) attachGatewayOrder(ctx context.Context, order *model.Order) error {
	gatewayOrderID, err := s.gw.CreateOrder(ctx, MinorUnits(order.Amount), currencyINR, order.Code)
	if err != nil {
		return fmt.Errorf("create gateway order: %w", err)
	}
	if err := s.orderRepo.SetGatewayOrderID(ctx, order.ID, gatewayOrderID); err != nil {
		return fmt.Errorf("store gateway order id: %w", err)
	}
	order.GatewayOrderID = gatewayOrderID
	return nil
}

// VerifyPayment handles the client-driven callback after the checkout
// widget completes. The HMAC signature over "orderID|paymentID" is the
// trust boundary; the gateway's own payment record is the authority on
// amount and pairing.
func (s *CheckoutService) VerifyPayment(ctx context.Context, userID uuid.UUID, req dto.VerifyPaymentRequest) (*model.Order, error) {
	order, err := s.orderRepo.GetByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	// Idempotent re-verification. A paid order stays paid no matter
	// which payment id the callback names.
	if order.Status == model.OrderStatusPaid {
		return order, nil
	}
	// Only a pending order can settle; failed and refunded are final.
	if order.Status != model.OrderStatusPending {
		return nil, ErrOrderClosed
	}

	if !gateway.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.keySecret) {
		if err := s.orderRepo.UpdatePayment(ctx, order.ID, model.OrderStatusFailed, req.GatewayPaymentID, "", req.Signature); err != nil {
			return nil, fmt.Errorf("mark order failed: %w", err)
		}
		order.Status = model.OrderStatusFailed
		s.publish(ctx, order, req.GatewayPaymentID)
		return nil, ErrSignatureMismatch
	}

	payment, err := s.gw.FetchPayment(ctx, req.GatewayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	expectedMinor := MinorUnits(order.Amount)
	if payment.OrderID != req.GatewayOrderID || payment.Amount != expectedMinor {
		return nil, ErrPaymentMismatch
	}

	if payment.Status == gateway.PaymentStatusAuthorized {
		if err := s.gw.CapturePayment(ctx, payment.ID, expectedMinor, currencyINR); err != nil {
			return nil, fmt.Errorf("capture payment: %w", err)
		}
	}

	method := payment.Method
	if err := s.orderRepo.UpdatePayment(ctx, order.ID, model.OrderStatusPaid, payment.ID, method, req.Signature); err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	order.Status = model.OrderStatusPaid
	order.GatewayPaymentID = payment.ID
	if method != "" {
		order.PaymentMethod = method
	}
	order.GatewaySignature = req.Signature

	if err := s.cartRepo.ClearByUserID(ctx, userID); err != nil {
		s.log.Error("clear cart after payment", "user_id", userID, "error", err)
	}
	s.publish(ctx, order, payment.ID)
	return order, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Method  string `json:"method"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes a gateway notification. The raw body must be
// exactly what the gateway sent; the signature is computed over those
// bytes. Every application-level miss (unknown order, unknown event) is
// acknowledged so the gateway never enters a retry storm; only a bad
// signature is reported back as an error.
func (s *CheckoutService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifyWebhookSignature(body, signature, s.webhookSecret) {
		return ErrSignatureMismatch
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		s.log.Warn("unparseable webhook payload", "error", err)
		return nil
	}

	entity := evt.Payload.Payment.Entity
	if entity.OrderID == "" {
		s.log.Warn("webhook without gateway order id", "event", evt.Event)
		return nil
	}

	order, err := s.orderRepo.GetByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		// Could be a webhook racing checkout-create, or a gateway
		// account pointed at the wrong environment. Acknowledge either
		// way; the log line is the breadcrumb.
		s.log.Warn("webhook for unknown order", "event", evt.Event, "gateway_order_id", entity.OrderID)
		return nil
	}

	switch evt.Event {
	case "payment.captured":
		if order.Status != model.OrderStatusPending && order.Status != model.OrderStatusPaid {
			return nil
		}
		if err := s.orderRepo.UpdatePayment(ctx, order.ID, model.OrderStatusPaid, entity.ID, entity.Method, ""); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if err := s.cartRepo.ClearByUserID(ctx, order.UserID); err != nil {
			s.log.Error("clear cart after payment", "user_id", order.UserID, "error", err)
		}
		if order.Status == model.OrderStatusPending {
			order.Status = model.OrderStatusPaid
			s.publish(ctx, order, entity.ID)
		}
	case "payment.failed":
		if order.Status != model.OrderStatusPending {
			return nil
		}
		if err := s.orderRepo.UpdatePayment(ctx, order.ID, model.OrderStatusFailed, entity.ID, entity.Method, ""); err != nil {
			return fmt.Errorf("mark order failed: %w", err)
		}
		order.Status = model.OrderStatusFailed
		s.publish(ctx, order, entity.ID)
	case "refund.processed":
		if order.Status != model.OrderStatusPaid {
			return nil
		}
		if err := s.orderRepo.UpdatePayment(ctx, order.ID, model.OrderStatusRefunded, entity.ID, "", ""); err != nil {
			return fmt.Errorf("mark order refunded: %w", err)
		}
		order.Status = model.OrderStatusRefunded
		s.publish(ctx, order, entity.ID)
	default:
		s.log.Info("ignoring webhook event", "event", evt.Event)
	}
	return nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}

// CourseAccess aggregates the user's paid orders into a deduplicated
// purchased-course list, resolving the primary video from the catalog
// where the snapshot's course id still matches a live course.
func (s *CheckoutService) CourseAccess(ctx context.Context, userID uuid.UUID) ([]dto.CourseAccessItem, error) {
	orders, err := s.orderRepo.ListByUserAndStatus(ctx, userID, model.OrderStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("list paid orders: %w", err)
	}

	seen := make(map[string]bool)
	items := make([]dto.CourseAccessItem, 0)
	for _, order := range orders {
		for _, item := range order.Items {
			if seen[item.CourseID] {
				continue
			}
			seen[item.CourseID] = true

			access := dto.CourseAccessItem{
				ID:            item.CourseID,
				Title:         item.Title,
				Image:         item.Image,
				PurchasedAt:   order.CreatedAt,
				PaymentStatus: string(model.OrderStatusPaid),
				VideoURL:      fallbackVideoURL,
				DownloadURL:   fallbackVideoURL,
			}

			if courseID, err := uuid.Parse(item.CourseID); err == nil {
				course, err := s.courseRepo.GetByID(ctx, courseID)
				if err != nil {
					return nil, fmt.Errorf("get course: %w", err)
				}
				if course != nil {
					if access.Image == "" {
						access.Image = course.Thumbnail
					}
					if len(course.Videos) > 0 && course.Videos[0].URL != "" {
						access.VideoURL = course.Videos[0].URL
						access.DownloadURL = course.Videos[0].URL
					}
				}
			}
			if access.Image == "" {
				access.Image = fallbackCourseImge
			}
			items = append(items, access)
		}
	}
	return items, nil
}

func (s *CheckoutService) publish(ctx context.Context, order *model.Order, paymentID string) {
	s.publisher.PaymentEvent(ctx, model.PaymentEvent{
		OrderID:          order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		GatewayPaymentID: paymentID,
	})
}
