package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Payment statuses as reported by the gateway.
const (
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Payment is the authoritative payment record fetched from the gateway.
// Amount is in minor currency units (paise for INR).
type Payment struct {
	ID       string
	OrderID  string
	Status   string
	Method   string
	Amount   int64
	Currency string
}

type PaymentGateway interface {
	// CreateOrder registers an order with the gateway and returns its id.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	// CapturePayment settles an authorized payment for the exact amount.
	CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) error
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway wraps the Razorpay SDK client. The SDK does its own
// HTTP handling and takes no context; the interface carries one so fakes
// and future clients can honor cancellation.
func NewRazorpayGateway(keyID, keySecret string) PaymentGateway {
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *razorpayGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (string, error) {
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("create gateway order: %w", err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return "", fmt.Errorf("gateway order response missing id")
	}
	return id, nil
}

func (g *razorpayGateway) FetchPayment(_ context.Context, paymentID string) (*Payment, error) {
	body, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}

	p := &Payment{ID: paymentID}
	p.OrderID, _ = body["order_id"].(string)
	p.Status, _ = body["status"].(string)
	p.Method, _ = body["method"].(string)
	p.Currency, _ = body["currency"].(string)
	if amount, ok := body["amount"].(float64); ok {
		p.Amount = int64(amount)
	}
	return p, nil
}

func (g *razorpayGateway) CapturePayment(_ context.Context, paymentID string, amountMinor int64, currency string) error {
	_, err := g.client.Payment.Capture(paymentID, int(amountMinor), map[string]interface{}{
		"currency": currency,
	}, nil)
	if err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}
	return nil
}
