package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string // bcrypt hash; empty for OAuth-only accounts
	Provider  string
	GoogleID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	CourseStatusActive   = "active"
	CourseStatusInactive = "inactive"
	CourseStatusDraft    = "draft"
)

type Course struct {
	ID           uuid.UUID
	Code         string
	Title        string
	Description  string
	Price        decimal.Decimal
	OldPrice     decimal.Decimal
	Thumbnail    string
	Status       string
	Videos       []CourseVideo
	InstructorID *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CourseVideo struct {
	ID          uuid.UUID
	CourseID    uuid.UUID
	Title       string
	URL         string
	Duration    int
	Description string
	Position    int
}

type UpcomingCourse struct {
	ID         uuid.UUID
	Title      string
	Level      string
	Episode    string
	CourseType string
	Audio      string
	Status     string
	Image      string
	Active     bool
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a display snapshot taken at add time; prices stay the
// strings the storefront sent and are only parsed at checkout.
type CartItem struct {
	CourseID string
	Title    string
	OldPrice string
	NewPrice string
	Status   string
	Image    string
	Quantity int
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

const (
	PaymentTypeIndia         = "india"
	PaymentTypeInternational = "international"

	PaymentMethodPending = "pending"
)

type Order struct {
	ID               uuid.UUID
	Code             string
	UserID           uuid.UUID
	Name             string
	Email            string
	BillingAddress   string
	Whatsapp         string
	Items            []OrderItem
	Amount           decimal.Decimal
	Tax              decimal.Decimal
	IdempotencyKey   string
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	PaymentType      string
	PaymentMethod    string
	Status           OrderStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	CourseID string
	Title    string
	Image    string
	Price    decimal.Decimal
	Quantity int
}

type PaymentEvent struct {
	OrderID          uuid.UUID   `json:"order_id"`
	UserID           uuid.UUID   `json:"user_id"`
	Status           OrderStatus `json:"status"`
	GatewayPaymentID string      `json:"gateway_payment_id,omitempty"`
}
