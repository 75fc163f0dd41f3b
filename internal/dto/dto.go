package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextskill/course-commerce-api/internal/model"
)

// FlexID accepts both JSON string and number forms. Storefront course
// ids arrive as numbers from the catalog page and as strings everywhere
// else.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// --- Auth ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Provider string    `json:"provider"`
}

// --- Admin ---

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AdminLoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// --- Courses ---

type VideoPayload struct {
	Title       string `json:"title" binding:"required"`
	URL         string `json:"url" binding:"required"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

type CreateCourseRequest struct {
	Code         string          `json:"code" binding:"required"`
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	OldPrice     decimal.Decimal `json:"old_price"`
	Thumbnail    string          `json:"thumbnail" binding:"required"`
	Status       string          `json:"status" binding:"omitempty,oneof=active inactive draft"`
	Videos       []VideoPayload  `json:"videos" binding:"omitempty,dive"`
	InstructorID *uuid.UUID      `json:"instructor_id"`
}

type UpdateCourseRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	OldPrice     *decimal.Decimal `json:"old_price"`
	Thumbnail    *string          `json:"thumbnail"`
	Status       *string          `json:"status" binding:"omitempty,oneof=active inactive draft"`
	InstructorID *uuid.UUID       `json:"instructor_id"`
}

type VideoResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Duration    int       `json:"duration"`
	Description string    `json:"description"`
}

type CourseResponse struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"old_price"`
	Thumbnail    string          `json:"thumbnail"`
	Status       string          `json:"status"`
	Videos       []VideoResponse `json:"videos"`
	InstructorID *uuid.UUID      `json:"instructor_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// --- Upcoming courses ---

type CreateUpcomingCourseRequest struct {
	Title      string `json:"title" binding:"required"`
	Level      string `json:"level"`
	Episode    string `json:"episode"`
	CourseType string `json:"course_type"`
	Audio      string `json:"audio"`
	Status     string `json:"status"`
	Image      string `json:"image" binding:"required"`
	Active     *bool  `json:"active"`
	SortOrder  *int   `json:"sort_order"`
}

type UpdateUpcomingCourseRequest struct {
	Title      *string `json:"title"`
	Level      *string `json:"level"`
	Episode    *string `json:"episode"`
	CourseType *string `json:"course_type"`
	Audio      *string `json:"audio"`
	Status     *string `json:"status"`
	Image      *string `json:"image"`
	Active     *bool   `json:"active"`
	SortOrder  *int    `json:"sort_order"`
}

type UpcomingCourseResponse struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Level      string    `json:"level"`
	Episode    string    `json:"episode"`
	CourseType string    `json:"course_type"`
	Audio      string    `json:"audio"`
	Status     string    `json:"status"`
	Image      string    `json:"image"`
	Active     bool      `json:"active"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Cart ---

type CoursePayload struct {
	ID       FlexID `json:"id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	OldPrice string `json:"old_price" binding:"required"`
	NewPrice string `json:"new_price" binding:"required"`
	Status   string `json:"status" binding:"required"`
	Image    string `json:"image" binding:"required"`
}

type AddToCartRequest struct {
	Course CoursePayload `json:"course" binding:"required"`
}

type DecrementCartItemRequest struct {
	CourseID FlexID `json:"course_id" binding:"required"`
}

// CartItemPayload carries no binding tags: sync sanitizes entries one
// by one and drops the invalid ones instead of failing the request.
type CartItemPayload struct {
	CourseID FlexID `json:"course_id"`
	Title    string `json:"title"`
	OldPrice string `json:"old_price"`
	NewPrice string `json:"new_price"`
	Status   string `json:"status"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

type SyncCartRequest struct {
	Items []CartItemPayload `json:"items"`
}

type CartItemResponse struct {
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	OldPrice string `json:"old_price"`
	NewPrice string `json:"new_price"`
	Status   string `json:"status"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
}

// --- Checkout / Orders ---

type CreateCheckoutRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email" binding:"omitempty,email"`
	BillingAddress string `json:"billing_address"`
	Whatsapp       string `json:"whatsapp"`
	PaymentType    string `json:"payment_type" binding:"omitempty,oneof=india international"`
}

// VerifyPaymentRequest mirrors the field names the Razorpay checkout
// widget posts back to the client.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature        string `json:"razorpay_signature" binding:"required"`
}

type OrderItemResponse struct {
	CourseID string          `json:"course_id"`
	Title    string          `json:"title"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	Code           string              `json:"code"`
	Status         model.OrderStatus   `json:"status"`
	Amount         decimal.Decimal     `json:"amount"`
	Tax            decimal.Decimal     `json:"tax"`
	GatewayOrderID string              `json:"gateway_order_id,omitempty"`
	PaymentMethod  string              `json:"payment_method"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// CheckoutResponse carries everything the storefront needs to open the
// gateway checkout: the pending order plus the gateway order id, the
// amount in minor units and the public key id.
type CheckoutResponse struct {
	Order          OrderResponse `json:"order"`
	GatewayOrderID string        `json:"gateway_order_id"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	KeyID          string        `json:"key_id"`
}

type CourseAccessItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Image         string    `json:"image"`
	PurchasedAt   time.Time `json:"purchased_at"`
	PaymentStatus string    `json:"payment_status"`
	VideoURL      string    `json:"video_url"`
	DownloadURL   string    `json:"download_url"`
}

type CourseAccessResponse struct {
	Courses []CourseAccessItem `json:"courses"`
}
