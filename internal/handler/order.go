package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nextskill/course-commerce-api/internal/dto"
	"github.com/nextskill/course-commerce-api/internal/middleware"
	"github.com/nextskill/course-commerce-api/internal/model"
	"github.com/nextskill/course-commerce-api/internal/service"
)

const (
	idempotencyKeyHeader   = "X-Idempotency-Key"
	webhookSignatureHeader = "X-Razorpay-Signature"
)

type OrderHandler struct {
	svc          *service.CheckoutService
	gatewayKeyID string
}

func NewOrderHandler(svc *service.CheckoutService, gatewayKeyID string) *OrderHandler {
	return &OrderHandler{svc: svc, gatewayKeyID: gatewayKeyID}
}

func (h *OrderHandler) CreateCheckout(c *gin.Context) {
	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.GetHeader(idempotencyKeyHeader)
	order, err := h.svc.CreateCheckout(c.Request.Context(), middleware.GetUserID(c), key, req)
	if err != nil {
		if errors.Is(err, service.ErrIdempotencyKeyRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + idempotencyKeyHeader + " header"})
			return
		}
		if errors.Is(err, service.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, dto.CheckoutResponse{
		Order:          toOrderResponse(order),
		GatewayOrderID: order.GatewayOrderID,
		Amount:         service.MinorUnits(order.Amount),
		Currency:       "INR",
		KeyID:          h.gatewayKeyID,
	})
}

func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.VerifyPayment(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if errors.Is(err, service.ErrSignatureMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment verification failed"})
			return
		}
		if errors.Is(err, service.ErrPaymentMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment does not match order"})
			return
		}
		if errors.Is(err, service.ErrOrderClosed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order already settled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Webhook is unauthenticated; the gateway signature over the raw body
// is the only credential.
func (h *OrderHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), body, c.GetHeader(webhookSignatureHeader)); err != nil {
		if errors.Is(err, service.ErrSignatureMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.svc.ListOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}

	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: len(items)})
}

func (h *OrderHandler) CourseAccess(c *gin.Context) {
	courses, err := h.svc.CourseAccess(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.CourseAccessResponse{Courses: courses})
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			CourseID: item.CourseID,
			Title:    item.Title,
			Image:    item.Image,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return dto.OrderResponse{
		ID:             order.ID,
		Code:           order.Code,
		Status:         order.Status,
		Amount:         order.Amount,
		Tax:            order.Tax,
		GatewayOrderID: order.GatewayOrderID,
		PaymentMethod:  order.PaymentMethod,
		Items:          items,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
