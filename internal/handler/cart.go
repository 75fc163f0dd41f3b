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

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.svc.Add(c.Request.Context(), middleware.GetUserID(c), model.CartItem{
		CourseID: string(req.Course.ID),
		Title:    req.Course.Title,
		OldPrice: req.Course.OldPrice,
		NewPrice: req.Course.NewPrice,
		Status:   req.Course.Status,
		Image:    req.Course.Image,
		Quantity: 1,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) DecrementItem(c *gin.Context) {
	var req dto.DecrementCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.svc.Decrement(c.Request.Context(), middleware.GetUserID(c), string(req.CourseID))
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not in cart"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	cart, err := h.svc.Remove(c.Request.Context(), middleware.GetUserID(c), c.Param("courseId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) SyncCart(c *gin.Context) {
	var req dto.SyncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]model.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.CartItem{
			CourseID: string(it.CourseID),
			Title:    it.Title,
			OldPrice: it.OldPrice,
			NewPrice: it.NewPrice,
			Status:   it.Status,
			Image:    it.Image,
			Quantity: it.Quantity,
		})
	}

	cart, err := h.svc.Sync(c.Request.Context(), middleware.GetUserID(c), items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, dto.CartItemResponse{
			CourseID: item.CourseID,
			Title:    item.Title,
			OldPrice: item.OldPrice,
			NewPrice: item.NewPrice,
			Status:   item.Status,
			Image:    item.Image,
			Quantity: item.Quantity,
		})
	}
	return dto.CartResponse{Items: items}
}
