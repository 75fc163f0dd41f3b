package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextskill/course-commerce-api/internal/model"
	"github.com/nextskill/course-commerce-api/internal/repository"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartService mutates carts load-modify-store against the full item
// list. Concurrent requests from the same user are last-write-wins.
type CartService struct {
	cartRepo repository.CartRepository
}

func NewCartService(cartRepo repository.CartRepository) *CartService {
	return &CartService{cartRepo: cartRepo}
}

func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return cart, nil
}

// Add increments the quantity of a matching line item or appends a new
// one with quantity 1. The item is a display snapshot; it is never
// re-synced against the catalog afterwards.
func (s *CartService) Add(ctx context.Context, userID uuid.UUID, item model.CartItem) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].CourseID == item.CourseID {
			cart.Items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		item.Quantity = 1
		cart.Items = append(cart.Items, item)
	}

	if err := s.cartRepo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// Decrement lowers a line item's quantity by one and drops the item
// entirely when it reaches zero.
func (s *CartService) Decrement(ctx context.Context, userID uuid.UUID, courseID string) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].CourseID == courseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCartItemNotFound
	}

	cart.Items[idx].Quantity--
	if cart.Items[idx].Quantity <= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	}

	if err := s.cartRepo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// Remove deletes a line item unconditionally; removing an absent item
// is not an error.
func (s *CartService) Remove(ctx context.Context, userID uuid.UUID, courseID string) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.CourseID != courseID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := s.cartRepo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// Sync replaces the whole item list with a sanitized copy of the
// client's version. Entries that fail shape validation are silently
// dropped rather than failing the request.
func (s *CartService) Sync(ctx context.Context, userID uuid.UUID, items []model.CartItem) (*model.Cart, error) {
	sanitized := make([]model.CartItem, 0, len(items))
	for _, item := range items {
		if !validCartItem(item) {
			continue
		}
		sanitized = append(sanitized, item)
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	cart.Items = sanitized

	if err := s.cartRepo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.ClearByUserID(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func validCartItem(item model.CartItem) bool {
	return item.CourseID != "" &&
		item.Title != "" &&
		item.OldPrice != "" &&
		item.NewPrice != "" &&
		item.Status != "" &&
		item.Image != "" &&
		item.Quantity >= 1
}
