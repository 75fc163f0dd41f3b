package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextskill/course-commerce-api/internal/model"
)

type mockCartRepo struct {
	carts map[uuid.UUID]*model.Cart // keyed by user id
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*model.Cart)}
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	if cart, ok := m.carts[userID]; ok {
		copied := *cart
		copied.Items = append([]model.CartItem(nil), cart.Items...)
		return &copied, nil
	}
	cart := &model.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.carts[userID] = cart
	copied := *cart
	return &copied, nil
}

func (m *mockCartRepo) ReplaceItems(_ context.Context, cartID uuid.UUID, items []model.CartItem) error {
	for _, cart := range m.carts {
		if cart.ID == cartID {
			cart.Items = append([]model.CartItem(nil), items...)
			return nil
		}
	}
	return nil
}

func (m *mockCartRepo) ClearByUserID(_ context.Context, userID uuid.UUID) error {
	if cart, ok := m.carts[userID]; ok {
		cart.Items = nil
	}
	return nil
}

func (m *mockCartRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	delete(m.carts, userID)
	return nil
}

func testCartItem(courseID string) model.CartItem {
	return model.CartItem{
		CourseID: courseID,
		Title:    "Course " + courseID,
		OldPrice: "₹2000",
		NewPrice: "₹1000",
		Status:   "active",
		Image:    "/img.png",
		Quantity: 1,
	}
}

func TestCartService_Add_NewItem(t *testing.T) {
	svc := NewCartService(newMockCartRepo())
	userID := uuid.New()

	cart, err := svc.Add(context.Background(), userID, testCartItem("c1"))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestCartService_Add_IncrementsExisting(t *testing.T) {
	svc := NewCartService(newMockCartRepo())
	userID := uuid.New()

	_, err := svc.Add(context.Background(), userID, testCartItem("c1"))
	require.NoError(t, err)

	cart, err := svc.Add(context.Background(), userID, testCartItem("c1"))
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartService_Decrement_RemovesAtZero(t *testing.T) {
	svc := NewCartService(newMockCartRepo())
	userID := uuid.New()

	_, err := svc.Add(context.Background(), userID, testCartItem("c1"))
	require.NoError(t, err)

	cart, err := svc.Decrement(context.Background(), userID, "c1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_Decrement_NotFound(t *testing.T) {
	svc := NewCartService(newMockCartRepo())

	_, err := svc.Decrement(context.Background(), uuid.New(), "missing")
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_Remove_AbsentItemIsNoop(t *testing.T) {
	svc := NewCartService(newMockCartRepo())
	userID := uuid.New()

	_, err := svc.Add(context.Background(), userID, testCartItem("c1"))
	require.NoError(t, err)

	cart, err := svc.Remove(context.Background(), userID, "missing")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_Sync_DropsInvalidItems(t *testing.T) {
	svc := NewCartService(newMockCartRepo())
	userID := uuid.New()

	invalid := testCartItem("c2")
	invalid.NewPrice = ""
	zeroQty := testCartItem("c3")
	zeroQty.Quantity = 0

	cart, err := svc.Sync(context.Background(), userID, []model.CartItem{
		testCartItem("c1"), invalid, zeroQty,
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "c1", cart.Items[0].CourseID)
}

func TestCartService_Sync_ReplacesServerCopy(t *testing.T) {
	svc := NewCartService(newMockCartRepo())
	userID := uuid.New()

	_, err := svc.Add(context.Background(), userID, testCartItem("old"))
	require.NoError(t, err)

	cart, err := svc.Sync(context.Background(), userID, []model.CartItem{testCartItem("new")})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "new", cart.Items[0].CourseID)
}

func TestCartService_Clear(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewCartService(repo)
	userID := uuid.New()

	_, err := svc.Add(context.Background(), userID, testCartItem("c1"))
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), userID))

	cart, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
