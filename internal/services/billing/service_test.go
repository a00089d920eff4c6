package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-server/internal/logger"
	"pos-server/internal/models"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.SetProducts([]models.Product{
		{ID: "espresso", Name: "Espresso", Price: "$3.00"},
		{ID: "latte", Name: "Caffe Latte", Price: "$4.50"},
	})
	service := NewService(store, nil, nil, logger.New("test"))
	service.now = func() time.Time {
		return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	return service, store
}

func espressoOrder(seatNo int) models.Order {
	return models.Order{
		SeatNo: seatNo,
		Items: []models.LineItem{
			{ProductID: "espresso", Size: models.SizeSmall, Quantity: 2},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 5, created.SeatNo)
	assert.NotNil(t, created.CreatedAt)

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCreateOrder_DuplicateSeat(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)

	_, err = service.CreateOrder(ctx, espressoOrder(5), "req-2")
	assert.ErrorIs(t, err, ErrSeatActive)

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "failed create leaves the active set unchanged")
}

func TestCreateOrder_Validation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, models.Order{Items: []models.LineItem{}}, "req-1")
	var vErr models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "seat_no", vErr.Field)

	_, err = service.CreateOrder(ctx, models.Order{SeatNo: 5}, "req-2")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
}

func TestUpdateOrder_ReplacesWholesale(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)

	update := models.Order{
		Items: []models.LineItem{
			{ProductID: "latte", Size: "Large", Quantity: 1},
		},
	}
	result, err := service.UpdateOrder(ctx, 5, update, "req-2")
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	require.Len(t, result.Order.Items, 1)
	assert.Equal(t, "latte", result.Order.Items[0].ProductID)

	stored, ok, err := store.GetOrder(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "latte", stored.Items[0].ProductID)
	assert.NotNil(t, stored.CreatedAt, "created_at carries over from the stored order")
}

func TestUpdateOrder_AbsentSeatDoesNotCreate(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	update := models.Order{
		Items: []models.LineItem{
			{ProductID: "espresso", Size: models.SizeSmall, Quantity: 1},
		},
	}
	_, err := service.UpdateOrder(ctx, 9, update, "req-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders, "update must never implicitly open an order")
}

func TestUpdateOrder_MissingItems(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)

	_, err = service.UpdateOrder(ctx, 5, models.Order{}, "req-2")
	var vErr models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
}

func TestCloseOrder(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)

	result, err := service.UpdateOrder(ctx, 5, models.Order{Closed: true}, "req-2")
	require.NoError(t, err)
	require.NotNil(t, result.Bill)
	assert.False(t, result.AlreadyClosed)

	bill := result.Bill
	assert.Equal(t, 5, bill.SeatNo)
	assert.Equal(t, 6.00, bill.GrandTotal)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, 3.00, bill.Items[0].UnitPrice)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), bill.ClosedAt)

	// Archived exactly once in both destinations.
	queue, err := store.ListBillQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	backup, err := store.ListBackupLog(ctx)
	require.NoError(t, err)
	assert.Len(t, backup, 1)

	// Seat removed from the active set.
	_, ok, err := store.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCloseOrder_RetryIsIdempotent(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)

	_, err = service.UpdateOrder(ctx, 5, models.Order{Closed: true}, "req-2")
	require.NoError(t, err)

	// Simulate an at-least-once retry of the close.
	result, err := service.UpdateOrder(ctx, 5, models.Order{Closed: true}, "req-3")
	require.NoError(t, err, "a retried close must not be an error")
	assert.True(t, result.AlreadyClosed)
	assert.Nil(t, result.Bill)
	assert.Contains(t, result.Message, "already closed")

	queue, err := store.ListBillQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1, "retry must not double-archive")

	backup, err := store.ListBackupLog(ctx)
	require.NoError(t, err)
	assert.Len(t, backup, 1)
}

func TestCloseOrder_MergesAndReprices(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateOrder(ctx, espressoOrder(5), "req-1")
	require.NoError(t, err)

	// The close payload carries the authoritative item list with bogus
	// client prices that must be discarded.
	closing := models.Order{
		Closed: true,
		Items: []models.LineItem{
			{ProductID: "espresso", Size: models.SizeSmall, Quantity: 2, UnitPrice: 0.01, ItemTotal: 0.02},
			{ProductID: "latte", Size: "Large", Quantity: 1, UnitPrice: 0.01, ItemTotal: 0.01},
		},
	}
	result, err := service.UpdateOrder(ctx, 5, closing, "req-2")
	require.NoError(t, err)
	require.NotNil(t, result.Bill)

	bill := result.Bill
	require.Len(t, bill.Items, 2)
	assert.Equal(t, 3.00, bill.Items[0].UnitPrice)
	assert.Equal(t, 6.00, bill.Items[0].ItemTotal)
	assert.Equal(t, 9.00, bill.Items[1].UnitPrice, "Large latte is double base price")
	assert.Equal(t, 15.00, bill.GrandTotal)

	var sum float64
	for _, item := range bill.Items {
		sum += item.ItemTotal
	}
	assert.Equal(t, sum, bill.GrandTotal)

	queue, err := store.ListBillQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, bill.GrandTotal, queue[0].GrandTotal)
}

func TestCloseOrder_UnknownProduct(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	order := models.Order{
		SeatNo: 5,
		Items: []models.LineItem{
			{ProductID: "mystery", Size: models.SizeSmall, Quantity: 1},
			{ProductID: "espresso", Size: models.SizeSmall, Quantity: 1},
		},
	}
	_, err := service.CreateOrder(ctx, order, "req-1")
	require.NoError(t, err)

	result, err := service.UpdateOrder(ctx, 5, models.Order{Closed: true}, "req-2")
	require.NoError(t, err)
	require.NotNil(t, result.Bill)

	bill := result.Bill
	require.Len(t, bill.Items, 2)
	assert.Equal(t, models.UnknownProductName, bill.Items[0].ProductName)
	assert.Equal(t, 0.0, bill.Items[0].ItemTotal)
	assert.Equal(t, 3.00, bill.GrandTotal)
}

func TestListOrders_Empty(t *testing.T) {
	service, _ := newTestService(t)

	orders := service.ListOrders(context.Background(), "req-1")
	assert.Empty(t, orders)
}
