package billing

import (
	"context"
	"errors"

	"pos-server/internal/catalog"
	"pos-server/internal/models"
)

// ErrSeatActive is returned when a create targets a seat that already holds
// an active order. Create is not an upsert; updates go through PUT.
var ErrSeatActive = errors.New("seat already has an active order")

// ErrOrderNotFound is returned when an update targets a seat with no active
// order. Close is exempt: closing an absent seat is a successful no-op.
var ErrOrderNotFound = errors.New("no active order for seat")

// OrderStore holds the seat -> active order mapping.
type OrderStore interface {
	ListOrders(ctx context.Context) (map[int]models.Order, error)
	GetOrder(ctx context.Context, seatNo int) (models.Order, bool, error)
	CreateOrder(ctx context.Context, order models.Order) error
	ReplaceOrder(ctx context.Context, order models.Order) error
	DeleteOrder(ctx context.Context, seatNo int) error
}

// ArchiveStore appends finalized bills to the two archive destinations: the
// print-consumption queue and the durable backup log.
type ArchiveStore interface {
	AppendBillQueue(ctx context.Context, bill models.Bill) error
	AppendBackupLog(ctx context.Context, bill models.Bill) error
	ListBillQueue(ctx context.Context) ([]models.Bill, error)
}

// PrinterStore lists registered receipt printer workers.
type PrinterStore interface {
	ListPrinters(ctx context.Context) ([]models.Printer, error)
}

// Store is the full persistence surface the billing service needs.
type Store interface {
	OrderStore
	ArchiveStore
	PrinterStore
	catalog.Source
}
