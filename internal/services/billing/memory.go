package billing

import (
	"context"
	"sync"

	"pos-server/internal/models"
)

// MemoryStore is an in-memory implementation of Store. It backs the
// --in-memory server mode and the service tests; nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[int]models.Order
	billQueue []models.Bill
	backupLog []models.Bill
	products  []models.Product
	printers  []models.Printer
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int]models.Order)}
}

// SetProducts replaces the product catalog.
func (s *MemoryStore) SetProducts(products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

func (s *MemoryStore) ListOrders(ctx context.Context) (map[int]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.Order, len(s.orders))
	for seatNo, order := range s.orders {
		out[seatNo] = order
	}
	return out, nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, seatNo int) (models.Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[seatNo]
	return order, ok, nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.SeatNo]; ok {
		return ErrSeatActive
	}
	s.orders[order.SeatNo] = order
	return nil
}

func (s *MemoryStore) ReplaceOrder(ctx context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.SeatNo]; !ok {
		return ErrOrderNotFound
	}
	s.orders[order.SeatNo] = order
	return nil
}

func (s *MemoryStore) DeleteOrder(ctx context.Context, seatNo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, seatNo)
	return nil
}

func (s *MemoryStore) AppendBillQueue(ctx context.Context, bill models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.billQueue = append(s.billQueue, bill)
	return nil
}

func (s *MemoryStore) AppendBackupLog(ctx context.Context, bill models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backupLog = append(s.backupLog, bill)
	return nil
}

func (s *MemoryStore) ListBillQueue(ctx context.Context) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Bill, len(s.billQueue))
	copy(out, s.billQueue)
	return out, nil
}

// ListBackupLog returns the backup archive contents. Not part of the HTTP
// surface; the tests use it to check both destinations.
func (s *MemoryStore) ListBackupLog(ctx context.Context) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Bill, len(s.backupLog))
	copy(out, s.backupLog)
	return out, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *MemoryStore) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Printer, len(s.printers))
	copy(out, s.printers)
	return out, nil
}
