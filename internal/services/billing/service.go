package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-server/internal/catalog"
	"pos-server/internal/logger"
	"pos-server/internal/models"
	"pos-server/internal/pricing"
	"pos-server/internal/receipt"
)

// BillPublisher broadcasts finalized bills to printer workers. Publishing is
// best-effort: a broker outage never fails a close.
type BillPublisher interface {
	PublishBill(ctx context.Context, bill *models.Bill) error
}

// Print outcomes reported to the client.
const (
	OutcomePrinted   = "printed"
	OutcomeSimulated = "simulated"
)

// Service is the order lifecycle controller. All state transitions for the
// active-order set run under a single mutex so read-mutate-write sequences
// never interleave.
type Service struct {
	store     Store
	publisher BillPublisher
	sink      receipt.Sink
	logger    *logger.Logger
	now       func() time.Time

	mu sync.Mutex
}

// NewService creates the billing service. publisher and sink may be nil when
// running without a broker or a printer.
func NewService(store Store, publisher BillPublisher, sink receipt.Sink, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		sink:      sink,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpdateResult is the outcome of an update-or-close transition.
type UpdateResult struct {
	Order         *models.Order
	Bill          *models.Bill
	AlreadyClosed bool
	Message       string
}

// ListOrders returns the active seat -> order mapping. An unreadable store
// degrades to an empty mapping.
func (s *Service) ListOrders(ctx context.Context, requestID string) map[int]models.Order {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		s.logger.Error("storage_read_failed", "Failed to read active orders, serving empty set", requestID, err, nil)
		return map[int]models.Order{}
	}
	return orders
}

// CreateOrder opens a new order for a seat. At most one active order may
// exist per seat; a duplicate create yields ErrSeatActive.
func (s *Service) CreateOrder(ctx context.Context, order models.Order, requestID string) (models.Order, error) {
	if err := order.ValidateCreate(); err != nil {
		return models.Order{}, err
	}

	if order.CreatedAt == nil {
		createdAt := s.now()
		order.CreatedAt = &createdAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, ErrSeatActive) {
			return models.Order{}, err
		}
		s.logger.Error("storage_write_failed", "Failed to persist created order", requestID, err, map[string]interface{}{
			"seat_no": order.SeatNo,
		})
		return models.Order{}, err
	}

	s.logger.Debug("order_created", fmt.Sprintf("Opened order for seat %d", order.SeatNo), requestID, map[string]interface{}{
		"seat_no":    order.SeatNo,
		"item_count": len(order.Items),
	})

	return order, nil
}

// UpdateOrder replaces or closes the active order for a seat. A payload with
// the closed flag set triggers the close transition; anything else is a
// wholesale replace of the stored order.
func (s *Service) UpdateOrder(ctx context.Context, seatNo int, incoming models.Order, requestID string) (*UpdateResult, error) {
	if incoming.Closed {
		return s.closeOrder(ctx, seatNo, incoming, requestID)
	}

	if err := incoming.ValidateUpdate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.store.GetOrder(ctx, seatNo)
	if err != nil {
		s.logger.Error("storage_read_failed", "Failed to read order for update", requestID, err, map[string]interface{}{
			"seat_no": seatNo,
		})
		return nil, err
	}
	if !ok {
		// Updating an absent seat does not implicitly create it; orders are
		// opened through the create transition only.
		return nil, ErrOrderNotFound
	}

	replaced := incoming
	replaced.SeatNo = seatNo
	if replaced.CreatedAt == nil {
		replaced.CreatedAt = stored.CreatedAt
	}

	if err := s.store.ReplaceOrder(ctx, replaced); err != nil {
		s.logger.Error("storage_write_failed", "Failed to persist updated order", requestID, err, map[string]interface{}{
			"seat_no": seatNo,
		})
	}

	s.logger.Debug("order_updated", fmt.Sprintf("Replaced order for seat %d", seatNo), requestID, map[string]interface{}{
		"seat_no":    seatNo,
		"item_count": len(replaced.Items),
	})

	return &UpdateResult{Order: &replaced}, nil
}

// closeOrder applies the close transition: merge stored and incoming state
// (incoming wins), re-price unconditionally from the merged items, archive
// the bill in both destinations, and remove the seat from the active set.
// Closing a seat with no active order reports success so that a retried
// close is a no-op instead of an error.
func (s *Service) closeOrder(ctx context.Context, seatNo int, incoming models.Order, requestID string) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.store.GetOrder(ctx, seatNo)
	if err != nil {
		s.logger.Error("storage_read_failed", "Failed to read order for close", requestID, err, map[string]interface{}{
			"seat_no": seatNo,
		})
		return nil, err
	}
	if !ok {
		s.logger.Debug("close_noop", fmt.Sprintf("Seat %d has no active order, treating close as already done", seatNo), requestID, nil)
		return &UpdateResult{
			AlreadyClosed: true,
			Message:       fmt.Sprintf("Seat %d was already closed or not found", seatNo),
		}, nil
	}

	// Stage 1: state reconciliation. The client holds the authoritative item
	// and status list at close time.
	merged := stored.Merge(incoming)
	merged.SeatNo = seatNo
	merged.Closed = true

	// Stage 2: authoritative pricing. Client-submitted prices are discarded.
	cat := catalog.Build(ctx, s.store, s.logger)
	pricedItems, grandTotal := pricing.Price(cat, merged.Items)

	bill := models.NewBill(merged, pricedItems, grandTotal, s.now())

	if err := s.store.AppendBillQueue(ctx, bill); err != nil {
		s.logger.Error("storage_write_failed", "Failed to append bill to print queue", requestID, err, map[string]interface{}{
			"seat_no": seatNo,
		})
	}
	if err := s.store.AppendBackupLog(ctx, bill); err != nil {
		s.logger.Error("storage_write_failed", "Failed to append bill to backup log", requestID, err, map[string]interface{}{
			"seat_no": seatNo,
		})
	}

	if err := s.store.DeleteOrder(ctx, seatNo); err != nil {
		s.logger.Error("storage_write_failed", "Failed to remove closed order", requestID, err, map[string]interface{}{
			"seat_no": seatNo,
		})
	}

	s.logger.Info("order_closed", fmt.Sprintf("Closed seat %d", seatNo), requestID, map[string]interface{}{
		"seat_no":     seatNo,
		"grand_total": bill.GrandTotal,
		"item_count":  len(bill.Items),
	})

	if s.publisher != nil {
		if err := s.publisher.PublishBill(ctx, &bill); err != nil {
			s.logger.Error("bill_publish_failed", "Failed to broadcast bill to printers", requestID, err, map[string]interface{}{
				"seat_no": seatNo,
			})
		}
	}

	return &UpdateResult{
		Bill:    &bill,
		Message: fmt.Sprintf("Seat %d closed", seatNo),
	}, nil
}

// PrintedBills returns the bill queue contents. Degrades to empty on read
// failure.
func (s *Service) PrintedBills(ctx context.Context, requestID string) []models.Bill {
	bills, err := s.store.ListBillQueue(ctx)
	if err != nil {
		s.logger.Error("storage_read_failed", "Failed to read bill queue, serving empty list", requestID, err, nil)
		return []models.Bill{}
	}
	if bills == nil {
		bills = []models.Bill{}
	}
	return bills
}

// PrintBill hands an archived bill to the receipt sink. A missing device is
// reported as a simulated print, not a failure; the bill is already durably
// archived and can be re-dispatched at any time.
func (s *Service) PrintBill(ctx context.Context, bill *models.Bill, requestID string) (string, error) {
	sink := s.sink
	if sink == nil {
		sink = receipt.ConsoleSink{}
	}

	err := sink.Print(ctx, bill)
	if err == nil {
		s.logger.Info("bill_printed", fmt.Sprintf("Printed bill for seat %d", bill.SeatNo), requestID, map[string]interface{}{
			"seat_no":     bill.SeatNo,
			"grand_total": bill.GrandTotal,
		})
		return OutcomePrinted, nil
	}

	if errors.Is(err, receipt.ErrDeviceUnavailable) {
		s.logger.Info("bill_print_simulated", fmt.Sprintf("No printer available, simulating print for seat %d", bill.SeatNo), requestID, map[string]interface{}{
			"seat_no": bill.SeatNo,
		})
		_ = receipt.ConsoleSink{}.Print(ctx, bill)
		return OutcomeSimulated, nil
	}

	s.logger.Error("bill_print_failed", fmt.Sprintf("Printer device error for seat %d", bill.SeatNo), requestID, err, map[string]interface{}{
		"seat_no": bill.SeatNo,
	})
	return "", err
}

// ListPrinters returns printer worker statuses with heartbeat-derived
// liveness.
func (s *Service) ListPrinters(ctx context.Context, requestID string) []models.PrinterStatusResponse {
	printers, err := s.store.ListPrinters(ctx)
	if err != nil {
		s.logger.Error("storage_read_failed", "Failed to read printer registry, serving empty list", requestID, err, nil)
		return []models.PrinterStatusResponse{}
	}

	heartbeatInterval := 30 * time.Second // default worker heartbeat
	responses := make([]models.PrinterStatusResponse, 0, len(printers))
	for _, p := range printers {
		status := string(models.PrinterOnline)
		if !p.IsOnline(heartbeatInterval) {
			status = string(models.PrinterOffline)
		}
		responses = append(responses, models.PrinterStatusResponse{
			PrinterName:  p.Name,
			Status:       status,
			BillsPrinted: p.BillsPrinted,
			LastSeen:     p.LastSeen,
		})
	}

	return responses
}

// HealthCheck checks that the backing store is reachable.
func (s *Service) HealthCheck(ctx context.Context) bool {
	if _, err := s.store.ListProducts(ctx); err != nil {
		s.logger.Error("health_check_failed", "Product catalog read failed", "", err, nil)
		return false
	}
	return true
}
