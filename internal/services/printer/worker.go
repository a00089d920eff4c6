package printer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-server/internal/database"
	"pos-server/internal/logger"
	"pos-server/internal/messaging"
	"pos-server/internal/models"
	"pos-server/internal/receipt"
)

// Worker consumes finalized bills from the receipts queue and renders them
// through a receipt sink. It never mutates billing data; a failed print is
// retried by requeueing the message.
type Worker struct {
	name              string
	heartbeatInterval time.Duration

	db       *database.DB
	consumer *messaging.Consumer
	sink     receipt.Sink
	logger   *logger.Logger

	// Graceful shutdown
	shutdown chan os.Signal
	done     chan bool
}

// NewWorker creates a new receipt printer worker
func NewWorker(name string, heartbeatInterval time.Duration,
	db *database.DB, consumer *messaging.Consumer, sink receipt.Sink, log *logger.Logger) *Worker {

	return &Worker{
		name:              name,
		heartbeatInterval: heartbeatInterval,
		db:                db,
		consumer:          consumer,
		sink:              sink,
		logger:            log,
		shutdown:          make(chan os.Signal, 1),
		done:              make(chan bool, 1),
	}
}

// Start registers the printer and begins consuming bills.
func (w *Worker) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	if err := w.registerPrinter(ctx, requestID); err != nil {
		return fmt.Errorf("failed to register printer: %w", err)
	}

	signal.Notify(w.shutdown, syscall.SIGINT, syscall.SIGTERM)

	go w.heartbeatLoop(ctx)

	go func() {
		if err := w.consumer.StartConsuming(ctx, w.handleBill); err != nil {
			w.logger.Error("consumer_failed", "Bill consumer failed", requestID, err, nil)
		}
		w.done <- true
	}()

	w.logger.Info("printer_started", fmt.Sprintf("Receipt printer %s started", w.name), requestID, map[string]interface{}{
		"printer_name":       w.name,
		"heartbeat_interval": w.heartbeatInterval.Seconds(),
	})

	select {
	case <-w.shutdown:
		w.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		return w.gracefulShutdown(ctx, requestID)
	case <-w.done:
		return nil
	}
}

// registerPrinter registers the printer in the database
func (w *Worker) registerPrinter(ctx context.Context, requestID string) error {
	var count int
	err := w.db.QueryRow(ctx, database.CheckPrinterOnlineSQL, w.name).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check printer status: %w", err)
	}

	if count > 0 {
		w.logger.Error("printer_registration_failed", "Printer with same name is already online", requestID, nil, map[string]interface{}{
			"printer_name": w.name,
		})
		return fmt.Errorf("printer %s is already online", w.name)
	}

	var printerID int
	err = w.db.QueryRow(ctx, database.InsertPrinterSQL, w.name).Scan(&printerID)
	if err != nil {
		return fmt.Errorf("failed to register printer: %w", err)
	}

	w.logger.Info("printer_registered", fmt.Sprintf("Printer %s registered successfully", w.name), requestID, map[string]interface{}{
		"printer_id":   printerID,
		"printer_name": w.name,
	})

	return nil
}

// handleBill renders one bill from the receipts queue.
func (w *Worker) handleBill(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var bill models.Bill
	if err := json.Unmarshal(body, &bill); err != nil {
		w.logger.Error("message_parsing_failed", "Failed to parse bill message", requestID, err, nil)
		return fmt.Errorf("failed to parse bill: %w", err)
	}

	w.logger.Debug("bill_received", fmt.Sprintf("Printing bill for seat %d", bill.SeatNo), requestID, map[string]interface{}{
		"seat_no":     bill.SeatNo,
		"grand_total": bill.GrandTotal,
		"item_count":  len(bill.Items),
	})

	err := w.sink.Print(ctx, &bill)
	if errors.Is(err, receipt.ErrDeviceUnavailable) {
		// No device attached to this worker: fall back to console output and
		// ack the message. The bill stays recoverable in the archive.
		w.logger.Info("bill_print_simulated", fmt.Sprintf("No device, simulating print for seat %d", bill.SeatNo), requestID, map[string]interface{}{
			"seat_no": bill.SeatNo,
		})
		err = receipt.ConsoleSink{}.Print(ctx, &bill)
	}
	if err != nil {
		// Nack and requeue: device IO trouble is usually transient.
		return fmt.Errorf("failed to print bill for seat %d: %w", bill.SeatNo, err)
	}

	if err := w.db.Exec(ctx, database.UpdatePrinterHeartbeatSQL, 1, w.name); err != nil {
		w.logger.Error("printer_count_update_failed", "Failed to update printed count", requestID, err, nil)
	}

	w.logger.Debug("bill_printed", fmt.Sprintf("Printed bill for seat %d", bill.SeatNo), requestID, map[string]interface{}{
		"seat_no":    bill.SeatNo,
		"printed_by": w.name,
	})

	return nil
}

// heartbeatLoop sends periodic heartbeats to update last_seen
func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-ticker.C:
			if err := w.sendHeartbeat(ctx); err != nil {
				w.logger.Error("heartbeat_failed", "Failed to send heartbeat", "", err, nil)
			} else {
				w.logger.Debug("heartbeat_sent", "Heartbeat sent successfully", "", nil)
			}
		}
	}
}

// sendHeartbeat updates the printer's last_seen timestamp
func (w *Worker) sendHeartbeat(ctx context.Context) error {
	return w.db.Exec(ctx, database.UpdatePrinterStatusSQL, "online", w.name)
}

// gracefulShutdown handles graceful shutdown of the worker
func (w *Worker) gracefulShutdown(ctx context.Context, requestID string) error {
	w.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	if err := w.db.Exec(ctx, database.UpdatePrinterStatusSQL, "offline", w.name); err != nil {
		w.logger.Error("shutdown_failed", "Failed to update printer status to offline", requestID, err, nil)
	}

	if w.consumer != nil {
		w.consumer.Close()
	}

	w.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
