// Package receipt renders finalized bills and drives the physical printer.
// The sink never touches billing data: a bill is already archived before it
// gets here, so any print failure is recovered by re-dispatching the same
// bill.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"pos-server/internal/models"
)

// ErrDeviceUnavailable indicates no printing device is reachable. Callers
// report a simulated print instead of a failure; lack of a printer must never
// block order closure.
var ErrDeviceUnavailable = errors.New("no printing device available")

// Sink consumes a finalized bill and renders it.
type Sink interface {
	Print(ctx context.Context, bill *models.Bill) error
}

// DeviceSink writes rendered receipts to a line printer device file.
type DeviceSink struct {
	Path string
}

// NewDeviceSink creates a sink for the given device path. An empty path means
// no printer is configured.
func NewDeviceSink(path string) *DeviceSink {
	return &DeviceSink{Path: path}
}

// Print renders the bill and writes it to the device. A missing device yields
// ErrDeviceUnavailable; a device that exists but cannot be opened or written
// is a distinct IO failure.
func (s *DeviceSink) Print(ctx context.Context, bill *models.Bill) error {
	if s.Path == "" {
		return ErrDeviceUnavailable
	}
	if _, err := os.Stat(s.Path); err != nil {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, s.Path)
	}

	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("failed to open printer device %s: %w", s.Path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(Render(bill)); err != nil {
		return fmt.Errorf("failed to write to printer device %s: %w", s.Path, err)
	}

	return nil
}

// ConsoleSink prints rendered receipts to stdout. Used as the simulated
// fallback and by the receipt-printer worker when no device is configured.
type ConsoleSink struct{}

func (ConsoleSink) Print(ctx context.Context, bill *models.Bill) error {
	fmt.Print(Render(bill))
	return nil
}

// Render formats a bill as plain receipt text.
func Render(bill *models.Bill) string {
	var b strings.Builder

	b.WriteString("================================\n")
	b.WriteString(fmt.Sprintf("  SEAT %d\n", bill.SeatNo))
	b.WriteString(fmt.Sprintf("  %s\n", bill.ClosedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("--------------------------------\n")

	for _, item := range bill.Items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		b.WriteString(fmt.Sprintf("  %d x %s (%s)\n", item.Quantity, name, item.Size))
		if item.Instructions != "" {
			b.WriteString(fmt.Sprintf("      note: %s\n", item.Instructions))
		}
		b.WriteString(fmt.Sprintf("%32s\n", fmt.Sprintf("$%.2f", item.ItemTotal)))
	}

	b.WriteString("--------------------------------\n")
	b.WriteString(fmt.Sprintf("  TOTAL %24s\n", fmt.Sprintf("$%.2f", bill.GrandTotal)))
	b.WriteString("================================\n")

	return b.String()
}
