package models

import "time"

// PrinterStatus represents the status of a receipt printer worker
type PrinterStatus string

const (
	PrinterOnline  PrinterStatus = "online"
	PrinterOffline PrinterStatus = "offline"
)

// Printer represents a registered receipt printer worker
type Printer struct {
	ID           int           `json:"id,omitempty" db:"id"`
	CreatedAt    time.Time     `json:"created_at,omitempty" db:"created_at"`
	Name         string        `json:"printer_name" db:"name"`
	Status       PrinterStatus `json:"status" db:"status"`
	LastSeen     time.Time     `json:"last_seen" db:"last_seen"`
	BillsPrinted int           `json:"bills_printed" db:"bills_printed"`
}

// PrinterStatusResponse represents the response for printer status queries
type PrinterStatusResponse struct {
	PrinterName  string    `json:"printer_name"`
	Status       string    `json:"status"`
	BillsPrinted int       `json:"bills_printed"`
	LastSeen     time.Time `json:"last_seen"`
}

// IsOnline reports whether a printer is considered alive based on its
// heartbeat interval.
func (p *Printer) IsOnline(heartbeatInterval time.Duration) bool {
	if p.Status == PrinterOffline {
		return false
	}
	threshold := 2 * heartbeatInterval
	return time.Since(p.LastSeen) <= threshold
}
