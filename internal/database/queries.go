package database

// Active order queries. Orders are stored as whole JSON documents keyed by
// seat number so client-carried fields survive the round trip untouched.
const (
	ListActiveOrdersSQL = `
		SELECT seat_no, document FROM active_orders ORDER BY seat_no`

	GetActiveOrderSQL = `
		SELECT document FROM active_orders WHERE seat_no = $1`

	InsertActiveOrderSQL = `
		INSERT INTO active_orders (seat_no, document)
		VALUES ($1, $2)
		ON CONFLICT (seat_no) DO NOTHING`

	ReplaceActiveOrderSQL = `
		UPDATE active_orders SET document = $2, updated_at = NOW()
		WHERE seat_no = $1`

	DeleteActiveOrderSQL = `
		DELETE FROM active_orders WHERE seat_no = $1`
)

// Archive queries
const (
	AppendBillQueueSQL = `
		INSERT INTO bill_queue (document) VALUES ($1)`

	AppendBackupLogSQL = `
		INSERT INTO backup_log (document) VALUES ($1)`

	ListBillQueueSQL = `
		SELECT document FROM bill_queue ORDER BY id ASC`
)

// Catalog queries
const (
	ListProductsSQL = `
		SELECT id, name, price FROM products ORDER BY id ASC`
)

// Printer queries
const (
	InsertPrinterSQL = `
		INSERT INTO printers (name, status)
		VALUES ($1, 'online')
		ON CONFLICT (name) DO UPDATE SET
			status = 'online',
			last_seen = NOW()
		RETURNING id`

	UpdatePrinterStatusSQL = `
		UPDATE printers SET status = $1, last_seen = NOW()
		WHERE name = $2`

	UpdatePrinterHeartbeatSQL = `
		UPDATE printers SET last_seen = NOW(), bills_printed = bills_printed + $1
		WHERE name = $2`

	ListPrintersSQL = `
		SELECT name, status, bills_printed, last_seen, created_at
		FROM printers
		ORDER BY created_at ASC`

	CheckPrinterOnlineSQL = `
		SELECT COUNT(*) FROM printers WHERE name = $1 AND status = 'online'`
)
