package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pos-server/internal/database"
	"pos-server/internal/models"
)

// PostgresStore persists orders and bills as JSONB documents. Whole documents
// go in and out so client-carried fields survive untouched.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store backed by the given database.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListOrders(ctx context.Context) (map[int]models.Order, error) {
	rows, err := s.db.Query(ctx, database.ListActiveOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	orders := make(map[int]models.Order)
	for rows.Next() {
		var seatNo int
		var document []byte
		if err := rows.Scan(&seatNo, &document); err != nil {
			return nil, fmt.Errorf("failed to scan active order: %w", err)
		}

		var order models.Order
		if err := json.Unmarshal(document, &order); err != nil {
			return nil, fmt.Errorf("failed to decode order for seat %d: %w", seatNo, err)
		}
		orders[seatNo] = order
	}

	return orders, rows.Err()
}

func (s *PostgresStore) GetOrder(ctx context.Context, seatNo int) (models.Order, bool, error) {
	var document []byte
	err := s.db.QueryRow(ctx, database.GetActiveOrderSQL, seatNo).Scan(&document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, false, nil
		}
		return models.Order{}, false, fmt.Errorf("failed to query order for seat %d: %w", seatNo, err)
	}

	var order models.Order
	if err := json.Unmarshal(document, &order); err != nil {
		return models.Order{}, false, fmt.Errorf("failed to decode order for seat %d: %w", seatNo, err)
	}
	return order, true, nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order models.Order) error {
	document, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	tag, err := s.db.Pool.Exec(ctx, database.InsertActiveOrderSQL, order.SeatNo, document)
	if err != nil {
		return fmt.Errorf("failed to insert order for seat %d: %w", order.SeatNo, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSeatActive
	}
	return nil
}

func (s *PostgresStore) ReplaceOrder(ctx context.Context, order models.Order) error {
	document, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	tag, err := s.db.Pool.Exec(ctx, database.ReplaceActiveOrderSQL, order.SeatNo, document)
	if err != nil {
		return fmt.Errorf("failed to replace order for seat %d: %w", order.SeatNo, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteOrder(ctx context.Context, seatNo int) error {
	if err := s.db.Exec(ctx, database.DeleteActiveOrderSQL, seatNo); err != nil {
		return fmt.Errorf("failed to delete order for seat %d: %w", seatNo, err)
	}
	return nil
}

func (s *PostgresStore) AppendBillQueue(ctx context.Context, bill models.Bill) error {
	return s.appendBill(ctx, database.AppendBillQueueSQL, bill, "bill_queue")
}

func (s *PostgresStore) AppendBackupLog(ctx context.Context, bill models.Bill) error {
	return s.appendBill(ctx, database.AppendBackupLogSQL, bill, "backup_log")
}

func (s *PostgresStore) appendBill(ctx context.Context, sql string, bill models.Bill, destination string) error {
	document, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("failed to encode bill: %w", err)
	}
	if err := s.db.Exec(ctx, sql, document); err != nil {
		return fmt.Errorf("failed to append bill to %s: %w", destination, err)
	}
	return nil
}

func (s *PostgresStore) ListBillQueue(ctx context.Context) ([]models.Bill, error) {
	rows, err := s.db.Query(ctx, database.ListBillQueueSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query bill queue: %w", err)
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}

		var bill models.Bill
		if err := json.Unmarshal(document, &bill); err != nil {
			return nil, fmt.Errorf("failed to decode bill: %w", err)
		}
		bills = append(bills, bill)
	}

	return bills, rows.Err()
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, database.ListProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *PostgresStore) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	rows, err := s.db.Query(ctx, database.ListPrintersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query printers: %w", err)
	}
	defer rows.Close()

	var printers []models.Printer
	for rows.Next() {
		var p models.Printer
		if err := rows.Scan(&p.Name, &p.Status, &p.BillsPrinted, &p.LastSeen, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		printers = append(printers, p)
	}

	return printers, rows.Err()
}
