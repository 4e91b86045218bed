package order

import (
	"context"
	"database/sql"
	"math"
	"time"

	"MiniShop/internal/apperr"
	"MiniShop/internal/storage"
)

// Writer appends orders. It only exists inside a transaction, which keeps
// checkout the sole writer of orders.
type Writer struct {
	tx *sql.Tx
}

func NewWriter(tx *sql.Tx) *Writer {
	return &Writer{tx: tx}
}

func (w *Writer) Create(ctx context.Context, createdAt time.Time) (Order, error) {
	o := Order{CreatedAt: createdAt.UTC()}

	err := storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		return w.tx.QueryRowContext(ctx, `
			INSERT INTO orders (created_at)
			VALUES ($1)
			RETURNING id
		`, o.CreatedAt).Scan(&o.ID)
	})
	if err != nil {
		return Order{}, storage.Classify("insert order", err)
	}
	return o, nil
}

func (w *Writer) InsertLine(ctx context.Context, orderID int64, in LineInput) (Line, error) {
	if in.Qty < 1 || in.Qty > math.MaxInt32 {
		return Line{}, apperr.Validation("order line qty out of range, got %d", in.Qty)
	}
	if in.Price.IsNegative() {
		return Line{}, apperr.Validation("order line price must be >= 0, got %s", in.Price)
	}

	l := Line{ProductID: in.ProductID, Name: in.Name, Qty: in.Qty, Price: in.Price}

	err := storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		return w.tx.QueryRowContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, product_name, qty, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, orderID, in.ProductID, in.Name, in.Qty, in.Price).Scan(&l.ID)
	})
	if err != nil {
		return Line{}, storage.Classify("insert order line", err)
	}
	return l, nil
}

type SQLStore struct {
	db *storage.DB
}

func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.Ready(ctx)
}

// List returns orders newest first, lines in insertion order. A single
// statement keeps the result consistent with concurrent checkouts.
func (s *SQLStore) List(ctx context.Context) ([]Order, error) {
	var out []Order

	err := storage.WithTimeout(ctx, storage.QueryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT o.id, o.created_at, l.id, l.product_id, l.product_name, l.qty, l.price
			FROM orders o
			JOIN order_lines l ON l.order_id = o.id
			ORDER BY o.id DESC, l.id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Order, 0, 16)
		for rows.Next() {
			var (
				orderID   int64
				createdAt time.Time
				l         Line
			)
			if err := rows.Scan(&orderID, &createdAt, &l.ID, &l.ProductID, &l.Name, &l.Qty, &l.Price); err != nil {
				return err
			}

			if n := len(out); n == 0 || out[n-1].ID != orderID {
				out = append(out, Order{ID: orderID, CreatedAt: createdAt.UTC()})
			}
			last := &out[len(out)-1]
			last.Lines = append(last.Lines, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storage.Classify("list orders", err)
	}

	for i := range out {
		out[i].withTotals()
	}
	return out, nil
}
