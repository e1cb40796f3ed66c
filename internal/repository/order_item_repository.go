package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// OrderItemRepo provides data access to the order_items table.
type OrderItemRepo struct {
	db *sql.DB
}

// NewOrderItemRepo returns a new OrderItemRepo bound to the provided database.
func NewOrderItemRepo(db *sql.DB) *OrderItemRepo { return &OrderItemRepo{db: db} }

const itemColumns = `id, order_id, mode, file_name, object_key, get_url, put_url, uploaded, uploaded_at, created_at`

func scanItem(s rowScanner) (model.OrderItem, error) {
	var it model.OrderItem
	err := s.Scan(&it.ID, &it.OrderID, &it.Mode, &it.FileName, &it.ObjectKey, &it.GetURL, &it.PutURL,
		&it.Uploaded, &it.UploadedAt, &it.CreatedAt)
	return it, err
}

// CountByMode returns how many items of the given mode the order has.
func (r *OrderItemRepo) CountByMode(ctx context.Context, orderID uint64, mode model.ItemMode) (uint64, error) {
	var n uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?`, orderID, mode).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// InsertIfRoom stores a confirmed upload unless the order already has
// no_of_photos items for that mode.  The capacity check and the insert are
// one statement; ok is false when the order was full (or missing).  A key
// that is already stored gives ErrItemExists.
func (r *OrderItemRepo) InsertIfRoom(ctx context.Context, it model.OrderItem) (id uint64, ok bool, err error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO order_items (order_id, mode, file_name, object_key, get_url, put_url, uploaded, uploaded_at)
		 SELECT o.id, ?, ?, ?, ?, ?, TRUE, UTC_TIMESTAMP()
		 FROM orders o
		 WHERE o.id = ?
		   AND o.no_of_photos > (SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?)`,
		it.Mode, it.FileName, it.ObjectKey, it.GetURL, it.PutURL, it.OrderID, it.OrderID, it.Mode)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return 0, false, ErrItemExists
		}
		return 0, false, fmt.Errorf("insert item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	last, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return uint64(last), true, nil
}

// GetItem fetches a single item.
func (r *OrderItemRepo) GetItem(ctx context.Context, id uint64) (model.OrderItem, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OrderItem{}, ErrItemNotFound
		}
		return model.OrderItem{}, fmt.Errorf("query item: %w", err)
	}
	return it, nil
}

// ListByOrder returns the order's items of one mode in upload order.
func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID uint64, mode model.ItemMode) ([]model.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ? AND mode = ? ORDER BY id`, orderID, mode)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	out := []model.OrderItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// DeleteItem removes one item and reports whether it existed.
func (r *OrderItemRepo) DeleteItem(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
