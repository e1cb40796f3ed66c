package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// searchOrdering puts the orders staff act on first: paid ones waiting for
// upload, then pending payments, then those being processed.
var searchOrdering = fmt.Sprintf(
	"CASE WHEN o.status = %d THEN 1 WHEN o.status = %d THEN 2 WHEN o.status = %d THEN 3 ELSE 10 + o.status END, o.id DESC",
	model.StatusPaid, model.StatusPaymentPending, model.StatusInProcess)

// Search finds orders joined with their customers.  The caller must supply
// at least one filter; name matches as a case-insensitive substring while
// email and phone must match exactly.
func (r *OrderRepo) Search(ctx context.Context, f model.OrderSearch, page, pageSize int) ([]model.UserOrder, int64, error) {
	where := []string{}
	args := []any{}

	if f.OrderNo != nil {
		where = append(where, "o.id = ?")
		args = append(args, *f.OrderNo)
	}
	if f.Name != nil {
		where = append(where, "LOWER(u.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*f.Name))+"%")
	}
	if f.Email != nil {
		where = append(where, "LOWER(u.email) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*f.Email)))
	}
	if f.Phone != nil {
		where = append(where, "u.phone = ?")
		args = append(args, strings.TrimSpace(*f.Phone))
	}
	if len(where) == 0 {
		return nil, 0, fmt.Errorf("search orders: no filter")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM orders o JOIN users u ON u.id = o.customer_id WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	dataSQL := `SELECT o.id, o.customer_id, o.cashier_id, o.operator_id, o.processor_id, o.no_of_photos,
			o.order_total, o.mode_of_payment, o.status, o.order_ref, o.payment_ref, o.created_at, o.payment_at,
			u.name, u.email, u.phone
		FROM orders o
		JOIN users u ON u.id = o.customer_id
		WHERE ` + cond + `
		ORDER BY ` + searchOrdering + `
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, fmt.Errorf("search orders: %w", err)
	}
	defer rows.Close()

	out := make([]model.UserOrder, 0, pageSize)
	for rows.Next() {
		var uo model.UserOrder
		o := &uo.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.CashierID, &o.OperatorID, &o.ProcessorID, &o.NoOfPhotos,
			&o.OrderTotal, &o.ModeOfPayment, &o.Status, &o.OrderRef, &o.PaymentRef, &o.CreatedAt, &o.PaymentAt,
			&uo.Name, &uo.Email, &uo.Phone); err != nil {
			return nil, 0, err
		}
		out = append(out, uo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetWithCustomer loads one order together with its customer's contact details.
func (r *OrderRepo) GetWithCustomer(ctx context.Context, id uint64) (model.UserOrder, error) {
	no := id
	rows, _, err := r.Search(ctx, model.OrderSearch{OrderNo: &no}, 1, 1)
	if err != nil {
		return model.UserOrder{}, err
	}
	if len(rows) == 0 {
		return model.UserOrder{}, ErrOrderNotFound
	}
	return rows[0], nil
}
