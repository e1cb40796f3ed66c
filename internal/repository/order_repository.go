package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// OrderRepo persists orders and performs the guarded status transitions.
// Every transition is a single UPDATE whose WHERE clause pins the expected
// current status; the returned bool is false when no row matched, which the
// service layer reports as a stale state rather than retrying.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, customer_id, cashier_id, operator_id, processor_id, no_of_photos,
	order_total, mode_of_payment, status, order_ref, payment_ref, created_at, payment_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (model.Order, error) {
	var o model.Order
	err := s.Scan(&o.ID, &o.CustomerID, &o.CashierID, &o.OperatorID, &o.ProcessorID, &o.NoOfPhotos,
		&o.OrderTotal, &o.ModeOfPayment, &o.Status, &o.OrderRef, &o.PaymentRef, &o.CreatedAt, &o.PaymentAt)
	return o, err
}

func (r *OrderRepo) queryOne(ctx context.Context, query string, args ...any) (model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("query order: %w", err)
	}
	return o, nil
}

// exec runs a guarded statement and reports whether a row was affected.
func (r *OrderRepo) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a new order in the Created status and returns its id.
func (r *OrderRepo) Create(ctx context.Context, customerID, noOfPhotos, total uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (customer_id, no_of_photos, order_total, mode_of_payment, status)
		 VALUES (?, ?, ?, ?, ?)`,
		customerID, noOfPhotos, total, model.PaymentNotSelected, model.StatusCreated)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an order by primary key.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? LIMIT 1`, id)
}

// GetByRef fetches the order carrying the given payment correlation token.
func (r *OrderRepo) GetByRef(ctx context.Context, orderRef string) (model.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_ref = ? LIMIT 1`, orderRef)
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteCreated removes an order that is still Created and owned by customerID.
func (r *OrderRepo) DeleteCreated(ctx context.Context, id, customerID uint64) (bool, error) {
	return r.exec(ctx,
		`DELETE FROM orders WHERE id = ? AND customer_id = ? AND status = ?`,
		id, customerID, model.StatusCreated)
}

// StartPayment moves an owned Created order to PaymentPending with the given
// mode.  orderRef is only set for card payments.
func (r *OrderRepo) StartPayment(ctx context.Context, id, customerID uint64, mode model.PaymentMode, orderRef *string) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, mode_of_payment = ?, order_ref = ?
		 WHERE id = ? AND customer_id = ? AND status = ?`,
		model.StatusPaymentPending, mode, orderRef, id, customerID, model.StatusCreated)
}

// CollectCash marks a pending cash order as Paid and records the cashier.
func (r *OrderRepo) CollectCash(ctx context.Context, id, cashierID uint64) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, cashier_id = ?, payment_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND mode_of_payment = ?`,
		model.StatusPaid, cashierID, id, model.StatusPaymentPending, model.PaymentCash)
}

// ConfirmStripe marks the pending card order identified by orderRef as Paid.
func (r *OrderRepo) ConfirmStripe(ctx context.Context, orderRef, paymentRef string) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, payment_ref = ?, payment_at = UTC_TIMESTAMP()
		 WHERE order_ref = ? AND status = ? AND mode_of_payment = ?`,
		model.StatusPaid, paymentRef, orderRef, model.StatusPaymentPending, model.PaymentStripe)
}

// MarkStripeError records a failed card checkout.
func (r *OrderRepo) MarkStripeError(ctx context.Context, orderRef, paymentRef string) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, payment_ref = ?
		 WHERE order_ref = ? AND status = ? AND mode_of_payment = ?`,
		model.StatusPaymentError, paymentRef, orderRef, model.StatusPaymentPending, model.PaymentStripe)
}

// OverridePaid lets a manager settle a pending card order by hand.  The mode
// switches to Override so the payment path stays unambiguous.
func (r *OrderRepo) OverridePaid(ctx context.Context, id uint64, note string) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, mode_of_payment = ?, payment_ref = ?, payment_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND mode_of_payment = ?`,
		model.StatusPaid, model.PaymentOverride, note, id, model.StatusPaymentPending, model.PaymentStripe)
}

// ClearPending returns an order to Created and forgets the chosen payment.
func (r *OrderRepo) ClearPending(ctx context.Context, id uint64, from model.OrderStatus) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, mode_of_payment = ?, order_ref = NULL, payment_ref = NULL
		 WHERE id = ? AND status = ?`,
		model.StatusCreated, model.PaymentNotSelected, id, from)
}

// StartUpload hands the order to an operator for uploading originals.
func (r *OrderRepo) StartUpload(ctx context.Context, id, operatorID uint64, from model.OrderStatus) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, operator_id = ? WHERE id = ? AND status = ?`,
		model.StatusUploading, operatorID, id, from)
}

// FindActiveForProcessor returns the order the processor is currently
// working on, if any.
func (r *OrderRepo) FindActiveForProcessor(ctx context.Context, processorID uint64) (*model.Order, error) {
	o, err := r.queryOne(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE processor_id = ? AND status IN (?, ?)
		 ORDER BY id LIMIT 1`,
		processorID, model.StatusInProcess, model.StatusProcessed)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ClaimOldestUploaded assigns the oldest Uploaded order to processorID.
// MySQL applies ORDER BY/LIMIT inside the single UPDATE, so two processors
// racing here can never both win the same row.
func (r *OrderRepo) ClaimOldestUploaded(ctx context.Context, processorID uint64) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, processor_id = ?
		 WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		model.StatusInProcess, processorID, model.StatusUploaded)
}

// Skip releases a claimed order back to the operators.
func (r *OrderRepo) Skip(ctx context.Context, id, processorID uint64) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ?, processor_id = NULL
		 WHERE id = ? AND processor_id = ? AND status = ?`,
		model.StatusUploading, id, processorID, model.StatusInProcess)
}

// MarkReady closes a processed order.
func (r *OrderRepo) MarkReady(ctx context.Context, id, processorID uint64) (bool, error) {
	return r.exec(ctx,
		`UPDATE orders SET status = ? WHERE id = ? AND processor_id = ? AND status = ?`,
		model.StatusReadyForDelivery, id, processorID, model.StatusProcessed)
}

// trackStatuses maps an upload track to its (filling, full) status pair.
func trackStatuses(mode model.ItemMode) (filling, full model.OrderStatus) {
	if mode == model.ModeProcessed {
		return model.StatusInProcess, model.StatusProcessed
	}
	return model.StatusUploading, model.StatusUploaded
}

// AdvanceIfComplete moves the order to the track's full status once the
// item count for mode has reached no_of_photos.
func (r *OrderRepo) AdvanceIfComplete(ctx context.Context, id uint64, mode model.ItemMode) (bool, error) {
	filling, full := trackStatuses(mode)
	return r.exec(ctx,
		`UPDATE orders SET status = ?
		 WHERE id = ? AND status = ?
		   AND no_of_photos <= (SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?)`,
		full, id, filling, id, mode)
}

// RevertIfIncomplete undoes AdvanceIfComplete after an item was removed.
func (r *OrderRepo) RevertIfIncomplete(ctx context.Context, id uint64, mode model.ItemMode) (bool, error) {
	filling, full := trackStatuses(mode)
	return r.exec(ctx,
		`UPDATE orders SET status = ?
		 WHERE id = ? AND status = ?
		   AND no_of_photos > (SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?)`,
		filling, id, full, id, mode)
}
