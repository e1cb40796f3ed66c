package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// ReportRepo runs the aggregate queries behind the manager reports.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// OrderCountByStatus counts orders per status, highest status first.
func (r *ReportRepo) OrderCountByStatus(ctx context.Context) ([]model.OrderCountByStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM orders GROUP BY status ORDER BY status DESC")
	if err != nil {
		return nil, fmt.Errorf("report by status: %w", err)
	}
	defer rows.Close()
	out := []model.OrderCountByStatus{}
	for rows.Next() {
		var row model.OrderCountByStatus
		if err := rows.Scan(&row.Status, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CollectionByStaff sums paid orders per cashier.  Orders without a
// cashier were paid by card or override and are grouped as "Stripe".
func (r *ReportRepo) CollectionByStaff(ctx context.Context) ([]model.PaymentCollection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT IFNULL(u.name, 'Stripe') AS name, u.email, COUNT(1) AS cnt,
		        CAST(IFNULL(SUM(o.order_total), 0) AS SIGNED) AS total
		 FROM orders o
		 LEFT JOIN users u ON u.id = o.cashier_id
		 WHERE o.status >= ?
		 GROUP BY u.name, u.email`,
		model.StatusPaid)
	if err != nil {
		return nil, fmt.Errorf("report collection: %w", err)
	}
	defer rows.Close()
	out := []model.PaymentCollection{}
	for rows.Next() {
		var row model.PaymentCollection
		if err := rows.Scan(&row.Name, &row.Email, &row.Count, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// OrderCountByProcessor counts delivered orders and photos per processor.
func (r *ReportRepo) OrderCountByProcessor(ctx context.Context) ([]model.OrderCountByProcessor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.name, u.email, COUNT(1) AS order_count,
		        CAST(IFNULL(SUM(o.no_of_photos), 0) AS SIGNED) AS photos_count
		 FROM users u
		 INNER JOIN orders o ON o.processor_id = u.id
		 WHERE o.status = ?
		 GROUP BY u.name, u.email
		 ORDER BY u.name`,
		model.StatusReadyForDelivery)
	if err != nil {
		return nil, fmt.Errorf("report by processor: %w", err)
	}
	defer rows.Close()
	out := []model.OrderCountByProcessor{}
	for rows.Next() {
		var row model.OrderCountByProcessor
		if err := rows.Scan(&row.Name, &row.Email, &row.OrderCount, &row.PhotosCount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
