package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/portrait-booth/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var orderCols = []string{"id", "customer_id", "cashier_id", "operator_id", "processor_id", "no_of_photos",
	"order_total", "mode_of_payment", "status", "order_ref", "payment_ref", "created_at", "payment_at"}

func orderRow(id uint64, status model.OrderStatus) *sqlmock.Rows {
	return sqlmock.NewRows(orderCols).AddRow(id, 1, nil, nil, nil, 2, 15,
		model.PaymentCash, status, nil, nil, time.Now().UTC(), nil)
}

func TestCollectCashIsGuarded(t *testing.T) {
	db, mock := newMock(t)
	r := NewOrderRepo(db)
	ctx := context.Background()

	stmt := q("WHERE id = ? AND status = ? AND mode_of_payment = ?")
	mock.ExpectExec(stmt).
		WithArgs(model.StatusPaid, 9, 4, model.StatusPaymentPending, model.PaymentCash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).
		WithArgs(model.StatusPaid, 9, 4, model.StatusPaymentPending, model.PaymentCash).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.CollectCash(ctx, 4, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CollectCash(ctx, 4, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimOldestUploadedIsOneStatement(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("WHERE status = ? ORDER BY created_at, id LIMIT 1")).
		WithArgs(model.StatusInProcess, 5, model.StatusUploaded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := NewOrderRepo(db).ClaimOldestUploaded(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardedTransitions(t *testing.T) {
	ref := "ref-1"
	cases := []struct {
		name string
		sql  string
		args []any
		run  func(r *OrderRepo) (bool, error)
	}{
		{"start payment", "WHERE id = ? AND customer_id = ? AND status = ?",
			[]any{model.StatusPaymentPending, model.PaymentStripe, &ref, 1, 2, model.StatusCreated},
			func(r *OrderRepo) (bool, error) {
				return r.StartPayment(context.Background(), 1, 2, model.PaymentStripe, &ref)
			}},
		{"override", "WHERE id = ? AND status = ? AND mode_of_payment = ?",
			[]any{model.StatusPaid, model.PaymentOverride, "note", 1, model.StatusPaymentPending, model.PaymentStripe},
			func(r *OrderRepo) (bool, error) {
				return r.OverridePaid(context.Background(), 1, "note")
			}},
		{"clear pending", "order_ref = NULL, payment_ref = NULL WHERE id = ? AND status = ?",
			[]any{model.StatusCreated, model.PaymentNotSelected, 1, model.StatusPaymentError},
			func(r *OrderRepo) (bool, error) {
				return r.ClearPending(context.Background(), 1, model.StatusPaymentError)
			}},
		{"skip", "WHERE id = ? AND processor_id = ? AND status = ?",
			[]any{model.StatusUploading, 1, 4, model.StatusInProcess},
			func(r *OrderRepo) (bool, error) {
				return r.Skip(context.Background(), 1, 4)
			}},
		{"advance", "no_of_photos <= (SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?)",
			[]any{model.StatusProcessed, 1, model.StatusInProcess, 1, model.ModeProcessed},
			func(r *OrderRepo) (bool, error) {
				return r.AdvanceIfComplete(context.Background(), 1, model.ModeProcessed)
			}},
		{"revert", "no_of_photos > (SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?)",
			[]any{model.StatusUploading, 1, model.StatusUploaded, 1, model.ModeOriginal},
			func(r *OrderRepo) (bool, error) {
				return r.RevertIfIncomplete(context.Background(), 1, model.ModeOriginal)
			}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectExec(q(tc.sql)).WithArgs(toDriverArgs(tc.args)...).
				WillReturnResult(sqlmock.NewResult(0, 0))
			ok, err := tc.run(NewOrderRepo(db))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func toDriverArgs(in []any) []driver.Value {
	out := make([]driver.Value, len(in))
	for i, v := range in {
		if p, ok := v.(*string); ok {
			out[i] = *p
			continue
		}
		out[i] = v
	}
	return out
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM orders WHERE id = ? LIMIT 1")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := NewOrderRepo(db).GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetByIDScansEnums(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM orders WHERE id = ? LIMIT 1")).WithArgs(7).
		WillReturnRows(orderRow(7, model.StatusUploaded))

	o, err := NewOrderRepo(db).GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, o.Status)
	assert.Equal(t, model.PaymentCash, o.ModeOfPayment)
	assert.Nil(t, o.ProcessorID)
}

func TestFindActiveForProcessorNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE processor_id = ? AND status IN (?, ?)")).
		WithArgs(4, model.StatusInProcess, model.StatusProcessed).
		WillReturnRows(sqlmock.NewRows(orderCols))

	o, err := NewOrderRepo(db).FindActiveForProcessor(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestInsertIfRoom(t *testing.T) {
	db, mock := newMock(t)
	r := NewOrderItemRepo(db)
	it := model.OrderItem{OrderID: 3, Mode: model.ModeOriginal, FileName: "a.jpg", ObjectKey: "000003/original/x.jpg"}

	stmt := q("AND o.no_of_photos > (SELECT COUNT(*) FROM order_items WHERE order_id = ? AND mode = ?)")
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))

	id, ok, err := r.InsertIfRoom(context.Background(), it)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(11), id)

	_, ok, err = r.InsertIfRoom(context.Background(), it)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertIfRoomDuplicateKey(t *testing.T) {
	db, mock := newMock(t)
	it := model.OrderItem{OrderID: 3, Mode: model.ModeOriginal, FileName: "a.jpg", ObjectKey: "000003/original/x.jpg"}
	mock.ExpectExec(q("INSERT INTO order_items")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'order_items.uq_items_key'"})

	_, ok, err := NewOrderItemRepo(db).InsertIfRoom(context.Background(), it)
	assert.ErrorIs(t, err, ErrItemExists)
	assert.False(t, ok)
}

func TestGetItemNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM order_items WHERE id = ?")).WithArgs(5).WillReturnError(sql.ErrNoRows)
	_, err := NewOrderItemRepo(db).GetItem(context.Background(), 5)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUserCreateDuplicates(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)
	nu := NewUser{Name: " Ana ", Email: " Ana@Example.com", Role: model.RoleCustomer, Status: model.UserNotActivatedYet}

	ins := q("INSERT INTO users")
	mock.ExpectExec(ins).
		WithArgs("Ana", "ana@example.com", nil, nil, "", model.RoleCustomer, model.UserNotActivatedYet).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'users.uq_users_phone'"})
	mock.ExpectExec(ins).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'users.uq_users_email'"})
	mock.ExpectExec(ins).WillReturnError(errors.New("boom"))

	_, err := r.Create(context.Background(), nu)
	assert.ErrorIs(t, err, ErrPhoneExists)
	_, err = r.Create(context.Background(), nu)
	assert.ErrorIs(t, err, ErrEmailExists)
	_, err = r.Create(context.Background(), nu)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmailExists))
}

func TestValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	r := NewTokenRepo(db)
	sel := q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=?")
	cols := []string{"user_id", "expires_at", "revoked_at"}
	future := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery(sel).WithArgs("live").WillReturnRows(sqlmock.NewRows(cols).AddRow(3, future, nil))
	mock.ExpectQuery(sel).WithArgs("revoked").WillReturnRows(sqlmock.NewRows(cols).AddRow(3, future, time.Now()))
	mock.ExpectQuery(sel).WithArgs("old").WillReturnRows(sqlmock.NewRows(cols).AddRow(3, time.Now().Add(-time.Hour), nil))
	mock.ExpectQuery(sel).WithArgs("none").WillReturnRows(sqlmock.NewRows(cols))

	id, err := r.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	for _, h := range []string{"revoked", "old", "none"} {
		_, err := r.ValidateRefresh(context.Background(), h)
		assert.ErrorIs(t, err, ErrRefreshInvalid, h)
	}
}

func TestSettingGetDefault(t *testing.T) {
	db, mock := newMock(t)
	r := NewSettingRepo(db)
	sel := q("SELECT value FROM settings WHERE name = ?")
	mock.ExpectQuery(sel).WithArgs(model.SettingAllowOrderCreation).WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectQuery(sel).WithArgs(model.SettingAllowOrderCreation).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("0"))

	s, err := r.Get(context.Background(), model.SettingAllowOrderCreation, "1")
	require.NoError(t, err)
	assert.True(t, s.IsTrue())

	s, err = r.Get(context.Background(), model.SettingAllowOrderCreation, "1")
	require.NoError(t, err)
	assert.False(t, s.IsTrue())
}

func TestSearchFilters(t *testing.T) {
	db, mock := newMock(t)
	name, email := " Ana ", "ANA@example.com"

	mock.ExpectQuery(q("SELECT COUNT(*) FROM orders o JOIN users u ON u.id = o.customer_id WHERE LOWER(u.name) LIKE ? AND LOWER(u.email) = ?")).
		WithArgs("%ana%", "ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	cols := append(append([]string{}, orderCols...), "name", "email", "phone")
	mock.ExpectQuery(q("LIMIT ? OFFSET ?")).
		WithArgs("%ana%", "ana@example.com", 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, 1, nil, nil, nil, 1, 10,
			model.PaymentCash, model.StatusPaid, nil, nil, time.Now().UTC(), nil, "Ana", "ana@example.com", nil))

	rows, total, err := NewOrderRepo(db).Search(context.Background(), model.OrderSearch{Name: &name, Email: &email}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(4), rows[0].ID)
	assert.Equal(t, "Ana", rows[0].Name)
	assert.Nil(t, rows[0].Phone)
}

func TestSearchNeedsFilter(t *testing.T) {
	db, _ := newMock(t)
	_, _, err := NewOrderRepo(db).Search(context.Background(), model.OrderSearch{}, 1, 20)
	assert.Error(t, err)
}
