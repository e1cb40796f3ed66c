package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// UserRepo reads and writes the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries what signup stores for a fresh account.
type NewUser struct {
	Name         string
	Email        string
	Phone        *string
	PasswordHash *string
	OTPSecret    string
	Role         model.Role
	Status       model.UserStatus
}

const userColumns = `id, name, email, phone, password_hash, otp_secret, role, status, created_at, updated_at`

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.OTPSecret,
		&u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts user and returns its ID.  Unique key violations come back
// as ErrEmailExists or ErrPhoneExists.
func (r *UserRepo) Create(ctx context.Context, nu NewUser) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, otp_secret, role, status) VALUES (?,?,?,?,?,?,?)",
		strings.TrimSpace(nu.Name), NormalizeEmail(nu.Email), nu.Phone, nu.PasswordHash, nu.OTPSecret, nu.Role, nu.Status)
	if err != nil {
		if msg, dup := duplicateKey(err); dup {
			if strings.Contains(msg, "phone") {
				return 0, ErrPhoneExists
			}
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// Activate flips a NotActivatedYet account to Active.  Accounts in any other
// status are left alone.
func (r *UserRepo) Activate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=? WHERE id=? AND status=?",
		model.UserActive, id, model.UserNotActivatedYet)
	return err
}

// ListStaff returns every user holding an in-store role, grouped by role.
func (r *UserRepo) ListStaff(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role >= ? ORDER BY role DESC, name",
		model.RoleCashier)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ChangeRole sets a user's role.  MySQL reports zero affected rows when the
// role did not change, so existence is the caller's concern.
func (r *UserRepo) ChangeRole(ctx context.Context, id uint64, role model.Role) error {
	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id); err != nil {
		return fmt.Errorf("change role: %w", err)
	}
	return nil
}
