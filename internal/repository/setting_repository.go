package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// SettingRepo stores manager-controlled switches as name/value rows.
type SettingRepo struct {
	db *sql.DB
}

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// Get returns the named setting, or def when no row exists yet.
func (r *SettingRepo) Get(ctx context.Context, name, def string) (model.Setting, error) {
	s := model.Setting{Name: name}
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = ?", name).Scan(&s.Value)
	if errors.Is(err, sql.ErrNoRows) {
		s.Value = def
		return s, nil
	}
	if err != nil {
		return model.Setting{}, fmt.Errorf("query setting %s: %w", name, err)
	}
	return s, nil
}

// Put writes the setting, replacing any previous value.
func (r *SettingRepo) Put(ctx context.Context, name, value string) error {
	if _, err := r.db.ExecContext(ctx,
		"REPLACE INTO settings (name, value) VALUES (?, ?)", name, value); err != nil {
		return fmt.Errorf("store setting %s: %w", name, err)
	}
	return nil
}
