package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// User is an account allowed to query the decision API.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StrategyInstance mirrors one YAML strategy entry, persisted so operators
// can inspect and toggle the configured set at runtime.
type StrategyInstance struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StrategyType string    `json:"strategy_type"`
	Symbol       string    `json:"symbol"`
	Interval     string    `json:"interval"`
	Parameters   string    `json:"parameters"` // JSON blob
	Metadata     string    `json:"metadata"`   // JSON blob: regimes, session, days
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUser inserts a new user row.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, u.ID, u.Email, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up for login.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// ListStrategyInstances returns every configured strategy row.
func (d *Database) ListStrategyInstances(ctx context.Context) ([]StrategyInstance, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, name, strategy_type, symbol, interval, parameters,
		       COALESCE(metadata, ''), is_active, created_at, updated_at
		FROM strategy_instances
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query strategy instances: %w", err)
	}
	defer rows.Close()

	var instances []StrategyInstance
	for rows.Next() {
		var s StrategyInstance
		if err := rows.Scan(&s.ID, &s.Name, &s.StrategyType, &s.Symbol, &s.Interval,
			&s.Parameters, &s.Metadata, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan strategy instance: %w", err)
		}
		instances = append(instances, s)
	}
	return instances, rows.Err()
}

// GetStrategyInstance returns one strategy row by id.
func (d *Database) GetStrategyInstance(ctx context.Context, id string) (*StrategyInstance, error) {
	var s StrategyInstance
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, name, strategy_type, symbol, interval, parameters,
		       COALESCE(metadata, ''), is_active, created_at, updated_at
		FROM strategy_instances WHERE id = ?
	`, id).Scan(&s.ID, &s.Name, &s.StrategyType, &s.Symbol, &s.Interval,
		&s.Parameters, &s.Metadata, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query strategy instance: %w", err)
	}
	return &s, nil
}

// SetStrategyActive flips the active flag on a strategy row.
func (d *Database) SetStrategyActive(ctx context.Context, id string, active bool) error {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE strategy_instances
		SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("update strategy active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
