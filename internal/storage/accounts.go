package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookkeeper/internal/core"
)

// CreateAccount inserts a new account row, inside tx when given.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, tx *sql.Tx, a core.Account) error {
	_, err := r.exec(tx).ExecContext(ctx,
		`INSERT INTO accounts (id, owner, display_name, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Owner, a.DisplayName, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount returns the account if it exists and belongs to owner.
func (r *SQLiteRepository) GetAccount(ctx context.Context, owner, id string) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner, display_name, created_at FROM accounts WHERE owner = ? AND id = ?`,
		owner, id).Scan(&a.ID, &a.Owner, &a.DisplayName, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// ListAccounts returns the owner's accounts ordered by display name.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, display_name, created_at FROM accounts WHERE owner = ? ORDER BY display_name, id`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Owner, &a.DisplayName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountBalanceCents sums the account's transaction amounts. An account with
// no transactions has balance 0.
func (r *SQLiteRepository) AccountBalanceCents(ctx context.Context, owner, accountID string) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE owner = ? AND account_id = ?`,
		owner, accountID).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("sum account balance: %w", err)
	}
	return cents, nil
}
