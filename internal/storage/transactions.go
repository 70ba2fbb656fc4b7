package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookkeeper/internal/core"
)

const txColumns = `seq, id, owner, account_id, tx_date, amount_cents, description,
	category_id, counterpart_account_id, transfer_pair_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t           core.Transaction
		dateStr     string
		amountCents int64
		counterpart sql.NullString
		pairID      sql.NullString
	)
	err := row.Scan(&t.Seq, &t.ID, &t.Owner, &t.AccountID, &dateStr, &amountCents,
		&t.Description, &t.CategoryID, &counterpart, &pairID)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	t.Date = date
	t.Amount = core.AmountFromCents(amountCents)
	t.CounterpartAccountID = counterpart.String
	t.TransferPairID = pairID.String
	return t, nil
}

// placeholders builds "?, ?, ?" for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// dedupe drops repeated ids, keeping first-seen order. Bulk operations count
// affected rows against the id list, so a duplicate must not look like a
// missing row.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *SQLiteRepository) exec(tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return r.db
}

// InsertTransaction writes one transaction row, inside tx when given. The
// assigned insertion sequence is returned.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) (int64, error) {
	res, err := r.exec(tx).ExecContext(ctx,
		`INSERT INTO transactions
		 (id, owner, account_id, tx_date, amount_cents, description, category_id, counterpart_account_id, transfer_pair_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.AccountID, t.Date.String(), core.Cents(t.Amount),
		t.Description, t.CategoryID, nullable(t.CounterpartAccountID), nullable(t.TransferPairID))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction sequence: %w", err)
	}
	return seq, nil
}

// GetTransaction returns the transaction if it exists and belongs to owner.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, owner, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE owner = ? AND id = ?`, owner, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFoundError("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction rewrites all mutable fields of the row, inside tx when
// given. The seq column never changes so running-balance order is preserved
// across edits.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	res, err := r.exec(tx).ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, tx_date = ?, amount_cents = ?, description = ?,
		     category_id = ?, counterpart_account_id = ?, transfer_pair_id = ?
		 WHERE owner = ? AND id = ?`,
		t.AccountID, t.Date.String(), core.Cents(t.Amount), t.Description,
		t.CategoryID, nullable(t.CounterpartAccountID), nullable(t.TransferPairID),
		t.Owner, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("transaction", t.ID)
	}
	return nil
}

// DeleteTransaction permanently removes one transaction row.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, tx *sql.Tx, owner, id string) error {
	res, err := r.exec(tx).ExecContext(ctx,
		`DELETE FROM transactions WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("transaction", id)
	}
	return nil
}

// GetTransferPair returns both halves of a transfer, outgoing first.
func (r *SQLiteRepository) GetTransferPair(ctx context.Context, owner, pairID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE owner = ? AND transfer_pair_id = ? ORDER BY amount_cents`,
		owner, pairID)
	if err != nil {
		return nil, fmt.Errorf("get transfer pair: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer half: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransferPair removes both halves inside tx and reports how many rows
// went away.
func (r *SQLiteRepository) DeleteTransferPair(ctx context.Context, tx *sql.Tx, owner, pairID string) (int64, error) {
	res, err := r.exec(tx).ExecContext(ctx,
		`DELETE FROM transactions WHERE owner = ? AND transfer_pair_id = ?`, owner, pairID)
	if err != nil {
		return 0, fmt.Errorf("delete transfer pair: %w", err)
	}
	return res.RowsAffected()
}

// BulkDelete removes the given ids inside tx. It fails, forcing a rollback,
// unless every id matched an owned row: the batch is all-or-nothing.
func (r *SQLiteRepository) BulkDelete(ctx context.Context, tx *sql.Tx, owner string, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.exec(tx).ExecContext(ctx,
		`DELETE FROM transactions WHERE owner = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bulk delete affected rows: %w", err)
	}
	if n != int64(len(ids)) {
		return core.NewNotFoundError("transaction", fmt.Sprintf("%d of %d ids", int64(len(ids))-n, len(ids)))
	}
	return nil
}

// BulkUpdateCategory reassigns the given ids to a category inside tx, with the
// same all-or-nothing contract as BulkDelete.
func (r *SQLiteRepository) BulkUpdateCategory(ctx context.Context, tx *sql.Tx, owner string, ids []string, categoryID, counterpartAccountID string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+3)
	args = append(args, categoryID, nullable(counterpartAccountID), owner)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.exec(tx).ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, counterpart_account_id = ?
		 WHERE owner = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("bulk update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bulk update affected rows: %w", err)
	}
	if n != int64(len(ids)) {
		return core.NewNotFoundError("transaction", fmt.Sprintf("%d of %d ids", int64(len(ids))-n, len(ids)))
	}
	return nil
}
