package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookkeeper/internal/core"
)

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var parent sql.NullString
	if err := row.Scan(&c.ID, &c.Owner, &c.Name, &parent, &c.IsTransferCategory); err != nil {
		return core.Category{}, err
	}
	c.ParentID = parent.String
	return c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateCategory inserts a new category row, inside tx when given.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, tx *sql.Tx, c core.Category) error {
	_, err := r.exec(tx).ExecContext(ctx,
		`INSERT INTO categories (id, owner, name, parent_id, is_transfer) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Owner, c.Name, nullable(c.ParentID), c.IsTransferCategory)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// UpdateCategory rewrites the category's name and parent.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, parent_id = ? WHERE owner = ? AND id = ?`,
		c.Name, nullable(c.ParentID), c.Owner, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("category", c.ID)
	}
	return nil
}

// DeleteCategory removes the category row. Reference checks are the service
// layer's job.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("category", id)
	}
	return nil
}

// GetCategory returns the category if it exists and belongs to owner.
func (r *SQLiteRepository) GetCategory(ctx context.Context, owner, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name, parent_id, is_transfer FROM categories WHERE owner = ? AND id = ?`,
		owner, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all of the owner's categories ordered by name, the
// order the tree view presents siblings in.
func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, name, parent_id, is_transfer FROM categories WHERE owner = ? ORDER BY name, id`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCategories counts the owner's categories, used for idempotent seeding.
func (r *SQLiteRepository) CountCategories(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE owner = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// CountCategoryReferences counts transactions referencing the category; a
// non-zero count blocks deletion.
func (r *SQLiteRepository) CountCategoryReferences(ctx context.Context, owner, categoryID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE owner = ? AND category_id = ?`,
		owner, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category references: %w", err)
	}
	return n, nil
}

// FindRootCategoryByName looks up a root category (no parent) by exact name,
// inside tx when given.
func (r *SQLiteRepository) FindRootCategoryByName(ctx context.Context, tx *sql.Tx, owner, name string) (core.Category, error) {
	row := r.exec(tx).QueryRowContext(ctx,
		`SELECT id, owner, name, parent_id, is_transfer FROM categories
		 WHERE owner = ? AND name = ? AND parent_id IS NULL`,
		owner, name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", name)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find root category: %w", err)
	}
	return c, nil
}
