// Package services orchestrates ledger operations across the SQLite store,
// the staging area and the change notifier. Every operation is scoped to the
// authenticated owner passed by the caller.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"bookkeeper/internal/core"
	"bookkeeper/internal/notify"
	"bookkeeper/internal/storage"
)

// transfersRootName is the conventional root under which per-account transfer
// categories are nested. It is created lazily on first use.
const transfersRootName = "Transfers"

// defaultTaxonomy is the canonical category forest seeded once per new owner.
type seedCategory struct {
	name     string
	children []seedCategory
}

var defaultTaxonomy = []seedCategory{
	{name: "Income", children: []seedCategory{
		{name: "Contracting Income"},
		{name: "Dividend Payments"},
	}},
	{name: "Expenses", children: []seedCategory{
		{name: "Employee Payments"},
		{name: "Loans to Sole Shareholder"},
		{name: "Business Expenses", children: []seedCategory{
			{name: "Motor Vehicle Expenses"},
			{name: "Healthcare Supplies"},
			{name: "Bank Fees"},
			{name: "Interest"},
			{name: "Tax Payments"},
		}},
		{name: "Utilities"},
		{name: "Rent-Office Space"},
	}},
	{name: transfersRootName},
	{name: "Assets"},
	{name: "Liabilities"},
}

// CategoryService owns the per-owner category forest.
type CategoryService struct {
	repo     *storage.SQLiteRepository
	notifier notify.Publisher
}

func NewCategoryService(repo *storage.SQLiteRepository, notifier notify.Publisher) *CategoryService {
	return &CategoryService{repo: repo, notifier: notifier}
}

// Create adds a category, optionally under an existing parent owned by the
// same owner.
func (s *CategoryService) Create(ctx context.Context, owner, name, parentID string) (core.Category, error) {
	c := core.Category{
		ID:       uuid.NewString(),
		Owner:    owner,
		Name:     strings.TrimSpace(name),
		ParentID: parentID,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if parentID != "" {
		if _, err := s.repo.GetCategory(ctx, owner, parentID); err != nil {
			return core.Category{}, err
		}
	}
	if err := s.repo.CreateCategory(ctx, nil, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "parent_id", c.ParentID)
	s.publish(ctx, owner, "category", "create", c.ID)
	return c, nil
}

// Update renames and/or reparents a category. Moving a category under one of
// its own descendants is rejected, keeping the forest acyclic.
func (s *CategoryService) Update(ctx context.Context, owner, id, name, parentID string) (core.Category, error) {
	c, err := s.repo.GetCategory(ctx, owner, id)
	if err != nil {
		return core.Category{}, err
	}
	c.Name = strings.TrimSpace(name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if parentID != "" {
		if parentID == id {
			return core.Category{}, core.NewConflictError("category cannot be its own parent")
		}
		if _, err := s.repo.GetCategory(ctx, owner, parentID); err != nil {
			return core.Category{}, err
		}
		descendant, err := s.isDescendant(ctx, owner, parentID, id)
		if err != nil {
			return core.Category{}, err
		}
		if descendant {
			return core.Category{}, core.NewConflictError("new parent is a descendant of the category")
		}
	}
	c.ParentID = parentID
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category updated", "id", c.ID, "name", c.Name, "parent_id", c.ParentID)
	s.publish(ctx, owner, "category", "update", c.ID)
	return c, nil
}

// Delete removes a category. A category still referenced by any transaction
// is protected: the caller must first reassign or delete those transactions.
func (s *CategoryService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.repo.GetCategory(ctx, owner, id); err != nil {
		return err
	}
	refs, err := s.repo.CountCategoryReferences(ctx, owner, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return core.NewConflictError(fmt.Sprintf("category has %d referencing transactions", refs))
	}
	if err := s.repo.DeleteCategory(ctx, owner, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	s.publish(ctx, owner, "category", "delete", id)
	return nil
}

// Tree returns the owner's categories as a forest. Siblings come back ordered
// by name; the structure is assembled in a single pass over the flat list.
func (s *CategoryService) Tree(ctx context.Context, owner string) ([]*core.CategoryNode, error) {
	cats, err := s.repo.ListCategories(ctx, owner)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*core.CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &core.CategoryNode{Category: c}
	}
	var roots []*core.CategoryNode
	for _, c := range cats {
		node := nodes[c.ID]
		if parent, ok := nodes[c.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// EnsureDefaults seeds the canonical taxonomy for a brand-new owner. Calling
// it again is a no-op once the owner has any categories. The whole forest is
// written in one SQL transaction, so a failed seed leaves no categories
// behind and the next call starts from scratch.
func (s *CategoryService) EnsureDefaults(ctx context.Context, owner string) error {
	n, err := s.repo.CountCategories(ctx, owner)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		for _, root := range defaultTaxonomy {
			if err := s.seed(ctx, tx, owner, root, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed default categories: %w", err)
	}
	slog.InfoContext(ctx, "Default categories seeded", "owner", owner)
	return nil
}

func (s *CategoryService) seed(ctx context.Context, tx *sql.Tx, owner string, sc seedCategory, parentID string) error {
	c := core.Category{ID: uuid.NewString(), Owner: owner, Name: sc.name, ParentID: parentID}
	if err := s.repo.CreateCategory(ctx, tx, c); err != nil {
		return err
	}
	for _, child := range sc.children {
		if err := s.seed(ctx, tx, owner, child, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateTransferCategoryForAccount ensures the Transfers root exists and adds
// the account's "Transfer to <name>" child, flagged as a transfer category.
// Called inside the account-creation transaction, so an account never exists
// without its transfer category.
func (s *CategoryService) CreateTransferCategoryForAccount(ctx context.Context, tx *sql.Tx, owner string, account core.Account) (core.Category, error) {
	root, err := s.repo.FindRootCategoryByName(ctx, tx, owner, transfersRootName)
	if err != nil {
		var nf *core.NotFoundError
		if !errors.As(err, &nf) {
			return core.Category{}, err
		}
		root = core.Category{ID: uuid.NewString(), Owner: owner, Name: transfersRootName}
		if err := s.repo.CreateCategory(ctx, tx, root); err != nil {
			return core.Category{}, fmt.Errorf("create transfers root: %w", err)
		}
	}

	c := core.Category{
		ID:                 uuid.NewString(),
		Owner:              owner,
		Name:               "Transfer to " + account.DisplayName,
		ParentID:           root.ID,
		IsTransferCategory: true,
	}
	if err := s.repo.CreateCategory(ctx, tx, c); err != nil {
		return core.Category{}, fmt.Errorf("create transfer category: %w", err)
	}
	slog.InfoContext(ctx, "Transfer category created", "id", c.ID, "account_id", account.ID)
	return c, nil
}

// isDescendant reports whether candidate sits somewhere under ancestor in the
// owner's forest, walking the parent chain upward from candidate.
func (s *CategoryService) isDescendant(ctx context.Context, owner, candidate, ancestor string) (bool, error) {
	cats, err := s.repo.ListCategories(ctx, owner)
	if err != nil {
		return false, err
	}
	parents := make(map[string]string, len(cats))
	for _, c := range cats {
		parents[c.ID] = c.ParentID
	}
	for cur := candidate; cur != ""; cur = parents[cur] {
		if cur == ancestor {
			return true, nil
		}
	}
	return false, nil
}

func (s *CategoryService) publish(ctx context.Context, owner, entity, op string, ids ...string) {
	publishChange(ctx, s.notifier, owner, entity, op, ids...)
}
