package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
	"bookkeeper/internal/notify"
	"bookkeeper/internal/storage"
)

// LedgerService owns accounts and single/bulk transaction mutations. Bulk
// operations run inside one SQL transaction: fully applied or fully rolled
// back, never partially applied silently.
type LedgerService struct {
	repo       *storage.SQLiteRepository
	categories *CategoryService
	notifier   notify.Publisher
}

func NewLedgerService(repo *storage.SQLiteRepository, categories *CategoryService, notifier notify.Publisher) *LedgerService {
	return &LedgerService{repo: repo, categories: categories, notifier: notifier}
}

// CreateAccount creates an account and its matching "Transfer to <name>"
// category under the Transfers root. Both writes share one SQL transaction,
// so no account ever lands without its transfer category.
func (s *LedgerService) CreateAccount(ctx context.Context, owner, displayName string) (core.Account, error) {
	a := core.Account{
		ID:          uuid.NewString(),
		Owner:       owner,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.CreateAccount(ctx, tx, a); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if _, err := s.categories.CreateTransferCategoryForAccount(ctx, tx, owner, a); err != nil {
			return fmt.Errorf("create transfer category for account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account created", "id", a.ID, "display_name", a.DisplayName)
	s.publish(ctx, owner, "account", "create", a.ID)
	return a, nil
}

// ListAccounts returns the owner's accounts ordered by display name.
func (s *LedgerService) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	return s.repo.ListAccounts(ctx, owner)
}

// AccountBalance derives the account balance as the sum of its transactions.
func (s *LedgerService) AccountBalance(ctx context.Context, owner, accountID string) (decimal.Decimal, error) {
	if _, err := s.repo.GetAccount(ctx, owner, accountID); err != nil {
		return decimal.Zero, err
	}
	cents, err := s.repo.AccountBalanceCents(ctx, owner, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return core.AmountFromCents(cents), nil
}

// CreateTransactionInput is a manual-entry transaction before validation.
type CreateTransactionInput struct {
	AccountID            string          `json:"accountId"`
	Date                 core.Date       `json:"date"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	CategoryID           string          `json:"categoryId"`
	CounterpartAccountID string          `json:"transferCounterpartAccountId,omitempty"`
}

// CreateTransaction validates and writes a single transaction. When the
// category is transfer-flagged the counterpart account is mandatory and must
// be a different account of the same owner; for a coordinated pair use the
// TransferService instead; this path writes one half only.
func (s *LedgerService) CreateTransaction(ctx context.Context, owner string, in CreateTransactionInput) (core.Transaction, error) {
	t := core.Transaction{
		ID:                   uuid.NewString(),
		Owner:                owner,
		AccountID:            in.AccountID,
		Date:                 in.Date,
		Amount:               in.Amount,
		Description:          strings.TrimSpace(in.Description),
		CategoryID:           in.CategoryID,
		CounterpartAccountID: in.CounterpartAccountID,
	}
	if err := s.validate(ctx, owner, &t); err != nil {
		return core.Transaction{}, err
	}

	seq, err := s.repo.InsertTransaction(ctx, nil, t)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Seq = seq

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID, "account_id", t.AccountID, "amount", t.Amount.String(), "category_id", t.CategoryID)
	s.publish(ctx, owner, "transaction", "create", t.ID)
	return t, nil
}

// UpdateTransactionInput carries a partial update; nil fields keep their
// current value.
type UpdateTransactionInput struct {
	AccountID            *string          `json:"accountId,omitempty"`
	Date                 *core.Date       `json:"date,omitempty"`
	Amount               *decimal.Decimal `json:"amount,omitempty"`
	Description          *string          `json:"description,omitempty"`
	CategoryID           *string          `json:"categoryId,omitempty"`
	CounterpartAccountID *string          `json:"transferCounterpartAccountId,omitempty"`
}

// UpdateTransaction applies a partial update and re-validates the whole row.
// It deliberately does not touch a transfer counterpart; edits to a transfer
// half belong to the TransferService, which updates both sides together.
func (s *LedgerService) UpdateTransaction(ctx context.Context, owner, id string, in UpdateTransactionInput) (core.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if in.AccountID != nil {
		t.AccountID = *in.AccountID
	}
	if in.Date != nil {
		t.Date = *in.Date
	}
	if in.Amount != nil {
		t.Amount = *in.Amount
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.CategoryID != nil {
		t.CategoryID = *in.CategoryID
	}
	if in.CounterpartAccountID != nil {
		t.CounterpartAccountID = *in.CounterpartAccountID
	}
	if err := s.validate(ctx, owner, &t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.UpdateTransaction(ctx, nil, t); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", t.ID, "account_id", t.AccountID)
	s.publish(ctx, owner, "transaction", "update", t.ID)
	return t, nil
}

// DeleteTransaction permanently removes one transaction. Deleting one half of
// a transfer this way orphans the other half; pair-aware deletion lives in
// the TransferService.
func (s *LedgerService) DeleteTransaction(ctx context.Context, owner, id string) error {
	if err := s.repo.DeleteTransaction(ctx, nil, owner, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.publish(ctx, owner, "transaction", "delete", id)
	return nil
}

// BulkDelete removes all the given transactions atomically.
func (s *LedgerService) BulkDelete(ctx context.Context, owner string, ids []string) error {
	if len(ids) == 0 {
		return core.NewValidationError("ids", "must not be empty")
	}
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		return s.repo.BulkDelete(ctx, tx, owner, ids)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transactions bulk deleted", "count", len(ids))
	s.publish(ctx, owner, "transaction", "delete", ids...)
	return nil
}

// BulkUpdateCategory reassigns all the given transactions to a category
// atomically. A transfer-flagged category requires a counterpart account,
// applied uniformly to the whole set.
func (s *LedgerService) BulkUpdateCategory(ctx context.Context, owner string, ids []string, categoryID, counterpartAccountID string) error {
	if len(ids) == 0 {
		return core.NewValidationError("ids", "must not be empty")
	}
	cat, err := s.repo.GetCategory(ctx, owner, categoryID)
	if err != nil {
		return err
	}
	if cat.IsTransferCategory {
		if counterpartAccountID == "" {
			return core.NewValidationError("transferCounterpartAccountId", "is required for a transfer category")
		}
		if _, err := s.repo.GetAccount(ctx, owner, counterpartAccountID); err != nil {
			return err
		}
	} else {
		counterpartAccountID = ""
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		return s.repo.BulkUpdateCategory(ctx, tx, owner, ids, categoryID, counterpartAccountID)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transactions bulk recategorized", "count", len(ids), "category_id", categoryID)
	s.publish(ctx, owner, "transaction", "update", ids...)
	return nil
}

// validate enforces field validity, referential ownership, and the
// transfer-category counterpart obligation for a single transaction row.
func (s *LedgerService) validate(ctx context.Context, owner string, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetAccount(ctx, owner, t.AccountID); err != nil {
		return err
	}
	cat, err := s.repo.GetCategory(ctx, owner, t.CategoryID)
	if err != nil {
		return err
	}
	if cat.IsTransferCategory {
		if t.CounterpartAccountID == "" {
			return core.NewValidationError("transferCounterpartAccountId", "is required for a transfer category")
		}
		if t.CounterpartAccountID == t.AccountID {
			return core.NewValidationError("transferCounterpartAccountId", "must differ from accountId")
		}
		if _, err := s.repo.GetAccount(ctx, owner, t.CounterpartAccountID); err != nil {
			return err
		}
	} else {
		t.CounterpartAccountID = ""
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, owner, entity, op string, ids ...string) {
	publishChange(ctx, s.notifier, owner, entity, op, ids...)
}
