package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookkeeper/internal/core"
	"bookkeeper/internal/importer"
	"bookkeeper/internal/notify"
	"bookkeeper/internal/staging"
	"bookkeeper/internal/storage"
)

// ImportService runs the two-phase import workflow: parse into the staging
// area, then commit categorized candidates row by row. Commit is deliberately
// partial-success, each row lands or fails on its own, unlike the bulk
// operations which are all-or-nothing.
type ImportService struct {
	repo      *storage.SQLiteRepository
	ledger    *LedgerService
	transfers *TransferService
	stage     *staging.Store
	limits    importer.Limits
	notifier  notify.Publisher
}

func NewImportService(repo *storage.SQLiteRepository, ledger *LedgerService, transfers *TransferService, stage *staging.Store, limits importer.Limits, notifier notify.Publisher) *ImportService {
	return &ImportService{
		repo:      repo,
		ledger:    ledger,
		transfers: transfers,
		stage:     stage,
		limits:    limits,
		notifier:  notifier,
	}
}

// Parse reads a bank export and stages the candidates for categorization.
// Nothing is written to the ledger.
func (s *ImportService) Parse(ctx context.Context, owner string, r io.Reader) (staging.Batch, error) {
	result, err := importer.Parse(r, s.limits)
	if err != nil {
		return staging.Batch{}, err
	}

	batch := staging.Batch{
		ID:         uuid.NewString(),
		Owner:      owner,
		Candidates: result.Candidates,
		Errors:     result.Errors,
		CreatedAt:  time.Now().UTC(),
	}
	s.stage.Put(batch)

	slog.InfoContext(ctx, "Import batch staged",
		"batch_id", batch.ID,
		"candidates", len(batch.Candidates),
		"rejected_rows", len(batch.Errors))
	return batch, nil
}

// Batch returns a staged batch for review.
func (s *ImportService) Batch(ctx context.Context, owner, batchID string) (staging.Batch, error) {
	return s.stage.Get(owner, batchID)
}

// Discard drops a staged batch without side effects.
func (s *ImportService) Discard(ctx context.Context, owner, batchID string) {
	s.stage.Delete(owner, batchID)
	slog.InfoContext(ctx, "Import batch discarded", "batch_id", batchID)
}

type (
	// Assignment attaches a category (and, for transfer categories, a
	// counterpart account) to one staged candidate by its index in the batch.
	Assignment struct {
		Index                int    `json:"index"`
		CategoryID           string `json:"categoryId"`
		CounterpartAccountID string `json:"transferCounterpartAccountId,omitempty"`
	}

	// RowError is a per-candidate commit failure.
	RowError struct {
		Index   int    `json:"index"`
		Message string `json:"message"`
	}

	// ImportResult reports how a commit went: rows that landed and rows that
	// did not. A non-empty Errors list does not undo the imported rows.
	ImportResult struct {
		Imported int        `json:"imported"`
		Errors   []RowError `json:"errors"`
	}
)

// Commit writes the assigned candidates into the account. Transfer-category
// rows go through the transfer coordinator; everything else is a plain
// create. Per-row failures are collected and the batch keeps going. The
// batch leaves staging only if every row landed, so a partly failed commit
// can be retried for the remaining rows.
func (s *ImportService) Commit(ctx context.Context, owner, batchID, accountID string, assignments []Assignment) (ImportResult, error) {
	batch, err := s.stage.Get(owner, batchID)
	if err != nil {
		return ImportResult{}, err
	}
	if _, err := s.repo.GetAccount(ctx, owner, accountID); err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	var committed []string
	for _, a := range assignments {
		if a.Index < 0 || a.Index >= len(batch.Candidates) {
			result.Errors = append(result.Errors, RowError{Index: a.Index, Message: "no such candidate"})
			continue
		}
		candidate := batch.Candidates[a.Index]

		ids, err := s.commitRow(ctx, owner, accountID, candidate, a)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Index: a.Index, Message: err.Error()})
			continue
		}
		result.Imported++
		committed = append(committed, ids...)
	}

	if len(result.Errors) == 0 {
		s.stage.Delete(owner, batchID)
	}

	slog.InfoContext(ctx, "Import batch committed",
		"batch_id", batchID,
		"account_id", accountID,
		"imported", result.Imported,
		"failed", len(result.Errors))
	publishChange(ctx, s.notifier, owner, "import", "commit", committed...)
	return result, nil
}

// commitRow routes one candidate to the right write path and returns the ids
// it created.
func (s *ImportService) commitRow(ctx context.Context, owner, accountID string, candidate importer.Candidate, a Assignment) ([]string, error) {
	cat, err := s.repo.GetCategory(ctx, owner, a.CategoryID)
	if err != nil {
		return nil, err
	}

	if !cat.IsTransferCategory {
		t, err := s.ledger.CreateTransaction(ctx, owner, CreateTransactionInput{
			AccountID:   accountID,
			Date:        candidate.Date,
			Amount:      candidate.Amount,
			Description: candidate.Description,
			CategoryID:  a.CategoryID,
		})
		if err != nil {
			return nil, err
		}
		return []string{t.ID}, nil
	}

	if a.CounterpartAccountID == "" {
		return nil, core.NewValidationError("transferCounterpartAccountId", "is required for a transfer category")
	}

	// The candidate's sign decides the direction: money out of the imported
	// account is a transfer to the counterpart, money in comes from it.
	in := CreateTransferInput{
		Date:        candidate.Date,
		Amount:      candidate.Amount.Abs(),
		Description: candidate.Description,
		CategoryID:  a.CategoryID,
	}
	if candidate.Amount.IsNegative() {
		in.SourceAccountID = accountID
		in.DestAccountID = a.CounterpartAccountID
	} else {
		in.SourceAccountID = a.CounterpartAccountID
		in.DestAccountID = accountID
	}
	pair, err := s.transfers.Create(ctx, owner, in)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return []string{pair.Outgoing.ID, pair.Incoming.ID}, nil
}
