package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
	"bookkeeper/internal/notify"
	"bookkeeper/internal/storage"
)

// TransferService coordinates dual-entry transfers between two owned
// accounts. Both halves share a pair id and are created, edited and deleted
// inside one SQL transaction, so a failure on either side leaves no trace of
// the other.
type TransferService struct {
	repo     *storage.SQLiteRepository
	notifier notify.Publisher
}

func NewTransferService(repo *storage.SQLiteRepository, notifier notify.Publisher) *TransferService {
	return &TransferService{repo: repo, notifier: notifier}
}

// CreateTransferInput describes a money movement. Amount is a magnitude; the
// coordinator derives the signs.
type CreateTransferInput struct {
	SourceAccountID string          `json:"sourceAccountId"`
	DestAccountID   string          `json:"destAccountId"`
	Date            core.Date       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	CategoryID      string          `json:"categoryId"`
}

// Create writes the outgoing half (negative, on the source account) and the
// incoming half (positive, on the destination) together. If either insert
// fails the transaction rolls back and a TransferError is returned: the
// ledger never holds half a transfer from this path.
func (s *TransferService) Create(ctx context.Context, owner string, in CreateTransferInput) (core.TransferPair, error) {
	magnitude := in.Amount.Abs()
	if err := core.ValidateAmount(magnitude); err != nil {
		return core.TransferPair{}, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return core.TransferPair{}, core.NewValidationError("description", "is required")
	}
	if err := in.Date.Validate(); err != nil {
		return core.TransferPair{}, err
	}
	if in.SourceAccountID == in.DestAccountID {
		return core.TransferPair{}, core.NewValidationError("destAccountId", "must differ from sourceAccountId")
	}
	if _, err := s.repo.GetAccount(ctx, owner, in.SourceAccountID); err != nil {
		return core.TransferPair{}, err
	}
	if _, err := s.repo.GetAccount(ctx, owner, in.DestAccountID); err != nil {
		return core.TransferPair{}, err
	}
	cat, err := s.repo.GetCategory(ctx, owner, in.CategoryID)
	if err != nil {
		return core.TransferPair{}, err
	}
	if !cat.IsTransferCategory {
		return core.TransferPair{}, core.NewValidationError("categoryId", "must be a transfer category")
	}

	pairID := uuid.NewString()
	outgoing := core.Transaction{
		ID:                   uuid.NewString(),
		Owner:                owner,
		AccountID:            in.SourceAccountID,
		Date:                 in.Date,
		Amount:               magnitude.Neg(),
		Description:          description,
		CategoryID:           in.CategoryID,
		CounterpartAccountID: in.DestAccountID,
		TransferPairID:       pairID,
	}
	incoming := core.Transaction{
		ID:                   uuid.NewString(),
		Owner:                owner,
		AccountID:            in.DestAccountID,
		Date:                 in.Date,
		Amount:               magnitude,
		Description:          "Transfer from " + description,
		CategoryID:           in.CategoryID,
		CounterpartAccountID: in.SourceAccountID,
		TransferPairID:       pairID,
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.repo.InsertTransaction(ctx, tx, outgoing)
		if err != nil {
			return fmt.Errorf("outgoing half: %w", err)
		}
		outgoing.Seq = seq
		seq, err = s.repo.InsertTransaction(ctx, tx, incoming)
		if err != nil {
			return fmt.Errorf("incoming half: %w", err)
		}
		incoming.Seq = seq
		return nil
	})
	if err != nil {
		return core.TransferPair{}, core.NewTransferError("create", err)
	}

	slog.InfoContext(ctx, "Transfer created",
		"pair_id", pairID,
		"source_account_id", in.SourceAccountID,
		"dest_account_id", in.DestAccountID,
		"amount", magnitude.String())
	s.publish(ctx, owner, "transfer", "create", outgoing.ID, incoming.ID)

	return core.TransferPair{PairID: pairID, Outgoing: outgoing, Incoming: incoming}, nil
}

// UpdateTransferInput carries a partial pair edit; nil fields keep their
// current value. Amount is a magnitude.
type UpdateTransferInput struct {
	Date        *core.Date       `json:"date,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// Update edits both halves of the pair together, preserving the sign
// convention and the derived incoming description.
func (s *TransferService) Update(ctx context.Context, owner, pairID string, in UpdateTransferInput) (core.TransferPair, error) {
	outgoing, incoming, err := s.loadPair(ctx, owner, pairID)
	if err != nil {
		return core.TransferPair{}, err
	}

	if in.Date != nil {
		if err := in.Date.Validate(); err != nil {
			return core.TransferPair{}, err
		}
		outgoing.Date = *in.Date
		incoming.Date = *in.Date
	}
	if in.Amount != nil {
		magnitude := in.Amount.Abs()
		if err := core.ValidateAmount(magnitude); err != nil {
			return core.TransferPair{}, err
		}
		outgoing.Amount = magnitude.Neg()
		incoming.Amount = magnitude
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return core.TransferPair{}, core.NewValidationError("description", "is required")
		}
		outgoing.Description = description
		incoming.Description = "Transfer from " + description
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.UpdateTransaction(ctx, tx, outgoing); err != nil {
			return fmt.Errorf("outgoing half: %w", err)
		}
		if err := s.repo.UpdateTransaction(ctx, tx, incoming); err != nil {
			return fmt.Errorf("incoming half: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.TransferPair{}, core.NewTransferError("update", err)
	}

	slog.InfoContext(ctx, "Transfer updated", "pair_id", pairID)
	s.publish(ctx, owner, "transfer", "update", outgoing.ID, incoming.ID)
	return core.TransferPair{PairID: pairID, Outgoing: outgoing, Incoming: incoming}, nil
}

// Delete removes both halves of the pair atomically.
func (s *TransferService) Delete(ctx context.Context, owner, pairID string) error {
	outgoing, incoming, err := s.loadPair(ctx, owner, pairID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := s.repo.DeleteTransferPair(ctx, tx, owner, pairID)
		if err != nil {
			return err
		}
		if n != 2 {
			return fmt.Errorf("expected 2 rows, deleted %d", n)
		}
		return nil
	})
	if err != nil {
		return core.NewTransferError("delete", err)
	}

	slog.InfoContext(ctx, "Transfer deleted", "pair_id", pairID)
	s.publish(ctx, owner, "transfer", "delete", outgoing.ID, incoming.ID)
	return nil
}

// Get returns both halves of an existing pair.
func (s *TransferService) Get(ctx context.Context, owner, pairID string) (core.TransferPair, error) {
	outgoing, incoming, err := s.loadPair(ctx, owner, pairID)
	if err != nil {
		return core.TransferPair{}, err
	}
	return core.TransferPair{PairID: pairID, Outgoing: outgoing, Incoming: incoming}, nil
}

// loadPair fetches both halves and insists on exactly two. Anything else
// means the pair was corrupted outside the coordinator.
func (s *TransferService) loadPair(ctx context.Context, owner, pairID string) (outgoing, incoming core.Transaction, err error) {
	halves, err := s.repo.GetTransferPair(ctx, owner, pairID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	if len(halves) == 0 {
		return core.Transaction{}, core.Transaction{}, core.NewNotFoundError("transfer", pairID)
	}
	if len(halves) != 2 {
		return core.Transaction{}, core.Transaction{}, core.NewConflictError(
			fmt.Sprintf("transfer pair %s has %d halves", pairID, len(halves)))
	}
	// Rows come back ordered by amount: negative (outgoing) first.
	return halves[0], halves[1], nil
}

func (s *TransferService) publish(ctx context.Context, owner, entity, op string, ids ...string) {
	publishChange(ctx, s.notifier, owner, entity, op, ids...)
}
