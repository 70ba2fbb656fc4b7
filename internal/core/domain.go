package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Account is a user-owned bucket of transactions. Its balance is never
	// stored; it is always the sum of the account's transactions.
	Account struct {
		ID          string    `json:"id"`
		Owner       string    `json:"-"`
		DisplayName string    `json:"displayName"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Category is a node in the per-owner category forest. ParentID is empty
	// for roots. A transfer-flagged category obligates the caller to supply a
	// destination account when it is selected on a transaction.
	Category struct {
		ID                 string `json:"id"`
		Owner              string `json:"-"`
		Name               string `json:"name"`
		ParentID           string `json:"parentId,omitempty"`
		IsTransferCategory bool   `json:"isTransferCategory"`
	}

	// CategoryNode is a category with its children attached, as returned by
	// the tree view. Siblings are ordered by name.
	CategoryNode struct {
		Category
		Children []*CategoryNode `json:"children,omitempty"`
	}

	// Transaction is a single ledger entry. Amount is signed: positive is
	// income, negative is expense. Seq is the insertion-order sequence used
	// as the stable tiebreaker for running balances.
	Transaction struct {
		ID                   string          `json:"id"`
		Owner                string          `json:"-"`
		AccountID            string          `json:"accountId"`
		Date                 Date            `json:"date"`
		Amount               decimal.Decimal `json:"amount"`
		Description          string          `json:"description"`
		CategoryID           string          `json:"categoryId"`
		CounterpartAccountID string          `json:"transferCounterpartAccountId,omitempty"`
		TransferPairID       string          `json:"transferPairId,omitempty"`
		Seq                  int64           `json:"-"`
	}

	// TransferPair is the two halves of a money movement between two owned
	// accounts: outgoing strictly negative on the source, incoming strictly
	// positive on the destination, equal magnitude, linked by a shared pair id.
	TransferPair struct {
		PairID   string      `json:"pairId"`
		Outgoing Transaction `json:"outgoing"`
		Incoming Transaction `json:"incoming"`
	}
)

// Validate checks the fields a transaction must always carry. Referential
// checks (account, category, counterpart) belong to the service layer.
func (t Transaction) Validate() error {
	if t.AccountID == "" {
		return NewValidationError("accountId", "is required")
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "is required")
	}
	if t.CategoryID == "" {
		return NewValidationError("categoryId", "is required")
	}
	return nil
}

// Validate checks the account's own fields.
func (a Account) Validate() error {
	if strings.TrimSpace(a.DisplayName) == "" {
		return NewValidationError("displayName", "is required")
	}
	return nil
}

// Validate checks the category's own fields.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "is required")
	}
	return nil
}
