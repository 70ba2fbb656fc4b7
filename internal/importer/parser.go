// Package importer turns a positional bank CSV export into staged transaction
// candidates. Nothing parsed here touches the durable store; candidates wait
// in the staging area until the user categorizes them and commits.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

// The export layout is five positional fields with no header row:
// date (MM/DD/YYYY), description, debit, credit, running balance.
const (
	fieldDate = iota
	fieldDescription
	fieldDebit
	fieldCredit
	fieldBalance

	minFields = 5

	usDateLayout = "01/02/2006"
)

type (
	// Candidate is one parsed-but-uncommitted transaction. NeedsReview marks
	// rows the parser accepted but could not derive a trustworthy amount for:
	// both debit and credit blank, or both populated.
	Candidate struct {
		Line        int             `json:"line"`
		Date        core.Date       `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Balance     decimal.Decimal `json:"balance"` // informational only, never trusted
		NeedsReview bool            `json:"needsReview"`
	}

	// ParseError is a rejected row. Collected per row, never fatal to the
	// batch.
	ParseError struct {
		Line    int    `json:"line"`
		Message string `json:"message"`
	}

	// Result carries the accepted candidates alongside the rejected rows.
	Result struct {
		Candidates []Candidate  `json:"candidates"`
		Errors     []ParseError `json:"errors"`
	}

	// Limits bounds what a single parse will read. Zero values mean the
	// built-in caps.
	Limits struct {
		MaxRows  int
		MaxBytes int64
	}
)

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

const (
	defaultMaxRows  = 10_000
	defaultMaxBytes = 4 << 20 // 4 MiB
)

func (l Limits) withDefaults() Limits {
	if l.MaxRows <= 0 {
		l.MaxRows = defaultMaxRows
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = defaultMaxBytes
	}
	return l
}

// Parse reads the whole export, collecting candidates and per-row errors.
// Only a size or row-count overrun fails the batch as a whole.
func Parse(r io.Reader, limits Limits) (Result, error) {
	limits = limits.withDefaults()

	// Reading one byte past the cap distinguishes an oversized file from one
	// that is exactly at the limit.
	counted := &countingReader{r: io.LimitReader(r, limits.MaxBytes+1)}
	reader := csv.NewReader(counted)
	reader.FieldsPerRecord = -1 // short rows are per-row errors, not a batch failure
	reader.TrimLeadingSpace = true

	var (
		result Result
		line   int
	)
	for {
		record, err := reader.Read()
		if counted.n > limits.MaxBytes {
			return Result{}, core.NewValidationError("file", fmt.Sprintf("exceeds %d byte limit", limits.MaxBytes))
		}
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, ParseError{Line: line, Message: err.Error()})
			continue
		}
		if line == 1 && looksLikeHeader(record) {
			continue
		}
		if len(result.Candidates)+1 > limits.MaxRows {
			return Result{}, core.NewValidationError("file", fmt.Sprintf("exceeds %d row limit", limits.MaxRows))
		}

		candidate, perr := parseRow(line, record)
		if perr != nil {
			result.Errors = append(result.Errors, *perr)
			continue
		}
		result.Candidates = append(result.Candidates, candidate)
	}
	return result, nil
}

// countingReader tracks how many raw bytes the CSV reader consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// looksLikeHeader reports whether the first cell reads like a header label.
func looksLikeHeader(record []string) bool {
	return len(record) > 0 && strings.Contains(strings.ToLower(record[0]), "date")
}

func parseRow(line int, record []string) (Candidate, *ParseError) {
	if len(record) < minFields {
		return Candidate{}, &ParseError{Line: line, Message: fmt.Sprintf("expected %d fields, got %d", minFields, len(record))}
	}

	t, err := time.Parse(usDateLayout, strings.TrimSpace(record[fieldDate]))
	if err != nil {
		return Candidate{}, &ParseError{Line: line, Message: fmt.Sprintf("invalid date %q", record[fieldDate])}
	}

	description := strings.TrimSpace(record[fieldDescription])
	if description == "" {
		return Candidate{}, &ParseError{Line: line, Message: "empty description"}
	}

	debit := parseMoneyField(record[fieldDebit])
	credit := parseMoneyField(record[fieldCredit])
	amount, needsReview := deriveAmount(debit, credit)

	return Candidate{
		Line:        line,
		Date:        core.DateOf(t),
		Description: description,
		Amount:      amount,
		Balance:     parseMoneyField(record[fieldBalance]),
		NeedsReview: needsReview,
	}, nil
}

// parseMoneyField reads a debit/credit/balance cell; blank or unparseable
// cells count as zero, matching how bank exports leave the unused column
// empty.
func parseMoneyField(s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// deriveAmount turns the separate debit/credit columns into one signed
// amount: a debit is money out (negative), a credit money in (positive).
// A row with both columns zero, or both populated, keeps a best-effort
// amount (credit wins when both are set) and is flagged for review
// instead of being rejected.
func deriveAmount(debit, credit decimal.Decimal) (decimal.Decimal, bool) {
	switch {
	case debit.IsPositive() && credit.IsZero():
		return debit.Neg(), false
	case credit.IsPositive() && debit.IsZero():
		return credit, false
	case debit.IsZero() && credit.IsZero():
		return decimal.Zero, true
	case credit.IsPositive():
		return credit, true
	default:
		return debit.Neg(), true
	}
}
