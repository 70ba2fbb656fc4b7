// Package export renders query results into delimited text for download.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"bookkeeper/internal/core"
)

// transactionRow is the flat CSV shape of a listed transaction.
type transactionRow struct {
	Date           string `csv:"date"`
	Description    string `csv:"description"`
	Amount         string `csv:"amount"`
	Category       string `csv:"category"`
	Account        string `csv:"account"`
	RunningBalance string `csv:"running_balance"`
}

// summaryRow is the flat CSV shape of a category summary.
type summaryRow struct {
	Category string `csv:"category"`
	Parent   string `csv:"parent"`
	Count    int    `csv:"count"`
	Total    string `csv:"total"`
}

// WriteTransactionsCSV streams the listed transactions as CSV.
func WriteTransactionsCSV(w io.Writer, items []core.ListedTransaction) error {
	rows := make([]transactionRow, len(items))
	for i, t := range items {
		rows[i] = transactionRow{
			Date:           t.Date.String(),
			Description:    t.Description,
			Amount:         t.Amount.StringFixed(2),
			Category:       t.CategoryName,
			Account:        t.AccountName,
			RunningBalance: t.RunningBalance.StringFixed(2),
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write transactions csv: %w", err)
	}
	return nil
}

// WriteCategorySummariesCSV streams the category summaries as CSV.
func WriteCategorySummariesCSV(w io.Writer, summaries []core.CategorySummary) error {
	rows := make([]summaryRow, len(summaries))
	for i, s := range summaries {
		rows[i] = summaryRow{
			Category: s.CategoryName,
			Parent:   s.ParentName,
			Count:    s.Count,
			Total:    s.Total.StringFixed(2),
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write category summaries csv: %w", err)
	}
	return nil
}
