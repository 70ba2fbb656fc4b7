package core

import "github.com/shopspring/decimal"

// Sort fields accepted by the transaction list.
const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
	SortByAccount  SortField = "account"

	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type (
	SortField     string
	SortDirection string

	// TransactionFilter narrows a transaction query. Zero values mean "no
	// constraint". Date and amount ranges are inclusive; Description is a
	// case-insensitive substring match.
	TransactionFilter struct {
		AccountIDs  []string
		CategoryIDs []string
		From        Date
		To          Date
		MinAmount   *decimal.Decimal
		MaxAmount   *decimal.Decimal
		Description string
	}

	// PageRequest selects a page of a sorted transaction list.
	PageRequest struct {
		Page      int
		PageSize  int
		Sort      SortField
		Direction SortDirection
	}

	// ListedTransaction is a transaction enriched for display: category and
	// account names, and the account's running balance as of this row.
	ListedTransaction struct {
		Transaction
		CategoryName   string          `json:"categoryName"`
		AccountName    string          `json:"accountName"`
		RunningBalance decimal.Decimal `json:"runningBalance"`
	}

	// TransactionPage is one page of filtered results plus the total match
	// count across all pages.
	TransactionPage struct {
		Items    []ListedTransaction `json:"items"`
		Total    int                 `json:"total"`
		Page     int                 `json:"page"`
		PageSize int                 `json:"pageSize"`
	}

	// Totals aggregates the filtered set: income is the sum of positive
	// amounts, expenses the sum of negative ones, total their sum.
	Totals struct {
		Total    decimal.Decimal `json:"total"`
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		Count    int             `json:"count"`
	}

	// CategorySummary is the per-category aggregate of the filtered set,
	// annotated with the parent category name for display grouping.
	CategorySummary struct {
		CategoryID   string          `json:"categoryId"`
		CategoryName string          `json:"categoryName"`
		ParentName   string          `json:"parentName,omitempty"`
		Total        decimal.Decimal `json:"total"`
		Count        int             `json:"count"`
	}

	// MonthBucket is one calendar month of the trend report. Months with no
	// activity are present with zero values.
	MonthBucket struct {
		Month    string          `json:"month"` // YYYY-MM
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
	}
)

// Normalize clamps the page request to sane defaults.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 500 {
		p.PageSize = 50
	}
	switch p.Sort {
	case SortByDate, SortByAmount, SortByCategory, SortByAccount:
	default:
		p.Sort = SortByDate
	}
	if p.Direction != SortDesc {
		p.Direction = SortAsc
	}
	return p
}

// Offset returns the row offset of the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}
