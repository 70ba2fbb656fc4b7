package services

import (
	"context"

	"bookkeeper/internal/core"
	"bookkeeper/internal/storage"
)

// ReportService answers the read side: filtered transaction pages with
// running balances, totals, category summaries and monthly trends. It never
// mutates, so it carries no notifier.
type ReportService struct {
	repo *storage.SQLiteRepository
}

func NewReportService(repo *storage.SQLiteRepository) *ReportService {
	return &ReportService{repo: repo}
}

// ListTransactions returns one page of the filtered ledger, each row carrying
// its account's running balance as of that row.
func (s *ReportService) ListTransactions(ctx context.Context, owner string, f core.TransactionFilter, p core.PageRequest) (core.TransactionPage, error) {
	return s.repo.ListTransactions(ctx, owner, f, p)
}

// Totals aggregates income, expenses and count over the filtered set.
func (s *ReportService) Totals(ctx context.Context, owner string, f core.TransactionFilter) (core.Totals, error) {
	return s.repo.Totals(ctx, owner, f)
}

// CategorySummaries aggregates the filtered set per category.
func (s *ReportService) CategorySummaries(ctx context.Context, owner string, f core.TransactionFilter) ([]core.CategorySummary, error) {
	return s.repo.CategorySummaries(ctx, owner, f)
}

// MonthlyTrend buckets income and expenses per month, inclusive of empty
// months, between start and end.
func (s *ReportService) MonthlyTrend(ctx context.Context, owner string, start, end core.Date) ([]core.MonthBucket, error) {
	if start.IsZero() || end.IsZero() {
		return nil, core.NewValidationError("range", "start and end dates are required")
	}
	if end.Before(start.Time) {
		return nil, core.NewValidationError("range", "end date must not precede start date")
	}
	return s.repo.MonthlyTrend(ctx, owner, start, end)
}
