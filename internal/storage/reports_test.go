package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

// seedLedger inserts two accounts, a small category tree and a handful of
// transactions shared by the report tests.
func seedLedger(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	mustCreateAccount(t, repo, "acc-chk", "Checking")
	mustCreateAccount(t, repo, "acc-sav", "Savings")

	mustCreateCategory(t, repo, "cat-inc", "Income", "")
	mustCreateCategory(t, repo, "cat-exp", "Expenses", "")
	mustCreateCategory(t, repo, "cat-rent", "Rent", "cat-exp")
	mustCreateCategory(t, repo, "cat-util", "Utilities", "cat-exp")

	mustInsertTx(t, repo, "tx-1", "acc-chk", "2025-01-05", "2000.00", "cat-inc")
	mustInsertTx(t, repo, "tx-2", "acc-chk", "2025-01-10", "-800.00", "cat-rent")
	mustInsertTx(t, repo, "tx-3", "acc-chk", "2025-01-10", "-120.50", "cat-util")
	mustInsertTx(t, repo, "tx-4", "acc-chk", "2025-03-02", "-55.00", "cat-util")
	mustInsertTx(t, repo, "tx-5", "acc-sav", "2025-01-15", "500.00", "cat-inc")
}

func TestListTransactionsRunningBalance(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	page, err := repo.ListTransactions(context.Background(), testOwner,
		core.TransactionFilter{AccountIDs: []string{"acc-chk"}}, core.PageRequest{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("Total = %d, want 4", page.Total)
	}

	want := []struct {
		id      string
		running string
	}{
		{"tx-1", "2000"},
		{"tx-2", "1200"},
		{"tx-3", "1079.5"},
		{"tx-4", "1024.5"},
	}
	if len(page.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(page.Items), len(want))
	}
	for i, w := range want {
		item := page.Items[i]
		if item.ID != w.id {
			t.Errorf("item %d = %s, want %s", i, item.ID, w.id)
		}
		if !item.RunningBalance.Equal(decimal.RequireFromString(w.running)) {
			t.Errorf("%s running balance = %s, want %s", item.ID, item.RunningBalance, w.running)
		}
	}
}

// The running balance is a prefix sum over the account's whole history, so a
// filter that hides earlier rows must not change the balances of the rows it
// does return.
func TestRunningBalanceIgnoresFilter(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	from := mustDate(t, "2025-03-01")
	page, err := repo.ListTransactions(context.Background(), testOwner,
		core.TransactionFilter{AccountIDs: []string{"acc-chk"}, From: from}, core.PageRequest{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "tx-4" {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if got := page.Items[0].RunningBalance; !got.Equal(decimal.RequireFromString("1024.5")) {
		t.Errorf("running balance = %s, want 1024.5", got)
	}
}

// Two rows on the same date must keep insertion order, in the list and in the
// running balance, every time they are read.
func TestSameDateOrderIsInsertionOrder(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	for i := 0; i < 3; i++ {
		page, err := repo.ListTransactions(context.Background(), testOwner,
			core.TransactionFilter{AccountIDs: []string{"acc-chk"}}, core.PageRequest{})
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if page.Items[1].ID != "tx-2" || page.Items[2].ID != "tx-3" {
			t.Fatalf("pass %d: same-date order changed: %s, %s", i, page.Items[1].ID, page.Items[2].ID)
		}
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)
	ctx := context.Background()

	min := decimal.RequireFromString("-200.00")
	max := decimal.RequireFromString("-50.00")

	tests := []struct {
		name    string
		filter  core.TransactionFilter
		wantIDs []string
	}{
		{
			name:    "by category",
			filter:  core.TransactionFilter{CategoryIDs: []string{"cat-util"}},
			wantIDs: []string{"tx-3", "tx-4"},
		},
		{
			name: "by date range",
			filter: core.TransactionFilter{
				From: mustDate(t, "2025-01-10"),
				To:   mustDate(t, "2025-01-31"),
			},
			wantIDs: []string{"tx-2", "tx-3", "tx-5"},
		},
		{
			name:    "by amount range",
			filter:  core.TransactionFilter{MinAmount: &min, MaxAmount: &max},
			wantIDs: []string{"tx-3", "tx-4"},
		},
		{
			name:    "by description substring",
			filter:  core.TransactionFilter{Description: "TX TX-5"},
			wantIDs: []string{"tx-5"},
		},
		{
			name:    "no match",
			filter:  core.TransactionFilter{Description: "zzz"},
			wantIDs: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.ListTransactions(ctx, testOwner, tt.filter, core.PageRequest{})
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			var got []string
			for _, item := range page.Items {
				got = append(got, item.ID)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("got %v, want %v", got, tt.wantIDs)
					break
				}
			}
		})
	}
}

func TestListTransactionsPagination(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	page, err := repo.ListTransactions(context.Background(), testOwner,
		core.TransactionFilter{}, core.PageRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if len(page.Items) != 2 {
		t.Errorf("page 2 has %d items, want 2", len(page.Items))
	}
	if page.Page != 2 || page.PageSize != 2 {
		t.Errorf("page metadata = %d/%d", page.Page, page.PageSize)
	}
}

func TestListTransactionsSortByAmount(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	page, err := repo.ListTransactions(context.Background(), testOwner,
		core.TransactionFilter{AccountIDs: []string{"acc-chk"}},
		core.PageRequest{Sort: core.SortByAmount, Direction: core.SortDesc})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if page.Items[0].ID != "tx-1" {
		t.Errorf("largest amount first, got %s", page.Items[0].ID)
	}
	if page.Items[len(page.Items)-1].ID != "tx-2" {
		t.Errorf("most negative last, got %s", page.Items[len(page.Items)-1].ID)
	}
}

func TestTotals(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	totals, err := repo.Totals(context.Background(), testOwner, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if !totals.Income.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("Income = %s, want 2500", totals.Income)
	}
	if !totals.Expenses.Equal(decimal.RequireFromString("-975.5")) {
		t.Errorf("Expenses = %s, want -975.5", totals.Expenses)
	}
	if !totals.Total.Equal(decimal.RequireFromString("1524.5")) {
		t.Errorf("Total = %s, want 1524.5", totals.Total)
	}
	if totals.Count != 5 {
		t.Errorf("Count = %d, want 5", totals.Count)
	}
}

func TestCategorySummaries(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	summaries, err := repo.CategorySummaries(context.Background(), testOwner, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("CategorySummaries: %v", err)
	}

	byID := map[string]core.CategorySummary{}
	for _, s := range summaries {
		byID[s.CategoryID] = s
	}
	if len(byID) != 3 {
		t.Fatalf("got %d summaries, want 3", len(byID))
	}

	util := byID["cat-util"]
	if !util.Total.Equal(decimal.RequireFromString("-175.5")) {
		t.Errorf("Utilities total = %s, want -175.5", util.Total)
	}
	if util.Count != 2 {
		t.Errorf("Utilities count = %d, want 2", util.Count)
	}
	if util.ParentName != "Expenses" {
		t.Errorf("Utilities parent = %q, want Expenses", util.ParentName)
	}

	if inc := byID["cat-inc"]; inc.ParentName != "" {
		t.Errorf("root category parent = %q, want empty", inc.ParentName)
	}
}

func TestMonthlyTrendFillsEmptyMonths(t *testing.T) {
	repo := newTestRepo(t)
	seedLedger(t, repo)

	trend, err := repo.MonthlyTrend(context.Background(), testOwner,
		mustDate(t, "2025-01-01"), mustDate(t, "2025-03-31"))
	if err != nil {
		t.Fatalf("MonthlyTrend: %v", err)
	}
	if len(trend) != 3 {
		t.Fatalf("got %d buckets, want 3", len(trend))
	}

	if trend[0].Month != "2025-01" || trend[1].Month != "2025-02" || trend[2].Month != "2025-03" {
		t.Fatalf("months = %s, %s, %s", trend[0].Month, trend[1].Month, trend[2].Month)
	}
	if !trend[0].Income.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("January income = %s, want 2500", trend[0].Income)
	}
	// February has no activity but still appears.
	if !trend[1].Income.IsZero() || !trend[1].Expenses.IsZero() {
		t.Errorf("February not zero: income=%s expenses=%s", trend[1].Income, trend[1].Expenses)
	}
	if !trend[2].Expenses.Equal(decimal.RequireFromString("-55")) {
		t.Errorf("March expenses = %s, want -55", trend[2].Expenses)
	}
}
