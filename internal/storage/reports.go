package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookkeeper/internal/core"
)

// filterClause renders a TransactionFilter as " AND ..." conditions against
// an aliased transactions table t, appending bind args in order.
func filterClause(f core.TransactionFilter, args *[]any) string {
	var b strings.Builder

	if len(f.AccountIDs) > 0 {
		b.WriteString(" AND t.account_id IN (" + placeholders(len(f.AccountIDs)) + ")")
		for _, id := range f.AccountIDs {
			*args = append(*args, id)
		}
	}
	if len(f.CategoryIDs) > 0 {
		b.WriteString(" AND t.category_id IN (" + placeholders(len(f.CategoryIDs)) + ")")
		for _, id := range f.CategoryIDs {
			*args = append(*args, id)
		}
	}
	if !f.From.IsZero() {
		b.WriteString(" AND t.tx_date >= ?")
		*args = append(*args, f.From.String())
	}
	if !f.To.IsZero() {
		b.WriteString(" AND t.tx_date <= ?")
		*args = append(*args, f.To.String())
	}
	if f.MinAmount != nil {
		b.WriteString(" AND t.amount_cents >= ?")
		*args = append(*args, core.Cents(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		b.WriteString(" AND t.amount_cents <= ?")
		*args = append(*args, core.Cents(*f.MaxAmount))
	}
	if s := strings.TrimSpace(f.Description); s != "" {
		b.WriteString(" AND instr(lower(t.description), lower(?)) > 0")
		*args = append(*args, s)
	}
	return b.String()
}

func sortExpr(p core.PageRequest) string {
	var col string
	switch p.Sort {
	case core.SortByAmount:
		col = "t.amount_cents"
	case core.SortByCategory:
		col = "c.name"
	case core.SortByAccount:
		col = "a.display_name"
	default:
		col = "t.tx_date"
	}
	dir := "ASC"
	if p.Direction == core.SortDesc {
		dir = "DESC"
	}
	// seq tiebreak keeps repeated calls byte-for-byte identical.
	return col + " " + dir + ", t.seq ASC"
}

// ListTransactions returns one page of the filtered, sorted transaction list.
// The running balance attached to each row is a window-function prefix sum
// over the account's complete history, so it is correct regardless of which
// rows the filter happens to select.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string, f core.TransactionFilter, p core.PageRequest) (core.TransactionPage, error) {
	p = p.Normalize()
	page := core.TransactionPage{Page: p.Page, PageSize: p.PageSize}

	countArgs := []any{owner}
	countWhere := filterClause(f, &countArgs)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions t WHERE t.owner = ?`+countWhere,
		countArgs...).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count transactions: %w", err)
	}

	args := []any{owner}
	where := filterClause(f, &args)
	args = append(args, p.PageSize, p.Offset())

	query := `
		SELECT t.seq, t.id, t.owner, t.account_id, t.tx_date, t.amount_cents, t.description,
		       t.category_id, t.counterpart_account_id, t.transfer_pair_id,
		       t.running_cents, c.name, a.display_name
		FROM (
			SELECT tr.*, SUM(tr.amount_cents) OVER (
				PARTITION BY tr.account_id ORDER BY tr.tx_date, tr.seq
			) AS running_cents
			FROM transactions tr
			WHERE tr.owner = ?
		) t
		JOIN categories c ON c.id = t.category_id
		JOIN accounts a ON a.id = t.account_id
		WHERE 1 = 1` + where + `
		ORDER BY ` + sortExpr(p) + `
		LIMIT ? OFFSET ?`

	// The owner placeholder binds inside the subquery, so it must lead.
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return page, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lt           core.ListedTransaction
			dateStr      string
			amountCents  int64
			counterpart  sql.NullString
			pairID       sql.NullString
			runningCents int64
		)
		err := rows.Scan(&lt.Seq, &lt.ID, &lt.Owner, &lt.AccountID, &dateStr, &amountCents,
			&lt.Description, &lt.CategoryID, &counterpart, &pairID,
			&runningCents, &lt.CategoryName, &lt.AccountName)
		if err != nil {
			return page, fmt.Errorf("scan listed transaction: %w", err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return page, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		lt.Date = date
		lt.Amount = core.AmountFromCents(amountCents)
		lt.CounterpartAccountID = counterpart.String
		lt.TransferPairID = pairID.String
		lt.RunningBalance = core.AmountFromCents(runningCents)
		page.Items = append(page.Items, lt)
	}
	return page, rows.Err()
}

// Totals aggregates income, expenses and count over the filtered set.
func (r *SQLiteRepository) Totals(ctx context.Context, owner string, f core.TransactionFilter) (core.Totals, error) {
	args := []any{owner}
	where := filterClause(f, &args)

	var incomeCents, expenseCents int64
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN t.amount_cents > 0 THEN t.amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN t.amount_cents < 0 THEN t.amount_cents ELSE 0 END), 0),
		       COUNT(*)
		FROM transactions t WHERE t.owner = ?`+where,
		args...).Scan(&incomeCents, &expenseCents, &count)
	if err != nil {
		return core.Totals{}, fmt.Errorf("totals: %w", err)
	}
	return core.Totals{
		Total:    core.AmountFromCents(incomeCents + expenseCents),
		Income:   core.AmountFromCents(incomeCents),
		Expenses: core.AmountFromCents(expenseCents),
		Count:    count,
	}, nil
}

// CategorySummaries returns one row per distinct category in the filtered
// set, annotated with the parent category name.
func (r *SQLiteRepository) CategorySummaries(ctx context.Context, owner string, f core.TransactionFilter) ([]core.CategorySummary, error) {
	args := []any{owner}
	where := filterClause(f, &args)

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.category_id, c.name, COALESCE(p.name, ''), SUM(t.amount_cents), COUNT(*)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		LEFT JOIN categories p ON p.id = c.parent_id
		WHERE t.owner = ?`+where+`
		GROUP BY t.category_id, c.name, p.name
		ORDER BY c.name, t.category_id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("category summaries: %w", err)
	}
	defer rows.Close()

	var out []core.CategorySummary
	for rows.Next() {
		var s core.CategorySummary
		var totalCents int64
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.ParentName, &totalCents, &s.Count); err != nil {
			return nil, fmt.Errorf("scan category summary: %w", err)
		}
		s.Total = core.AmountFromCents(totalCents)
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthlyTrend buckets income and expenses per calendar month between start
// and end inclusive. Months without activity appear with zero values.
func (r *SQLiteRepository) MonthlyTrend(ctx context.Context, owner string, start, end core.Date) ([]core.MonthBucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(tx_date, 1, 7) AS month,
		       COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN amount_cents < 0 THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE owner = ? AND tx_date >= ? AND tx_date <= ?
		GROUP BY month`,
		owner, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	defer rows.Close()

	type sums struct{ income, expenses int64 }
	byMonth := map[string]sums{}
	for rows.Next() {
		var month string
		var s sums
		if err := rows.Scan(&month, &s.income, &s.expenses); err != nil {
			return nil, fmt.Errorf("scan month bucket: %w", err)
		}
		byMonth[month] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []core.MonthBucket
	for m := core.NewDate(start.Year(), int(start.Month()), 1); !m.After(end.Time); m = m.NextMonth() {
		s := byMonth[m.MonthKey()]
		out = append(out, core.MonthBucket{
			Month:    m.MonthKey(),
			Income:   core.AmountFromCents(s.income),
			Expenses: core.AmountFromCents(s.expenses),
		})
	}
	return out, nil
}
