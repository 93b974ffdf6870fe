package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// signedNetCase maps Income to +amount, Expense to -amount and anything
// else (Transfers) to zero.
const signedNetCase = `CASE WHEN t.transaction_type = 'Income' THEN t.amount_cents
	WHEN t.transaction_type = 'Expense' THEN -t.amount_cents ELSE 0 END`

// scopeClause appends the currency and optional account-subset filters
// shared by every analysis query. The accounts table must be joined
// with alias "a".
func scopeClause(sb *strings.Builder, args []any, scope ledger.Scope) []any {
	sb.WriteString(`AND a.currency = ? `)
	args = append(args, scope.Currency)
	if len(scope.AccountIDs) > 0 {
		sb.WriteString(`AND t.account_id IN (` + placeholders(len(scope.AccountIDs)) + `) `)
		for _, id := range scope.AccountIDs {
			args = append(args, id)
		}
	}
	return args
}

func (r *SQLiteRepository) SumByTypeGroupedByAccount(ctx context.Context, userID int64) (map[int64]ledger.TypeTotals, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, transaction_type, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ? AND transaction_type IN ('Income', 'Expense')
		 GROUP BY account_id, transaction_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("sum by type grouped by account: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]ledger.TypeTotals)
	for rows.Next() {
		var accountID int64
		var txType core.TransactionType
		var total int64
		if err := rows.Scan(&accountID, &txType, &total); err != nil {
			return nil, fmt.Errorf("scan account totals: %w", err)
		}
		t := totals[accountID]
		switch txType {
		case core.Income:
			t.IncomeCents = total
		case core.Expense:
			t.ExpenseCents = total
		}
		totals[accountID] = t
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) SumByTypeForCurrentMonth(ctx context.Context, userID int64, now time.Time) (ledger.TypeTotals, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT transaction_type, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ? AND strftime('%Y-%m', transaction_date) = ?
		 GROUP BY transaction_type`, userID, now.UTC().Format("2006-01"))
	if err != nil {
		return ledger.TypeTotals{}, fmt.Errorf("sum by type for current month: %w", err)
	}
	defer rows.Close()

	var totals ledger.TypeTotals
	for rows.Next() {
		var txType core.TransactionType
		var total int64
		if err := rows.Scan(&txType, &total); err != nil {
			return ledger.TypeTotals{}, fmt.Errorf("scan monthly totals: %w", err)
		}
		switch txType {
		case core.Income:
			totals.IncomeCents = total
		case core.Expense:
			totals.ExpenseCents = total
		}
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) SumGroupedByPeriod(ctx context.Context, userID int64, scope ledger.Scope, since time.Time, g core.Granularity) ([]ledger.PeriodTotals, error) {
	format := "%Y-%m"
	if g == core.GranularityDaily {
		format = "%Y-%m-%d"
	}

	var sb strings.Builder
	sb.WriteString(`SELECT strftime('` + format + `', t.transaction_date) AS period,
		SUM(CASE WHEN t.transaction_type = 'Income' THEN t.amount_cents ELSE 0 END),
		SUM(CASE WHEN t.transaction_type = 'Expense' THEN t.amount_cents ELSE 0 END)
		FROM transactions t
		JOIN accounts a ON t.account_id = a.id
		WHERE t.user_id = ? AND t.transaction_date >= ? `)
	args := []any{userID, since.UTC().Format(dateTimeLayout)}
	args = scopeClause(&sb, args, scope)
	sb.WriteString(`GROUP BY period ORDER BY period ASC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sum grouped by period: %w", err)
	}
	defer rows.Close()

	var buckets []ledger.PeriodTotals
	for rows.Next() {
		var b ledger.PeriodTotals
		if err := rows.Scan(&b.Period, &b.IncomeCents, &b.ExpenseCents); err != nil {
			return nil, fmt.Errorf("scan period totals: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *SQLiteRepository) SumExpenseGroupedByCategory(ctx context.Context, userID int64, scope ledger.Scope, since time.Time) ([]ledger.CategoryTotal, error) {
	var sb strings.Builder
	// Inner join: uncategorized expenses drop out on purpose.
	sb.WriteString(`SELECT c.name, SUM(t.amount_cents) AS total_amount
		FROM transactions t
		JOIN categories c ON t.category_id = c.id
		JOIN accounts a ON t.account_id = a.id
		WHERE t.user_id = ? AND t.transaction_type = 'Expense' AND t.transaction_date >= ? `)
	args := []any{userID, since.UTC().Format(dateTimeLayout)}
	args = scopeClause(&sb, args, scope)
	sb.WriteString(`GROUP BY c.name ORDER BY total_amount DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sum expense grouped by category: %w", err)
	}
	defer rows.Close()

	var totals []ledger.CategoryTotal
	for rows.Next() {
		var ct ledger.CategoryTotal
		if err := rows.Scan(&ct.Name, &ct.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) TopExpenseCategoriesForAccount(ctx context.Context, accountID int64, now time.Time, limit int) ([]ledger.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, SUM(t.amount_cents) AS total_amount
		 FROM transactions t
		 JOIN categories c ON t.category_id = c.id
		 WHERE t.account_id = ? AND t.transaction_type = 'Expense'
		   AND strftime('%Y-%m', t.transaction_date) = ?
		 GROUP BY c.name ORDER BY total_amount DESC LIMIT ?`,
		accountID, now.UTC().Format("2006-01"), limit)
	if err != nil {
		return nil, fmt.Errorf("top expense categories for account: %w", err)
	}
	defer rows.Close()

	var totals []ledger.CategoryTotal
	for rows.Next() {
		var ct ledger.CategoryTotal
		if err := rows.Scan(&ct.Name, &ct.TotalCents); err != nil {
			return nil, fmt.Errorf("scan top category: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) SumInitialBalances(ctx context.Context, userID int64, scope ledger.Scope) (int64, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT COALESCE(SUM(initial_balance_cents), 0) FROM accounts
		WHERE user_id = ? AND currency = ? `)
	args := []any{userID, scope.Currency}
	if len(scope.AccountIDs) > 0 {
		sb.WriteString(`AND id IN (` + placeholders(len(scope.AccountIDs)) + `) `)
		for _, id := range scope.AccountIDs {
			args = append(args, id)
		}
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum initial balances: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) SumSignedNetBefore(ctx context.Context, userID int64, scope ledger.Scope, before time.Time) (int64, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT COALESCE(SUM(` + signedNetCase + `), 0)
		FROM transactions t
		JOIN accounts a ON t.account_id = a.id
		WHERE t.user_id = ? AND t.transaction_date < ? `)
	args := []any{userID, before.UTC().Format(dateTimeLayout)}
	args = scopeClause(&sb, args, scope)

	var total int64
	if err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum signed net before: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) SumSignedNetByDay(ctx context.Context, userID int64, scope ledger.Scope, start, end time.Time) (map[string]int64, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT date(t.transaction_date) AS day, SUM(` + signedNetCase + `) AS net_change
		FROM transactions t
		JOIN accounts a ON t.account_id = a.id
		WHERE t.user_id = ? AND t.transaction_date >= ? AND t.transaction_date < ? `)
	// end is an inclusive calendar day, so the bound is the next midnight
	args := []any{userID, start.UTC().Format(dateTimeLayout), end.AddDate(0, 0, 1).UTC().Format(dateTimeLayout)}
	args = scopeClause(&sb, args, scope)
	sb.WriteString(`GROUP BY day ORDER BY day ASC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sum signed net by day: %w", err)
	}
	defer rows.Close()

	changes := make(map[string]int64)
	for rows.Next() {
		var day string
		var net int64
		if err := rows.Scan(&day, &net); err != nil {
			return nil, fmt.Errorf("scan daily net: %w", err)
		}
		changes[day] = net
	}
	return changes, rows.Err()
}
