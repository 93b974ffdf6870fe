package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

const topSpendingLimit = 5

// AnalysisService is the aggregation engine behind the dashboard and
// the analysis charts. It owns no state besides the store; every call
// recomputes from the ledger.
type AnalysisService struct {
	store ledger.Store

	// Now is the clock used to resolve date ranges; tests override it.
	Now func() time.Time
}

func NewAnalysisService(store ledger.Store) *AnalysisService {
	return &AnalysisService{store: store, Now: time.Now}
}

// AccountSummaries returns every account of the user enriched with
// lifetime income/expense totals, the current balance and the top
// current-month expense categories. Accounts without transactions get
// zero totals.
func (s *AnalysisService) AccountSummaries(ctx context.Context, userID int64) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	totals, err := s.store.SumByTypeGroupedByAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum account totals: %w", err)
	}

	now := s.Now()
	for i := range accounts {
		t := totals[accounts[i].ID]
		accounts[i].TotalIncome = core.Money{Cents: t.IncomeCents}
		accounts[i].TotalExpense = core.Money{Cents: t.ExpenseCents}
		accounts[i].CurrentBalance = core.Money{
			Cents: accounts[i].InitialBalance.Cents + t.IncomeCents - t.ExpenseCents,
		}

		top, err := s.store.TopExpenseCategoriesForAccount(ctx, accounts[i].ID, now, topSpendingLimit)
		if err != nil {
			return nil, fmt.Errorf("top spending for account %d: %w", accounts[i].ID, err)
		}
		for _, ct := range top {
			accounts[i].TopSpending = append(accounts[i].TopSpending, core.CategorySpending{
				Name:  ct.Name,
				Total: core.Money{Cents: ct.TotalCents},
			})
		}
	}
	return accounts, nil
}

// DashboardKPIs computes the three headline figures: total balance
// across all accounts, current-month spending and current-month cash
// flow (income minus expense). A user without accounts gets all zeros.
func (s *AnalysisService) DashboardKPIs(ctx context.Context, userID int64) (core.KPIs, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return core.KPIs{}, fmt.Errorf("list accounts: %w", err)
	}

	totals, err := s.store.SumByTypeGroupedByAccount(ctx, userID)
	if err != nil {
		return core.KPIs{}, fmt.Errorf("sum account totals: %w", err)
	}

	var totalBalance int64
	for _, a := range accounts {
		t := totals[a.ID]
		totalBalance += a.InitialBalance.Cents + t.IncomeCents - t.ExpenseCents
	}

	month, err := s.store.SumByTypeForCurrentMonth(ctx, userID, s.Now())
	if err != nil {
		return core.KPIs{}, fmt.Errorf("sum current month: %w", err)
	}

	return core.KPIs{
		TotalBalance:    core.Money{Cents: totalBalance},
		MonthlySpending: core.Money{Cents: month.ExpenseCents},
		MonthlyCashFlow: core.Money{Cents: month.IncomeCents - month.ExpenseCents},
	}, nil
}

// CashFlowTrend buckets income and expense by day (last30days) or by
// month. Periods without transactions are absent from the result.
func (s *AnalysisService) CashFlowTrend(ctx context.Context, userID int64, scope ledger.Scope, r core.DateRange) ([]core.CashFlowPoint, error) {
	since := r.Cutoff(s.Now())
	buckets, err := s.store.SumGroupedByPeriod(ctx, userID, scope, since, r.Granularity())
	if err != nil {
		return nil, fmt.Errorf("sum grouped by period: %w", err)
	}

	points := make([]core.CashFlowPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, core.CashFlowPoint{
			Period:  b.Period,
			Income:  core.Money{Cents: b.IncomeCents},
			Expense: core.Money{Cents: b.ExpenseCents},
		})
	}
	return points, nil
}

// SpendingByCategory totals categorized expenses in the range, largest
// first. Uncategorized expenses are excluded.
func (s *AnalysisService) SpendingByCategory(ctx context.Context, userID int64, scope ledger.Scope, r core.DateRange) ([]core.CategorySpending, error) {
	since := r.Cutoff(s.Now())
	totals, err := s.store.SumExpenseGroupedByCategory(ctx, userID, scope, since)
	if err != nil {
		return nil, fmt.Errorf("sum expense by category: %w", err)
	}

	spending := make([]core.CategorySpending, 0, len(totals))
	for _, ct := range totals {
		spending = append(spending, core.CategorySpending{
			Name:  ct.Name,
			Total: core.Money{Cents: ct.TotalCents},
		})
	}
	return spending, nil
}

// BalanceTrend walks the window day by day: the starting balance is
// the sum of initial balances plus the signed net of everything before
// the window, then each day adds that day's net change. Transfers never
// move the balance. Returns one point per calendar day, inclusive.
func (s *AnalysisService) BalanceTrend(ctx context.Context, userID int64, scope ledger.Scope, r core.DateRange) ([]core.DailyBalance, error) {
	start, end := r.Window(s.Now())

	var starting int64
	var changes map[string]int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		initial, err := s.store.SumInitialBalances(gctx, userID, scope)
		if err != nil {
			return fmt.Errorf("sum initial balances: %w", err)
		}
		before, err := s.store.SumSignedNetBefore(gctx, userID, scope, start)
		if err != nil {
			return fmt.Errorf("sum net before window: %w", err)
		}
		starting = initial + before
		return nil
	})
	g.Go(func() error {
		var err error
		changes, err = s.store.SumSignedNetByDay(gctx, userID, scope, start, end)
		if err != nil {
			return fmt.Errorf("sum net by day: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var trend []core.DailyBalance
	balance := starting
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		balance += changes[day.Format("2006-01-02")]
		trend = append(trend, core.DailyBalance{Date: day, Balance: core.Money{Cents: balance}})
	}
	return trend, nil
}

// TransactionsForAnalysis lists the scoped transactions inside the
// range, newest first.
func (s *AnalysisService) TransactionsForAnalysis(ctx context.Context, userID int64, scope ledger.Scope, r core.DateRange) ([]core.Transaction, error) {
	since := r.Cutoff(s.Now())
	txs, err := s.store.ListTransactionsSince(ctx, userID, scope, since)
	if err != nil {
		return nil, fmt.Errorf("list transactions since: %w", err)
	}
	return txs, nil
}
