package services

import (
	"context"
	"testing"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/memstore"
)

var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func newTestAnalysis(t *testing.T) (*AnalysisService, *memstore.Store, int64) {
	t.Helper()
	store := memstore.New()
	svc := NewAnalysisService(store)
	svc.Now = func() time.Time { return testNow }

	user, err := store.CreateLocalUser(context.Background(), "test@example.com", "temp1234")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return svc, store, user.ID
}

func mustAccount(t *testing.T, store *memstore.Store, userID int64, name, currency string, initialCents int64) int64 {
	t.Helper()
	id, err := store.CreateAccount(context.Background(), core.Account{
		UserID:         userID,
		Name:           name,
		Currency:       currency,
		InitialBalance: core.Money{Cents: initialCents},
	})
	if err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
	return id
}

func mustCategory(t *testing.T, store *memstore.Store, userID int64, name string) int64 {
	t.Helper()
	id, err := store.CreateCategory(context.Background(), core.Category{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return id
}

func mustTx(t *testing.T, store *memstore.Store, userID, accountID int64, txType core.TransactionType, cents int64, date time.Time, categoryID *int64) {
	t.Helper()
	tx := core.Transaction{
		UserID:     userID,
		Type:       txType,
		Amount:     core.Money{Cents: cents},
		Date:       date,
		AccountID:  accountID,
		CategoryID: categoryID,
	}
	if txType == core.Transfer {
		dest := accountID + 1
		tx.ToAccountID = &dest
	}
	if _, err := store.AddTransaction(context.Background(), tx); err != nil {
		t.Fatalf("add transaction: %v", err)
	}
}

func TestDashboardKPIs_NoAccounts(t *testing.T) {
	svc, _, userID := newTestAnalysis(t)

	kpis, err := svc.DashboardKPIs(context.Background(), userID)
	if err != nil {
		t.Fatalf("DashboardKPIs: %v", err)
	}
	if kpis.TotalBalance.Cents != 0 || kpis.MonthlySpending.Cents != 0 || kpis.MonthlyCashFlow.Cents != 0 {
		t.Errorf("expected all-zero KPIs, got %+v", kpis)
	}
}

func TestDashboardKPIs(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 10000)
	savings := mustAccount(t, store, userID, "Savings", "EUR", 50000)

	// Current month
	mustTx(t, store, userID, checking, core.Income, 200000, testNow.AddDate(0, 0, -1), nil)
	mustTx(t, store, userID, checking, core.Expense, 50000, testNow.AddDate(0, 0, -2), nil)
	// Previous month: counts for balance, not for monthly figures
	mustTx(t, store, userID, savings, core.Expense, 10000, testNow.AddDate(0, -1, 0), nil)
	// Transfers never move any figure
	mustTx(t, store, userID, checking, core.Transfer, 99999, testNow.AddDate(0, 0, -1), nil)

	kpis, err := svc.DashboardKPIs(context.Background(), userID)
	if err != nil {
		t.Fatalf("DashboardKPIs: %v", err)
	}

	wantBalance := int64(10000 + 200000 - 50000 + 50000 - 10000)
	if kpis.TotalBalance.Cents != wantBalance {
		t.Errorf("TotalBalance = %d, want %d", kpis.TotalBalance.Cents, wantBalance)
	}
	if kpis.MonthlySpending.Cents != 50000 {
		t.Errorf("MonthlySpending = %d, want 50000", kpis.MonthlySpending.Cents)
	}
	if kpis.MonthlyCashFlow.Cents != 150000 {
		t.Errorf("MonthlyCashFlow = %d, want 150000", kpis.MonthlyCashFlow.Cents)
	}
}

func TestAccountSummaries(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 10000)
	mustAccount(t, store, userID, "Empty", "EUR", 2500)

	groceries := mustCategory(t, store, userID, "Groceries")
	rent := mustCategory(t, store, userID, "Rent")

	mustTx(t, store, userID, checking, core.Income, 300000, testNow.AddDate(0, 0, -3), nil)
	mustTx(t, store, userID, checking, core.Expense, 40000, testNow.AddDate(0, 0, -2), &groceries)
	mustTx(t, store, userID, checking, core.Expense, 90000, testNow.AddDate(0, 0, -1), &rent)
	// Last month's expense: counts in totals, not in top spending
	mustTx(t, store, userID, checking, core.Expense, 70000, testNow.AddDate(0, -1, 0), &groceries)

	summaries, err := svc.AccountSummaries(context.Background(), userID)
	if err != nil {
		t.Fatalf("AccountSummaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d accounts, want 2", len(summaries))
	}

	// Sorted by name: Checking, Empty
	c := summaries[0]
	if c.Name != "Checking" {
		t.Fatalf("first account = %s, want Checking", c.Name)
	}
	if c.TotalIncome.Cents != 300000 {
		t.Errorf("TotalIncome = %d, want 300000", c.TotalIncome.Cents)
	}
	if c.TotalExpense.Cents != 200000 {
		t.Errorf("TotalExpense = %d, want 200000", c.TotalExpense.Cents)
	}
	if want := int64(10000 + 300000 - 200000); c.CurrentBalance.Cents != want {
		t.Errorf("CurrentBalance = %d, want %d", c.CurrentBalance.Cents, want)
	}
	if len(c.TopSpending) != 2 {
		t.Fatalf("TopSpending has %d entries, want 2", len(c.TopSpending))
	}
	if c.TopSpending[0].Name != "Rent" || c.TopSpending[0].Total.Cents != 90000 {
		t.Errorf("top category = %+v, want Rent/90000", c.TopSpending[0])
	}

	empty := summaries[1]
	if empty.TotalIncome.Cents != 0 || empty.TotalExpense.Cents != 0 {
		t.Errorf("empty account totals = %+v, want zeros", empty)
	}
	if empty.CurrentBalance.Cents != 2500 {
		t.Errorf("empty account balance = %d, want initial 2500", empty.CurrentBalance.Cents)
	}
}

func TestCashFlowTrend(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 0)
	scope := ledger.Scope{Currency: "EUR"}

	mustTx(t, store, userID, checking, core.Income, 1000, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), nil)
	mustTx(t, store, userID, checking, core.Expense, 400, time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC), nil)
	mustTx(t, store, userID, checking, core.Income, 2000, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), nil)

	points, err := svc.CashFlowTrend(context.Background(), userID, scope, core.RangeLast6Months)
	if err != nil {
		t.Fatalf("CashFlowTrend: %v", err)
	}

	// April had no activity and must be absent
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(points), points)
	}
	if points[0].Period != "2024-03" || points[0].Income.Cents != 1000 || points[0].Expense.Cents != 400 {
		t.Errorf("first point = %+v", points[0])
	}
	if points[1].Period != "2024-05" || points[1].Income.Cents != 2000 {
		t.Errorf("second point = %+v", points[1])
	}
}

func TestCashFlowTrend_DailyBuckets(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 0)

	mustTx(t, store, userID, checking, core.Expense, 500, testNow.AddDate(0, 0, -1), nil)

	points, err := svc.CashFlowTrend(context.Background(), userID, ledger.Scope{Currency: "EUR"}, core.RangeLast30Days)
	if err != nil {
		t.Fatalf("CashFlowTrend: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if want := testNow.AddDate(0, 0, -1).Format("2006-01-02"); points[0].Period != want {
		t.Errorf("period = %s, want %s", points[0].Period, want)
	}
}

func TestSpendingByCategory(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 0)
	usd := mustAccount(t, store, userID, "Travel", "USD", 0)

	groceries := mustCategory(t, store, userID, "Groceries")
	rent := mustCategory(t, store, userID, "Rent")

	mustTx(t, store, userID, checking, core.Expense, 30000, testNow.AddDate(0, 0, -5), &groceries)
	mustTx(t, store, userID, checking, core.Expense, 90000, testNow.AddDate(0, 0, -4), &rent)
	// Uncategorized: excluded
	mustTx(t, store, userID, checking, core.Expense, 11111, testNow.AddDate(0, 0, -3), nil)
	// Other currency: excluded by scope
	mustTx(t, store, userID, usd, core.Expense, 22222, testNow.AddDate(0, 0, -2), &rent)
	// Income never counts as spending
	mustTx(t, store, userID, checking, core.Income, 500000, testNow.AddDate(0, 0, -1), &groceries)

	spending, err := svc.SpendingByCategory(context.Background(), userID, ledger.Scope{Currency: "EUR"}, core.RangeLast12Months)
	if err != nil {
		t.Fatalf("SpendingByCategory: %v", err)
	}

	if len(spending) != 2 {
		t.Fatalf("got %d categories, want 2: %+v", len(spending), spending)
	}
	if spending[0].Name != "Rent" || spending[0].Total.Cents != 90000 {
		t.Errorf("largest = %+v, want Rent/90000", spending[0])
	}
	if spending[1].Name != "Groceries" || spending[1].Total.Cents != 30000 {
		t.Errorf("second = %+v, want Groceries/30000", spending[1])
	}
}

func TestBalanceTrend_NoTransactions(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	mustAccount(t, store, userID, "Checking", "EUR", 25000)

	trend, err := svc.BalanceTrend(context.Background(), userID, ledger.Scope{Currency: "EUR"}, core.RangeLast30Days)
	if err != nil {
		t.Fatalf("BalanceTrend: %v", err)
	}
	if len(trend) != 30 {
		t.Fatalf("got %d points, want 30", len(trend))
	}
	for _, p := range trend {
		if p.Balance.Cents != 25000 {
			t.Fatalf("balance on %v = %d, want flat 25000", p.Date, p.Balance.Cents)
		}
	}
}

func TestBalanceTrend(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 10000)
	scope := ledger.Scope{Currency: "EUR"}

	start, end := core.RangeLast30Days.Window(testNow)

	// Before the window: moves only the starting balance
	mustTx(t, store, userID, checking, core.Income, 5000, start.AddDate(0, 0, -10), nil)
	// Inside the window
	mustTx(t, store, userID, checking, core.Expense, 2000, start.AddDate(0, 0, 2), nil)
	mustTx(t, store, userID, checking, core.Income, 7000, start.AddDate(0, 0, 5), nil)
	// Transfers never move the balance
	mustTx(t, store, userID, checking, core.Transfer, 99999, start.AddDate(0, 0, 3), nil)
	// Last day of the window still counts
	mustTx(t, store, userID, checking, core.Expense, 1000, end.Add(10*time.Hour), nil)

	trend, err := svc.BalanceTrend(context.Background(), userID, scope, core.RangeLast30Days)
	if err != nil {
		t.Fatalf("BalanceTrend: %v", err)
	}
	if len(trend) != 30 {
		t.Fatalf("got %d points, want 30", len(trend))
	}

	starting := int64(10000 + 5000)
	if trend[0].Balance.Cents != starting {
		t.Errorf("day 0 balance = %d, want %d", trend[0].Balance.Cents, starting)
	}
	if trend[2].Balance.Cents != starting-2000 {
		t.Errorf("day 2 balance = %d, want %d", trend[2].Balance.Cents, starting-2000)
	}
	if trend[3].Balance.Cents != starting-2000 {
		t.Errorf("day 3 balance = %d, want unchanged by transfer", trend[3].Balance.Cents)
	}
	if trend[5].Balance.Cents != starting-2000+7000 {
		t.Errorf("day 5 balance = %d, want %d", trend[5].Balance.Cents, starting-2000+7000)
	}
	if last := trend[29]; last.Balance.Cents != starting-2000+7000-1000 {
		t.Errorf("final balance = %d, want %d", last.Balance.Cents, starting-2000+7000-1000)
	}
	if !trend[29].Date.Equal(end) {
		t.Errorf("final date = %v, want %v", trend[29].Date, end)
	}

	// Recomputing must not drift
	again, err := svc.BalanceTrend(context.Background(), userID, scope, core.RangeLast30Days)
	if err != nil {
		t.Fatalf("BalanceTrend (second run): %v", err)
	}
	for i := range trend {
		if trend[i].Balance.Cents != again[i].Balance.Cents {
			t.Fatalf("recomputation drifted at %d: %d vs %d", i, trend[i].Balance.Cents, again[i].Balance.Cents)
		}
	}
}

func TestBalanceTrend_AccountSubset(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 10000)
	savings := mustAccount(t, store, userID, "Savings", "EUR", 90000)

	mustTx(t, store, userID, savings, core.Income, 12345, testNow.AddDate(0, 0, -1), nil)

	trend, err := svc.BalanceTrend(context.Background(), userID, ledger.Scope{Currency: "EUR", AccountIDs: []int64{checking}}, core.RangeLast30Days)
	if err != nil {
		t.Fatalf("BalanceTrend: %v", err)
	}
	// Only the checking account's initial balance counts
	if trend[0].Balance.Cents != 10000 {
		t.Errorf("subset starting balance = %d, want 10000", trend[0].Balance.Cents)
	}
	if trend[29].Balance.Cents != 10000 {
		t.Errorf("subset final balance = %d, want 10000", trend[29].Balance.Cents)
	}
}

func TestTransactionsForAnalysis(t *testing.T) {
	svc, store, userID := newTestAnalysis(t)
	checking := mustAccount(t, store, userID, "Checking", "EUR", 0)

	mustTx(t, store, userID, checking, core.Income, 100, testNow.AddDate(0, 0, -10), nil)
	mustTx(t, store, userID, checking, core.Expense, 200, testNow.AddDate(0, 0, -1), nil)
	// Outside last30days
	mustTx(t, store, userID, checking, core.Expense, 300, testNow.AddDate(0, -2, 0), nil)

	txs, err := svc.TransactionsForAnalysis(context.Background(), userID, ledger.Scope{Currency: "EUR"}, core.RangeLast30Days)
	if err != nil {
		t.Fatalf("TransactionsForAnalysis: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[0].Date.After(txs[1].Date) {
		t.Errorf("transactions not newest first: %v, %v", txs[0].Date, txs[1].Date)
	}
}
