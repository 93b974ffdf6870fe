package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository) int64 {
	t.Helper()
	user, err := repo.CreateLocalUser(context.Background(), "test@example.com", "temp1234")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func TestUserLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("missing user: got %v, want ErrNotFound", err)
	}

	created, err := repo.CreateLocalUser(ctx, "user@example.com", "temp1234")
	if err != nil {
		t.Fatalf("CreateLocalUser: %v", err)
	}

	found, err := repo.FindUserByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if found.ID != created.ID || !found.IsTemp || found.TempPassword != "temp1234" {
		t.Errorf("found user = %+v", found)
	}
	if found.Provider != core.ProviderLocal {
		t.Errorf("provider = %q, want LOCAL", found.Provider)
	}

	if err := repo.SetPermanentPassword(ctx, "user@example.com", "bcrypt-hash"); err != nil {
		t.Fatalf("SetPermanentPassword: %v", err)
	}
	found, err = repo.FindUserByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail after setup: %v", err)
	}
	if found.IsTemp || found.TempPassword != "" || found.PasswordHash != "bcrypt-hash" {
		t.Errorf("user after setup = %+v", found)
	}
}

func TestAccountsAndCurrencies(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)

	for _, a := range []core.Account{
		{UserID: userID, Name: "Zavings", Currency: "EUR", InitialBalance: core.Money{Cents: 100}},
		{UserID: userID, Name: "Checking", Currency: "EUR"},
		{UserID: userID, Name: "Travel", Currency: "USD"},
	} {
		if _, err := repo.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount(%s): %v", a.Name, err)
		}
	}

	accounts, err := repo.ListAccounts(ctx, userID)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 3 || accounts[0].Name != "Checking" || accounts[2].Name != "Zavings" {
		t.Errorf("accounts not sorted by name: %+v", accounts)
	}
	if accounts[2].InitialBalance.Cents != 100 {
		t.Errorf("initial balance = %d, want 100", accounts[2].InitialBalance.Cents)
	}

	currencies, err := repo.ListCurrencies(ctx, userID)
	if err != nil {
		t.Fatalf("ListCurrencies: %v", err)
	}
	if len(currencies) != 2 || currencies[0] != "EUR" || currencies[1] != "USD" {
		t.Errorf("currencies = %v, want [EUR USD]", currencies)
	}

	if err := repo.DeleteAccount(ctx, userID, accounts[0].ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if err := repo.DeleteAccount(ctx, userID, accounts[0].ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestTransactionsWithLabels(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)

	accountID, err := repo.CreateAccount(ctx, core.Account{UserID: userID, Name: "Checking", Currency: "EUR"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	categoryID, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Groceries"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	date := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	txID, err := repo.AddTransaction(ctx, core.Transaction{
		UserID:     userID,
		Type:       core.Expense,
		Amount:     core.Money{Cents: 4200},
		Date:       date,
		Note:       "weekly shop",
		AccountID:  accountID,
		CategoryID: &categoryID,
		Labels:     []string{"food", "weekly"},
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	txs, err := repo.ListTransactions(ctx, userID, ledger.RecordFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.ID != txID || tx.Amount.Cents != 4200 || tx.Note != "weekly shop" {
		t.Errorf("transaction = %+v", tx)
	}
	if tx.AccountName != "Checking" || tx.CategoryName != "Groceries" {
		t.Errorf("joined names = %q/%q", tx.AccountName, tx.CategoryName)
	}
	if len(tx.Labels) != 2 {
		t.Errorf("labels = %v, want 2 entries", tx.Labels)
	}
	if !tx.Date.Equal(date) {
		t.Errorf("date = %v, want %v", tx.Date, date)
	}

	// Labels created on first use land in the pool
	labels, err := repo.ListLabels(ctx, userID)
	if err != nil {
		t.Fatalf("ListLabels: %v", err)
	}
	if len(labels) != 2 {
		t.Errorf("label pool = %+v, want 2 entries", labels)
	}

	t.Run("filters", func(t *testing.T) {
		byDay, err := repo.ListTransactions(ctx, userID, ledger.RecordFilter{Date: "2024-05-10"})
		if err != nil {
			t.Fatalf("filter by date: %v", err)
		}
		if len(byDay) != 1 {
			t.Errorf("date filter matched %d, want 1", len(byDay))
		}

		none, err := repo.ListTransactions(ctx, userID, ledger.RecordFilter{Type: core.Income})
		if err != nil {
			t.Fatalf("filter by type: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("type filter matched %d, want 0", len(none))
		}
	})

	t.Run("delete detaches labels", func(t *testing.T) {
		if err := repo.DeleteTransaction(ctx, userID, txID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if err := repo.DeleteTransaction(ctx, userID, txID); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("double delete: got %v, want ErrNotFound", err)
		}
	})
}

func TestAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := seedUser(t, repo)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	scope := ledger.Scope{Currency: "EUR"}

	accountID, err := repo.CreateAccount(ctx, core.Account{
		UserID: userID, Name: "Checking", Currency: "EUR",
		InitialBalance: core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	categoryID, err := repo.CreateCategory(ctx, core.Category{UserID: userID, Name: "Rent"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	add := func(txType core.TransactionType, cents int64, date time.Time, withCategory bool) {
		t.Helper()
		tx := core.Transaction{
			UserID: userID, Type: txType, Amount: core.Money{Cents: cents},
			Date: date, AccountID: accountID,
		}
		if withCategory {
			tx.CategoryID = &categoryID
		}
		if txType == core.Transfer {
			dest := accountID
			tx.ToAccountID = &dest
		}
		if _, err := repo.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}

	add(core.Income, 200000, now.AddDate(0, 0, -2), false)
	add(core.Expense, 90000, now.AddDate(0, 0, -1), true)
	add(core.Expense, 30000, now.AddDate(0, -2, 0), true)
	add(core.Transfer, 55555, now.AddDate(0, 0, -1), false)

	t.Run("sum by type grouped by account", func(t *testing.T) {
		totals, err := repo.SumByTypeGroupedByAccount(ctx, userID)
		if err != nil {
			t.Fatalf("SumByTypeGroupedByAccount: %v", err)
		}
		got := totals[accountID]
		if got.IncomeCents != 200000 || got.ExpenseCents != 120000 {
			t.Errorf("totals = %+v, want 200000/120000", got)
		}
	})

	t.Run("current month excludes older rows", func(t *testing.T) {
		totals, err := repo.SumByTypeForCurrentMonth(ctx, userID, now)
		if err != nil {
			t.Fatalf("SumByTypeForCurrentMonth: %v", err)
		}
		if totals.IncomeCents != 200000 || totals.ExpenseCents != 90000 {
			t.Errorf("month totals = %+v, want 200000/90000", totals)
		}
	})

	t.Run("signed net ignores transfers", func(t *testing.T) {
		net, err := repo.SumSignedNetBefore(ctx, userID, scope, now)
		if err != nil {
			t.Fatalf("SumSignedNetBefore: %v", err)
		}
		if want := int64(200000 - 90000 - 30000); net != want {
			t.Errorf("net = %d, want %d", net, want)
		}
	})

	t.Run("net by day keys on calendar day", func(t *testing.T) {
		start := now.AddDate(0, 0, -29)
		changes, err := repo.SumSignedNetByDay(ctx, userID, scope, start, now)
		if err != nil {
			t.Fatalf("SumSignedNetByDay: %v", err)
		}
		if len(changes) != 2 {
			t.Fatalf("changes = %v, want 2 days", changes)
		}
		day := now.AddDate(0, 0, -1).Format("2006-01-02")
		if changes[day] != -90000 {
			t.Errorf("net on %s = %d, want -90000 (transfer ignored)", day, changes[day])
		}
	})

	t.Run("expense by category", func(t *testing.T) {
		totals, err := repo.SumExpenseGroupedByCategory(ctx, userID, scope, now.AddDate(0, -12, 0))
		if err != nil {
			t.Fatalf("SumExpenseGroupedByCategory: %v", err)
		}
		if len(totals) != 1 || totals[0].Name != "Rent" || totals[0].TotalCents != 120000 {
			t.Errorf("totals = %+v, want [Rent 120000]", totals)
		}
	})

	t.Run("top categories limited to current month", func(t *testing.T) {
		top, err := repo.TopExpenseCategoriesForAccount(ctx, accountID, now, 5)
		if err != nil {
			t.Fatalf("TopExpenseCategoriesForAccount: %v", err)
		}
		if len(top) != 1 || top[0].TotalCents != 90000 {
			t.Errorf("top = %+v, want [Rent 90000]", top)
		}
	})

	t.Run("initial balances honor account subset", func(t *testing.T) {
		total, err := repo.SumInitialBalances(ctx, userID, scope)
		if err != nil {
			t.Fatalf("SumInitialBalances: %v", err)
		}
		if total != 10000 {
			t.Errorf("initial = %d, want 10000", total)
		}

		total, err = repo.SumInitialBalances(ctx, userID, ledger.Scope{Currency: "EUR", AccountIDs: []int64{accountID + 99}})
		if err != nil {
			t.Fatalf("SumInitialBalances subset: %v", err)
		}
		if total != 0 {
			t.Errorf("subset initial = %d, want 0", total)
		}
	})
}
