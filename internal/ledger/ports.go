// Package ledger defines the ports the services consume from a
// concrete store (SQLite in production, memstore in tests). Every
// operation is scoped by the owning user id; implementations must never
// return or touch another user's rows.
package ledger

import (
	"context"
	"errors"
	"time"

	"budgetbook/internal/core"
)

var ErrNotFound = errors.New("ledger: not found")

type (
	// TypeTotals carries pre-aggregated income/expense sums in cents.
	TypeTotals struct {
		IncomeCents  int64
		ExpenseCents int64
	}

	// PeriodTotals is one period bucket as returned by the store; only
	// periods with at least one transaction are present.
	PeriodTotals struct {
		Period       string
		IncomeCents  int64
		ExpenseCents int64
	}

	CategoryTotal struct {
		Name       string
		TotalCents int64
	}

	// Scope narrows aggregate queries to accounts in one currency and,
	// optionally, an explicit account subset (nil means all).
	Scope struct {
		Currency   string
		AccountIDs []int64
	}

	// RecordFilter is the transaction-list filter; zero values mean "no
	// filter" for the respective field.
	RecordFilter struct {
		Date       string // YYYY-MM-DD
		Type       core.TransactionType
		CategoryID int64
		AccountID  int64
	}
)

type UserStore interface {
	// FindUserByEmail returns ErrNotFound when no such user exists.
	FindUserByEmail(ctx context.Context, email string) (core.User, error)
	CreateLocalUser(ctx context.Context, email, tempPassword string) (core.User, error)
	CreateGoogleUser(ctx context.Context, email string) (core.User, error)
	// SetPermanentPassword stores the hash and clears the temp credential.
	SetPermanentPassword(ctx context.Context, email, passwordHash string) error
}

type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (int64, error)
	ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	DeleteAccount(ctx context.Context, userID, accountID int64) error
	ListCurrencies(ctx context.Context, userID int64) ([]string, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID int64) error
}

type LabelStore interface {
	CreateLabel(ctx context.Context, l core.Label) (int64, error)
	ListLabels(ctx context.Context, userID int64) ([]core.Label, error)
	DeleteLabel(ctx context.Context, userID, labelID int64) error
}

type RecordStore interface {
	AddTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	ListTransactions(ctx context.Context, userID int64, f RecordFilter) ([]core.Transaction, error)
	// ListTransactionsSince is the analysis variant: currency/account
	// scoped, newest first.
	ListTransactionsSince(ctx context.Context, userID int64, scope Scope, since time.Time) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID int64) error
}

// AggregateReader is the query surface of the aggregation engine. All
// sums are restricted to Income/Expense rows; Transfers never count.
type AggregateReader interface {
	SumByTypeGroupedByAccount(ctx context.Context, userID int64) (map[int64]TypeTotals, error)
	SumByTypeForCurrentMonth(ctx context.Context, userID int64, now time.Time) (TypeTotals, error)
	SumGroupedByPeriod(ctx context.Context, userID int64, scope Scope, since time.Time, g core.Granularity) ([]PeriodTotals, error)
	SumExpenseGroupedByCategory(ctx context.Context, userID int64, scope Scope, since time.Time) ([]CategoryTotal, error)
	TopExpenseCategoriesForAccount(ctx context.Context, accountID int64, now time.Time, limit int) ([]CategoryTotal, error)
	SumInitialBalances(ctx context.Context, userID int64, scope Scope) (int64, error)
	SumSignedNetBefore(ctx context.Context, userID int64, scope Scope, before time.Time) (int64, error)
	// SumSignedNetByDay keys the result by "2006-01-02"; days without
	// transactions are absent.
	SumSignedNetByDay(ctx context.Context, userID int64, scope Scope, start, end time.Time) (map[string]int64, error)
}

// Store is the full contract a backend implements.
type Store interface {
	UserStore
	AccountStore
	CategoryStore
	LabelStore
	RecordStore
	AggregateReader
}
