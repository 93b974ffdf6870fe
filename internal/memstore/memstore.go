// Package memstore is an in-memory ledger.Store. It backs the memory
// data backend and doubles as the fake store in tests; its aggregate
// semantics mirror the SQLite queries.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	nextID int64

	users        map[int64]core.User
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	labels       map[int64]core.Label
	transactions map[int64]core.Transaction
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[int64]core.User),
		accounts:     make(map[int64]core.Account),
		categories:   make(map[int64]core.Category),
		labels:       make(map[int64]core.Label),
		transactions: make(map[int64]core.Transaction),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// --- users ---

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, ledger.ErrNotFound
}

func (s *Store) CreateLocalUser(_ context.Context, email, tempPassword string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := core.User{
		ID:           s.id(),
		Email:        email,
		TempPassword: tempPassword,
		IsTemp:       true,
		Provider:     core.ProviderLocal,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) CreateGoogleUser(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := core.User{
		ID:        s.id(),
		Email:     email,
		Provider:  core.ProviderGoogle,
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) SetPermanentPassword(_ context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == email {
			u.PasswordHash = passwordHash
			u.TempPassword = ""
			u.IsTemp = false
			s.users[id] = u
			return nil
		}
	}
	return ledger.ErrNotFound
}

// --- accounts ---

func (s *Store) CreateAccount(_ context.Context, a core.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	// Derived fields never persist
	a.TotalIncome, a.TotalExpense, a.CurrentBalance = core.Money{}, core.Money{}, core.Money{}
	a.TopSpending = nil
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *Store) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var accounts []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (s *Store) DeleteAccount(_ context.Context, userID, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.accounts, accountID)
	return nil
}

func (s *Store) ListCurrencies(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var currencies []string
	for _, a := range s.accounts {
		if a.UserID == userID && !seen[a.Currency] {
			seen[a.Currency] = true
			currencies = append(currencies, a.Currency)
		}
	}
	sort.Strings(currencies)
	return currencies, nil
}

// --- categories ---

func (s *Store) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var categories []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok || c.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

// --- labels ---

func (s *Store) CreateLabel(_ context.Context, l core.Label) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	s.labels[l.ID] = l
	return l.ID, nil
}

func (s *Store) ListLabels(_ context.Context, userID int64) ([]core.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var labels []core.Label
	for _, l := range s.labels {
		if l.UserID == userID {
			labels = append(labels, l)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels, nil
}

func (s *Store) DeleteLabel(_ context.Context, userID, labelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.labels[labelID]
	if !ok || l.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.labels, labelID)
	return nil
}

// --- transactions ---

func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.id()
	if a, ok := s.accounts[tx.AccountID]; ok {
		tx.AccountName = a.Name
	}
	if tx.CategoryID != nil {
		if c, ok := s.categories[*tx.CategoryID]; ok {
			tx.CategoryName = c.Name
		}
	}
	s.transactions[tx.ID] = tx
	return tx.ID, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, f ledger.RecordFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []core.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if f.Date != "" && tx.Date.UTC().Format("2006-01-02") != f.Date {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.CategoryID != 0 && (tx.CategoryID == nil || *tx.CategoryID != f.CategoryID) {
			continue
		}
		if f.AccountID != 0 && tx.AccountID != f.AccountID {
			continue
		}
		txs = append(txs, tx)
	}
	sortNewestFirst(txs)
	return txs, nil
}

func (s *Store) ListTransactionsSince(_ context.Context, userID int64, scope ledger.Scope, since time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []core.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || !s.inScope(tx, scope) || tx.Date.Before(since) {
			continue
		}
		txs = append(txs, tx)
	}
	sortNewestFirst(txs)
	return txs, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[transactionID]
	if !ok || tx.UserID != userID {
		return ledger.ErrNotFound
	}
	delete(s.transactions, transactionID)
	return nil
}

func sortNewestFirst(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].ID > txs[j].ID
		}
		return txs[i].Date.After(txs[j].Date)
	})
}

// inScope reports whether the transaction's account matches the
// currency and optional account subset. Callers hold the lock.
func (s *Store) inScope(tx core.Transaction, scope ledger.Scope) bool {
	a, ok := s.accounts[tx.AccountID]
	if !ok || a.Currency != scope.Currency {
		return false
	}
	if len(scope.AccountIDs) == 0 {
		return true
	}
	for _, id := range scope.AccountIDs {
		if id == tx.AccountID {
			return true
		}
	}
	return false
}

// --- aggregates ---

func (s *Store) SumByTypeGroupedByAccount(_ context.Context, userID int64) (map[int64]ledger.TypeTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[int64]ledger.TypeTotals)
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		t := totals[tx.AccountID]
		switch tx.Type {
		case core.Income:
			t.IncomeCents += tx.Amount.Cents
		case core.Expense:
			t.ExpenseCents += tx.Amount.Cents
		default:
			continue
		}
		totals[tx.AccountID] = t
	}
	return totals, nil
}

func (s *Store) SumByTypeForCurrentMonth(_ context.Context, userID int64, now time.Time) (ledger.TypeTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	month := now.UTC().Format("2006-01")
	var totals ledger.TypeTotals
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Date.UTC().Format("2006-01") != month {
			continue
		}
		switch tx.Type {
		case core.Income:
			totals.IncomeCents += tx.Amount.Cents
		case core.Expense:
			totals.ExpenseCents += tx.Amount.Cents
		}
	}
	return totals, nil
}

func (s *Store) SumGroupedByPeriod(_ context.Context, userID int64, scope ledger.Scope, since time.Time, g core.Granularity) ([]ledger.PeriodTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	layout := "2006-01"
	if g == core.GranularityDaily {
		layout = "2006-01-02"
	}

	byPeriod := make(map[string]*ledger.PeriodTotals)
	for _, tx := range s.transactions {
		if tx.UserID != userID || !s.inScope(tx, scope) || tx.Date.Before(since) {
			continue
		}
		period := tx.Date.UTC().Format(layout)
		b, ok := byPeriod[period]
		if !ok {
			b = &ledger.PeriodTotals{Period: period}
			byPeriod[period] = b
		}
		switch tx.Type {
		case core.Income:
			b.IncomeCents += tx.Amount.Cents
		case core.Expense:
			b.ExpenseCents += tx.Amount.Cents
		}
	}

	var buckets []ledger.PeriodTotals
	for _, b := range byPeriod {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Period < buckets[j].Period })
	return buckets, nil
}

func (s *Store) SumExpenseGroupedByCategory(_ context.Context, userID int64, scope ledger.Scope, since time.Time) ([]ledger.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := make(map[string]int64)
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Type != core.Expense || !s.inScope(tx, scope) || tx.Date.Before(since) {
			continue
		}
		// Inner-join semantics: uncategorized expenses drop out
		if tx.CategoryID == nil {
			continue
		}
		c, ok := s.categories[*tx.CategoryID]
		if !ok {
			continue
		}
		byName[c.Name] += tx.Amount.Cents
	}
	return sortedCategoryTotals(byName, 0), nil
}

func (s *Store) TopExpenseCategoriesForAccount(_ context.Context, accountID int64, now time.Time, limit int) ([]ledger.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	month := now.UTC().Format("2006-01")
	byName := make(map[string]int64)
	for _, tx := range s.transactions {
		if tx.AccountID != accountID || tx.Type != core.Expense || tx.CategoryID == nil {
			continue
		}
		if tx.Date.UTC().Format("2006-01") != month {
			continue
		}
		c, ok := s.categories[*tx.CategoryID]
		if !ok {
			continue
		}
		byName[c.Name] += tx.Amount.Cents
	}
	return sortedCategoryTotals(byName, limit), nil
}

func sortedCategoryTotals(byName map[string]int64, limit int) []ledger.CategoryTotal {
	var totals []ledger.CategoryTotal
	for name, cents := range byName {
		totals = append(totals, ledger.CategoryTotal{Name: name, TotalCents: cents})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].TotalCents == totals[j].TotalCents {
			return strings.Compare(totals[i].Name, totals[j].Name) < 0
		}
		return totals[i].TotalCents > totals[j].TotalCents
	})
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}

func (s *Store) SumInitialBalances(_ context.Context, userID int64, scope ledger.Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, a := range s.accounts {
		if a.UserID != userID || a.Currency != scope.Currency {
			continue
		}
		if len(scope.AccountIDs) > 0 && !containsID(scope.AccountIDs, a.ID) {
			continue
		}
		total += a.InitialBalance.Cents
	}
	return total, nil
}

func (s *Store) SumSignedNetBefore(_ context.Context, userID int64, scope ledger.Scope, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, tx := range s.transactions {
		if tx.UserID != userID || !s.inScope(tx, scope) || !tx.Date.Before(before) {
			continue
		}
		total += signedNet(tx)
	}
	return total, nil
}

func (s *Store) SumSignedNetByDay(_ context.Context, userID int64, scope ledger.Scope, start, end time.Time) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bound := end.AddDate(0, 0, 1)
	changes := make(map[string]int64)
	for _, tx := range s.transactions {
		if tx.UserID != userID || !s.inScope(tx, scope) {
			continue
		}
		if tx.Date.Before(start) || !tx.Date.Before(bound) {
			continue
		}
		day := tx.Date.UTC().Format("2006-01-02")
		changes[day] += signedNet(tx)
	}
	return changes, nil
}

func signedNet(tx core.Transaction) int64 {
	switch tx.Type {
	case core.Income:
		return tx.Amount.Cents
	case core.Expense:
		return -tx.Amount.Cents
	default:
		return 0
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
