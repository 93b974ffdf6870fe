package services

import (
	"context"
	"fmt"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// AccountService handles account lifecycle; enriched listings live in
// AnalysisService.
type AccountService struct {
	store ledger.AccountStore
}

func NewAccountService(store ledger.AccountStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if err := a.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountID int64) error {
	return s.store.DeleteAccount(ctx, userID, accountID)
}

func (s *AccountService) Currencies(ctx context.Context, userID int64) ([]string, error) {
	currencies, err := s.store.ListCurrencies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return currencies, nil
}
