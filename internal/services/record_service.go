package services

import (
	"context"
	"fmt"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// RecordService handles the transaction log.
type RecordService struct {
	store ledger.RecordStore
}

func NewRecordService(store ledger.RecordStore) *RecordService {
	return &RecordService{store: store}
}

func (s *RecordService) AddTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	tx.Note = strings.TrimSpace(tx.Note)
	for i := range tx.Labels {
		tx.Labels[i] = strings.TrimSpace(tx.Labels[i])
	}
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.AddTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}
	return id, nil
}

func (s *RecordService) ListTransactions(ctx context.Context, userID int64, f ledger.RecordFilter) ([]core.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, core.ErrInvalidType
	}
	txs, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *RecordService) DeleteTransaction(ctx context.Context, userID, transactionID int64) error {
	return s.store.DeleteTransaction(ctx, userID, transactionID)
}
