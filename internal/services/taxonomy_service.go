package services

import (
	"context"
	"fmt"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// TaxonomyService manages the category tree and the label pool.
type TaxonomyService struct {
	categories ledger.CategoryStore
	labels     ledger.LabelStore
}

func NewTaxonomyService(categories ledger.CategoryStore, labels ledger.LabelStore) *TaxonomyService {
	return &TaxonomyService{categories: categories, labels: labels}
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := s.categories.CreateCategory(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (s *TaxonomyService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	categories, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *TaxonomyService) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	return s.categories.DeleteCategory(ctx, userID, categoryID)
}

func (s *TaxonomyService) CreateLabel(ctx context.Context, l core.Label) (int64, error) {
	l.Name = strings.TrimSpace(l.Name)
	if err := l.Validate(); err != nil {
		return 0, err
	}
	id, err := s.labels.CreateLabel(ctx, l)
	if err != nil {
		return 0, fmt.Errorf("create label: %w", err)
	}
	return id, nil
}

func (s *TaxonomyService) ListLabels(ctx context.Context, userID int64) ([]core.Label, error) {
	labels, err := s.labels.ListLabels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

func (s *TaxonomyService) DeleteLabel(ctx context.Context, userID, labelID int64) error {
	return s.labels.DeleteLabel(ctx, userID, labelID)
}
