package http

import (
	"time"

	"budgetbook/internal/core"
)

// Amounts cross the wire as currency units; cents stay internal.

type accountDTO struct {
	ID               int64                 `json:"id"`
	Name             string                `json:"name"`
	AccountType      string                `json:"accountType"`
	InitialBalance   float64               `json:"initialBalance"`
	Currency         string                `json:"currency"`
	Color            string                `json:"color,omitempty"`
	ExcludeFromStats bool                  `json:"excludeFromStats"`
	TotalIncome      float64               `json:"totalIncome"`
	TotalExpense     float64               `json:"totalExpense"`
	CurrentBalance   float64               `json:"currentBalance"`
	TopSpending      []categorySpendingDTO `json:"topSpending"`
}

type categorySpendingDTO struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type transactionDTO struct {
	ID           int64    `json:"id"`
	Type         string   `json:"type"`
	Amount       float64  `json:"amount"`
	Date         string   `json:"date"`
	Note         string   `json:"note,omitempty"`
	AccountID    int64    `json:"accountId"`
	AccountName  string   `json:"accountName,omitempty"`
	ToAccountID  *int64   `json:"toAccountId,omitempty"`
	CategoryID   *int64   `json:"categoryId,omitempty"`
	CategoryName string   `json:"categoryName,omitempty"`
	Labels       []string `json:"labels"`
}

type categoryDTO struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parentId,omitempty"`
	Name     string `json:"name"`
}

type labelDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type kpiDTO struct {
	TotalBalance    float64 `json:"totalBalance"`
	MonthlySpending float64 `json:"monthlySpending"`
	MonthlyCashFlow float64 `json:"monthlyCashFlow"`
}

type cashFlowPointDTO struct {
	Period  string  `json:"period"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type dailyBalanceDTO struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

func toAccountDTO(a core.Account) accountDTO {
	dto := accountDTO{
		ID:               a.ID,
		Name:             a.Name,
		AccountType:      a.AccountType,
		InitialBalance:   a.InitialBalance.Units(),
		Currency:         a.Currency,
		Color:            a.Color,
		ExcludeFromStats: a.ExcludeFromStats,
		TotalIncome:      a.TotalIncome.Units(),
		TotalExpense:     a.TotalExpense.Units(),
		CurrentBalance:   a.CurrentBalance.Units(),
		TopSpending:      []categorySpendingDTO{},
	}
	for _, cs := range a.TopSpending {
		dto.TopSpending = append(dto.TopSpending, categorySpendingDTO{Name: cs.Name, Total: cs.Total.Units()})
	}
	return dto
}

func toTransactionDTO(tx core.Transaction) transactionDTO {
	labels := tx.Labels
	if labels == nil {
		labels = []string{}
	}
	return transactionDTO{
		ID:           tx.ID,
		Type:         string(tx.Type),
		Amount:       tx.Amount.Units(),
		Date:         tx.Date.UTC().Format(time.RFC3339),
		Note:         tx.Note,
		AccountID:    tx.AccountID,
		AccountName:  tx.AccountName,
		ToAccountID:  tx.ToAccountID,
		CategoryID:   tx.CategoryID,
		CategoryName: tx.CategoryName,
		Labels:       labels,
	}
}

func toTransactionDTOs(txs []core.Transaction) []transactionDTO {
	dtos := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	return dtos
}
