package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   TransactionType = "Income"
	Expense  TransactionType = "Expense"
	Transfer TransactionType = "Transfer"
)

const (
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
)

type (
	TransactionType string

	AuthProvider string

	Money struct {
		Cents int64
	}

	// Account is a user-owned money container. TotalIncome, TotalExpense,
	// CurrentBalance and TopSpending are derived, never persisted.
	Account struct {
		ID               int64
		UserID           int64
		Name             string
		AccountType      string
		InitialBalance   Money
		Currency         string
		Color            string
		ExcludeFromStats bool
		CreatedAt        time.Time

		TotalIncome    Money
		TotalExpense   Money
		CurrentBalance Money
		TopSpending    []CategorySpending
	}

	// Category is a two-level tree by application convention: a nil
	// ParentID marks a top-level category.
	Category struct {
		ID       int64
		UserID   int64
		ParentID *int64
		Name     string
	}

	Label struct {
		ID     int64
		UserID int64
		Name   string
	}

	// Transaction amount is a non-negative magnitude; the sign is implied
	// by the type. ToAccountID is set iff the type is Transfer.
	Transaction struct {
		ID          int64
		UserID      int64
		Type        TransactionType
		Amount      Money
		Date        time.Time
		Note        string
		AccountID   int64
		AccountName string
		ToAccountID *int64
		CategoryID  *int64
		CategoryName string
		Labels      []string
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		TempPassword string
		IsTemp       bool
		Provider     AuthProvider
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrMissingAccount  = errors.New("transaction requires an account")
	ErrTransferAccount = errors.New("destination account is valid only for transfers")
	ErrZeroDate        = errors.New("date cannot be zero")
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	if strings.TrimSpace(a.Currency) == "" {
		return errors.New("empty currency")
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (l Label) Validate() error {
	if len(strings.TrimSpace(l.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if tx.Date.IsZero() {
		return ErrZeroDate
	}
	if tx.AccountID == 0 {
		return ErrMissingAccount
	}
	if tx.Type == Transfer {
		if tx.ToAccountID == nil || *tx.ToAccountID == 0 {
			return errors.New("transfer requires a destination account")
		}
	} else if tx.ToAccountID != nil {
		return ErrTransferAccount
	}
	if len(tx.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

// ValidEmail performs the minimal shape check the login flow needs.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
