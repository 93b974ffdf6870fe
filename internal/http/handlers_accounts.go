package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

type createAccountRequest struct {
	Name             string  `json:"name"`
	AccountType      string  `json:"accountType"`
	InitialBalance   float64 `json:"initialBalance"`
	Currency         string  `json:"currency"`
	Color            string  `json:"color"`
	ExcludeFromStats bool    `json:"excludeFromStats"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, user core.User) {
	accounts, err := s.analysis.AccountSummaries(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Account summaries failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "could not load accounts")
		return
	}

	dtos := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createAccountRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account := core.Account{
		UserID:           user.ID,
		Name:             req.Name,
		AccountType:      req.AccountType,
		InitialBalance:   core.Money{Cents: int64(math.Round(req.InitialBalance * 100))},
		Currency:         req.Currency,
		Color:            req.Color,
		ExcludeFromStats: req.ExcludeFromStats,
	}

	id, err := s.accounts.CreateAccount(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.invalidateKPIs(user.ID)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, user core.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := s.accounts.DeleteAccount(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete account failed", "error", err, "user_id", user.ID, "account_id", id)
		writeError(w, http.StatusInternalServerError, "could not delete account")
		return
	}

	s.invalidateKPIs(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request, user core.User) {
	currencies, err := s.accounts.Currencies(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List currencies failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "could not load currencies")
		return
	}
	if currencies == nil {
		currencies = []string{}
	}
	writeJSON(w, http.StatusOK, currencies)
}
