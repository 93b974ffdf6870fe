package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// handleAnalysis dispatches on graphType. Chart queries fail soft: on
// store errors the handler logs and returns an empty series so one
// broken chart does not take down the page.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request, user core.User) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	r = r.WithContext(ctx)

	q := r.URL.Query()

	currency := q.Get("currency")
	if currency == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}
	scope := ledger.Scope{
		Currency:   currency,
		AccountIDs: parseAccountIDs(q.Get("accounts")),
	}

	graphType := q.Get("graphType")
	switch graphType {
	case "spendingBreakdown":
		s.serveSpendingBreakdown(w, r, user, scope, core.ParseDateRange(q.Get("dateRange")))
	case "cashFlowTrend":
		s.serveCashFlowTrend(w, r, user, scope, core.ParseDateRange(q.Get("dateRange")))
	case "balanceTrend":
		s.serveBalanceTrend(w, r, user, scope, core.ParseDateRange(q.Get("dateRange")))
	case "transactionList":
		s.serveTransactionList(w, r, user, scope, core.ParseListDateRange(q.Get("dateRange")))
	default:
		writeError(w, http.StatusBadRequest, "unknown graphType")
	}
}

func (s *Server) serveSpendingBreakdown(w http.ResponseWriter, r *http.Request, user core.User, scope ledger.Scope, dr core.DateRange) {
	spending, err := s.analysis.SpendingByCategory(r.Context(), user.ID, scope, dr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Spending breakdown failed", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusOK, []categorySpendingDTO{})
		return
	}

	dtos := make([]categorySpendingDTO, 0, len(spending))
	for _, cs := range spending {
		dtos = append(dtos, categorySpendingDTO{Name: cs.Name, Total: cs.Total.Units()})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) serveCashFlowTrend(w http.ResponseWriter, r *http.Request, user core.User, scope ledger.Scope, dr core.DateRange) {
	points, err := s.analysis.CashFlowTrend(r.Context(), user.ID, scope, dr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Cash flow trend failed", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusOK, []cashFlowPointDTO{})
		return
	}

	dtos := make([]cashFlowPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, cashFlowPointDTO{
			Period:  p.Period,
			Income:  p.Income.Units(),
			Expense: p.Expense.Units(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) serveBalanceTrend(w http.ResponseWriter, r *http.Request, user core.User, scope ledger.Scope, dr core.DateRange) {
	trend, err := s.analysis.BalanceTrend(r.Context(), user.ID, scope, dr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance trend failed", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusOK, []dailyBalanceDTO{})
		return
	}

	dtos := make([]dailyBalanceDTO, 0, len(trend))
	for _, db := range trend {
		dtos = append(dtos, dailyBalanceDTO{
			Date:    db.Date.Format("2006-01-02"),
			Balance: db.Balance.Units(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) serveTransactionList(w http.ResponseWriter, r *http.Request, user core.User, scope ledger.Scope, dr core.DateRange) {
	txs, err := s.analysis.TransactionsForAnalysis(r.Context(), user.ID, scope, dr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Analysis transaction list failed", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusOK, []transactionDTO{})
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}
