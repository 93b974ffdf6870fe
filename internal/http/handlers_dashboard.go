package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"budgetbook/internal/core"
)

type dashboardDTO struct {
	kpiDTO
	Accounts []accountDTO `json:"accounts"`
}

// handleDashboard serves the headline KPIs plus the account summaries.
// Aggregation failures degrade to zeros rather than breaking the page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user core.User) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	key := s.kpiCacheKey(user.ID)
	kpis, found := s.kpiCache.Get(key)
	if !found {
		var err error
		kpis, err = s.analysis.DashboardKPIs(ctx, user.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Dashboard KPI computation failed",
				"error", err, "user_id", user.ID)
			kpis = core.KPIs{}
		} else {
			s.kpiCache.Set(key, kpis)
		}
	}

	accountDTOs := []accountDTO{}
	accounts, err := s.analysis.AccountSummaries(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard account summaries failed",
			"error", err, "user_id", user.ID)
	} else {
		for _, a := range accounts {
			accountDTOs = append(accountDTOs, toAccountDTO(a))
		}
	}

	writeJSON(w, http.StatusOK, dashboardDTO{
		kpiDTO: kpiDTO{
			TotalBalance:    kpis.TotalBalance.Units(),
			MonthlySpending: kpis.MonthlySpending.Units(),
			MonthlyCashFlow: kpis.MonthlyCashFlow.Units(),
		},
		Accounts: accountDTOs,
	})
}
