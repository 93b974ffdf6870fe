package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

type createRecordRequest struct {
	Type        string   `json:"type"`
	Amount      string   `json:"amount"`
	Date        string   `json:"date"`
	Note        string   `json:"note"`
	AccountID   int64    `json:"accountId"`
	ToAccountID *int64   `json:"toAccountId"`
	CategoryID  *int64   `json:"categoryId"`
	Labels      []string `json:"labels"`
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createRecordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	date, err := parseRecordDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	tx := core.Transaction{
		UserID:      user.ID,
		Type:        core.TransactionType(req.Type),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Note:        req.Note,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		CategoryID:  req.CategoryID,
		Labels:      req.Labels,
	}

	id, err := s.records.AddTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.invalidateKPIs(user.ID)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request, user core.User) {
	q := r.URL.Query()
	filter := ledger.RecordFilter{
		Date: q.Get("date"),
		Type: core.TransactionType(q.Get("type")),
	}
	if v := q.Get("category"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CategoryID = id
		}
	}
	if v := q.Get("account"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.AccountID = id
		}
	}

	txs, err := s.records.ListTransactions(r.Context(), user.ID, filter)
	if err != nil {
		if errors.Is(err, core.ErrInvalidType) {
			writeError(w, http.StatusBadRequest, "invalid type filter")
			return
		}
		slog.ErrorContext(r.Context(), "List records failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "could not load records")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request, user core.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := s.records.DeleteTransaction(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete record failed", "error", err, "user_id", user.ID, "record_id", id)
		writeError(w, http.StatusInternalServerError, "could not delete record")
		return
	}

	s.invalidateKPIs(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// parseRecordDate accepts a full timestamp or a plain day.
func parseRecordDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
