package http

import (
	"errors"
	"log/slog"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/services"
)

type registerRequest struct {
	Email string `json:"email"`
}

type tempPasswordRequest struct {
	Email        string `json:"email"`
	TempPassword string `json:"tempPassword"`
}

type setPasswordRequest struct {
	Email        string `json:"email"`
	TempPassword string `json:"tempPassword"`
	NewPassword  string `json:"newPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, tempPassword, err := s.users.Register(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidEmail):
			writeError(w, http.StatusUnprocessableEntity, "invalid email")
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			slog.ErrorContext(r.Context(), "Register failed", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	resp := map[string]any{"email": user.Email}
	// Without a mail queue the credential has no other way to reach
	// the user.
	if s.cfg.AMQPURL == "" {
		resp["tempPassword"] = tempPassword
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVerifyTempPassword(w http.ResponseWriter, r *http.Request) {
	var req tempPasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.users.VerifyTempPassword(r.Context(), req.Email, req.TempPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "Temp password verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.users.SetPermanentPassword(r.Context(), req.Email, req.TempPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTempPasswordSet):
			writeError(w, http.StatusForbidden, "account setup incomplete")
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			slog.ErrorContext(r.Context(), "Login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	token := s.sessions.issue(user)
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{"email": user.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		s.sessions.revoke(cookie.Value)
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
