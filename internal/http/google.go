package http

import (
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"budgetbook/internal/config"
)

const stateCookie = "oauth_state"

// googleAuth drives the authorization-code flow and verifies the ID
// token of the callback.
type googleAuth struct {
	oauth    *oauth2.Config
	clientID string
}

func newGoogleAuth(cfg *config.Config) *googleAuth {
	return &googleAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		},
		clientID: cfg.GoogleClientID,
	}
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeError(w, http.StatusNotFound, "google sign-in not configured")
		return
	}

	state := generateRequestID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.google.oauth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeError(w, http.StatusNotFound, "google sign-in not configured")
		return
	}

	stateParam := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || stateParam == "" || cookie.Value != stateParam {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := s.google.oauth.Exchange(r.Context(), code)
	if err != nil {
		slog.ErrorContext(r.Context(), "Google code exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "code exchange failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		writeError(w, http.StatusBadGateway, "missing id token")
		return
	}

	payload, err := idtoken.Validate(r.Context(), rawIDToken, s.google.clientID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Google id token validation failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid id token")
		return
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		writeError(w, http.StatusUnauthorized, "email claim missing")
		return
	}

	user, err := s.users.FindOrCreateGoogleUser(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Google sign-in failed", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	sessionToken := s.sessions.issue(user)
	s.setSessionCookie(w, sessionToken)
	http.Redirect(w, r, s.cfg.BaseURL+"/", http.StatusFound)
}
