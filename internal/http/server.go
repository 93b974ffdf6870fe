// Package http exposes the JSON API and the auth flows.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"budgetbook/internal/cache"
	"budgetbook/internal/config"
	"budgetbook/internal/core"
	"budgetbook/internal/services"
)

type Server struct {
	http.Server

	cfg *config.Config

	analysis *services.AnalysisService
	users    *services.UserService
	accounts *services.AccountService
	records  *services.RecordService
	taxonomy *services.TaxonomyService

	sessions    *sessionStore
	rateLimiter *rateLimiter
	google      *googleAuth

	// Dashboard KPIs are recomputed on every write-through invalidation,
	// cached per user otherwise.
	kpiCache *cache.LRUCache[core.KPIs]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes, sessions and caches, returning a
// ready-to-run http.Server.
func NewServer(cfg *config.Config, analysis *services.AnalysisService, users *services.UserService, accounts *services.AccountService, records *services.RecordService, taxonomy *services.TaxonomyService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		cfg:              cfg,
		analysis:         analysis,
		users:            users,
		accounts:         accounts,
		records:          records,
		taxonomy:         taxonomy,
		sessions:         newSessionStore(cfg.SessionTTL),
		rateLimiter:      newRateLimiter(),
		kpiCache:         cache.NewLRUCache[core.KPIs](500, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	if cfg.GoogleEnabled() {
		s.google = newGoogleAuth(cfg)
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("POST /api/auth/temp-password", s.withSecurityHeaders(s.handleVerifyTempPassword))
	mux.HandleFunc("POST /api/auth/password", s.withSecurityHeaders(s.handleSetPassword))
	mux.HandleFunc("POST /api/auth/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.withSecurityHeaders(s.handleLogout))
	mux.HandleFunc("GET /auth/google/login", s.withSecurityHeaders(s.handleGoogleLogin))
	mux.HandleFunc("GET /auth/google/callback", s.withSecurityHeaders(s.handleGoogleCallback))

	mux.HandleFunc("GET /api/dashboard", s.withSecurityHeaders(s.withAuth(s.handleDashboard)))
	mux.HandleFunc("GET /api/analysis", s.withSecurityHeaders(s.withAuth(s.handleAnalysis)))

	mux.HandleFunc("GET /api/accounts", s.withSecurityHeaders(s.withAuth(s.handleListAccounts)))
	mux.HandleFunc("POST /api/accounts", s.withSecurityHeaders(s.withAuth(s.handleCreateAccount)))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withSecurityHeaders(s.withAuth(s.handleDeleteAccount)))
	mux.HandleFunc("GET /api/currencies", s.withSecurityHeaders(s.withAuth(s.handleCurrencies)))

	mux.HandleFunc("GET /api/records", s.withSecurityHeaders(s.withAuth(s.handleListRecords)))
	mux.HandleFunc("POST /api/records", s.withSecurityHeaders(s.withAuth(s.handleCreateRecord)))
	mux.HandleFunc("DELETE /api/records/{id}", s.withSecurityHeaders(s.withAuth(s.handleDeleteRecord)))

	mux.HandleFunc("GET /api/categories", s.withSecurityHeaders(s.withAuth(s.handleListCategories)))
	mux.HandleFunc("POST /api/categories", s.withSecurityHeaders(s.withAuth(s.handleCreateCategory)))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withSecurityHeaders(s.withAuth(s.handleDeleteCategory)))
	mux.HandleFunc("GET /api/labels", s.withSecurityHeaders(s.withAuth(s.handleListLabels)))
	mux.HandleFunc("POST /api/labels", s.withSecurityHeaders(s.withAuth(s.handleCreateLabel)))
	mux.HandleFunc("DELETE /api/labels/{id}", s.withSecurityHeaders(s.withAuth(s.handleDeleteLabel)))

	return s
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			kpiCleaned := s.kpiCache.CleanExpired()
			sessionsCleaned := s.sessions.cleanExpired()
			if kpiCleaned > 0 || sessionsCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"kpi_entries_removed", kpiCleaned,
					"sessions_removed", sessionsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests
		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) kpiCacheKey(userID int64) string {
	return "kpi:" + strconv.FormatInt(userID, 10)
}

func (s *Server) invalidateKPIs(userID int64) {
	s.kpiCache.Delete(s.kpiCacheKey(userID))
}
