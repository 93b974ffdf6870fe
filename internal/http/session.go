package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"budgetbook/internal/cache"
	"budgetbook/internal/core"
)

const sessionCookie = "session_token"

// sessionStore maps opaque tokens to authenticated users. Sessions
// expire via the cache TTL; there is no server-side persistence, a
// restart logs everyone out.
type sessionStore struct {
	cache *cache.LRUCache[core.User]
	ttl   time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		cache: cache.NewLRUCache[core.User](10000, ttl),
		ttl:   ttl,
	}
}

func (st *sessionStore) issue(user core.User) string {
	token := uuid.NewString()
	st.cache.Set(token, user)
	return token
}

func (st *sessionStore) get(token string) (core.User, bool) {
	return st.cache.Get(token)
}

func (st *sessionStore) revoke(token string) {
	st.cache.Delete(token)
}

func (st *sessionStore) cleanExpired() int {
	return st.cache.CleanExpired()
}

// authedHandler receives the resolved session user.
type authedHandler func(w http.ResponseWriter, r *http.Request, user core.User)

// withAuth resolves the session cookie and rejects anonymous requests.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		user, ok := s.sessions.get(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
