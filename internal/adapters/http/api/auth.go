package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/pkg/logger"
	"github.com/okian/scholardash/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "scholardash_session"

// Auth is the shared-password gate. Without a configured password it is
// disabled and lets every request through.
type Auth struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger logger.Logger

	mu       sync.Mutex
	sessions map[string]time.Time
}

// AuthOption applies a configuration option to Auth.
type AuthOption func(*Auth)

// WithClock replaces the wall clock used for session expiry.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Auth) {
		if now != nil {
			a.now = now
		}
	}
}

// WithBcryptCost sets the cost used to hash a plain configured password.
func WithBcryptCost(cost int) AuthOption {
	return func(a *Auth) {
		a.cost = cost
	}
}

// WithAuthLogger sets the logger.
func WithAuthLogger(l logger.Logger) AuthOption {
	return func(a *Auth) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAuth builds the gate from config. A password hash takes precedence
// over a plain password.
func NewAuth(cfg config.Auth, opts ...AuthOption) (*Auth, error) {
	const op = "api.new_auth"
	a := &Auth{
		ttl:      cfg.SessionTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("auth")
	}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, WrapKind(op, ErrAuthConfig, err)
		}
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), a.cost)
		if err != nil {
			return nil, WrapKind(op, ErrAuthConfig, err)
		}
		a.hash = h
	}

	a.secret = []byte(cfg.SessionSecret)
	if len(a.secret) == 0 {
		// Sessions do not survive a restart without a configured secret.
		a.secret = []byte(uuid.NewString() + uuid.NewString())
	}
	return a, nil
}

// Enabled reports whether a password is configured.
func (a *Auth) Enabled() bool {
	return a != nil && len(a.hash) > 0
}

// Require lets authenticated requests through. API callers get 401, page
// requests are sent to the login form.
func (a *Auth) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || a.authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind("api.require", ErrUnauthorized))
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// RequireHandler is Require for a plain http.Handler.
func (a *Auth) RequireHandler(next http.Handler) http.Handler {
	return a.Require(next.ServeHTTP)
}

type loginRequest struct {
	Password string `json:"password"`
}

// HandleLogin handles GET /login (the form) and POST /login.
func (a *Auth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	switch r.Method {
	case http.MethodGet:
		if !a.Enabled() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(loginHTML))
		return
	case http.MethodPost:
	default:
		http.NotFound(w, r)
		return
	}

	if !a.Enabled() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "open"})
		return
	}

	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
	var password string
	if isJSON {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		password = req.Password
	} else {
		password = r.FormValue("password")
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		metrics.RecordLoginAttempt("denied")
		a.logger.Warn(r.Context(), "login denied", logger.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	metrics.RecordLoginAttempt("ok")

	value, expires := a.issue(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	if !isJSON {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "expires": expires})
}

// HandleLogout handles POST /logout.
func (a *Auth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, ok := a.verify(c.Value); ok {
			a.mu.Lock()
			delete(a.sessions, id)
			a.mu.Unlock()
		}
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

// Sessions returns the number of live sessions.
func (a *Auth) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func (a *Auth) issue(ctx context.Context) (string, time.Time) {
	id := uuid.NewString()
	now := a.now()
	expires := now.Add(a.ttl)

	a.mu.Lock()
	for sid, exp := range a.sessions {
		if !exp.After(now) {
			delete(a.sessions, sid)
		}
	}
	a.sessions[id] = expires
	live := len(a.sessions)
	a.mu.Unlock()

	a.logger.Debug(ctx, "session issued", logger.Int("sessions", live))
	return id + "." + a.sign(id), expires
}

func (a *Auth) authenticated(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	id, ok := a.verify(c.Value)
	if !ok {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	exp, ok := a.sessions[id]
	if !ok {
		return false
	}
	if !exp.After(a.now()) {
		delete(a.sessions, id)
		return false
	}
	return true
}

// verify checks the cookie signature and returns the session id.
func (a *Auth) verify(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(a.sign(id))) {
		return "", false
	}
	return id, true
}

func (a *Auth) sign(id string) string {
	m := hmac.New(sha256.New, a.secret)
	_, _ = m.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

const loginHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Scholar Dashboard – Sign in</title>
    <style>body{font-family:sans-serif;display:flex;justify-content:center;margin-top:15vh}form{display:flex;gap:.5rem}</style>
  </head>
  <body>
    <form method="post" action="/login">
      <input type="password" name="password" placeholder="Password" autofocus required>
      <button type="submit">Sign in</button>
    </form>
  </body>
</html>`
