package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/config"
	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/service"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// UserFrom returns the signed-in user attached by Session, or nil.
func UserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}

// TokenFrom returns the session token attached by Session, or "".
func TokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// AuthHandler serves the /api/auth routes and resolves sessions.
type AuthHandler struct {
	svc *service.AuthService
	cfg config.AuthConfig
	log *logrus.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *service.AuthService, cfg config.AuthConfig, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg, log: log}
}

// Session resolves the bearer token or session cookie and attaches the user
// to the request context. Requests without a valid session pass through
// anonymously.
func (h *AuthHandler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.tokenFrom(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := h.svc.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, model.ErrUnauthenticated) {
				h.log.WithError(err).Warn("session lookup failed")
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) tokenFrom(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetCookie stores token in the session cookie.
func (h *AuthHandler) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.SessionTTL),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (h *AuthHandler) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeFailure(w, r, h.log, err, "Registration failed. Please try again.")
		return
	}

	h.SetCookie(w, token)
	writeJSON(w, http.StatusCreated, model.AuthResponse{Success: true, User: user, Token: token})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeFailure(w, r, h.log, err, "Login failed. Please try again.")
		return
	}

	h.SetCookie(w, token)
	writeJSON(w, http.StatusOK, model.AuthResponse{Success: true, User: user, Token: token})
}

// Logout handles POST /api/auth/logout
// Signing out without a session succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), TokenFrom(r.Context())); err != nil {
		writeFailure(w, r, h.log, err, "Logout failed. Please try again.")
		return
	}

	h.ClearCookie(w)
	writeJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "Logged out successfully"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, model.AuthResponse{Success: true, User: user})
}
