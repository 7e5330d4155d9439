package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/audit"
	"github.com/aryan0dhankhar/jobmatch/internal/security/auth"
	"github.com/aryan0dhankhar/jobmatch/internal/security/ratelimit"
)

var publicPaths = map[string]bool{
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/auth/login":    true,
	"/api/auth/register": true,
	"/api/line/webhook":  true,
	"/api/transit-lines": true,
}

// isPublic reports whether a request may proceed without a principal.
// Job and package reads are public; everything else needs a token.
func isPublic(r *http.Request) bool {
	if publicPaths[r.URL.Path] {
		return true
	}
	if r.Method != http.MethodGet {
		return false
	}
	if r.URL.Path == "/api/packages" || r.URL.Path == "/api/jobs" {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/jobs/") && !strings.HasSuffix(r.URL.Path, "/match")
}

// JWTMiddleware resolves the bearer token into a security.Principal. On
// public paths a missing token is fine, but a bad one is still rejected.
// Websocket upgrades may pass the token as ?token= since browsers cannot
// set headers on them.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				t, err := auth.ExtractToken(authHeader)
				if err != nil {
					http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
					return
				}
				tokenString = t
			} else if strings.HasPrefix(r.URL.Path, "/ws/") {
				tokenString = r.URL.Query().Get("token")
			}

			if tokenString == "" {
				if isPublic(r) {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := security.WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits authenticated callers per user id
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := security.PrincipalFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(p.UserID) {
				log.Warn("rate limit exceeded", slog.String("user_id", p.UserID), slog.String("path", r.URL.Path))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every mutating request made by a principal
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := security.PrincipalFrom(r.Context()); ok && r.Method != http.MethodGet {
				auditLog.LogAction(r.Context(), strings.ToLower(r.Method), "request", r.URL.Path, "initiated", "")
			}
			next.ServeHTTP(w, r)
		})
	}
}
