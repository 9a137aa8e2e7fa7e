package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"tourledger-backend/internal/config"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/security"

	"github.com/gorilla/mux"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the verified token claims, or nil on public routes.
func ClaimsFromContext(ctx context.Context) *security.Claims {
	claims, _ := ctx.Value(claimsKey).(*security.Claims)
	return claims
}

// AuthMiddleware verifies the bearer token against the security level of the
// matched route. The ledger core trusts the roles it finds in the claims.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "authorization token is not provided")
			return
		}
		claims, err := a.tokenManager.ValidateToken(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "invalid token: "+err.Error())
			return
		}
		if msg := checkSecurityLevel(level, claims); msg != "" {
			logger.Warn("Request forbidden", "route", name, "subject", claims.Subject, "reason", msg)
			writeJSONError(w, http.StatusForbidden, "forbidden", msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(header) > 7 && strings.ToUpper(header[0:7]) == "BEARER " {
		header = header[7:]
	}
	return header, header != ""
}

func checkSecurityLevel(level config.SecurityLevel, claims *security.Claims) string {
	switch level {
	case config.SecurityAccess:
		if claims.Type != security.TokenTypeAccess && claims.Type != security.TokenTypeService {
			return "access token required"
		}
	case config.SecurityFinance:
		if claims.Type != security.TokenTypeAccess || !level.Satisfies(claims.Roles) {
			return "finance role required"
		}
	case config.SecuritySystem:
		if !level.Satisfies(claims.Roles) {
			return "system or finance role required"
		}
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one line per request and turns a panic into a 500.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p, "stack", string(debug.Stack()))
				writeJSONError(rec, http.StatusInternalServerError, "internal", "internal error")
			}
			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(started).Milliseconds())
		}()
		next.ServeHTTP(rec, r)
	})
}
