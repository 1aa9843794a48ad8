package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/arcana-app/credits-server-go/internal/audit"
	"github.com/arcana-app/credits-server-go/internal/util"
)

type contextKey string

const UserIDContextKey contextKey = "userId"

// UserIDHeader carries the identity resolved by the upstream auth layer.
// This service never authenticates end users itself; it only verifies that
// the request came through the trusted gateway.
const UserIDHeader = "X-User-Id"

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDContextKey).(string); ok {
		return userID
	}
	return ""
}

type AuthMiddleware struct {
	serviceTokenHash string
}

func NewAuthMiddleware(serviceTokenHash string) *AuthMiddleware {
	if serviceTokenHash == "" {
		log.Warn().Msg("SERVICE_TOKEN_HASH is empty: gateway verification disabled")
	}
	return &AuthMiddleware{serviceTokenHash: serviceTokenHash}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.serviceTokenHash != "" {
			token := extractToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "Missing authentication token",
				})
				return
			}

			if !util.ConstantTimeEqual(util.HashToken(token), m.serviceTokenHash) {
				audit.Log(r.Context(), audit.FromRequest(r, audit.Event{Type: audit.EventAuthFailure}))
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "Invalid token",
				})
				return
			}
		}

		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing user identity",
			})
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
