// src/handlers/middleware.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

type contextKey string

const (
	requestIDContextKey  contextKey = "requestID"
	credentialContextKey contextKey = "credential"
)

// ContextualLoggerMiddleware gives every request a logger enriched with a
// request ID.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CredentialMiddleware extracts the Trading 212 API key from the
// Authorization header and stores it in the request context. The key is
// only relayed upstream, never validated or persisted here; a fingerprint
// of it is attached to the contextual logger.
func CredentialMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := logger.FromContext(r.Context())

		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" {
			ctxLogger.Debug("CredentialMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header with the API key required", http.StatusUnauthorized)
			return
		}
		credential := strings.TrimPrefix(authHeader, "Bearer ")
		if credential == "" {
			utils.SendJSONError(w, "Malformed API key", http.StatusUnauthorized)
			return
		}

		enrichedLogger := ctxLogger.With(slog.String("credential", utils.HashCredential(credential)))
		ctx := logger.ToContext(r.Context(), enrichedLogger)
		ctx = context.WithValue(ctx, credentialContextKey, credential)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCredentialFromContext returns the API key placed by CredentialMiddleware.
func GetCredentialFromContext(ctx context.Context) (string, bool) {
	credential, ok := ctx.Value(credentialContextKey).(string)
	return credential, ok && credential != ""
}
