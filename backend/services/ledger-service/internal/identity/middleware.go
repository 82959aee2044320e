package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"evledger/backend/services/ledger-service/internal/ledger"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware requires a valid bearer token and stores the caller identity in the request context.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header")
				return
			}
			caller, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext retrieves the caller identity stored by Middleware.
func FromContext(ctx context.Context) (ledger.Identity, bool) {
	caller, ok := ctx.Value(identityKey).(ledger.Identity)
	if !ok || caller.IsZero() {
		return "", false
	}
	return caller, true
}

// WithIdentity returns ctx carrying caller.
func WithIdentity(ctx context.Context, caller ledger.Identity) context.Context {
	return context.WithValue(ctx, identityKey, caller)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
