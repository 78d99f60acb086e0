package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

// CookieName is the cookie checked when no Authorization header is sent.
const CookieName = "auth_token"

// FromContext returns the caller identity stored by Middleware.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Middleware rejects requests that are not signed in. With an empty secret
// every request runs as LocalUserID.
func Middleware(secretKey []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secretKey) == 0 {
				ctx := WithIdentity(r.Context(), Identity{UserID: LocalUserID, SignedIn: true})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Not signed in", http.StatusUnauthorized)
				return
			}
			userID, err := ValidateToken(token, secretKey)
			if err != nil {
				logger.Warn("rejected token", zap.Error(err), zap.String("path", r.URL.Path))
				http.Error(w, "Not signed in", http.StatusUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: userID, SignedIn: true})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
