package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/set-night/tokobot/internal/config"
	"github.com/set-night/tokobot/internal/service"
)

type claimsKey struct{}

// SessionAuth accepts a session token from the session cookie or an
// Authorization: Bearer header.
func SessionAuth(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				httpError(w, http.StatusUnauthorized, "Unauthorized. Silakan login.")
				return
			}
			claims, err := auth.Verify(token)
			if err != nil {
				httpError(w, http.StatusUnauthorized, "Unauthorized. Silakan login.")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func sessionToken(r *http.Request) string {
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	if c, err := r.Cookie(config.AdminSessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// adminFrom returns the authenticated admin's username, or "".
func adminFrom(ctx context.Context) string {
	if c, ok := ctx.Value(claimsKey{}).(*service.AdminClaims); ok {
		return c.Username
	}
	return ""
}
