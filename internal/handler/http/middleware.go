package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Authenticator bridges the user service's session validation to the shared
// auth middleware.
func Authenticator(users *service.UserService) middleware.Authenticator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		c, err := users.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		mc := &middleware.Claims{
			UserID:    c.UserID,
			Email:     c.Email,
			Role:      c.Role,
			SessionID: c.ID,
		}
		if c.ExpiresAt != nil {
			mc.ExpiresAt = c.ExpiresAt.Time
		}
		return mc, nil
	}
}

// sessionClaims rebuilds the session claims the user service needs to end a session.
func sessionClaims(c *middleware.Claims) *auth.Claims {
	sc := &auth.Claims{UserID: c.UserID, Email: c.Email, Role: c.Role}
	sc.ID = c.SessionID
	if !c.ExpiresAt.IsZero() {
		sc.ExpiresAt = jwt.NewNumericDate(c.ExpiresAt.Truncate(time.Second))
	}
	return sc
}

// ContentTypeJSON rejects request bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
