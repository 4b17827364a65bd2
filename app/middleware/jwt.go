package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/avelier/doorkeeper/app/dto"
	appErrors "github.com/avelier/doorkeeper/app/errors"
)

type ctxKey string

const ctxUser ctxKey = "authUser"

// TokenValidator is the slice of the authentication service the guard
// needs: full validation of a presented token down to the live session.
type TokenValidator interface {
	ValidateToken(ctx context.Context, rawToken string) (*dto.UserResponse, *appErrors.AppError)
}

// TokenAuth creates middleware that guards protected routes. A missing
// header, malformed token, expired token, or validation miss all reject
// the request as unauthenticated before the handler runs; on success
// the sanitized principal is attached to the request context.
func TokenAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "missing or invalid authorization header", http.StatusUnauthorized)
				return
			}

			user, appErr := validator.ValidateToken(r.Context(), token)
			if appErr != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the raw bearer token from the authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", false
	}
	return token, true
}

// UserFromContext retrieves the principal set by TokenAuth.
func UserFromContext(ctx context.Context) (*dto.UserResponse, bool) {
	user, ok := ctx.Value(ctxUser).(*dto.UserResponse)
	return user, ok
}
