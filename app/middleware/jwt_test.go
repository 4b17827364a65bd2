package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelier/doorkeeper/app/dto"
	appErrors "github.com/avelier/doorkeeper/app/errors"
)

/*
Token guard cases:
- missing, empty, and non-bearer authorization headers are rejected
- a validator rejection yields 401 and the handler never runs
- on success the principal is attached to the request context
- BearerToken extracts the raw token string
*/

type mockValidator struct {
	ValidateTokenFunc func(ctx context.Context, rawToken string) (*dto.UserResponse, *appErrors.AppError)
}

func (m *mockValidator) ValidateToken(ctx context.Context, rawToken string) (*dto.UserResponse, *appErrors.AppError) {
	return m.ValidateTokenFunc(ctx, rawToken)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"missing", "", "", false},
		{"empty bearer", "Bearer ", "", false},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", false},
		{"no scheme", "abc.def.ghi", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			token, ok := BearerToken(r)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestTokenAuthRejectsMissingHeader(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	handler := TokenAuth(&mockValidator{})(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called)
}

func TestTokenAuthRejectsInvalidToken(t *testing.T) {
	validator := &mockValidator{
		ValidateTokenFunc: func(context.Context, string) (*dto.UserResponse, *appErrors.AppError) {
			return nil, appErrors.NewUnauthorized("invalid or expired token")
		},
	}
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	handler := TokenAuth(validator)(next)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bad-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called)
}

func TestTokenAuthAttachesPrincipal(t *testing.T) {
	validator := &mockValidator{
		ValidateTokenFunc: func(_ context.Context, raw string) (*dto.UserResponse, *appErrors.AppError) {
			assert.Equal(t, "good-token", raw)
			return &dto.UserResponse{ID: "user-1", Email: "alice@example.com"}, nil
		},
	}

	var got *dto.UserResponse
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		got = user
	})
	handler := TokenAuth(validator)(next)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.ID)
}

func TestUserFromContextMissing(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}
