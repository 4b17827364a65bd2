package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelier/doorkeeper/app/logger"
)

// SessionTTL is the shared token/session lifetime.
const SessionTTL = 24 * time.Hour

// devFallbackSecret is used when JWT_SECRET is unset so local runs work
// out of the box. It must never reach production; NewTokenManager logs
// loudly when it is in effect.
const devFallbackSecret = "doorkeeper-dev-secret-do-not-deploy"

// TokenClaims carries the principal embedded in issued tokens:
// subject (user id), email, and name. The random jti guarantees two
// tokens issued for the same user are distinct strings.
type TokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies session tokens with a shared secret.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a manager around the given shared secret,
// falling back to the insecure development secret when empty.
func NewTokenManager(secret string) *TokenManager {
	if secret == "" {
		logger.Logger.Warn().
			Msg("JWT_SECRET is not set; using the insecure development fallback secret")
		secret = devFallbackSecret
	}
	return &TokenManager{secret: []byte(secret)}
}

// NewTokenManagerFromEnv reads JWT_SECRET from the environment.
func NewTokenManagerFromEnv() *TokenManager {
	return NewTokenManager(os.Getenv("JWT_SECRET"))
}

// Generate signs an HS256 token for the user with a 24h expiry.
func (tm *TokenManager) Generate(userID, email, name string) (string, error) {
	now := time.Now()
	jti, err := randomToken()
	if err != nil {
		return "", err
	}
	claims := TokenClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Parse verifies the signature and expiry of a token and returns its claims.
func (tm *TokenManager) Parse(tokenStr string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
