package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/avelier/doorkeeper/app/dto"
	appErrors "github.com/avelier/doorkeeper/app/errors"
	"github.com/avelier/doorkeeper/app/logger"
	"github.com/avelier/doorkeeper/app/metrics"
	"github.com/avelier/doorkeeper/app/models"
	"github.com/avelier/doorkeeper/app/store"
)

// hashCost is fixed and non-configurable; changing it would break
// verification compatibility guarantees for already-stored hashes.
const hashCost = 12

// AuthService owns the password-hashing and token-issuance policy and
// orchestrates credential-store calls for the authentication lifecycle.
type AuthService struct {
	store     store.Storage
	tokens    *TokenManager
	publisher EventPublisher
}

// NewAuthService creates a new AuthService. publisher may be nil; event
// publishing is best effort and never fails an auth operation.
func NewAuthService(store store.Storage, tokens *TokenManager, publisher EventPublisher) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		publisher: publisher,
	}
}

// SignUp creates an account, issues a token, and opens a session.
// The email uniqueness check is a pre-insert lookup, not a store
// constraint; concurrent signups for the same email can race.
func (s *AuthService) SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.AuthResponse, *appErrors.AppError) {
	existing, err := s.store.Users.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, appErrors.NewConflict("user already exists with this email")
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, appErrors.NewInternal("error checking for existing user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), hashCost)
	if err != nil {
		return nil, appErrors.NewInternal("error hashing password", err)
	}

	user := &models.User{
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: string(hashed),
		EmailVerified:  false,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, appErrors.NewInternal("error creating user", err)
	}

	token, appErr := s.issueSession(ctx, user)
	if appErr != nil {
		return nil, appErr
	}

	metrics.RecordSignUp()
	if s.publisher != nil {
		if err := s.publisher.PublishUserRegistered(ctx, user.ID, user.Email); err != nil {
			log := s.log(ctx)
			log.Error().
				Err(err).
				Str("user_id", user.ID).
				Msg("failed to publish user.registered event")
		}
	}

	return &dto.AuthResponse{
		User:        dto.NewUserResponse(user),
		AccessToken: token,
	}, nil
}

// SignIn verifies credentials and opens a fresh session. There is no
// session reuse and no cap on concurrent sessions per user.
func (s *AuthService) SignIn(ctx context.Context, req dto.SignInRequest) (*dto.AuthResponse, *appErrors.AppError) {
	user, err := s.store.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.NewUnauthorized("invalid credentials")
		}
		return nil, appErrors.NewInternal("error looking up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, appErrors.NewUnauthorized("invalid credentials")
		}
		return nil, appErrors.NewInternal("error verifying password", err)
	}

	token, appErr := s.issueSession(ctx, user)
	if appErr != nil {
		return nil, appErr
	}

	metrics.RecordSignIn()
	if s.publisher != nil {
		if err := s.publisher.PublishUserSignedIn(ctx, user.ID, user.Email); err != nil {
			log := s.log(ctx)
			log.Error().
				Err(err).
				Str("user_id", user.ID).
				Msg("failed to publish user.signed_in event")
		}
	}

	return &dto.AuthResponse{
		User:        dto.NewUserResponse(user),
		AccessToken: token,
	}, nil
}

// SignOut deletes the session matching the presented token, if any.
// Signing out with an unknown token still succeeds.
func (s *AuthService) SignOut(ctx context.Context, token string) (*dto.MessageResponse, *appErrors.AppError) {
	session, err := s.store.Sessions.GetByToken(ctx, token)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, appErrors.NewInternal("error looking up session", err)
	}
	if session != nil {
		if err := s.store.Sessions.Delete(ctx, session.ID); err != nil {
			return nil, appErrors.NewInternal("error deleting session", err)
		}
	}

	metrics.RecordSignOut()
	return &dto.MessageResponse{Message: "Successfully signed out"}, nil
}

// ValidateToken verifies a presented token end to end: signature and
// expiry, then user existence, then a live session matching the raw
// token string. Every failure collapses to Unauthorized - validation
// fails closed.
func (s *AuthService) ValidateToken(ctx context.Context, rawToken string) (*dto.UserResponse, *appErrors.AppError) {
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		metrics.RecordTokenValidation(false)
		return nil, appErrors.NewUnauthorized("invalid or expired token")
	}

	user, err := s.store.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log := s.log(ctx)
			log.Error().Err(err).Msg("user lookup failed during token validation")
		}
		metrics.RecordTokenValidation(false)
		return nil, appErrors.NewUnauthorized("invalid or expired token")
	}

	// The session is found by the exact token string the caller
	// presented, not a re-signed payload.
	session, err := s.store.Sessions.GetByToken(ctx, rawToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log := s.log(ctx)
			log.Error().Err(err).Msg("session lookup failed during token validation")
		}
		metrics.RecordTokenValidation(false)
		return nil, appErrors.NewUnauthorized("invalid or expired token")
	}
	if session.Expired(time.Now()) {
		metrics.RecordTokenValidation(false)
		return nil, appErrors.NewUnauthorized("invalid or expired token")
	}

	metrics.RecordTokenValidation(true)
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// GetProfile returns the full non-secret profile for a user id.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, *appErrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.NewUnauthorized("user not found")
		}
		return nil, appErrors.NewInternal("error loading profile", err)
	}

	resp := dto.NewProfileResponse(user)
	return &resp, nil
}

// UpdateProfile patches the user's mutable fields and returns the
// refreshed profile.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.ProfileResponse, *appErrors.AppError) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.NewUnauthorized("user not found")
		}
		return nil, appErrors.NewInternal("error loading profile", err)
	}

	user.Name = req.Name
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, appErrors.NewInternal("error updating profile", err)
	}

	resp := dto.NewProfileResponse(user)
	return &resp, nil
}

// CleanupExpiredSessions sweeps sessions whose expiry has passed and
// reports how many were removed. Running it twice in a row deletes
// nothing the second time.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int, *appErrors.AppError) {
	deleted, err := s.store.Sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, appErrors.NewInternal("error sweeping expired sessions", err)
	}
	metrics.RecordSessionsSwept(deleted)
	return deleted, nil
}

// issueSession signs a token for the user and persists the session row
// binding the two, expiring SessionTTL from now.
func (s *AuthService) issueSession(ctx context.Context, user *models.User) (string, *appErrors.AppError) {
	token, err := s.tokens.Generate(user.ID, user.Email, user.Name)
	if err != nil {
		return "", appErrors.NewInternal("error signing token", err)
	}

	session := &models.Session{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(SessionTTL),
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return "", appErrors.NewInternal("error creating session", err)
	}
	return token, nil
}

// log retrieves the request-scoped logger from context or falls back to
// the global logger.
func (s *AuthService) log(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return logger.Logger
}
