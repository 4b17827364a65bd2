package store

import (
	"context"
	"errors"
	"time"

	"github.com/avelier/doorkeeper/app/models"
)

// ErrNotFound is returned by point lookups that match no row, regardless
// of backend. Callers discriminate it from transport failures with
// errors.Is.
var ErrNotFound = errors.New("store: not found")

// Storage bundles the named credential-store operations, one method per
// remote operation. No business logic lives behind these interfaces;
// uniqueness checks and expiry decisions belong to the service layer.
type Storage struct {
	Users interface {
		// Create inserts the user and assigns the store-side fields
		// (id, created_at, updated_at).
		Create(ctx context.Context, user *models.User) error
		GetByEmail(ctx context.Context, email string) (*models.User, error)
		GetByID(ctx context.Context, id string) (*models.User, error)
		// Update patches name/email_verified and bumps updated_at.
		Update(ctx context.Context, user *models.User) error
	}
	Sessions interface {
		// Create inserts the session and assigns id and created_at.
		Create(ctx context.Context, session *models.Session) error
		GetByToken(ctx context.Context, token string) (*models.Session, error)
		// Delete removes a session by id. Deleting a missing session
		// is not an error.
		Delete(ctx context.Context, id string) error
		// DeleteExpired removes every session with expires_at before
		// now and reports how many rows went away.
		DeleteExpired(ctx context.Context, now time.Time) (int, error)
	}
}
