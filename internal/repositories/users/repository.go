// Package users is the User Record Store: narrow, per-call atomic access to
// the users relation for both supported dialects.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/models"
)

type Repository interface {
	// Create inserts u and sets u.ID. A collision on the username key
	// returns common.ErrUsernameTaken, on the email key common.ErrAlreadyExists.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)

	// UpdateStatus moves the user to status to only if its current status is
	// one of from. It returns common.ErrorNotFound for a missing user and
	// common.ErrInvalidState when the precondition does not hold.
	UpdateStatus(ctx context.Context, id int64, from []models.Status, to models.Status) error
	UpdateCredential(ctx context.Context, id int64, hash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateAttribute(ctx context.Context, id int64, field models.UserField, value string) error
}
