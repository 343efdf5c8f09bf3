// Package notify is the notification boundary. Deliveries are attempted
// once; the outcome is reported to the caller and never retried here.
package notify

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/suspectsources/internal/models"
)

// ErrNotConfigured is returned when no delivery channel is available.
var ErrNotConfigured = errors.New("notification channel not configured")

type Notifier interface {
	// SendCredentials delivers a generated clear-text password to a new user.
	SendCredentials(ctx context.Context, to, username, password string) error
	SendPasswordChanged(ctx context.Context, to, username string) error
	SendNewSource(ctx context.Context, to string, s *models.Source) error
}
