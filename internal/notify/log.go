package notify

import (
	"context"

	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

// LogNotifier is used when SMTP is not configured. It records that a
// message was due and reports ErrNotConfigured. Secrets are not logged.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendCredentials(ctx context.Context, to, username, _ string) error {
	n.log.Warn(ctx, "credentials not delivered", "to", to, "username", username, "err", ErrNotConfigured)
	return ErrNotConfigured
}

func (n *LogNotifier) SendPasswordChanged(ctx context.Context, to, username string) error {
	n.log.Info(ctx, "password change notice not delivered", "to", to, "username", username)
	return ErrNotConfigured
}

func (n *LogNotifier) SendNewSource(ctx context.Context, to string, s *models.Source) error {
	n.log.Info(ctx, "new source notice not delivered", "to", to, "source_id", s.ID)
	return ErrNotConfigured
}
