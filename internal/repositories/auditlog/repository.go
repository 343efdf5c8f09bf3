// Package auditlog stores audit entries in the append-only audit_log table.
package auditlog

import (
	"context"

	"github.com/dmitrijs2005/suspectsources/internal/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditEntry) (*models.AuditEntry, error)
	// List returns the entries of stream about subjectID, oldest first.
	List(ctx context.Context, stream models.AuditStream, subjectID int64) ([]*models.AuditEntry, error)
}
