// Package sources stores suspect source records.
package sources

import (
	"context"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Source) (*models.Source, error)
	GetByID(ctx context.Context, id int64) (*models.Source, error)
	// Search matches text fields by case-insensitive substring and
	// threat_level exactly. value must already be validated for the field.
	Search(ctx context.Context, field models.SourceField, value string) ([]*models.Source, error)
	UpdateField(ctx context.Context, id int64, field models.SourceField, value string, at time.Time) error
}
