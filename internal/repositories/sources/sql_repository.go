package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

type queries struct {
	insert  string
	byID    string
	search  map[models.SourceField]string
	updates map[models.SourceField]string
}

type SQLRepository struct {
	db dbx.DBTX
	q  *queries
}

const columns = `id, name, url, threat_level, description, creation_date, modified_date`

var postgresQueries = &queries{
	insert: `INSERT INTO sources (name, url, threat_level, description, creation_date, modified_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
	byID: `SELECT ` + columns + ` FROM sources WHERE id = $1`,
	search: map[models.SourceField]string{
		models.SourceFieldName:        `SELECT ` + columns + ` FROM sources WHERE LOWER(name) LIKE $1 ORDER BY id`,
		models.SourceFieldURL:         `SELECT ` + columns + ` FROM sources WHERE LOWER(url) LIKE $1 ORDER BY id`,
		models.SourceFieldDescription: `SELECT ` + columns + ` FROM sources WHERE LOWER(description) LIKE $1 ORDER BY id`,
		models.SourceFieldThreatLevel: `SELECT ` + columns + ` FROM sources WHERE threat_level = $1 ORDER BY id`,
	},
	updates: map[models.SourceField]string{
		models.SourceFieldName:        `UPDATE sources SET name = $1, modified_date = $2 WHERE id = $3`,
		models.SourceFieldURL:         `UPDATE sources SET url = $1, modified_date = $2 WHERE id = $3`,
		models.SourceFieldDescription: `UPDATE sources SET description = $1, modified_date = $2 WHERE id = $3`,
		models.SourceFieldThreatLevel: `UPDATE sources SET threat_level = $1, modified_date = $2 WHERE id = $3`,
	},
}

var sqliteQueries = &queries{
	insert: `INSERT INTO sources (name, url, threat_level, description, creation_date, modified_date)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
	byID: `SELECT ` + columns + ` FROM sources WHERE id = ?`,
	search: map[models.SourceField]string{
		models.SourceFieldName:        `SELECT ` + columns + ` FROM sources WHERE LOWER(name) LIKE ? ORDER BY id`,
		models.SourceFieldURL:         `SELECT ` + columns + ` FROM sources WHERE LOWER(url) LIKE ? ORDER BY id`,
		models.SourceFieldDescription: `SELECT ` + columns + ` FROM sources WHERE LOWER(description) LIKE ? ORDER BY id`,
		models.SourceFieldThreatLevel: `SELECT ` + columns + ` FROM sources WHERE threat_level = ? ORDER BY id`,
	},
	updates: map[models.SourceField]string{
		models.SourceFieldName:        `UPDATE sources SET name = ?, modified_date = ? WHERE id = ?`,
		models.SourceFieldURL:         `UPDATE sources SET url = ?, modified_date = ? WHERE id = ?`,
		models.SourceFieldDescription: `UPDATE sources SET description = ?, modified_date = ? WHERE id = ?`,
		models.SourceFieldThreatLevel: `UPDATE sources SET threat_level = ?, modified_date = ? WHERE id = ?`,
	},
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*models.Source, error) {
	s := &models.Source{}
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.ThreatLevel, &s.Description, &s.CreatedAt, &s.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLRepository) Create(ctx context.Context, s *models.Source) (*models.Source, error) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ModifiedAt.IsZero() {
		s.ModifiedAt = s.CreatedAt
	}

	err := r.db.QueryRowContext(ctx, r.q.insert,
		s.Name, s.URL, s.ThreatLevel, s.Description, s.CreatedAt, s.ModifiedAt).Scan(&s.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	s, err := scanSource(r.db.QueryRowContext(ctx, r.q.byID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) Search(ctx context.Context, field models.SourceField, value string) ([]*models.Source, error) {
	query, ok := r.q.search[field]
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not searchable", common.ErrPolicyViolation, field)
	}

	arg, err := searchArg(field, value)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) UpdateField(ctx context.Context, id int64, field models.SourceField, value string, at time.Time) error {
	query, ok := r.q.updates[field]
	if !ok {
		return fmt.Errorf("%w: field %q is not editable", common.ErrPolicyViolation, field)
	}

	var arg any = value
	if field == models.SourceFieldThreatLevel {
		level, err := ParseThreatLevel(value)
		if err != nil {
			return err
		}
		arg = level
	}

	n, err := dbx.RowsAffected(r.db.ExecContext(ctx, query, arg, at.UTC(), id))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func searchArg(field models.SourceField, value string) (any, error) {
	if field == models.SourceFieldThreatLevel {
		return ParseThreatLevel(value)
	}
	return "%" + stripWildcards(strings.ToLower(value)) + "%", nil
}

// stripWildcards drops LIKE wildcards from user input.
func stripWildcards(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

// ParseThreatLevel accepts an integer in [MinThreatLevel, MaxThreatLevel].
func ParseThreatLevel(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < models.MinThreatLevel || n > models.MaxThreatLevel {
		return 0, fmt.Errorf("%w: threat level must be %d-%d", common.ErrPolicyViolation,
			models.MinThreatLevel, models.MaxThreatLevel)
	}
	return n, nil
}
