package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

type SQLRepository struct {
	db         dbx.DBTX
	insertStmt string
	listStmt   string
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{
		db: db,
		insertStmt: `INSERT INTO audit_log (created_at, stream, operation, actor_id, subject_id, modified_attribute, old_value, new_value)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		listStmt: `SELECT id, created_at, stream, operation, actor_id, subject_id, modified_attribute, old_value, new_value
		 FROM audit_log WHERE stream = $1 AND subject_id = $2 ORDER BY id`,
	}
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{
		db: db,
		insertStmt: `INSERT INTO audit_log (created_at, stream, operation, actor_id, subject_id, modified_attribute, old_value, new_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		listStmt: `SELECT id, created_at, stream, operation, actor_id, subject_id, modified_attribute, old_value, new_value
		 FROM audit_log WHERE stream = ? AND subject_id = ? ORDER BY id`,
	}
}

func (r *SQLRepository) Append(ctx context.Context, e *models.AuditEntry) (*models.AuditEntry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()

	var field, oldValue, newValue sql.NullString
	if e.Change != nil {
		field = sql.NullString{String: e.Change.Field, Valid: true}
		oldValue = sql.NullString{String: e.Change.OldValue, Valid: true}
		newValue = sql.NullString{String: e.Change.NewValue, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, r.insertStmt,
		e.Timestamp, string(e.Stream), e.EventType, e.ActorID, e.SubjectID,
		field, oldValue, newValue).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *SQLRepository) List(ctx context.Context, stream models.AuditStream, subjectID int64) ([]*models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.listStmt, string(stream), subjectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		var s string
		var field, oldValue, newValue sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &s, &e.EventType, &e.ActorID, &e.SubjectID,
			&field, &oldValue, &newValue); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Stream = models.AuditStream(s)
		if field.Valid {
			e.Change = &models.AttributeChange{Field: field.String, OldValue: oldValue.String, NewValue: newValue.String}
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
