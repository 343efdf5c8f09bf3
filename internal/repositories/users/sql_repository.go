package users

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

// queries holds the dialect specific statements.
type queries struct {
	insert         string
	selectByID     string
	selectByName   string
	selectByEmail  string
	exists         string
	listByRole     string
	updateStatus   string // %s is replaced by the IN list of expected statuses
	selectStatus   string
	updatePassword string
	updateLogin    string
	updateColumn   map[models.UserField]string
	bind           func(n int) string
}

// SQLRepository implements Repository over a dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
	q  *queries
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.DOB, &u.Email,
		&u.UserName, &u.CredentialHash, &u.Role, &u.Status, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	err := r.db.QueryRowContext(ctx, r.q.insert,
		u.FirstName, u.LastName, u.DOB, u.Email, u.UserName, u.CredentialHash,
		int(u.Role), int(u.Status)).Scan(&u.ID)

	if err != nil {
		if key, ok := dbx.UniqueViolation(err); ok {
			if strings.Contains(key, "username") {
				return nil, fmt.Errorf("%w: %s", common.ErrUsernameTaken, u.UserName)
			}
			return nil, fmt.Errorf("%w: %s", common.ErrAlreadyExists, key)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, r.q.selectByID, id)
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, r.q.selectByName, username)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, r.q.selectByEmail, email)
}

func (r *SQLRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, r.q.exists, username).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listByRole, int(role))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) UpdateStatus(ctx context.Context, id int64, from []models.Status, to models.Status) error {
	if len(from) == 0 {
		return fmt.Errorf("%w: no expected status", common.ErrInvalidState)
	}

	args := []any{int(to), id}
	marks := make([]string, 0, len(from))
	for i, s := range from {
		marks = append(marks, r.q.bind(i+3))
		args = append(args, int(s))
	}
	query := fmt.Sprintf(r.q.updateStatus, strings.Join(marks, ", "))

	n, err := dbx.RowsAffected(r.db.ExecContext(ctx, query, args...))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return nil
	}

	// nothing matched: tell a missing row from a failed precondition
	var current int
	err = r.db.QueryRowContext(ctx, r.q.selectStatus, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return fmt.Errorf("%w: user %d is %s", common.ErrInvalidState, id, models.Status(current))
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) error {
	n, err := dbx.RowsAffected(r.db.ExecContext(ctx, query, args...))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) UpdateCredential(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, r.q.updatePassword, hash, id)
}

func (r *SQLRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, r.q.updateLogin, at.UTC(), id)
}

// UpdateAttribute writes one allow-listed column. Field names never reach
// the SQL text; each maps to a fixed statement.
func (r *SQLRepository) UpdateAttribute(ctx context.Context, id int64, field models.UserField, value string) error {
	query, ok := r.q.updateColumn[field]
	if !ok {
		return fmt.Errorf("%w: field %q is not editable", common.ErrPolicyViolation, field)
	}

	var arg any = value
	if field == models.FieldRole {
		role, err := models.ParseRole(value)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrPolicyViolation, err)
		}
		arg = int(role)
	}

	return r.exec(ctx, query, arg, id)
}

func dollar(n int) string   { return "$" + strconv.Itoa(n) }
func question(_ int) string { return "?" }
