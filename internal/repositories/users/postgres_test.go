package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

var userColumns = []string{"id", "first_name", "last_name", "dob", "email", "username", "password", "user_role", "status", "last_login"}

func sampleUser() *models.User {
	return &models.User{
		FirstName:      "John",
		LastName:       "Smith",
		DOB:            "1980-02-01",
		Email:          "john@example.com",
		UserName:       "j.smith",
		CredentialHash: "$argon2id$stub",
		Role:           models.RoleSpecialist,
		Status:         models.StatusActive,
	}
}

func TestPostgres_Create_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+users\s*\(first_name,.*status\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3::date,.*\$8\)\s*RETURNING\s+id$`
	mock.ExpectQuery(q).
		WithArgs("John", "Smith", "1980-02-01", "john@example.com", "j.smith", "$argon2id$stub", 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	got, err := repo.Create(context.Background(), sampleUser())
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Create_UniqueViolations(t *testing.T) {
	cases := []struct {
		name       string
		constraint string
		want       error
	}{
		{"username", "users_username_key", common.ErrUsernameTaken},
		{"email", "users_email_key", common.ErrAlreadyExists},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tc.constraint})

			_, err := repo.Create(context.Background(), sampleUser())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPostgres_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sampleUser())
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestPostgres_GetByUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+id,.*to_char\(dob, 'YYYY-MM-DD'\).*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`

	login := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q).WithArgs("j.smith").WillReturnRows(
		sqlmock.NewRows(userColumns).
			AddRow(int64(7), "John", "Smith", "1980-02-01", "john@example.com", "j.smith", "h", 2, 1, login))

	u, err := repo.GetByUsername(context.Background(), "j.smith")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, models.RoleSpecialist, u.Role)
	assert.Equal(t, models.StatusActive, u.Status)
	require.NotNil(t, u.LastLogin)
	assert.True(t, login.Equal(*u.LastLogin))
}

func TestPostgres_GetByID_NullLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+id\s*=\s*\$1$`).WithArgs(int64(7)).WillReturnRows(
		sqlmock.NewRows(userColumns).
			AddRow(int64(7), "John", "Smith", "1980-02-01", "john@example.com", "j.smith", "h", 1, 3, nil))

	u, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, u.LastLogin)
	assert.True(t, u.FirstLogin())
	assert.Equal(t, models.StatusLocked, u.Status)
}

func TestPostgres_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+email\s*=\s*\$1$`).WithArgs("x@y.z").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "x@y.z")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_UsernameExists(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("j.smith").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.UsernameExists(context.Background(), "j.smith")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgres_ListByRole(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+user_role\s*=\s*\$1\s+ORDER\s+BY\s+id$`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(1), "Ann", "Lee", "1970-01-01", "ann@gov.example", "a.lee", "h", 3, 1, nil).
			AddRow(int64(2), "Bob", "Ray", "1971-01-01", "bob@gov.example", "b.ray", "h", 3, 1, nil))

	list, err := repo.ListByRole(context.Background(), models.RoleExternalAuthority)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.ray", list[1].UserName)
}

func TestPostgres_UpdateStatus_CompareAndSwap(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+status\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s+AND\s+status\s+IN\s+\(\$3,\s*\$4\)$`).
		WithArgs(2, int64(5), 1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 5,
		[]models.Status{models.StatusActive, models.StatusLocked}, models.StatusDeactivated)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateStatus_PreconditionFails(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+status`).
		WithArgs(1, int64(5), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)^SELECT\s+status\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(1))

	err := repo.UpdateStatus(context.Background(), 5, []models.Status{models.StatusLocked}, models.StatusActive)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestPostgres_UpdateStatus_Missing(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+status`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)^SELECT\s+status`).WillReturnError(sql.ErrNoRows)

	err := repo.UpdateStatus(context.Background(), 9, []models.Status{models.StatusActive}, models.StatusLocked)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_UpdateStatus_NoExpected(t *testing.T) {
	repo, _ := newRepoWithMock(t)
	err := repo.UpdateStatus(context.Background(), 9, nil, models.StatusLocked)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestPostgres_UpdateCredential(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`).
		WithArgs("newhash", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCredential(context.Background(), 3, "newhash"))

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.UpdateCredential(context.Background(), 4, "x"), common.ErrorNotFound)
}

func TestPostgres_UpdateLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+last_login\s*=\s*\$1`).
		WithArgs(at, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateLastLogin(context.Background(), 3, at))
}

func TestPostgres_UpdateAttribute(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+dob\s*=\s*\$1::date\s+WHERE\s+id\s*=\s*\$2$`).
		WithArgs("1990-12-31", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateAttribute(context.Background(), 3, models.FieldDOB, "1990-12-31"))

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+user_role\s*=\s*\$1`).
		WithArgs(3, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateAttribute(context.Background(), 3, models.FieldRole, "3"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateAttribute_RejectsUnknownField(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	err := repo.UpdateAttribute(context.Background(), 3, models.UserField("password"), "x")
	require.ErrorIs(t, err, common.ErrPolicyViolation)

	err = repo.UpdateAttribute(context.Background(), 3, models.FieldRole, "9")
	require.ErrorIs(t, err, common.ErrPolicyViolation)

	require.NoError(t, mock.ExpectationsWereMet())
}
