package users

import (
	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

const pgColumns = `id, first_name, last_name, to_char(dob, 'YYYY-MM-DD'), email,
		 username, password, user_role, status, last_login`

var postgresQueries = &queries{
	insert: `INSERT INTO users (first_name, last_name, dob, email, username, password, user_role, status)
		 VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
		 RETURNING id`,
	selectByID:     `SELECT ` + pgColumns + ` FROM users WHERE id = $1`,
	selectByName:   `SELECT ` + pgColumns + ` FROM users WHERE username = $1`,
	selectByEmail:  `SELECT ` + pgColumns + ` FROM users WHERE email = $1`,
	exists:         `SELECT COUNT(*) FROM users WHERE username = $1`,
	listByRole:     `SELECT ` + pgColumns + ` FROM users WHERE user_role = $1 ORDER BY id`,
	updateStatus:   `UPDATE users SET status = $1 WHERE id = $2 AND status IN (%s)`,
	selectStatus:   `SELECT status FROM users WHERE id = $1`,
	updatePassword: `UPDATE users SET password = $1 WHERE id = $2`,
	updateLogin:    `UPDATE users SET last_login = $1 WHERE id = $2`,
	updateColumn: map[models.UserField]string{
		models.FieldFirstName: `UPDATE users SET first_name = $1 WHERE id = $2`,
		models.FieldLastName:  `UPDATE users SET last_name = $1 WHERE id = $2`,
		models.FieldDOB:       `UPDATE users SET dob = $1::date WHERE id = $2`,
		models.FieldRole:      `UPDATE users SET user_role = $1 WHERE id = $2`,
	},
	bind: dollar,
}

// NewPostgresRepository returns a Repository speaking the PostgreSQL dialect.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}
