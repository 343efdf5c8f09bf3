package users

import (
	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

const liteColumns = `id, first_name, last_name, dob, email,
		 username, password, user_role, status, last_login`

var sqliteQueries = &queries{
	insert: `INSERT INTO users (first_name, last_name, dob, email, username, password, user_role, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
	selectByID:     `SELECT ` + liteColumns + ` FROM users WHERE id = ?`,
	selectByName:   `SELECT ` + liteColumns + ` FROM users WHERE username = ?`,
	selectByEmail:  `SELECT ` + liteColumns + ` FROM users WHERE email = ?`,
	exists:         `SELECT COUNT(*) FROM users WHERE username = ?`,
	listByRole:     `SELECT ` + liteColumns + ` FROM users WHERE user_role = ? ORDER BY id`,
	updateStatus:   `UPDATE users SET status = ? WHERE id = ? AND status IN (%s)`,
	selectStatus:   `SELECT status FROM users WHERE id = ?`,
	updatePassword: `UPDATE users SET password = ? WHERE id = ?`,
	updateLogin:    `UPDATE users SET last_login = ? WHERE id = ?`,
	updateColumn: map[models.UserField]string{
		models.FieldFirstName: `UPDATE users SET first_name = ? WHERE id = ?`,
		models.FieldLastName:  `UPDATE users SET last_name = ? WHERE id = ?`,
		models.FieldDOB:       `UPDATE users SET dob = ? WHERE id = ?`,
		models.FieldRole:      `UPDATE users SET user_role = ? WHERE id = ?`,
	},
	bind: question,
}

// NewSQLiteRepository returns a Repository speaking the SQLite dialect.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}
