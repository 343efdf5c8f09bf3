package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/config"
	"github.com/dmitrijs2005/suspectsources/internal/cryptox"
	"github.com/dmitrijs2005/suspectsources/internal/dbtest"
	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	kind     string
	to       string
	username string
	password string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) add(m sentMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

func (f *fakeNotifier) SendCredentials(_ context.Context, to, username, password string) error {
	return f.add(sentMail{kind: "credentials", to: to, username: username, password: password})
}

func (f *fakeNotifier) SendPasswordChanged(_ context.Context, to, username string) error {
	return f.add(sentMail{kind: "changed", to: to, username: username})
}

func (f *fakeNotifier) SendNewSource(_ context.Context, to string, _ *models.Source) error {
	return f.add(sentMail{kind: "source", to: to})
}

func (f *fakeNotifier) byKind(kind string) []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMail
	for _, m := range f.sent {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	hasher   *cryptox.Hasher
	notifier *fakeNotifier
	accounts *AccountService
	sources  *SourceService
	cfg      *config.Config
	admin    models.Principal
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithManager(t, &repomanager.SQLiteRepositoryManager{})
}

func newEnvWithManager(t *testing.T, m repomanager.RepositoryManager) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	cfg := &config.Config{}
	cfg.LoadDefaults()

	hasher := cryptox.NewHasher(cryptox.Argon2Params{Time: 1, MemoryKiB: 1024, Threads: 1})
	log := logging.Discard()
	sink := audit.NewSink(m.AuditLog(db), log)
	n := &fakeNotifier{}

	env := &testEnv{
		db:       db,
		repos:    m,
		hasher:   hasher,
		notifier: n,
		accounts: NewAccountService(db, m, hasher, sink, n, log, cfg),
		sources:  NewSourceService(db, m, sink, n, log),
		cfg:      cfg,
	}
	env.accounts.now = func() time.Time { return fixedNow }
	env.sources.now = func() time.Time { return fixedNow }

	admin := env.seed(t, "a.admin", "Admin#Pass123", models.RoleAdministrator, models.StatusActive, true)
	env.admin = models.Principal{ID: admin.ID, Username: admin.UserName, Role: models.RoleAdministrator}
	return env
}

// seed inserts a user directly. loggedIn sets last_login so the user is
// past the first-login change.
func (e *testEnv) seed(t *testing.T, username, password string, role models.Role, status models.Status, loggedIn bool) *models.User {
	t.Helper()
	ctx := context.Background()

	hash, err := e.hasher.Hash([]byte(password))
	require.NoError(t, err)

	repo := e.repos.Users(e.db)
	u, err := repo.Create(ctx, &models.User{
		FirstName:      "Test",
		LastName:       "User",
		DOB:            "1985-05-05",
		Email:          username + "@example.com",
		UserName:       username,
		CredentialHash: hash,
		Role:           role,
		Status:         status,
	})
	require.NoError(t, err)

	if loggedIn {
		require.NoError(t, repo.UpdateLastLogin(ctx, u.ID, fixedNow.Add(-time.Hour)))
	}
	return u
}

func (e *testEnv) user(t *testing.T, id int64) *models.User {
	t.Helper()
	u, err := e.repos.Users(e.db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) auditEvents(t *testing.T, stream models.AuditStream, subject int64) []string {
	t.Helper()
	entries, err := e.repos.AuditLog(e.db).List(context.Background(), stream, subject)
	require.NoError(t, err)
	var out []string
	for _, en := range entries {
		out = append(out, en.EventType)
	}
	return out
}

func principal(u *models.User) models.Principal {
	return models.Principal{ID: u.ID, Username: u.UserName, Role: u.Role}
}

func (e *testEnv) auditEntries(t *testing.T, stream models.AuditStream, subject int64) []*models.AuditEntry {
	t.Helper()
	entries, err := e.repos.AuditLog(e.db).List(context.Background(), stream, subject)
	require.NoError(t, err)
	return entries
}
