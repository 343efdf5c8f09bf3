package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/repomanager"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func johnSmith() NewUser {
	return NewUser{FirstName: "John", LastName: "Smith", DOB: "1980-02-01", Email: "john@example.com", Role: models.RoleSpecialist}
}

func TestCreateUser_DerivesUsernameAndNotifies(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res, err := env.accounts.CreateUser(ctx, env.admin, johnSmith())
	require.NoError(t, err)
	assert.Equal(t, "j.smith", res.Username)
	assert.True(t, res.Notified)

	u := env.user(t, res.ID)
	assert.Equal(t, models.StatusActive, u.Status)
	assert.Nil(t, u.LastLogin)

	mails := env.notifier.byKind("credentials")
	require.Len(t, mails, 1)
	assert.Equal(t, "john@example.com", mails[0].to)
	assert.Len(t, mails[0].password, env.cfg.GeneratedPasswordLength)
	assert.NotContains(t, u.CredentialHash, mails[0].password)
	assert.True(t, env.hasher.Verify(u.CredentialHash, []byte(mails[0].password)))

	assert.Equal(t, []string{models.EventCreateUser}, env.auditEvents(t, models.StreamAdmin, res.ID))
}

func TestCreateUser_SuffixSequence(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.seed(t, "j.smith", "x", models.RoleSpecialist, models.StatusActive, false)
	env.seed(t, "j.smith1", "x", models.RoleSpecialist, models.StatusActive, false)

	res, err := env.accounts.CreateUser(ctx, env.admin, johnSmith())
	require.NoError(t, err)
	assert.Equal(t, "j.smith2", res.Username)
}

func TestCreateUser_NotificationFailureIsReported(t *testing.T) {
	env := newEnv(t)
	env.notifier.err = errors.New("smtp down")

	res, err := env.accounts.CreateUser(context.Background(), env.admin, johnSmith())
	require.NoError(t, err)
	assert.False(t, res.Notified)
	// exactly one attempt
	assert.Len(t, env.notifier.byKind("credentials"), 1)
}

func TestCreateUser_Rejections(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	spec := env.seed(t, "s.spec", "x", models.RoleSpecialist, models.StatusActive, true)
	_, err := env.accounts.CreateUser(ctx, principal(spec), johnSmith())
	require.ErrorIs(t, err, common.ErrForbidden)

	bad := johnSmith()
	bad.Email = "not-an-email"
	_, err = env.accounts.CreateUser(ctx, env.admin, bad)
	require.ErrorIs(t, err, common.ErrPolicyViolation)

	bad = johnSmith()
	bad.DOB = "1980-13-40"
	_, err = env.accounts.CreateUser(ctx, env.admin, bad)
	require.ErrorIs(t, err, common.ErrPolicyViolation)

	_, err = env.accounts.CreateUser(ctx, env.admin, johnSmith())
	require.NoError(t, err)
	dupEmail := johnSmith()
	dupEmail.FirstName = "Jane"
	_, err = env.accounts.CreateUser(ctx, env.admin, dupEmail)
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

// barrierManager makes the first two username probes wait for each other so
// both creators see the same free name before inserting.
type barrierManager struct {
	repomanager.SQLiteRepositoryManager
	calls   atomic.Int32
	arrived sync.WaitGroup
}

type barrierUsers struct {
	users.Repository
	m *barrierManager
}

func (m *barrierManager) Users(db dbx.DBTX) users.Repository {
	return &barrierUsers{Repository: m.SQLiteRepositoryManager.Users(db), m: m}
}

func (b *barrierUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	taken, err := b.Repository.UsernameExists(ctx, username)
	if b.m.calls.Add(1) <= 2 {
		b.m.arrived.Done()
		b.m.arrived.Wait()
	}
	return taken, err
}

func TestCreateUser_ConcurrentSameNameNeverDuplicates(t *testing.T) {
	m := &barrierManager{}
	m.arrived.Add(2)
	env := newEnvWithManager(t, m)
	ctx := context.Background()

	inputs := []NewUser{johnSmith(), johnSmith()}
	inputs[1].Email = "john.two@example.com"

	results := make([]*CreatedUser, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.accounts.CreateUser(ctx, env.admin, inputs[i])
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	names := []string{results[0].Username, results[1].Username}
	assert.ElementsMatch(t, []string{"j.smith", "j.smith1"}, names)
}

func TestCreateUser_ManyConcurrentCreatesStayUnique(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	const n = 6
	var wg sync.WaitGroup
	names := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := johnSmith()
			in.Email = "john" + string(rune('a'+i)) + "@example.com"
			res, err := env.accounts.CreateUser(ctx, env.admin, in)
			errs[i] = err
			if err == nil {
				names[i] = res.Username
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range names {
		require.NoError(t, errs[i])
		assert.False(t, seen[names[i]], "duplicate %s", names[i])
		seen[names[i]] = true
	}
}

func TestModifyAttribute(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.seed(t, "j.smith", "x", models.RoleSpecialist, models.StatusActive, true)

	require.NoError(t, env.accounts.ModifyAttribute(ctx, env.admin, u.ID, "last_name", "Smythe"))
	require.NoError(t, env.accounts.ModifyAttribute(ctx, env.admin, u.ID, "role", "3"))

	got := env.user(t, u.ID)
	assert.Equal(t, "Smythe", got.LastName)
	assert.Equal(t, models.RoleExternalAuthority, got.Role)
	assert.Equal(t, "j.smith", got.UserName)

	entries, err := env.repos.AuditLog(env.db).List(ctx, models.StreamAdmin, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, &models.AttributeChange{Field: "last_name", OldValue: "User", NewValue: "Smythe"}, entries[0].Change)
	assert.Equal(t, &models.AttributeChange{Field: "role", OldValue: "2", NewValue: "3"}, entries[1].Change)
}

func TestModifyAttribute_DisallowedFieldHasNoEffect(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.seed(t, "j.smith", "x", models.RoleSpecialist, models.StatusActive, true)
	before := env.user(t, u.ID)

	for _, field := range []string{"password", "status", "username", "email", "first_name = 'x', status", ""} {
		err := env.accounts.ModifyAttribute(ctx, env.admin, u.ID, field, "3")
		require.ErrorIs(t, err, common.ErrPolicyViolation, field)
	}

	assert.Equal(t, before, env.user(t, u.ID))
	assert.Empty(t, env.auditEvents(t, models.StreamAdmin, u.ID))
}

func TestModifyAttribute_AdminCannotChangeOwnRole(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	err := env.accounts.ModifyAttribute(ctx, env.admin, env.admin.ID, "role", "2")
	require.ErrorIs(t, err, common.ErrPolicyViolation)

	admins, err := env.accounts.ListByRole(ctx, env.admin, models.RoleAdministrator)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
	assert.Empty(t, env.auditEvents(t, models.StreamAdmin, env.admin.ID))

	// other own attributes stay editable
	require.NoError(t, env.accounts.ModifyAttribute(ctx, env.admin, env.admin.ID, "first_name", "Alice"))
}

func TestModifyAttribute_MissingUser(t *testing.T) {
	env := newEnv(t)
	err := env.accounts.ModifyAttribute(context.Background(), env.admin, 999, "first_name", "Bob")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStatusTransitions(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.seed(t, "j.smith", "x", models.RoleSpecialist, models.StatusActive, true)

	// unlock needs Locked
	require.ErrorIs(t, env.accounts.Unlock(ctx, env.admin, u.ID), common.ErrInvalidState)

	require.NoError(t, env.accounts.Lock(ctx, env.admin, u.ID))
	assert.Equal(t, models.StatusLocked, env.user(t, u.ID).Status)
	require.ErrorIs(t, env.accounts.Lock(ctx, env.admin, u.ID), common.ErrInvalidState)

	require.NoError(t, env.accounts.Unlock(ctx, env.admin, u.ID))
	assert.Equal(t, models.StatusActive, env.user(t, u.ID).Status)

	require.NoError(t, env.accounts.Deactivate(ctx, env.admin, u.ID))
	assert.Equal(t, models.StatusDeactivated, env.user(t, u.ID).Status)
	require.ErrorIs(t, env.accounts.Deactivate(ctx, env.admin, u.ID), common.ErrInvalidState)
	require.ErrorIs(t, env.accounts.Unlock(ctx, env.admin, u.ID), common.ErrInvalidState)

	entries := env.auditEntries(t, models.StreamAdmin, u.ID)
	require.Len(t, entries, 3)
	want := []struct {
		event    string
		from, to string
	}{
		{models.EventLockUser, "1", "3"},
		{models.EventUnlockUser, "3", "1"},
		{models.EventDeactivateUser, "1", "2"},
	}
	for i, w := range want {
		assert.Equal(t, w.event, entries[i].EventType)
		require.NotNil(t, entries[i].Change, w.event)
		assert.Equal(t, models.AttributeChange{Field: "status", OldValue: w.from, NewValue: w.to}, *entries[i].Change)
	}

	require.ErrorIs(t, env.accounts.Lock(ctx, env.admin, 999), common.ErrorNotFound)
	require.ErrorIs(t, env.accounts.Deactivate(ctx, env.admin, 999), common.ErrorNotFound)
}

func TestDeactivate_RecordsLockedAsOldStatus(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	locked := env.seed(t, "l.locked", "x", models.RoleSpecialist, models.StatusLocked, true)

	require.NoError(t, env.accounts.Deactivate(ctx, env.admin, locked.ID))

	entries := env.auditEntries(t, models.StreamAdmin, locked.ID)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Change)
	assert.Equal(t, "3", entries[0].Change.OldValue)
	assert.Equal(t, "2", entries[0].Change.NewValue)
}

func TestStatusTransitions_Guards(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	spec := env.seed(t, "s.spec", "x", models.RoleSpecialist, models.StatusActive, true)

	require.ErrorIs(t, env.accounts.Lock(ctx, principal(spec), env.admin.ID), common.ErrForbidden)
	require.ErrorIs(t, env.accounts.Deactivate(ctx, env.admin, env.admin.ID), common.ErrPolicyViolation)
	require.ErrorIs(t, env.accounts.Lock(ctx, env.admin, env.admin.ID), common.ErrPolicyViolation)

	locked := env.seed(t, "l.locked", "x", models.RoleSpecialist, models.StatusLocked, true)
	require.NoError(t, env.accounts.Deactivate(ctx, env.admin, locked.ID))
}

func TestFindUserAndListByRole(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.seed(t, "e.auth", "x", models.RoleExternalAuthority, models.StatusActive, true)

	for _, by := range []UserLookup{{ID: u.ID}, {Username: "e.auth"}, {Email: "e.auth@example.com"}} {
		got, err := env.accounts.FindUser(ctx, env.admin, by)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	}

	_, err := env.accounts.FindUser(ctx, env.admin, UserLookup{})
	require.ErrorIs(t, err, common.ErrPolicyViolation)
	_, err = env.accounts.FindUser(ctx, env.admin, UserLookup{Username: "ghost"})
	require.ErrorIs(t, err, common.ErrorNotFound)

	list, err := env.accounts.ListByRole(ctx, env.admin, models.RoleExternalAuthority)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = env.accounts.ListByRole(ctx, principal(u), models.RoleExternalAuthority)
	require.ErrorIs(t, err, common.ErrForbidden)
}

func TestStoreErr(t *testing.T) {
	err := storeErr(errors.New("conn reset"))
	require.ErrorIs(t, err, common.ErrPersistence)
	require.ErrorContains(t, err, "conn reset")

	require.ErrorIs(t, storeErr(common.ErrorNotFound), common.ErrorNotFound)
	assert.NotErrorIs(t, storeErr(common.ErrorNotFound), common.ErrPersistence)
}
