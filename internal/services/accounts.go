// Package services holds the identity and access core and the source
// record operations built on it.
//
// AccountService is the account lifecycle manager: user creation with
// username derivation, attribute edits through a fixed allow-list, and
// compare-and-swap status transitions. Every successful mutation writes one
// audit entry.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/config"
	"github.com/dmitrijs2005/suspectsources/internal/cryptox"
	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/notify"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/repomanager"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/users"
)

// maxCreateRaces bounds how often CreateUser re-derives a username after
// losing the insert to a concurrent creation.
const maxCreateRaces = 16

type AccountService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	hasher           *cryptox.Hasher
	audit            audit.Recorder
	notifier         notify.Notifier
	log              logging.Logger
	maxFailures      int
	passwordLength   int
	now              func() time.Time
	generatePassword func(int) (string, error)

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, h *cryptox.Hasher,
	rec audit.Recorder, n notify.Notifier, log logging.Logger, cfg *config.Config) *AccountService {
	return &AccountService{
		db:               db,
		repomanager:      m,
		hasher:           h,
		audit:            rec,
		notifier:         n,
		log:              log,
		maxFailures:      cfg.MaxFailedAttempts,
		passwordLength:   cfg.GeneratedPasswordLength,
		now:              time.Now,
		generatePassword: cryptox.GeneratePassword,
	}
}

func (s *AccountService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

// storeErr passes the taxonomy through and classifies everything else as a
// persistence failure.
func storeErr(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrInvalidState),
		errors.Is(err, common.ErrPolicyViolation),
		errors.Is(err, common.ErrAlreadyExists),
		errors.Is(err, common.ErrPersistence):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
}

func requireAdmin(p models.Principal) error {
	if !p.Role.CanManageUsers() {
		return fmt.Errorf("%w: %s may not manage users", common.ErrForbidden, p.Role)
	}
	return nil
}

// NewUser is the input of CreateUser.
type NewUser struct {
	FirstName string
	LastName  string
	DOB       string
	Email     string
	Role      models.Role
}

// CreatedUser reports the outcome of CreateUser. The generated password is
// not part of it: it only ever goes to the notifier.
type CreatedUser struct {
	ID       int64
	Username string
	Notified bool
}

func (s *AccountService) validateNewUser(in NewUser) error {
	if err := ValidateName(in.FirstName); err != nil {
		return err
	}
	if err := ValidateName(in.LastName); err != nil {
		return err
	}
	if err := ValidateDOB(in.DOB, s.now()); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return policyErr("unknown role %d", int(in.Role))
	}
	return nil
}

// CreateUser derives a unique username, generates and hashes a password,
// inserts an Active user and audits "Create User".
func (s *AccountService) CreateUser(ctx context.Context, actor models.Principal, in NewUser) (*CreatedUser, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validateNewUser(in); err != nil {
		return nil, err
	}

	password, err := s.generatePassword(s.passwordLength)
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.insertUser(ctx, s.users(), in, hash)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Admin(models.EventCreateUser, actor.ID, created.ID, nil))

	res := &CreatedUser{ID: created.ID, Username: created.UserName}
	if err := s.notifier.SendCredentials(ctx, created.Email, created.UserName, password); err != nil {
		s.log.Warn(ctx, "credential notification failed", "user_id", created.ID, "err", err)
	} else {
		res.Notified = true
	}
	return res, nil
}

// insertUser stores a new Active user under a freshly derived username.
// The uniqueness of the username is decided by the store: a lost insert
// race re-derives the name.
func (s *AccountService) insertUser(ctx context.Context, repo users.Repository, in NewUser, hash string) (*models.User, error) {
	base := BaseUsername(in.FirstName, in.LastName)

	for attempt := 0; attempt < maxCreateRaces; attempt++ {
		name, err := freeUsername(ctx, base, repo.UsernameExists)
		if err != nil {
			return nil, storeErr(err)
		}

		created, err := repo.Create(ctx, &models.User{
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			DOB:            in.DOB,
			Email:          in.Email,
			UserName:       name,
			CredentialHash: hash,
			Role:           in.Role,
			Status:         models.StatusActive,
		})
		if errors.Is(err, common.ErrUsernameTaken) {
			s.log.Debug(ctx, "username taken concurrently, deriving again", "username", name)
			continue
		}
		if err != nil {
			return nil, storeErr(err)
		}
		return created, nil
	}
	return nil, fmt.Errorf("%w: username %s kept colliding", common.ErrPersistence, base)
}

// normalizeField validates value for f and returns its stored form.
func (s *AccountService) normalizeField(f models.UserField, value string) (string, error) {
	switch f {
	case models.FieldFirstName, models.FieldLastName:
		return value, ValidateName(value)
	case models.FieldDOB:
		return value, ValidateDOB(value, s.now())
	case models.FieldRole:
		role, err := models.ParseRole(value)
		if err != nil {
			return "", policyErr("%v", err)
		}
		return strconv.Itoa(int(role)), nil
	default:
		return "", policyErr("field %q is not editable", f)
	}
}

// ModifyAttribute edits one allow-listed field and audits "Edit User" with
// the old and new values. A field outside the allow-list fails before any
// storage access.
func (s *AccountService) ModifyAttribute(ctx context.Context, actor models.Principal, userID int64, field, value string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	f, ok := models.ParseUserField(field)
	if !ok {
		return policyErr("field %q is not editable", field)
	}
	if f == models.FieldRole && actor.ID == userID {
		return policyErr("administrators cannot change their own role")
	}
	newValue, err := s.normalizeField(f, value)
	if err != nil {
		return err
	}

	repo := s.users()
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	oldValue := u.Value(f)

	if err := repo.UpdateAttribute(ctx, userID, f, newValue); err != nil {
		return storeErr(err)
	}

	s.audit.Record(ctx, audit.Admin(models.EventEditUser, actor.ID, userID,
		&models.AttributeChange{Field: string(f), OldValue: oldValue, NewValue: newValue}))
	return nil
}

func (s *AccountService) transition(ctx context.Context, userID int64, from []models.Status, to models.Status) error {
	if err := s.users().UpdateStatus(ctx, userID, from, to); err != nil {
		return storeErr(err)
	}
	return nil
}

// statusChange is the audit triple of a status transition, in the numeric
// storage encoding.
func statusChange(from, to models.Status) *models.AttributeChange {
	return &models.AttributeChange{
		Field:    "status",
		OldValue: strconv.Itoa(int(from)),
		NewValue: strconv.Itoa(int(to)),
	}
}

// Lock is the administrator lock: Active -> Locked, audited as "Lock User".
func (s *AccountService) Lock(ctx context.Context, actor models.Principal, userID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.ID == userID {
		return policyErr("administrators cannot lock their own account")
	}
	if err := s.transition(ctx, userID, []models.Status{models.StatusActive}, models.StatusLocked); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Admin(models.EventLockUser, actor.ID, userID,
		statusChange(models.StatusActive, models.StatusLocked)))
	return nil
}

// LockAfterFailedLogins is the lockout triggered by the login controller:
// Active -> Locked, audited on the auth stream as "Account Locked" with the
// user as its own actor.
func (s *AccountService) LockAfterFailedLogins(ctx context.Context, userID int64) error {
	if err := s.transition(ctx, userID, []models.Status{models.StatusActive}, models.StatusLocked); err != nil {
		return err
	}
	e := audit.Auth(models.EventAccountLocked, userID, userID)
	e.Change = statusChange(models.StatusActive, models.StatusLocked)
	s.audit.Record(ctx, e)
	return nil
}

// Unlock moves Locked -> Active. Any other current status is InvalidState.
func (s *AccountService) Unlock(ctx context.Context, actor models.Principal, userID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.transition(ctx, userID, []models.Status{models.StatusLocked}, models.StatusActive); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Admin(models.EventUnlockUser, actor.ID, userID,
		statusChange(models.StatusLocked, models.StatusActive)))
	return nil
}

// Deactivate moves Active or Locked -> Deactivated. An already deactivated
// user is InvalidState. The status read first is the one the update
// expects, so a concurrent change fails the update instead of being
// misreported in the audit entry.
func (s *AccountService) Deactivate(ctx context.Context, actor models.Principal, userID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.ID == userID {
		return policyErr("administrators cannot deactivate their own account")
	}

	u, err := s.users().GetByID(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if u.Status != models.StatusActive && u.Status != models.StatusLocked {
		return fmt.Errorf("%w: user %d is %s", common.ErrInvalidState, userID, u.Status)
	}
	if err := s.transition(ctx, userID, []models.Status{u.Status}, models.StatusDeactivated); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Admin(models.EventDeactivateUser, actor.ID, userID,
		statusChange(u.Status, models.StatusDeactivated)))
	return nil
}

// UserLookup selects a user by exactly one key.
type UserLookup struct {
	ID       int64
	Username string
	Email    string
}

// FindUser fetches a user for the administrator menus.
func (s *AccountService) FindUser(ctx context.Context, actor models.Principal, by UserLookup) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	repo := s.users()
	var (
		u   *models.User
		err error
	)
	switch {
	case by.ID != 0:
		u, err = repo.GetByID(ctx, by.ID)
	case by.Username != "":
		u, err = repo.GetByUsername(ctx, by.Username)
	case by.Email != "":
		u, err = repo.GetByEmail(ctx, by.Email)
	default:
		return nil, policyErr("empty user lookup")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

// ListByRole returns the users holding role.
func (s *AccountService) ListByRole(ctx context.Context, actor models.Principal, role models.Role) ([]*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.users().ListByRole(ctx, role)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}
