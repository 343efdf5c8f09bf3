package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

// LoginResult is a verified login.
type LoginResult struct {
	Principal models.Principal
	// MustChangePassword is set on the first ever login; the caller must
	// run ChangePassword before offering anything else.
	MustChangePassword bool
}

// LoginSession is the login controller of one interactive session. It
// counts consecutive wrong passwords per presented username and locks the
// account once the count reaches the threshold. It is not safe for
// concurrent use; each session owns its own value.
type LoginSession struct {
	accounts     *AccountService
	threshold    int
	lastUsername string
	failures     int
	terminated   bool
}

// NewLoginSession starts a session with a fresh attempt counter.
func (s *AccountService) NewLoginSession() *LoginSession {
	threshold := s.maxFailures
	if threshold < 1 {
		threshold = 1
	}
	return &LoginSession{accounts: s, threshold: threshold}
}

// Failures is the consecutive failure count for the last username.
func (l *LoginSession) Failures() int { return l.failures }

// Terminated reports whether the session accepts no further attempts.
func (l *LoginSession) Terminated() bool { return l.terminated }

// dummy returns a hash verified against for unknown usernames so both rejection
// kinds cost the same.
func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(common.GenerateRandByteArray(16))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Login runs one authentication attempt.
//
// Outcomes: a *LoginResult, or one of common.ErrUnknownUser,
// common.ErrBadPassword, common.ErrAccountDeactivated,
// common.ErrAccountLocked, common.ErrLockedOut, common.ErrSessionTerminated.
// The last four end the session (see common.IsSessionFatal).
func (l *LoginSession) Login(ctx context.Context, username string, password []byte) (*LoginResult, error) {
	if l.terminated {
		return nil, common.ErrSessionTerminated
	}
	s := l.accounts

	u, err := s.users().GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "user lookup failed", "err", err)
		}
		_ = s.hasher.Verify(s.dummy(), password)
		return nil, common.ErrUnknownUser
	}

	switch u.Status {
	case models.StatusDeactivated:
		l.terminated = true
		s.audit.Record(ctx, audit.Auth(models.EventFailedLoginDeactivated, u.ID, u.ID))
		return nil, common.ErrAccountDeactivated
	case models.StatusLocked:
		l.terminated = true
		s.audit.Record(ctx, audit.Auth(models.EventFailedLoginLocked, u.ID, u.ID))
		return nil, common.ErrAccountLocked
	case models.StatusActive:
	default:
		l.terminated = true
		s.log.Error(ctx, "user has unknown status", "user_id", u.ID, "status", int(u.Status))
		return nil, fmt.Errorf("%w: status %d", common.ErrInvalidState, int(u.Status))
	}

	if !s.hasher.Verify(u.CredentialHash, password) {
		return nil, l.failed(ctx, u)
	}

	l.lastUsername, l.failures = "", 0
	s.audit.Record(ctx, audit.Auth(models.EventSuccessfulLogin, u.ID, u.ID))

	res := &LoginResult{
		Principal: models.Principal{
			ID:          u.ID,
			Username:    u.UserName,
			DisplayName: u.DisplayName(),
			Role:        u.Role,
		},
		MustChangePassword: u.FirstLogin(),
	}

	// first logins are stamped by the mandatory password change
	if !res.MustChangePassword {
		if err := s.users().UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
			s.log.Warn(ctx, "record last login failed", "user_id", u.ID, "err", err)
		}
	}
	return res, nil
}

func (l *LoginSession) failed(ctx context.Context, u *models.User) error {
	s := l.accounts
	s.audit.Record(ctx, audit.Auth(models.EventFailedLoginBadPassword, u.ID, u.ID))

	if u.UserName != l.lastUsername {
		l.lastUsername = u.UserName
		l.failures = 1
	} else {
		l.failures++
	}

	if l.failures < l.threshold {
		return fmt.Errorf("%w: %w", common.ErrBadPassword, common.ErrVerification)
	}

	l.terminated = true
	if err := s.LockAfterFailedLogins(ctx, u.ID); err != nil {
		s.log.Error(ctx, "lockout failed", "user_id", u.ID, "err", err)
	}
	return common.ErrLockedOut
}
