package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

// ChangePassword replaces the credential of the acting user. The old
// secret must verify and the new one must satisfy ValidatePassword and
// differ from it. A first-login change also records last_login in the same
// transaction.
func (s *AccountService) ChangePassword(ctx context.Context, p models.Principal, oldPassword, newPassword []byte) error {
	u, err := s.users().GetByID(ctx, p.ID)
	if err != nil {
		return storeErr(err)
	}
	if !s.hasher.Verify(u.CredentialHash, oldPassword) {
		return fmt.Errorf("%w: current password does not match", common.ErrVerification)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if bytes.Equal(oldPassword, newPassword) {
		return policyErr("new password must differ from the current one")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.UpdateCredential(ctx, u.ID, hash); err != nil {
			return err
		}
		if u.FirstLogin() {
			return repo.UpdateLastLogin(ctx, u.ID, s.now())
		}
		return nil
	})
	if err != nil {
		return storeErr(err)
	}

	s.audit.Record(ctx, audit.Auth(models.EventPasswordChange, u.ID, u.ID))

	if err := s.notifier.SendPasswordChanged(ctx, u.Email, u.UserName); err != nil {
		s.log.Warn(ctx, "password change notice failed", "user_id", u.ID, "err", err)
	}
	return nil
}
