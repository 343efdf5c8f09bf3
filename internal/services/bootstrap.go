package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/models"
)

// BootstrapAdmin creates the first administrator from an operator supplied
// password. It refuses once any administrator exists. The check and the
// insert share one serializable transaction, so of two concurrent runs at
// most one commits. The account still goes through the first-login
// password change.
func (s *AccountService) BootstrapAdmin(ctx context.Context, in NewUser, password []byte) (*CreatedUser, error) {
	in.Role = models.RoleAdministrator
	if err := s.validateNewUser(in); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *models.User
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	err = dbx.WithTx(ctx, s.db, opts, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		admins, err := repo.ListByRole(ctx, models.RoleAdministrator)
		if err != nil {
			return err
		}
		if len(admins) > 0 {
			return fmt.Errorf("%w: an administrator already exists", common.ErrInvalidState)
		}
		created, err = s.insertUser(ctx, repo, in, hash)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.audit.Record(ctx, audit.Admin(models.EventCreateUser, 0, created.ID, nil))
	s.log.Info(ctx, "bootstrap administrator created", "user_id", created.ID, "username", created.UserName)
	return &CreatedUser{ID: created.ID, Username: created.UserName}, nil
}
