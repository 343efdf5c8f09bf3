package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/services"
)

// changePassword asks for the current and a confirmed new password. Policy
// and confirmation failures are re-asked up to the input limit.
func (a *App) changePassword(ctx context.Context, p models.Principal) error {
	a.println(dimStyle.Render("Passwords need at least 12 characters with a letter, a digit and one of " +
		services.PasswordSpecials))

	for i := 0; i < a.maxInput; i++ {
		current, err := a.promptPassword("Current password")
		if err != nil {
			return err
		}
		next, err := a.promptPassword("New password")
		if err != nil {
			common.WipeByteArray(current)
			return err
		}
		confirm, err := a.promptPassword("Repeat new password")
		if err != nil {
			common.WipeByteArray(current)
			common.WipeByteArray(next)
			return err
		}

		if !bytes.Equal(next, confirm) {
			a.printError("The new passwords do not match.")
			wipeAll(current, next, confirm)
			continue
		}

		err = a.accounts.ChangePassword(ctx, p, current, next)
		wipeAll(current, next, confirm)
		switch {
		case err == nil:
			a.printSuccess("Password changed.")
			return nil
		case errors.Is(err, common.ErrPolicyViolation), errors.Is(err, common.ErrVerification):
			a.report(ctx, err)
		default:
			return err
		}
	}
	a.printError("Too many invalid entries.")
	return common.ErrTooManyInvalidInputs
}

func wipeAll(bs ...[]byte) {
	for _, b := range bs {
		common.WipeByteArray(b)
	}
}
