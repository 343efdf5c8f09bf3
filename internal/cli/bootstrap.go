package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/services"
)

// Bootstrap creates the first administrator on an empty installation.
func (a *App) Bootstrap(ctx context.Context) error {
	a.println(bannerStyle.Render(a.banner))
	a.println(titleStyle.Render("Create the first administrator"))

	var in services.NewUser
	var err error
	if in.FirstName, err = a.promptValid("First name", services.ValidateName); err != nil {
		return err
	}
	if in.LastName, err = a.promptValid("Last name", services.ValidateName); err != nil {
		return err
	}
	if in.DOB, err = a.promptValid("Date of birth (YYYY-MM-DD)", validateDOB); err != nil {
		return err
	}
	if in.Email, err = a.promptValid("Email", services.ValidateEmail); err != nil {
		return err
	}

	for i := 0; i < a.maxInput; i++ {
		pw, err := a.promptPassword("Initial password")
		if err != nil {
			return err
		}
		confirm, err := a.promptPassword("Repeat password")
		if err != nil {
			common.WipeByteArray(pw)
			return err
		}
		if !bytes.Equal(pw, confirm) {
			wipeAll(pw, confirm)
			a.printError("The passwords do not match.")
			continue
		}
		if err := services.ValidatePassword(pw); err != nil {
			wipeAll(pw, confirm)
			a.printError(userMessage(err))
			continue
		}

		res, err := a.accounts.BootstrapAdmin(ctx, in, pw)
		wipeAll(pw, confirm)
		if err != nil {
			return err
		}
		a.printSuccess(fmt.Sprintf("Administrator %s created (id %d). The password must be changed at first login.",
			res.Username, res.ID))
		return nil
	}
	a.printError("Too many invalid entries.")
	return common.ErrTooManyInvalidInputs
}
