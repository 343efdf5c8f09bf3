package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/services"
)

var roleChoices = []models.Role{models.RoleAdministrator, models.RoleSpecialist, models.RoleExternalAuthority}

func (a *App) promptRole() (models.Role, error) {
	labels := make([]string, len(roleChoices))
	for i, r := range roleChoices {
		labels[i] = r.String()
	}
	n, err := a.promptChoice("Role", labels)
	if err != nil {
		return 0, err
	}
	return roleChoices[n], nil
}

func validateDOB(s string) error {
	return services.ValidateDOB(s, time.Now())
}

func (a *App) createUser(ctx context.Context, p models.Principal) error {
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
	if in.Role, err = a.promptRole(); err != nil {
		return err
	}

	res, err := a.accounts.CreateUser(ctx, p, in)
	if err != nil {
		return err
	}

	a.printSuccess(fmt.Sprintf("User %s created (id %d).", res.Username, res.ID))
	if res.Notified {
		a.println("The initial password was sent to " + in.Email + ".")
	} else {
		a.printWarning("The initial password could not be delivered. The account exists but its owner has no credential to log in with.")
	}
	return nil
}

// findUser asks how to look the user up and prints the match.
func (a *App) findUser(ctx context.Context, p models.Principal) (*models.User, error) {
	n, err := a.promptChoice("Find user by", []string{"ID", "Username", "Email"})
	if err != nil {
		return nil, err
	}

	var by services.UserLookup
	switch n {
	case 0:
		by.ID, err = a.promptID("User ID")
	case 1:
		by.Username, err = a.promptValid("Username", services.ValidateUsername)
	case 2:
		by.Email, err = a.promptValid("Email", services.ValidateEmail)
	}
	if err != nil {
		return nil, err
	}

	u, err := a.accounts.FindUser(ctx, p, by)
	if err != nil {
		return nil, err
	}
	a.printUser(u)
	return u, nil
}

func (a *App) printUser(u *models.User) {
	last := "never"
	if u.LastLogin != nil {
		last = u.LastLogin.Local().Format("2006-01-02 15:04")
	}
	a.println(fmt.Sprintf("  #%d %s  %s %s  dob %s  %s\n  role %s  status %s  last login %s",
		u.ID, u.UserName, u.FirstName, u.LastName, u.DOB, u.Email, u.Role, u.Status, last))
}

var fieldLabels = map[models.UserField]string{
	models.FieldFirstName: "First name",
	models.FieldLastName:  "Last name",
	models.FieldDOB:       "Date of birth",
	models.FieldRole:      "Role",
}

func (a *App) modifyUser(ctx context.Context, p models.Principal) error {
	u, err := a.findUser(ctx, p)
	if err != nil {
		return err
	}

	labels := make([]string, len(models.EditableUserFields))
	for i, f := range models.EditableUserFields {
		labels[i] = fieldLabels[f]
	}
	n, err := a.promptChoice("Field to change", labels)
	if err != nil {
		return err
	}
	field := models.EditableUserFields[n]

	var value string
	switch field {
	case models.FieldFirstName, models.FieldLastName:
		value, err = a.promptValid("New value", services.ValidateName)
	case models.FieldDOB:
		value, err = a.promptValid("New date of birth (YYYY-MM-DD)", validateDOB)
	case models.FieldRole:
		var r models.Role
		r, err = a.promptRole()
		value = fmt.Sprint(int(r))
	}
	if err != nil {
		return err
	}

	if err := a.accounts.ModifyAttribute(ctx, p, u.ID, string(field), value); err != nil {
		return err
	}
	a.printSuccess(fmt.Sprintf("%s of %s updated.", fieldLabels[field], u.UserName))
	return nil
}

// statusAction finds a user, confirms and applies op.
func (a *App) statusAction(ctx context.Context, p models.Principal, verb string,
	op func(context.Context, models.Principal, int64) error) error {
	u, err := a.findUser(ctx, p)
	if err != nil {
		return err
	}
	ok, err := a.promptYesNo(fmt.Sprintf("%s %s?", verb, u.UserName))
	if err != nil || !ok {
		return err
	}
	if err := op(ctx, p, u.ID); err != nil {
		return err
	}
	a.printSuccess(fmt.Sprintf("%s: done.", u.UserName))
	return nil
}

func (a *App) deactivateUser(ctx context.Context, p models.Principal) error {
	return a.statusAction(ctx, p, "Deactivate", a.accounts.Deactivate)
}

func (a *App) unlockUser(ctx context.Context, p models.Principal) error {
	return a.statusAction(ctx, p, "Unlock", a.accounts.Unlock)
}

func (a *App) lockUser(ctx context.Context, p models.Principal) error {
	return a.statusAction(ctx, p, "Lock", a.accounts.Lock)
}
