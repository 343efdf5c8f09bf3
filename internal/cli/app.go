// Package cli is the interactive terminal front end: banner and consent,
// the login loop and the role menus. It never exits the process; Run
// returns an error and main picks the exit code.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/config"
	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/services"
)

// ErrConsentDeclined is returned by Run when the terms are not accepted.
var ErrConsentDeclined = errors.New("terms of service declined")

const defaultBanner = `SUSPECT SOURCES REGISTRY
Authorised use only. All activity is audited.`

const termsOfService = `By continuing you confirm that you are an authorised user, that you will
use the information in this system only for its intended purpose, and that
your actions are recorded in an audit log.`

const invalidCredentials = "Invalid username or password."

type App struct {
	accounts *services.AccountService
	sources  *services.SourceService
	log      logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	maxInput int
	banner   string
}

// NewApp wires the front end. The banner is read from cfg.BannerFile when
// set.
func NewApp(accounts *services.AccountService, sources *services.SourceService, log logging.Logger,
	cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	banner := defaultBanner
	if cfg.BannerFile != "" {
		b, err := os.ReadFile(cfg.BannerFile)
		if err != nil {
			return nil, fmt.Errorf("read banner: %w", err)
		}
		banner = strings.TrimRight(string(b), "\n")
	}

	return &App{
		accounts: accounts,
		sources:  sources,
		log:      log,
		reader:   bufio.NewReader(in),
		out:      out,
		maxInput: cfg.MaxInputAttempts,
		banner:   banner,
	}, nil
}

// Run drives one interactive session. It returns nil after a logout,
// io.EOF when input ends, and the login error when the session was ended
// by a lock, deactivation or lockout.
func (a *App) Run(ctx context.Context) error {
	a.println(bannerStyle.Render(a.banner))

	ok, err := a.consent()
	if err != nil {
		return err
	}
	if !ok {
		a.println("Goodbye.")
		return ErrConsentDeclined
	}

	res, err := a.login(ctx)
	if err != nil {
		return err
	}

	if res.MustChangePassword {
		a.printWarning("This is your first login. You must change your password.")
		if err := a.changePassword(ctx, res.Principal); err != nil {
			a.printError("Password was not changed. Logging out.")
			return err
		}
	}

	a.printSuccess(fmt.Sprintf("Welcome, %s.", res.Principal.DisplayName))
	return a.menu(ctx, res.Principal)
}

func (a *App) consent() (bool, error) {
	a.println(dimStyle.Render(termsOfService))
	return a.promptYesNo("Do you accept these terms?")
}

// login loops until a login succeeds or the session ends. Unknown user and
// wrong password print the same line.
func (a *App) login(ctx context.Context) (*services.LoginResult, error) {
	session := a.accounts.NewLoginSession()

	for {
		username, err := a.promptValid("Username", services.ValidateUsername)
		if err != nil {
			return nil, err
		}
		password, err := a.promptPassword("Password")
		if err != nil {
			return nil, err
		}

		res, err := session.Login(ctx, username, password)
		common.WipeByteArray(password)
		if err == nil {
			return res, nil
		}

		switch {
		case common.IsCredentialRejection(err):
			a.printError(invalidCredentials)
		case errors.Is(err, common.ErrLockedOut):
			a.printError("Too many failed attempts. The account has been locked; contact an administrator.")
			return nil, err
		case errors.Is(err, common.ErrAccountLocked):
			a.printError("This account is locked. Contact an administrator.")
			return nil, err
		case errors.Is(err, common.ErrAccountDeactivated):
			a.printError("This account has been deactivated.")
			return nil, err
		default:
			a.log.Error(ctx, "login failed", "err", err)
			a.printError("Login is not possible right now.")
			return nil, err
		}
	}
}

// menu dispatches on role until logout.
func (a *App) menu(ctx context.Context, p models.Principal) error {
	type item struct {
		label  string
		action func(context.Context, models.Principal) error
	}

	var items []item
	switch p.Role {
	case models.RoleAdministrator:
		items = []item{
			{"Create user", a.createUser},
			{"Modify user", a.modifyUser},
			{"Deactivate user", a.deactivateUser},
			{"Unlock user", a.unlockUser},
			{"Lock user", a.lockUser},
		}
	case models.RoleSpecialist:
		items = []item{
			{"Search sources", a.searchSources},
			{"Create source", a.createSource},
			{"Change password", a.changePassword},
		}
	case models.RoleExternalAuthority:
		items = []item{
			{"Search sources", a.searchSources},
			{"Change password", a.changePassword},
		}
	default:
		return fmt.Errorf("%w: role %d", common.ErrInvalidState, int(p.Role))
	}

	labels := make([]string, 0, len(items)+1)
	for _, it := range items {
		labels = append(labels, it.label)
	}
	labels = append(labels, "Logout")

	for {
		n, err := a.promptChoice(p.Role.String()+" menu", labels)
		if err != nil {
			return err
		}
		if n == len(items) {
			a.println("Logged out.")
			return nil
		}

		err = items[n].action(ctx, p)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return err
		default:
			a.report(ctx, err)
		}
	}
}

// report prints an action failure. Unexpected errors also go to the log.
func (a *App) report(ctx context.Context, err error) {
	switch {
	case errors.Is(err, common.ErrTooManyInvalidInputs):
		// already printed by the prompt
	case errors.Is(err, common.ErrForbidden):
		a.printError("You are not allowed to do that.")
	case errors.Is(err, common.ErrorNotFound):
		a.printError("No such record.")
	case errors.Is(err, common.ErrInvalidState):
		a.printError("That action does not apply to the account's current status.")
	case errors.Is(err, common.ErrPolicyViolation):
		a.printError(userMessage(err))
	case errors.Is(err, common.ErrVerification):
		a.printError("Current password is incorrect.")
	case errors.Is(err, common.ErrAlreadyExists):
		a.printError("A user with that email address already exists.")
	case errors.Is(err, common.ErrPersistence):
		a.log.Error(ctx, "storage failure", "err", err)
		a.printError("The database is unavailable. Try again later.")
	default:
		a.log.Error(ctx, "action failed", "err", err)
		a.printError("Something went wrong.")
	}
}

// userMessage drops the taxonomy prefix from validation errors.
func userMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, common.ErrPolicyViolation.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
