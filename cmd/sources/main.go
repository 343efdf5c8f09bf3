// Command sources is the interactive suspect sources registry.
//
// Exit codes: 0 after a logout, a declined consent or end of input; 1 on
// startup failures and when the session was ended by a lock; 2 after too
// many invalid inputs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/cli"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/config"
	"github.com/dmitrijs2005/suspectsources/internal/cryptox"
	"github.com/dmitrijs2005/suspectsources/internal/filex"
	"github.com/dmitrijs2005/suspectsources/internal/flagx"
	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/notify"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/repomanager"
	"github.com/dmitrijs2005/suspectsources/internal/services"
	"github.com/google/uuid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func bootstrapRequested(args []string) bool {
	var bootstrap bool
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&bootstrap, "bootstrap", false, "create the first administrator")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-bootstrap", "--bootstrap"}))
	return bootstrap
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logOut := stderr
	if cfg.LogFile != "" {
		f, err := filex.OpenAppend(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	base, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	log := base.With("session_id", uuid.NewString())

	dsn, err := cfg.ResolveDSN()
	if err != nil {
		log.Error(ctx, "resolve database credentials", "err", err)
		fmt.Fprintln(stderr, "The database credentials could not be read.")
		return 1
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	db, repos, err := repomanager.Open(openCtx, cfg.DatabaseDriver, dsn)
	cancel()
	if err != nil {
		log.Error(ctx, "open database", "driver", cfg.DatabaseDriver, "err", err)
		fmt.Fprintln(stderr, "The database is unavailable.")
		return 1
	}
	defer db.Close()

	var notifier notify.Notifier
	if cfg.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		log.Warn(ctx, "smtp not configured, notifications are disabled")
		notifier = notify.NewLogNotifier(log)
	}

	sink := audit.NewSink(repos.AuditLog(db), log)
	hasher := cryptox.NewHasher(cfg.Argon2())
	accounts := services.NewAccountService(db, repos, hasher, sink, notifier, log, cfg)
	sources := services.NewSourceService(db, repos, sink, notifier, log)

	app, err := cli.NewApp(accounts, sources, log, cfg, stdin, stdout)
	if err != nil {
		log.Error(ctx, "init", "err", err)
		return 1
	}

	if bootstrapRequested(args) {
		err = app.Bootstrap(ctx)
	} else {
		err = app.Run(ctx)
	}
	return exitCode(ctx, log, err)
}

func exitCode(ctx context.Context, log logging.Logger, err error) int {
	switch {
	case err == nil, errors.Is(err, cli.ErrConsentDeclined), errors.Is(err, io.EOF):
		return 0
	case errors.Is(err, common.ErrTooManyInvalidInputs):
		return 2
	case common.IsSessionFatal(err):
		log.Info(ctx, "session ended", "reason", err)
		return 1
	default:
		log.Error(ctx, "session failed", "err", err)
		return 1
	}
}
