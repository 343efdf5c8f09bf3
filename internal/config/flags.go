package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/suspectsources/internal/flagx"
)

// parseFlags applies command-line overrides.
//
// Supported flags:
//
//	-t string   database driver (postgres|sqlite)
//	-d string   database DSN
//	-e string   sealed credentials file
//	-k string   key file for the sealed credentials
//	-s string   SMTP host
//	-p int      SMTP port
//	-u string   SMTP username
//	-f string   SMTP from address
//	-m int      failed logins before lockout
//	-l string   log level
//	-o string   log file (default stderr)
//	-b string   banner file
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-t", "-d", "-e", "-k", "-s", "-p", "-u", "-f", "-m", "-l", "-o", "-b"})

	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDriver, "t", config.DatabaseDriver, "database driver (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CredentialsFile, "e", config.CredentialsFile, "sealed credentials file")
	fs.StringVar(&config.KeyFile, "k", config.KeyFile, "key file")
	fs.StringVar(&config.SMTPHost, "s", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "p", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUsername, "u", config.SMTPUsername, "SMTP username")
	fs.StringVar(&config.SMTPFrom, "f", config.SMTPFrom, "SMTP from address")
	fs.IntVar(&config.MaxFailedAttempts, "m", config.MaxFailedAttempts, "failed logins before lockout")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "o", config.LogFile, "log file")
	fs.StringVar(&config.BannerFile, "b", config.BannerFile, "banner file")

	return fs.Parse(args)
}
