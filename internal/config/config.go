// Package config handles configuration for the sources CLI: defaults, then
// an optional JSON file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/cryptox"
)

// SMTPPasswordEnv names the environment variable holding the SMTP password.
// It is never accepted as a flag.
const SMTPPasswordEnv = "SOURCES_SMTP_PASSWORD"

// Config holds runtime settings.
//
// Fields:
//   - DatabaseDriver: "postgres" or "sqlite".
//   - DatabaseDSN: clear DSN; ignored when CredentialsFile is set.
//   - CredentialsFile / KeyFile: sealed DSN and its AES key (see cmd/sealcreds).
//   - SMTP*: outbound mail; an empty SMTPHost disables delivery.
//   - MaxFailedAttempts: consecutive wrong passwords before lockout.
//   - MaxInputAttempts: invalid answers accepted per prompt.
type Config struct {
	DatabaseDriver          string
	DatabaseDSN             string
	CredentialsFile         string
	KeyFile                 string
	DBTimeout               time.Duration
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	SMTPFrom                string
	MaxFailedAttempts       int
	MaxInputAttempts        int
	GeneratedPasswordLength int
	Argon2Time              uint32
	Argon2MemoryKiB         uint32
	Argon2Threads           uint8
	LogLevel                string
	LogFormat               string
	LogFile                 string
	BannerFile              string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	p := cryptox.DefaultArgon2Params()

	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "sources.db"
	c.DBTimeout = 5 * time.Second
	c.SMTPPort = 587
	c.MaxFailedAttempts = 3
	c.MaxInputAttempts = 5
	c.GeneratedPasswordLength = 12
	c.Argon2Time = p.Time
	c.Argon2MemoryKiB = p.MemoryKiB
	c.Argon2Threads = p.Threads
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Argon2 returns the hashing parameters for new hashes.
func (c *Config) Argon2() cryptox.Argon2Params {
	return cryptox.Argon2Params{
		Time:      c.Argon2Time,
		MemoryKiB: c.Argon2MemoryKiB,
		Threads:   c.Argon2Threads,
	}
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database driver must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if (c.CredentialsFile == "") != (c.KeyFile == "") {
		errs = append(errs, errors.New("credentials file and key file must be set together"))
	}
	if c.MaxFailedAttempts < 1 {
		errs = append(errs, errors.New("max failed attempts must be positive"))
	}
	if c.MaxInputAttempts < 1 {
		errs = append(errs, errors.New("max input attempts must be positive"))
	}
	if c.GeneratedPasswordLength < 12 {
		errs = append(errs, errors.New("generated password length must be at least 12"))
	}
	return errors.Join(errs...)
}

// ResolveDSN returns the clear DSN, opening the sealed credentials file
// when one is configured.
func (c *Config) ResolveDSN() (string, error) {
	if c.CredentialsFile == "" {
		return c.DatabaseDSN, nil
	}
	dsn, err := cryptox.OpenSealedFile(c.KeyFile, c.CredentialsFile)
	if err != nil {
		return "", fmt.Errorf("open sealed credentials: %w", err)
	}
	return dsn, nil
}

// LoadConfig builds a Config from defaults, the JSON file named by -c,
// the SMTP password environment variable and finally flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if pw, ok := os.LookupEnv(SMTPPasswordEnv); ok {
		cfg.SMTPPassword = pw
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
