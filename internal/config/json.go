package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/suspectsources/internal/flagx"
	"github.com/dmitrijs2005/suspectsources/internal/timex"
)

// JsonConfig is the on-disk form. Zero values leave the current setting
// untouched.
type JsonConfig struct {
	DatabaseDriver          string         `json:"database_driver"`
	DatabaseDSN             string         `json:"database_dsn"`
	CredentialsFile         string         `json:"credentials_file"`
	KeyFile                 string         `json:"key_file"`
	DBTimeout               timex.Duration `json:"db_timeout"`
	SMTPHost                string         `json:"smtp_host"`
	SMTPPort                int            `json:"smtp_port"`
	SMTPUsername            string         `json:"smtp_username"`
	SMTPPassword            string         `json:"smtp_password"`
	SMTPFrom                string         `json:"smtp_from"`
	MaxFailedAttempts       int            `json:"max_failed_attempts"`
	MaxInputAttempts        int            `json:"max_input_attempts"`
	GeneratedPasswordLength int            `json:"generated_password_length"`
	Argon2Time              uint32         `json:"argon2_time"`
	Argon2MemoryKiB         uint32         `json:"argon2_memory_kib"`
	Argon2Threads           uint8          `json:"argon2_threads"`
	LogLevel                string         `json:"log_level"`
	LogFormat               string         `json:"log_format"`
	LogFile                 string         `json:"log_file"`
	BannerFile              string         `json:"banner_file"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNumber[T int | uint32 | uint8](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}

// parseJSON overlays the file named by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.CredentialsFile, c.CredentialsFile)
	setString(&config.KeyFile, c.KeyFile)
	if c.DBTimeout.Duration > 0 {
		config.DBTimeout = c.DBTimeout.Duration
	}
	setString(&config.SMTPHost, c.SMTPHost)
	setNumber(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setNumber(&config.MaxFailedAttempts, c.MaxFailedAttempts)
	setNumber(&config.MaxInputAttempts, c.MaxInputAttempts)
	setNumber(&config.GeneratedPasswordLength, c.GeneratedPasswordLength)
	setNumber(&config.Argon2Time, c.Argon2Time)
	setNumber(&config.Argon2MemoryKiB, c.Argon2MemoryKiB)
	setNumber(&config.Argon2Threads, c.Argon2Threads)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogFile, c.LogFile)
	setString(&config.BannerFile, c.BannerFile)
	return nil
}
