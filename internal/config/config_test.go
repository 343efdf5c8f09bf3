package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 3, cfg.MaxFailedAttempts)
	assert.Equal(t, 5, cfg.MaxInputAttempts)
	assert.Equal(t, 12, cfg.GeneratedPasswordLength)
	assert.Equal(t, cryptox.DefaultArgon2Params().MemoryKiB, cfg.Argon2().MemoryKiB)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Setenv(SMTPPasswordEnv, "from-env")

	path := writeTempJSON(t, map[string]any{
		"database_driver":     "postgres",
		"database_dsn":        "postgres://json",
		"db_timeout":          "2s",
		"smtp_host":           "smtp.example.com",
		"smtp_password":       "from-json",
		"max_failed_attempts": 4,
	})

	cfg, err := LoadConfig([]string{"-c", path, "-d", "postgres://flag", "-p", "2525"})
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://flag", cfg.DatabaseDSN)
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "from-env", cfg.SMTPPassword)
	assert.Equal(t, 4, cfg.MaxFailedAttempts)
	// untouched by the file
	assert.Equal(t, 5, cfg.MaxInputAttempts)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorContains(t, err, "read config")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadConfig([]string{"-c", bad})
	require.ErrorContains(t, err, "parse config")

	_, err = LoadConfig([]string{"-t", "mysql"})
	require.ErrorContains(t, err, "database driver")

	_, err = LoadConfig([]string{"-m", "zero"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.KeyFile = "key"
	cfg.MaxFailedAttempts = 0

	err := cfg.Validate()
	require.ErrorContains(t, err, "set together")
	require.ErrorContains(t, err, "max failed attempts")
}

func TestResolveDSN(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	dsn, err := cfg.ResolveDSN()
	require.NoError(t, err)
	assert.Equal(t, "sources.db", dsn)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key")
	plain := filepath.Join(dir, "dsn.txt")
	sealed := filepath.Join(dir, "dsn.sealed")
	require.NoError(t, cryptox.WriteKeyFile(keyPath, cryptox.GenerateKey()))
	require.NoError(t, os.WriteFile(plain, []byte("postgres://u:p@db/sources\n"), 0o600))
	require.NoError(t, cryptox.SealFile(keyPath, plain, sealed))

	cfg.CredentialsFile, cfg.KeyFile = sealed, keyPath
	dsn, err = cfg.ResolveDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/sources", dsn)

	cfg.KeyFile = filepath.Join(dir, "nope")
	_, err = cfg.ResolveDSN()
	require.ErrorContains(t, err, "open sealed credentials")
}
