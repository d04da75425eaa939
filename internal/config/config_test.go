package config

import (
	"os"
	"path/filepath"
	"testing"

	"fraternitybase/registry/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ROSTER_ENCRYPTION_KEY", "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, constants.DefaultOrganization, cfg.Organization)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.False(t, cfg.NameFallback)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "ROSTER_ENCRYPTION_KEY=filekey\nDB_DRIVER=sqlite\nSQLITE_PATH=/tmp/x.db\nROSTER_NAME_FALLBACK=true\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	for _, k := range []string{"ROSTER_ENCRYPTION_KEY", "DB_DRIVER", "SQLITE_PATH", "ROSTER_NAME_FALLBACK"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "filekey", cfg.EncryptionKey)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/x.db", cfg.DSN())
	assert.True(t, cfg.NameFallback)
}

func TestLoad_RequiresEncryptionKey(t *testing.T) {
	t.Setenv("ROSTER_ENCRYPTION_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, constants.ErrValidation)
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{EncryptionKey: "k", DBDriver: "mysql", Organization: "Sigma Chi"}
	assert.ErrorIs(t, cfg.Validate(), constants.ErrValidation)
}

func TestDSN_Postgres(t *testing.T) {
	cfg := &Config{DBDriver: DriverPostgres, PGUser: "u", PGPassword: "p", PGHost: "h", PGPort: "5432", PGDB: "d"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DSN())
}
