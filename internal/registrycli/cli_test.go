package registrycli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/models/dtos"
)

const cliRoster = "First Name,Last Name,Email,Cell Phone,Birthday,Mailing Address,Other/School/Work Address,Member Type,Status,Initiation Date,Initiating Chapter,Graduation Year\n" +
	`Jane,Doe,jane@example.com,555-0100,01/15/2000,"814 Livingston Court, Paramus, New Jersey, 07652",,Undergrad,Active,,Iota Psi,2026` + "\n"

func setTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "registry.db"))
	t.Setenv("ROSTER_ENCRYPTION_KEY", "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=")
	t.Setenv("REDIS_ENABLED", "false")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := GetApp()
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run(append([]string{Name}, args...))
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)

	_, err = cipher.NewFromEncoded(strings.TrimSpace(out), "")
	assert.NoError(t, err)
}

func TestKeygen_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	out, err := run(t, "keygen", "--env-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote ROSTER_ENCRYPTION_KEY")

	entries, err := godotenv.Read(path)
	require.NoError(t, err)
	first := entries["ROSTER_ENCRYPTION_KEY"]
	_, err = cipher.NewFromEncoded(first, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("DB_DRIVER=sqlite\nROSTER_ENCRYPTION_KEY="+first+"\n"), 0o600))
	out, err = run(t, "keygen", "--env-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Replaced ROSTER_ENCRYPTION_KEY")
	assert.NotContains(t, out, first, "the key itself is never printed")

	entries, err = godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", entries["DB_DRIVER"])
	assert.NotEqual(t, first, entries["ROSTER_ENCRYPTION_KEY"])
	_, err = cipher.NewFromEncoded(entries["ROSTER_ENCRYPTION_KEY"], "")
	assert.NoError(t, err)
}

func TestImportExportWorkflow(t *testing.T) {
	dir := setTestEnv(t)

	rosterPath := filepath.Join(dir, "iota_psi.csv")
	require.NoError(t, os.WriteFile(rosterPath, []byte(cliRoster), 0o600))
	universitiesPath := filepath.Join(dir, "universities.json")
	require.NoError(t, os.WriteFile(universitiesPath,
		[]byte(`[{"name": "Texas A&M University", "state": "TX", "city": "College Station", "lat": 30.6187, "lng": -96.3365}]`), 0o600))
	exportPath := filepath.Join(dir, "travel_map_data.json")

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration complete")

	out, err = run(t, "import", rosterPath, "Iota Psi")
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows, 1 imported")
	assert.Contains(t, out, "Chapter Iota Psi now has 1 members")

	out, err = run(t, "stats", "Iota Psi")
	require.NoError(t, err)
	assert.Contains(t, out, "members: 1 of 1 in the organization")
	assert.Contains(t, out, "iota_psi.csv")

	out, err = run(t, "load-universities", universitiesPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 universities")

	_, err = run(t, "link-chapter", "Iota Psi", "Texas A&M University")
	require.NoError(t, err)

	out, err = run(t, "export", "--out", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 of 1 members")

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var view dtos.DerivedView
	require.NoError(t, json.Unmarshal(raw, &view))
	require.Len(t, view.Members, 1)
	assert.Equal(t, "Jane", view.Members[0].FirstName)
	assert.Equal(t, "Texas A&M University", view.Universities[0].Name)
}

func TestImport_UsageErrors(t *testing.T) {
	setTestEnv(t)

	_, err := run(t, "import", "only-one-arg")
	assert.Error(t, err)

	_, err = run(t, "link-chapter", "Iota Psi")
	assert.Error(t, err)

	_, err = run(t, "stats")
	assert.Error(t, err)

	_, err = run(t, "migrate")
	require.NoError(t, err)
	_, err = run(t, "stats", "Nobody")
	assert.ErrorIs(t, err, constants.ErrNotFound)
}

func TestCommands_RequireEncryptionKey(t *testing.T) {
	setTestEnv(t)
	t.Setenv("ROSTER_ENCRYPTION_KEY", "")

	_, err := run(t, "migrate")
	assert.Error(t, err)
}
