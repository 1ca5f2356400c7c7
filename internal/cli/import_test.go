package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_ThenJoinFromDatabase(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "shop.yaml", shopYAML)
	db := filepath.Join(dir, "shop.db")

	out, err := run(t, "import", "--format", "json", "--db", db, "--data", data)
	require.NoError(t, err)
	tables := decode(t, out)["data"].([]any)
	require.Len(t, tables, 2)
	orders := tables[0].(map[string]any)
	assert.Equal(t, "orders", orders["table"])
	assert.Equal(t, float64(4), orders["rows"])
	assert.Len(t, orders["content_hash"], 64)
	assert.Nil(t, orders["unchanged"])

	for _, engineName := range []string{"memory", "sqlite"} {
		t.Run(engineName, func(t *testing.T) {
			out, err := run(t, "join", "--format", "json", "--db", db, "--engine", engineName,
				"--from", "users as u",
				"--join", "left orders as o on u.id = o.user_id")
			require.NoError(t, err)
			body := decode(t, out)["data"].(map[string]any)
			assert.Equal(t, engineName, body["backend"])
			assert.Len(t, body["rows"], 4)
		})
	}

	// Importing the same data again changes nothing.
	out, err = run(t, "import", "--db", db, "--data", data)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	out, err = run(t, "import", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "users")
}

func TestImport_RequiresDB(t *testing.T) {
	_, err := run(t, "import")
	assert.ErrorContains(t, err, `required flag(s) "db" not set`)
}

func TestImport_BadData(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "import", "--db", filepath.Join(dir, "x.db"), "--data", filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
