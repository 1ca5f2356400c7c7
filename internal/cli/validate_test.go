package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, err := run(t, "validate",
		"--from", "users as u",
		"--join", "cross_apply orders as o on o.user_id = u.id")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Request is valid")
	assert.Contains(t, out, "warning: apply without limit expands every matching row")
}

func TestValidate_Invalid(t *testing.T) {
	out, err := run(t, "validate",
		"--from", "users as u",
		"--join", "left orders as o",
		"--join", "cross items as i on u.id = i.user_id")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Request is invalid (2 error(s))")
	assert.Contains(t, out, "left join requires a join condition")
	assert.Contains(t, out, "cross join takes no join condition")
}

func TestValidate_AgainstData(t *testing.T) {
	data := writeFile(t, t.TempDir(), "shop.yaml", shopYAML)

	_, err := run(t, "validate", "--data", data,
		"--from", "users as u",
		"--join", "left orders as o on u.id = o.user_id")
	require.NoError(t, err)

	out, err := run(t, "validate", "--format", "json", "--data", data,
		"--from", "users as u",
		"--join", "left orders as o on u.id = o.customer_id")
	require.Error(t, err)

	resp := decode(t, out)
	assert.Equal(t, "error", resp["status"])
	body := resp["data"].(map[string]any)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["errors"].([]any)[0], "unknown column")
}

func TestValidate_NoRequest(t *testing.T) {
	out, err := run(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "--from or --request is required")
}
