package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/court-scheduler/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "courtsched dev")
}

func TestKeys(t *testing.T) {
	out, err := execute(t, "", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "export COOKIE_HASH_KEY=")
	assert.Contains(t, out, "export COOKIE_BLOCK_KEY=")
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := execute(t, "hunter2\n", "hash-password")
	require.NoError(t, err)

	line := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(line, "export OPERATOR_PASSWORD_BCRYPT='"))
	hash := strings.TrimSuffix(strings.TrimPrefix(line, "export OPERATOR_PASSWORD_BCRYPT='"), "'")
	assert.True(t, auth.CheckPassword(hash, "hunter2"))

	_, err = execute(t, "", "hash-password")
	assert.Error(t, err)
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestTargetsListsPlan(t *testing.T) {
	path := writePlan(t, `
accounts:
  - {user_id: alice, user_pw: secret}
targets:
  - {court: 5, date: "20250814", time: "08:00", hours: 2}
  - {court: 5, date: "20250814", time: "08:00", hours: 2}
  - {court: 3, date: "20250814", time: "10:00", hours: 1, user_id: alice}
`)
	out, err := execute(t, "", "targets", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, " 1  2025-08-14 • court 5 • 08:00 • 2h  -> alice (default)")
	assert.Contains(t, out, " 2  2025-08-14 • court 3 • 10:00 • 1h • alice  -> alice")
	assert.Contains(t, out, "1 duplicate target(s) skipped")
}

func TestTargetsReportsProblems(t *testing.T) {
	path := writePlan(t, `
accounts:
  - {user_id: alice, user_pw: secret}
targets:
  - {court: 9, date: "20250814", time: "08:00", hours: 1}
`)
	_, err := execute(t, "", "targets", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target 1")
}

func TestHistoryNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := execute(t, "", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestTargetsReadsConfigFromEnv(t *testing.T) {
	path := writePlan(t, `
accounts:
  - {user_id: alice, user_pw: secret}
targets:
  - {court: 5, date: "20250814", time: "08:00", hours: 2}
`)
	t.Setenv("COURTSCHED_CONFIG", path)
	out, err := execute(t, "", "targets")
	require.NoError(t, err)
	assert.Contains(t, out, "court 5 • 08:00")
}
