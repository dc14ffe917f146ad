package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKeys(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	t.Setenv("COOKIE_BLOCK_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
}

func TestFromEnvDefaults(t *testing.T) {
	setKeys(t)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "config.yaml", cfg.ConfigPath)
	assert.False(t, cfg.JournalEnabled())
	assert.Equal(t, 10*time.Minute, cfg.ProbeInterval)
	assert.Len(t, cfg.CookieHashKey, 32)
}

func TestGetenv(t *testing.T) {
	t.Setenv("COURTSCHED_TEST_VALUE", "")
	assert.Equal(t, "fallback", Getenv("COURTSCHED_TEST_VALUE", "fallback"))
	t.Setenv("COURTSCHED_TEST_VALUE", "set")
	assert.Equal(t, "set", Getenv("COURTSCHED_TEST_VALUE", "fallback"))
}

func TestFromEnvRejects(t *testing.T) {
	t.Setenv("COOKIE_HASH_KEY", "")
	t.Setenv("COOKIE_BLOCK_KEY", "")
	_, err := FromEnv()
	assert.Error(t, err, "cookie keys are required")

	setKeys(t)
	t.Setenv("PROBE_INTERVAL", "45m")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("PROBE_INTERVAL", "5m")
	t.Setenv("PAGE_RATE_PER_SEC", "0")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnvKeyFile(t *testing.T) {
	setKeys(t)
	path := filepath.Join(t.TempDir(), "hash")
	require.NoError(t, os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(make([]byte, 64))+"\n"), 0o600))
	t.Setenv("COOKIE_HASH_KEY", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Len(t, cfg.CookieHashKey, 64)
}

const planYAML = `
accounts:
  - user_id: alice
    user_pw: secret
  - user_id: bob
    user_pw: hunter2
verify_before_booking: true
group:
  name: Smashers
  count: 4
targets:
  - {court: 5, date: "20250814", time: "08:00", hours: 2, user_id: alice}
  - {court: 3, date: "20250814", time: "10:00", hours: 1}
  - {court: 5, date: "20250814", time: "08:00", hours: 2, user_id: bob}
`

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFileSourceLoad(t *testing.T) {
	snap, err := FileSource{Path: writePlan(t, planYAML)}.Load()
	require.NoError(t, err)

	require.Len(t, snap.Accounts, 2)
	assert.Equal(t, user.Account{ID: "alice", Password: "secret"}, snap.Accounts[0])
	assert.Equal(t, "alice", snap.DefaultAccount().ID)
	assert.True(t, snap.VerifyBeforeBooking)
	assert.Equal(t, reservation.Group{Name: "Smashers", Count: 4}, snap.Group)
	assert.Equal(t, reservation.DefaultMaxHoursPerDay, snap.MaxHoursPerDay)

	plan := snap.Plan()
	require.Len(t, plan, 2)
	assert.Equal(t, "alice", plan[0].Owner)
	assert.Equal(t, "", plan[1].Owner)
	assert.NoError(t, snap.Check())
}

func TestFileSourceRereadsEveryLoad(t *testing.T) {
	path := writePlan(t, planYAML)
	src := FileSource{Path: path}
	first, err := src.Load()
	require.NoError(t, err)
	assert.Len(t, first.Plan(), 2)

	require.NoError(t, os.WriteFile(path, []byte("targets: []\nverify_before_booking: false\n"), 0o600))
	second, err := src.Load()
	require.NoError(t, err)
	assert.Empty(t, second.Plan())
	assert.False(t, second.VerifyBeforeBooking)
	assert.Equal(t, []user.Account{user.Placeholder()}, second.Accounts)
}

func TestFileSourceEnvOverride(t *testing.T) {
	t.Setenv("COURTSCHED_VERIFY_BEFORE_BOOKING", "false")
	snap, err := FileSource{Path: writePlan(t, planYAML)}.Load()
	require.NoError(t, err)
	assert.False(t, snap.VerifyBeforeBooking)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "nope.yaml")}.Load()
	assert.Error(t, err)
}

func TestSnapshotCheck(t *testing.T) {
	snap := Snapshot{
		Accounts: []user.Account{{ID: "alice", Password: "pw"}},
		Targets: []reservation.Target{
			{Court: 9, Date: "20250814", Time: "08:00", Hours: 1},
			{Court: 1, Date: "20250814", Time: "08:00", Hours: 1, Owner: "carol"},
			{Court: 2, Date: "20250814", Time: "10:00", Hours: 2, Owner: "alice"},
			{Court: 3, Date: "20250814", Time: "14:00", Hours: 1, Owner: "alice"},
		},
	}
	err := snap.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target 1")
	assert.Contains(t, err.Error(), `unknown account "carol"`)
	assert.Contains(t, err.Error(), "limit is 2")
}
