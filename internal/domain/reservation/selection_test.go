package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupFirstSeenWins(t *testing.T) {
	a := Target{Court: 5, Date: "20250814", Time: "08:00", Hours: 2, Owner: "alice"}
	b := Target{Court: 5, Date: "20250815", Time: "12:00", Hours: 2}
	a2 := Target{Court: 5, Date: "20250814", Time: "08:00", Hours: 2, Owner: "bob"}

	got := Dedup([]Target{a, b, a2})
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])
}

func TestDedupKeepsDifferentDurations(t *testing.T) {
	one := Target{Court: 1, Date: "20250814", Time: "10:00", Hours: 1}
	two := Target{Court: 1, Date: "20250814", Time: "10:00", Hours: 2}
	assert.Len(t, Dedup([]Target{one, two}), 2)
}

func TestDedupIdempotent(t *testing.T) {
	in := []Target{
		{Court: 1, Date: "20250814", Time: "10:00", Hours: 1},
		{Court: 1, Date: "20250814", Time: "10:00", Hours: 1},
		{Court: 2, Date: "20250814", Time: "bad", Hours: 1},
		{Court: 2, Date: "20250814", Time: "worse", Hours: 1},
	}
	once := Dedup(in)
	assert.Len(t, once, 3)
	assert.Equal(t, once, Dedup(once))
}

func TestCheckDailyQuota(t *testing.T) {
	ok := []Target{
		{Court: 1, Date: "20250814", Time: "10:00", Hours: 2, Owner: "alice"},
		{Court: 2, Date: "20250815", Time: "10:00", Hours: 2, Owner: "alice"},
		{Court: 3, Date: "20250814", Time: "10:00", Hours: 2, Owner: "bob"},
		{Court: 4, Date: "20250814", Time: "12:00", Hours: 2},
	}
	require.NoError(t, CheckDailyQuota(ok, 0))

	over := append(ok, Target{Court: 6, Date: "20250814", Time: "15:00", Hours: 1, Owner: "alice"})
	err := CheckDailyQuota(over, 2)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestLabel(t *testing.T) {
	tg := Target{Court: 5, Date: "20250814", Time: "08:00", Hours: 2}
	assert.Equal(t, "2025-08-14 • court 5 • 08:00 • 2h", Label(tg, ""))
	assert.Equal(t, "2025-08-14 • court 5 • 08:00 • 2h • alice • held by alice",
		Label(tg.WithOwner("alice"), "alice"))
}
