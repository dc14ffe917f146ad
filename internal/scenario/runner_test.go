package scenario

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reserved struct {
	account string
	target  reservation.Target
	opts    booking.Options
}

type fakeDispatcher struct {
	open       map[string]bool
	foreground []string
	reserved   []reserved
}

func (f *fakeDispatcher) Foreground(id string) error {
	if !f.open[id] {
		return fmt.Errorf("no session for %s", id)
	}
	f.foreground = append(f.foreground, id)
	return nil
}

func (f *fakeDispatcher) Reserve(id string, t reservation.Target, opts booking.Options) error {
	f.reserved = append(f.reserved, reserved{id, t, opts})
	return nil
}

func plan() config.Static {
	return config.Static{
		Accounts: []user.Account{{ID: "alice", Password: "a"}, {ID: "bob", Password: "b"}},
		Targets: []reservation.Target{
			{Court: 5, Date: "20250814", Time: "08:00", Hours: 2, Owner: "bob"},
			{Court: 1, Date: "20250814", Time: "10:00", Hours: 1},
			{Court: 5, Date: "20250814", Time: "08:00", Hours: 2},
			{Court: 2, Date: "20250815", Time: "06:00", Hours: 1, Owner: "carol"},
		},
		VerifyBeforeBooking: true,
		Group:               reservation.Group{Name: "Smashers", Count: 4},
	}
}

func TestAdvanceVisitsPlanThenCompletes(t *testing.T) {
	d := &fakeDispatcher{open: map[string]bool{"alice": true, "bob": true}}
	r := New(plan(), d, nil)
	assert.Equal(t, NotStarted, r.Cursor())

	var visited []int
	for i := 0; i < 3; i++ {
		step, err := r.Advance()
		require.NoError(t, err)
		assert.False(t, step.Done)
		assert.Equal(t, 3, step.Total)
		visited = append(visited, step.Index)
	}
	assert.Equal(t, []int{0, 1, 2}, visited)

	step, err := r.Advance()
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Equal(t, NotStarted, r.Cursor())
	assert.Equal(t, "scenario: stopped", r.Status())

	require.Len(t, d.reserved, 3)
	assert.Equal(t, "bob", d.reserved[0].account)
	assert.Equal(t, "alice", d.reserved[1].account, "unowned target uses the default account")
	assert.Equal(t, "alice", d.reserved[2].account, "owner without a session falls back")
	assert.Equal(t, booking.Options{Verify: true, Group: reservation.Group{Name: "Smashers", Count: 4}}, d.reserved[0].opts)
	assert.Equal(t, []string{"bob", "alice", "alice"}, d.foreground)
}

func TestSetCursor(t *testing.T) {
	d := &fakeDispatcher{open: map[string]bool{"alice": true, "bob": true}}
	r := New(plan(), d, nil)

	require.NoError(t, r.SetCursor(1))
	step, err := r.Advance()
	require.NoError(t, err)
	assert.Equal(t, 2, step.Index)

	require.NoError(t, r.SetCursor(NotStarted))
	step, err = r.Advance()
	require.NoError(t, err)
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, "scenario - 1: 2025-08-14 • court 5 • 08:00 • 2h • bob", r.Status())

	assert.ErrorIs(t, r.SetCursor(3), ErrCursorRange)
	assert.ErrorIs(t, r.SetCursor(-2), ErrCursorRange)
}

func TestAdvanceEmptyPlan(t *testing.T) {
	r := New(config.Static{}, &fakeDispatcher{}, nil)
	step, err := r.Advance()
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Equal(t, NotStarted, r.Cursor())
}

type failingSource struct{}

func (failingSource) Load() (config.Snapshot, error) { return config.Snapshot{}, errors.New("disk gone") }

func TestAdvanceLoadErrorKeepsCursor(t *testing.T) {
	r := New(failingSource{}, &fakeDispatcher{}, nil)
	_, err := r.Advance()
	require.Error(t, err)
	assert.Equal(t, NotStarted, r.Cursor())
}

func TestAdvanceWithoutAnySession(t *testing.T) {
	d := &fakeDispatcher{open: map[string]bool{}}
	r := New(plan(), d, nil)
	step, err := r.Advance()
	require.Error(t, err)
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, 0, r.Cursor())
	assert.Empty(t, d.reserved)
}
