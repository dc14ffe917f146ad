// Package scenario walks the reservation plan one operator trigger at a
// time.
package scenario

import (
	"errors"
	"fmt"
	"sync"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/domain/reservation"
	"go.uber.org/zap"
)

// NotStarted is the cursor before the first Advance and after completion.
const NotStarted = -1

var ErrCursorRange = errors.New("scenario: cursor out of range")

// Dispatcher is the part of the session registry the runner drives.
type Dispatcher interface {
	Foreground(accountID string) error
	Reserve(accountID string, t reservation.Target, opts booking.Options) error
}

// Step describes what one Advance did.
type Step struct {
	Index     int                `json:"index"`
	Total     int                `json:"total"`
	Target    reservation.Target `json:"target"`
	AccountID string             `json:"account_id,omitempty"`
	Label     string             `json:"label,omitempty"`
	Done      bool               `json:"done"`
}

type Runner struct {
	src config.Source
	d   Dispatcher
	log *zap.Logger

	mu     sync.Mutex
	cursor int
	status string
}

func New(src config.Source, d Dispatcher, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{src: src, d: d, log: log, cursor: NotStarted, status: "scenario: stopped"}
}

func (r *Runner) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Status is the operator-facing one-line state of the walk.
func (r *Runner) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Advance moves to the next target and hands it to its owner's session,
// falling back to the plan's default account. Past the last target the
// cursor resets and Done is reported. The plan is re-read on every call.
//
// A dispatch error is returned with the step; the cursor has still moved.
func (r *Runner) Advance() (Step, error) {
	snap, err := r.src.Load()
	if err != nil {
		return Step{}, fmt.Errorf("load plan: %w", err)
	}
	plan := snap.Plan()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cursor++
	if r.cursor >= len(plan) {
		r.cursor = NotStarted
		r.status = "scenario: stopped"
		r.log.Info("scenario complete", zap.Int("targets", len(plan)))
		return Step{Index: NotStarted, Total: len(plan), Done: true}, nil
	}

	t := plan[r.cursor]
	step := Step{Index: r.cursor, Total: len(plan), Target: t, Label: reservation.Label(t, "")}
	r.status = fmt.Sprintf("scenario - %d: %s", r.cursor+1, step.Label)

	accountID := t.Owner
	if accountID == "" {
		accountID = snap.DefaultAccount().ID
	}
	step.AccountID = accountID

	if err := r.d.Foreground(accountID); err != nil {
		if t.Owner == "" || accountID == snap.DefaultAccount().ID {
			return step, fmt.Errorf("foreground %s: %w", accountID, err)
		}
		// The owner has no page; try the default account instead.
		r.log.Warn("owner has no open session, using default account",
			zap.String("owner", accountID), zap.Error(err))
		accountID = snap.DefaultAccount().ID
		step.AccountID = accountID
		if err := r.d.Foreground(accountID); err != nil {
			return step, fmt.Errorf("foreground %s: %w", accountID, err)
		}
	}

	opts := booking.Options{Verify: snap.VerifyBeforeBooking, Group: snap.Group}
	if err := r.d.Reserve(accountID, t, opts); err != nil {
		return step, fmt.Errorf("reserve via %s: %w", accountID, err)
	}
	r.log.Info("scenario step", zap.Int("index", r.cursor), zap.String("account", accountID), zap.String("target", step.Label))
	return step, nil
}

// SetCursor jumps so that the next Advance visits i+1. NotStarted resets.
func (r *Runner) SetCursor(i int) error {
	snap, err := r.src.Load()
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	n := len(snap.Plan())
	if i < NotStarted || i >= n {
		return fmt.Errorf("%w: %d not in [-1, %d)", ErrCursorRange, i, n)
	}
	r.mu.Lock()
	r.cursor = i
	if i == NotStarted {
		r.status = "scenario: stopped"
	}
	r.mu.Unlock()
	return nil
}
