package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/domain/user"
	"github.com/example/court-scheduler/internal/page"
	"github.com/example/court-scheduler/internal/site"
	"github.com/example/court-scheduler/internal/slots"
	"go.uber.org/zap"
)

var (
	ErrSessionExists = errors.New("booking: session already open")
	ErrNoSession     = errors.New("booking: no session for account")
)

// Deps are shared by every session of a registry.
type Deps struct {
	Actuator page.Actuator
	Site     *site.Site
	Cache    *slots.Cache
	Sink     Sink
	Logger   *zap.Logger
	Clock    func() time.Time

	// CleanupInterval is how often Run drops expired cache tables.
	CleanupInterval time.Duration
}

// Registry owns the account sessions and feeds them the actuator's events.
type Registry struct {
	deps Deps
	log  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(d Deps) *Registry {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Site == nil {
		d.Site = site.New("")
	}
	if d.CleanupInterval <= 0 {
		d.CleanupInterval = 5 * time.Minute
	}
	return &Registry{deps: d, log: d.Logger, sessions: map[string]*Session{}}
}

// Open starts a session for a and loads its login page.
func (r *Registry) Open(a user.Account) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[a.ID]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, a.ID)
	}
	s := newSession(a, r.deps)
	r.sessions[a.ID] = s
	r.mu.Unlock()

	if err := r.deps.Actuator.Open(a.ID, r.deps.Site.LoginURL()); err != nil {
		r.mu.Lock()
		delete(r.sessions, a.ID)
		r.mu.Unlock()
		s.Close()
		return nil, fmt.Errorf("open page for %s: %w", a.ID, err)
	}
	r.log.Info("session opened", zap.String("account", a.ID))
	return s, nil
}

// Close tears down the account's session and page. Pending work is lost.
func (r *Registry) Close(accountID string) {
	r.mu.Lock()
	s, ok := r.sessions[accountID]
	delete(r.sessions, accountID)
	r.mu.Unlock()
	if !ok {
		return
	}
	s.Close()
	r.deps.Actuator.Close(accountID)
	r.log.Info("session closed", zap.String("account", accountID))
}

func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Close(id)
	}
}

func (r *Registry) Session(accountID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[accountID]
	return s, ok
}

// Sessions returns the open sessions ordered by account ID.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID() < out[j].AccountID() })
	return out
}

func (r *Registry) Snapshots() []Snapshot {
	ss := r.Sessions()
	out := make([]Snapshot, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Snapshot())
	}
	return out
}

// Foreground raises the account's page.
func (r *Registry) Foreground(accountID string) error {
	if _, ok := r.Session(accountID); !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, accountID)
	}
	return r.deps.Actuator.Foreground(accountID)
}

// Reserve forwards t to the account's session.
func (r *Registry) Reserve(accountID string, t reservation.Target, opts Options) error {
	s, ok := r.Session(accountID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, accountID)
	}
	s.RequestReservation(t, opts)
	return nil
}

// RefreshDate asks the account's page for the whole-date schedule; the
// result lands in the slot cache when it arrives.
func (r *Registry) RefreshDate(accountID, date string) error {
	if _, ok := r.Session(accountID); !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, accountID)
	}
	if err := reservation.ValidateDate(date); err != nil {
		return err
	}
	return r.deps.Actuator.Fetch(r.deps.Site.ScheduleRequest(accountID, date))
}

// Holder names the account that booked t during this run, if any.
func (r *Registry) Holder(t reservation.Target) string {
	for _, s := range r.Sessions() {
		if s.Holds(t) {
			return s.AccountID()
		}
	}
	return ""
}

// Dispatch routes one event. Events for accounts without an open session
// are dropped.
func (r *Registry) Dispatch(ev page.Event) {
	s, ok := r.Session(ev.AccountID)
	if !ok {
		r.log.Debug("dropping event for closed session",
			zap.String("account", ev.AccountID), zap.Stringer("kind", ev.Kind))
		return
	}
	if ev.Kind == page.EventFetched && ev.Fetch != nil && ev.Fetch.Request.Kind == page.KindSchedule {
		r.storeSchedule(ev.Fetch)
		return
	}
	s.Handle(ev)
}

func (r *Registry) storeSchedule(resp *page.Response) {
	date := resp.Request.Date
	if !resp.OK() {
		r.log.Warn("schedule fetch failed", zap.String("date", date), zap.Int("attempts", resp.Attempts), zap.Error(resp.Err))
		return
	}
	courts, err := slots.DecodeDaySchedule([]byte(resp.Body))
	if err != nil {
		r.log.Warn("schedule not understood", zap.String("date", date), zap.Error(err))
		return
	}
	if r.deps.Cache.SetWholeDate(date, courts) {
		metricSchedulesCached.Inc()
	}
}

// Run drains the actuator's events until ctx is done, and periodically
// drops expired slot tables.
func (r *Registry) Run(ctx context.Context) error {
	t := time.NewTicker(r.deps.CleanupInterval)
	defer t.Stop()

	events := r.deps.Actuator.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			r.Dispatch(ev)
		case <-t.C:
			r.deps.Cache.Cleanup()
		}
	}
}
