package slots

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/example/court-scheduler/internal/domain/reservation"
	"go.uber.org/zap"
)

const (
	// TTL is how long a date's table may be consulted after it was cached.
	TTL = 30 * time.Minute

	// DefaultProbeInterval is how far a probe-created table is backdated.
	DefaultProbeInterval = 10 * time.Minute
)

var (
	reYmd   = regexp.MustCompile(`^\d{8}$`)
	reLabel = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Court maps a time label ("HH:MM") to its state.
type Court map[string]State

// Courts maps a court number to its slots.
type Courts map[int]Court

// Table is a copy of one date's cached availability.
type Table struct {
	Date     string    `json:"date"`
	Courts   Courts    `json:"courts"`
	CachedAt time.Time `json:"cached_at"`
}

// Cell returns the state for court/label and whether it was observed.
func (t Table) Cell(court int, label string) (State, bool) {
	c, ok := t.Courts[court]
	if !ok {
		return State{}, false
	}
	s, ok := c[label]
	return s, ok
}

type entry struct {
	mu       sync.Mutex
	courts   Courts
	cachedAt time.Time
}

// Cache is the process-wide slot view shared by every session. The map is
// guarded by mu; each date's cells are guarded by their entry's own lock,
// so merges into different dates never contend.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]*entry

	ttl           time.Duration
	probeInterval time.Duration
	now           func() time.Time
	log           *zap.Logger
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }
func WithLogger(l *zap.Logger) Option { return func(c *Cache) { c.log = l } }

// WithProbeInterval sets the backdating applied to tables first created by
// a single-court observation. Values outside (0, TTL) are ignored.
func WithProbeInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 && d < c.ttl {
			c.probeInterval = d
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		tables:        map[string]*entry{},
		ttl:           TTL,
		probeInterval: DefaultProbeInterval,
		now:           time.Now,
		log:           zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) fresh(e *entry, now time.Time) bool {
	return e.courts != nil && now.Sub(e.cachedAt) < c.ttl
}

func (c *Cache) lookup(date string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[date]
}

// Get returns the table for date, or false when it is missing or expired.
func (c *Cache) Get(date string) (Table, bool) {
	e := c.lookup(date)
	if e == nil {
		return Table{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !c.fresh(e, c.now()) {
		return Table{}, false
	}
	return Table{Date: date, Courts: e.courts.clone(), CachedAt: e.cachedAt}, true
}

// All returns every table still within TTL.
func (c *Cache) All() map[string]Table {
	c.mu.RLock()
	dates := make(map[string]*entry, len(c.tables))
	for d, e := range c.tables {
		dates[d] = e
	}
	c.mu.RUnlock()

	now := c.now()
	out := make(map[string]Table, len(dates))
	for d, e := range dates {
		e.mu.Lock()
		if c.fresh(e, now) {
			out[d] = Table{Date: d, Courts: e.courts.clone(), CachedAt: e.cachedAt}
		}
		e.mu.Unlock()
	}
	return out
}

// SetWholeDate replaces date's table with a full-day observation and
// refreshes its timestamp. Malformed input is dropped and reported as false.
func (c *Cache) SetWholeDate(date string, courts Courts) bool {
	if !reYmd.MatchString(date) || !courts.wellFormed() {
		c.log.Debug("slots: rejected whole-date update", zap.String("date", date))
		return false
	}
	now := c.now()

	e := c.lockEntry(date)
	e.courts = courts.clone()
	e.cachedAt = now
	e.mu.Unlock()
	c.log.Debug("slots: cached date", zap.String("date", date), zap.Int("courts", len(courts)))
	return true
}

// lockEntry returns date's entry, created if missing, with e.mu held. The
// entry lock is taken before the table lock is released so Cleanup cannot
// judge the entry between lookup and write.
func (c *Cache) lockEntry(date string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tables[date]
	if !ok {
		e = &entry{}
		c.tables[date] = e
	}
	e.mu.Lock()
	return e
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.tables = map[string]*entry{}
	c.mu.Unlock()
	c.log.Debug("slots: cleared")
}

func (c *Cache) ClearDate(date string) {
	c.mu.Lock()
	delete(c.tables, date)
	c.mu.Unlock()
}

// Cleanup drops expired tables and returns how many were removed.
func (c *Cache) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for d, e := range c.tables {
		e.mu.Lock()
		stale := !c.fresh(e, now)
		e.mu.Unlock()
		if stale {
			delete(c.tables, d)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug("slots: cleaned up expired dates", zap.Int("removed", removed))
	}
	return removed
}

type EntryStatus struct {
	Date     string        `json:"date"`
	Valid    bool          `json:"valid"`
	CachedAt time.Time     `json:"cached_at"`
	Age      time.Duration `json:"age"`
}

// Status lists every physically held table, expired ones included.
func (c *Cache) Status() []EntryStatus {
	now := c.now()
	c.mu.RLock()
	out := make([]EntryStatus, 0, len(c.tables))
	for d, e := range c.tables {
		e.mu.Lock()
		out = append(out, EntryStatus{Date: d, Valid: c.fresh(e, now), CachedAt: e.cachedAt, Age: now.Sub(e.cachedAt)})
		e.mu.Unlock()
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// IsBooked reports whether any hour covered by t is known to be taken.
// Missing tables, courts or cells count as open.
func (c *Cache) IsBooked(t reservation.Target) bool {
	tbl, ok := c.Get(t.Date)
	if !ok {
		return false
	}
	for _, label := range t.CoveredTimes() {
		if s, ok := tbl.Cell(t.Court, label); ok && !s.IsAvailable() {
			return true
		}
	}
	return false
}

func (cs Courts) clone() Courts {
	out := make(Courts, len(cs))
	for n, c := range cs {
		out[n] = c.clone()
	}
	return out
}

func (c Court) clone() Court {
	out := make(Court, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func (cs Courts) wellFormed() bool {
	if len(cs) == 0 {
		return false
	}
	for n, c := range cs {
		if n < 1 || !c.wellFormed() {
			return false
		}
	}
	return true
}

func (c Court) wellFormed() bool {
	for label := range c {
		if !reLabel.MatchString(label) {
			return false
		}
	}
	return true
}
