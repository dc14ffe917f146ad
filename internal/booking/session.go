package booking

import (
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

type pendingProbe struct {
	req    page.Request
	target reservation.Target
	opts   Options
}

type pendingCommit struct {
	target   reservation.Target
	issuedAt time.Time
}

// Session is the booking state machine of one account page. All methods
// are safe for concurrent use; once closed, a session ignores everything.
type Session struct {
	account user.Account
	act     page.Actuator
	site    *site.Site
	cache   *slots.Cache
	sink    Sink
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   State
	probe   *pendingProbe
	commit  *pendingCommit
	last    *Outcome
	holders map[reservation.Key]reservation.Target
	closed  bool
	outbox  []Outcome
}

func newSession(a user.Account, d Deps) *Session {
	return &Session{
		account: a,
		act:     d.Actuator,
		site:    d.Site,
		cache:   d.Cache,
		sink:    d.Sink,
		log:     d.Logger.With(zap.String("account", a.ID)),
		now:     d.Clock,
		holders: map[reservation.Key]reservation.Target{},
	}
}

func (s *Session) AccountID() string { return s.account.ID }

// RequestReservation starts an attempt for t. A request still awaiting its
// probe is superseded.
func (s *Session) RequestReservation(t reservation.Target, opts Options) {
	s.mu.Lock()
	s.requestLocked(t, opts)
	out := s.drainLocked()
	s.mu.Unlock()
	s.publish(out)
}

func (s *Session) requestLocked(t reservation.Target, opts Options) {
	if s.closed {
		return
	}
	if err := t.Validate(); err != nil {
		metricValidationRejects.Inc()
		s.log.Warn("rejected target", zap.String("target", t.Key().String()), zap.Error(err))
		s.outcomeLocked(t, ResultInvalid, err.Error())
		return
	}
	if p := s.probe; p != nil {
		s.log.Info("superseding pending request", zap.String("target", p.target.Key().String()))
		s.outcomeLocked(p.target, ResultFailed, "superseded by a newer request")
		s.probe = nil
	}

	if opts.Verify && s.cache.IsBooked(t) {
		metricBlocks.WithLabelValues("cache").Inc()
		s.setStateLocked(Blocked)
		s.outcomeLocked(t, ResultBlocked, "already booked per cached schedule")
		s.setStateLocked(Idle)
		return
	}

	s.setStateLocked(ProbeCourt)
	req := s.site.ProbeRequest(s.account.ID, t.Court, t.Date)
	if err := s.act.Fetch(req); err != nil {
		s.log.Warn("probe not sent", zap.Error(err))
		s.setStateLocked(Failed)
		s.outcomeLocked(t, ResultFailed, "probe not sent: "+err.Error())
		s.setStateLocked(Idle)
		return
	}
	metricProbesIssued.Inc()
	s.probe = &pendingProbe{req: req, target: t, opts: opts}
	s.setStateLocked(AwaitingProbe)
}

// Handle reacts to an event from this session's page. Events for other
// accounts, stale probe results and anything after Close are dropped.
func (s *Session) Handle(ev page.Event) {
	s.mu.Lock()
	if !s.closed && ev.AccountID == s.account.ID {
		switch ev.Kind {
		case page.EventFetched:
			s.onFetchedLocked(ev.Fetch)
		case page.EventNavigated:
			s.onNavigatedLocked(ev.URL)
		case page.EventAlert:
			s.onAlertLocked(ev.Text)
		}
	}
	out := s.drainLocked()
	s.mu.Unlock()
	s.publish(out)
}

func (s *Session) onFetchedLocked(resp *page.Response) {
	if resp == nil || resp.Request.Kind != page.KindProbe {
		return
	}
	p := s.probe
	if p == nil || resp.Request.ID != p.req.ID {
		s.log.Debug("dropping stale probe result", zap.String("request", resp.Request.ID))
		return
	}
	s.probe = nil

	if !resp.OK() {
		metricProbeFailOpen.Inc()
		s.log.Warn("probe failed, committing without fresh data",
			zap.Int("attempts", resp.Attempts), zap.Error(resp.Err))
		s.commitLocked(p, "probe failed after retries")
		return
	}

	observed := slots.ParseBoardFragment(resp.Body)
	if len(observed) > 0 {
		res := s.cache.ApplyCourtObservation(p.target.Date, p.target.Court, observed, s.now())
		recordMerge(res)
	} else {
		s.log.Debug("probe returned no slot labels", zap.Int("bytes", len(resp.Body)))
	}

	if s.cache.IsBooked(p.target) {
		metricBlocks.WithLabelValues("probe").Inc()
		s.setStateLocked(Blocked)
		s.outcomeLocked(p.target, ResultBlocked, "booked per probe")
		s.setStateLocked(Idle)
		return
	}
	s.commitLocked(p, "")
}

func (s *Session) commitLocked(p *pendingProbe, detail string) {
	s.setStateLocked(Committing)
	form, err := site.NewCommitForm(p.target, p.opts.Group)
	if err != nil {
		s.outcomeLocked(p.target, ResultInvalid, err.Error())
		s.setStateLocked(Idle)
		return
	}
	if err := s.act.Execute(s.account.ID, form.Script()); err != nil {
		s.setStateLocked(Failed)
		s.outcomeLocked(p.target, ResultFailed, "commit not sent: "+err.Error())
		s.setStateLocked(Idle)
		return
	}
	metricCommitsIssued.Inc()
	s.commit = &pendingCommit{target: p.target, issuedAt: s.now()}
	s.outcomeLocked(p.target, ResultIssued, detail)
	s.setStateLocked(Idle)
}

func (s *Session) onNavigatedLocked(u string) {
	switch s.site.Classify(u) {
	case site.PageLogin:
		if c := s.commit; c != nil {
			s.commit = nil
			s.setStateLocked(Failed)
			s.outcomeLocked(c.target, ResultFailed, "session expired before the commit completed")
			s.setStateLocked(Idle)
		}
		if !s.account.Valid() {
			s.log.Info("no credentials configured, waiting for a manual login")
			return
		}
		s.exec("login", site.LoginScript(s.account))
	case site.PageRoot:
		if err := s.act.Navigate(s.account.ID, s.site.MainURL()); err != nil {
			s.log.Warn("navigate to order page", zap.Error(err))
		}
	case site.PageConfirm:
		if s.account.Valid() {
			s.exec("confirm", site.ConfirmScript(s.account))
		}
	}
}

func (s *Session) exec(what, script string) {
	if err := s.act.Execute(s.account.ID, script); err != nil {
		s.log.Warn("script not sent", zap.String("script", what), zap.Error(err))
	}
}

func (s *Session) onAlertLocked(text string) {
	c := s.commit
	if c == nil {
		s.log.Debug("alert with no pending commit", zap.String("text", text))
		return
	}
	s.commit = nil
	if site.CommitSucceeded(text) {
		s.holders[c.target.Key()] = c.target
		s.outcomeLocked(c.target, ResultCommitted, text)
		return
	}
	s.setStateLocked(Failed)
	s.outcomeLocked(c.target, ResultFailed, text)
	s.setStateLocked(Idle)
}

// Close discards pending work. Later calls and events are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.probe = nil
	s.commit = nil
	s.outbox = nil
	s.state = Idle
}

// Holds reports whether this session booked t during this run.
func (s *Session) Holds(t reservation.Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.holders[t.Key()]
	return ok
}

type Snapshot struct {
	AccountID      string               `json:"account_id"`
	State          State                `json:"state"`
	Closed         bool                 `json:"closed"`
	AwaitingProbe  *reservation.Target  `json:"awaiting_probe,omitempty"`
	AwaitingCommit *reservation.Target  `json:"awaiting_commit,omitempty"`
	Last           *Outcome             `json:"last,omitempty"`
	Booked         []reservation.Target `json:"booked"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{AccountID: s.account.ID, State: s.state, Closed: s.closed, Booked: []reservation.Target{}}
	if s.probe != nil {
		t := s.probe.target
		snap.AwaitingProbe = &t
	}
	if s.commit != nil {
		t := s.commit.target
		snap.AwaitingCommit = &t
	}
	if s.last != nil {
		o := *s.last
		snap.Last = &o
	}
	for _, t := range s.holders {
		snap.Booked = append(snap.Booked, t)
	}
	sort.Slice(snap.Booked, func(i, j int) bool { return snap.Booked[i].Key().String() < snap.Booked[j].Key().String() })
	return snap
}

func (s *Session) setStateLocked(to State) {
	if s.state != to {
		s.log.Debug("state", zap.Stringer("from", s.state), zap.Stringer("to", to))
		s.state = to
	}
}

func (s *Session) outcomeLocked(t reservation.Target, r Result, detail string) {
	o := Outcome{AccountID: s.account.ID, Target: t, Result: r, Detail: detail, At: s.now()}
	if r == ResultCommitted {
		o.Holder = s.account.ID
	}
	s.last = &o
	s.outbox = append(s.outbox, o)
}

func (s *Session) drainLocked() []Outcome {
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *Session) publish(out []Outcome) {
	for _, o := range out {
		recordOutcome(o)
		s.log.Info("outcome",
			zap.String("target", reservation.Label(o.Target, o.Holder)),
			zap.Stringer("result", o.Result), zap.String("detail", o.Detail))
		if s.sink != nil {
			s.sink.Record(o)
		}
	}
}
