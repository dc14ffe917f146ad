package booking

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/court-scheduler/internal/domain/user"
	"github.com/example/court-scheduler/internal/page"
	"github.com/example/court-scheduler/internal/site"
	"github.com/example/court-scheduler/internal/slots"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type call struct {
	op, account, arg string
}

// fakeActuator records every call and lets tests inject events.
type fakeActuator struct {
	mu        sync.Mutex
	calls     []call
	fetches   []page.Request
	open      map[string]bool
	failFetch bool
	events    chan page.Event
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{open: map[string]bool{}, events: make(chan page.Event, 16)}
}

func (f *fakeActuator) record(op, account, arg string) {
	f.calls = append(f.calls, call{op, account, arg})
}

func (f *fakeActuator) Open(accountID, startURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[accountID] = true
	f.record("open", accountID, startURL)
	return nil
}

func (f *fakeActuator) Close(accountID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, accountID)
	f.record("close", accountID, "")
}

func (f *fakeActuator) Navigate(accountID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate", accountID, target)
	return nil
}

func (f *fakeActuator) Execute(accountID, script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("execute", accountID, script)
	return nil
}

func (f *fakeActuator) Fetch(req page.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch {
		return errors.New("page gone")
	}
	f.fetches = append(f.fetches, req)
	f.record("fetch", req.AccountID, req.URL)
	return nil
}

func (f *fakeActuator) Foreground(accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("foreground", accountID, "")
	return nil
}

func (f *fakeActuator) Events() <-chan page.Event { return f.events }

func (f *fakeActuator) Fetches() []page.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]page.Request(nil), f.fetches...)
}

func (f *fakeActuator) Calls(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type recorder struct {
	mu  sync.Mutex
	out []Outcome
}

func (r *recorder) Record(o Outcome) {
	r.mu.Lock()
	r.out = append(r.out, o)
	r.mu.Unlock()
}

func (r *recorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rs []Result
	for _, o := range r.out {
		rs = append(rs, o.Result)
	}
	return rs
}

func (r *recorder) Last() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out[len(r.out)-1]
}

var testNow = time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC)

type harness struct {
	act   *fakeActuator
	cache *slots.Cache
	sink  *recorder
	reg   *Registry
	site  *site.Site
	sess  *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := func() time.Time { return testNow }
	h := &harness{
		act:   newFakeActuator(),
		cache: slots.New(slots.WithClock(clock)),
		sink:  &recorder{},
		site:  site.New(""),
	}
	h.reg = NewRegistry(Deps{
		Actuator: h.act,
		Site:     h.site,
		Cache:    h.cache,
		Sink:     h.sink,
		Logger:   zaptest.NewLogger(t),
		Clock:    clock,
	})
	s, err := h.reg.Open(user.Account{ID: "alice", Password: "pw"})
	require.NoError(t, err)
	h.sess = s
	return h
}

func (h *harness) probeReply(req page.Request, body string, err error) page.Event {
	return page.Event{
		Kind:      page.EventFetched,
		AccountID: req.AccountID,
		Fetch:     &page.Response{Request: req, Status: 200, Body: body, Attempts: 1, Err: err},
	}
}
