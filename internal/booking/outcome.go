// Package booking runs the per-account probe-then-commit protocol and
// routes page events to the session that owns them.
package booking

import (
	"fmt"
	"time"

	"github.com/example/court-scheduler/internal/domain/reservation"
)

type State int

const (
	Idle State = iota
	ProbeCourt
	AwaitingProbe
	Committing
	Blocked
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ProbeCourt:
		return "probe_court"
	case AwaitingProbe:
		return "awaiting_probe"
	case Committing:
		return "committing"
	case Blocked:
		return "blocked"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for v := Idle; v <= Failed; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("booking: unknown state %q", b)
}

type Result int

const (
	// ResultIssued: the commit script was sent; completion is reported later.
	ResultIssued Result = iota + 1
	ResultCommitted
	ResultBlocked
	ResultFailed
	ResultInvalid
)

func (r Result) String() string {
	switch r {
	case ResultIssued:
		return "issued"
	case ResultCommitted:
		return "committed"
	case ResultBlocked:
		return "blocked"
	case ResultFailed:
		return "failed"
	case ResultInvalid:
		return "invalid"
	}
	return "unknown"
}

func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Result) UnmarshalText(b []byte) error {
	for v := ResultIssued; v <= ResultInvalid; v++ {
		if v.String() == string(b) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("booking: unknown result %q", b)
}

// Outcome is the explicit result of one step of a reservation attempt.
type Outcome struct {
	AccountID string             `json:"account_id"`
	Target    reservation.Target `json:"target"`
	Result    Result             `json:"result"`
	Detail    string             `json:"detail,omitempty"`
	Holder    string             `json:"holder,omitempty"`
	At        time.Time          `json:"at"`
}

// Sink receives outcomes. It is called outside session locks but must not
// block for long.
type Sink interface {
	Record(Outcome)
}

type SinkFunc func(Outcome)

func (f SinkFunc) Record(o Outcome) { f(o) }

// Tee fans outcomes out to several sinks.
type Tee []Sink

func (t Tee) Record(o Outcome) {
	for _, s := range t {
		if s != nil {
			s.Record(o)
		}
	}
}

type Options struct {
	// Verify consults the slot cache before probing.
	Verify bool
	Group  reservation.Group
}
