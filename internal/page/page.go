// Package page is the boundary to the live browser pages: one page per
// account, driven by fire-and-forget calls whose results come back on a
// single event channel.
package page

import (
	"net/url"

	"github.com/google/uuid"
)

type Kind int

const (
	KindProbe Kind = iota + 1
	KindSchedule
)

func (k Kind) String() string {
	switch k {
	case KindProbe:
		return "probe"
	case KindSchedule:
		return "schedule"
	}
	return "unknown"
}

// Request is an in-page POST issued on behalf of an account. ID correlates
// the eventual EventFetched back to its issuer.
type Request struct {
	ID        string
	Kind      Kind
	AccountID string
	URL       string
	Form      url.Values

	// Court and Date describe what a probe or schedule request is about.
	Court int
	Date  string
}

// NewRequest stamps a fresh correlation ID.
func NewRequest(kind Kind, accountID, target string, form url.Values) Request {
	return Request{ID: uuid.NewString(), Kind: kind, AccountID: accountID, URL: target, Form: form}
}

// Response is the terminal result of a Request after the retry budget.
type Response struct {
	Request  Request
	Status   int
	Body     string
	Attempts int
	Err      error
}

func (r Response) OK() bool { return r.Err == nil }

type EventKind int

const (
	EventNavigated EventKind = iota + 1
	EventAlert
	EventFetched
)

func (k EventKind) String() string {
	switch k {
	case EventNavigated:
		return "navigated"
	case EventAlert:
		return "alert"
	case EventFetched:
		return "fetched"
	}
	return "unknown"
}

type Event struct {
	Kind      EventKind
	AccountID string
	URL       string    // EventNavigated
	Text      string    // EventAlert
	Fetch     *Response // EventFetched
}

// Actuator drives account pages. Every method returns as soon as the work
// is queued; outcomes are reported on Events.
type Actuator interface {
	Open(accountID, startURL string) error
	Close(accountID string)
	Navigate(accountID, target string) error
	Execute(accountID, script string) error
	Fetch(req Request) error
	Foreground(accountID string) error
	Events() <-chan Event
}
