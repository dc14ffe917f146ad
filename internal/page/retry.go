package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultAttempts = 5

// Bodies containing any of these are server-side database failures that
// the site returns with a 200.
var dbErrorPatterns = []string{
	"mysql", "mysqli", "sqlstate", "pdoexception",
	"you have an error in your sql syntax", "warning:",
}

// TransportError is a failure the retry policy may repeat.
type TransportError struct {
	Status int
	Reason string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: http %d: %s", e.Status, e.Reason)
	}
	return "transport: " + e.Reason
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// LooksLikeDBError reports whether a response body is a leaked database
// error page rather than real content.
func LooksLikeDBError(body string) bool {
	if body == "" {
		return false
	}
	b := strings.ToLower(body)
	for _, p := range dbErrorPatterns {
		if strings.Contains(b, p) {
			return true
		}
	}
	return false
}

// CheckBody classifies an HTTP result as success or a TransportError.
func CheckBody(status int, body string) error {
	if status < 200 || status >= 300 {
		return &TransportError{Status: status, Reason: "unexpected status"}
	}
	if LooksLikeDBError(body) {
		return &TransportError{Status: status, Reason: "database error in body"}
	}
	return nil
}

// Retry repeats transport failures up to Attempts times, sleeping Backoff
// between tries. Other errors stop immediately.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

func DefaultRetry() Retry { return Retry{Attempts: DefaultAttempts, Backoff: 300 * time.Millisecond} }

// Do runs fn until it succeeds, returns a non-transport error, the budget
// is spent, or ctx is done. It returns the number of attempts made.
func (r Retry) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return i, nil
		}
		if !IsTransport(err) || i == attempts {
			return i, err
		}
		if r.Backoff > 0 {
			t := time.NewTimer(r.Backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return i, fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-t.C:
			}
		}
	}
	return attempts, err
}
