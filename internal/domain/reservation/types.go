package reservation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	MinCourt = 1
	MaxCourt = 8

	lastStartHour = 23
)

var (
	reDate = regexp.MustCompile(`^\d{8}$`)
	reTime = regexp.MustCompile(`^(\d{2}):00$`)
)

// Target is one desired reservation. Targets are built once from
// configuration and never mutated afterwards.
type Target struct {
	Court int    `json:"court" mapstructure:"court"`
	Date  string `json:"date" mapstructure:"date"` // YYYYMMDD
	Time  string `json:"time" mapstructure:"time"` // HH:00
	Hours int    `json:"hours" mapstructure:"hours"`

	// Owner is the account that should book this target. Empty means the
	// scenario's default account.
	Owner string `json:"user_id,omitempty" mapstructure:"user_id"`
}

// Key identifies a target for de-duplication: (court, date, start hour, hours).
type Key struct {
	Court     int
	Date      string
	StartHour int
	Hours     int

	// raw holds the unparsed time of a malformed target so that distinct
	// malformed entries do not collapse into each other.
	raw string
}

func (k Key) String() string {
	return fmt.Sprintf("%d|%s|%02d|%d", k.Court, k.Date, k.StartHour, k.Hours)
}

func (t Target) Key() Key {
	h, err := t.StartHour()
	if err != nil {
		return Key{Court: t.Court, Date: t.Date, StartHour: -1, Hours: t.Hours, raw: t.Time}
	}
	return Key{Court: t.Court, Date: t.Date, StartHour: h, Hours: t.Hours}
}

// StartHour parses Time ("HH:00").
func (t Target) StartHour() (int, error) {
	m := reTime.FindStringSubmatch(t.Time)
	if m == nil {
		return 0, &ValidationError{Field: "time", Value: t.Time, Reason: "want HH:00"}
	}
	h, _ := strconv.Atoi(m[1])
	if h > lastStartHour {
		return 0, &ValidationError{Field: "time", Value: t.Time, Reason: "hour out of range"}
	}
	return h, nil
}

// ValidateDate checks a YYYYMMDD calendar date.
func ValidateDate(date string) error {
	if !reDate.MatchString(date) {
		return &ValidationError{Field: "date", Value: date, Reason: "want YYYYMMDD"}
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return &ValidationError{Field: "date", Value: date, Reason: "not a calendar date"}
	}
	return nil
}

// Validate rejects anything that must never be sent to the remote site.
func (t Target) Validate() error {
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	h, err := t.StartHour()
	if err != nil {
		return err
	}
	if t.Hours != 1 && t.Hours != 2 {
		return &ValidationError{Field: "hours", Value: strconv.Itoa(t.Hours), Reason: "want 1 or 2"}
	}
	if t.Hours == 2 && h+1 > lastStartHour {
		return &ValidationError{Field: "time", Value: t.Time, Reason: "2 hours from 23:00 rolls past midnight"}
	}
	if t.Court < MinCourt || t.Court > MaxCourt {
		return &ValidationError{Field: "court", Value: strconv.Itoa(t.Court), Reason: fmt.Sprintf("want %d..%d", MinCourt, MaxCourt)}
	}
	return nil
}

// CoveredTimes lists every hour label the target occupies, in order.
// It returns nil for a target whose time does not parse.
func (t Target) CoveredTimes() []string {
	h, err := t.StartHour()
	if err != nil {
		return nil
	}
	out := []string{HourLabel(h)}
	if t.Hours > 1 && h+1 <= lastStartHour {
		out = append(out, HourLabel(h+1))
	}
	return out
}

// EndTime is the label of the second hour of a 2-hour target, "" otherwise.
func (t Target) EndTime() string {
	ts := t.CoveredTimes()
	if len(ts) < 2 {
		return ""
	}
	return ts[1]
}

func (t Target) WithOwner(owner string) Target {
	t.Owner = owner
	return t
}

func HourLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// Group is the team registered with every commit.
type Group struct {
	Name  string `json:"name" mapstructure:"name"`
	Count int    `json:"count" mapstructure:"count"`
}
