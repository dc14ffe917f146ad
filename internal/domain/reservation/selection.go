package reservation

import (
	"fmt"
	"strings"
)

// Dedup drops targets sharing a Key with an earlier target. Order is
// preserved and the first occurrence wins, so Dedup(Dedup(x)) == Dedup(x).
func Dedup(targets []Target) []Target {
	seen := make(map[Key]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		k := t.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// DefaultMaxHoursPerDay is the facility's per-account daily limit.
const DefaultMaxHoursPerDay = 2

// CheckDailyQuota reports owners asking for more than maxHours on a single
// date. Unowned targets are not counted.
func CheckDailyQuota(targets []Target, maxHours int) error {
	if maxHours <= 0 {
		maxHours = DefaultMaxHoursPerDay
	}
	type ownerDate struct{ owner, date string }
	hours := map[ownerDate]int{}
	for _, t := range targets {
		if t.Owner == "" {
			continue
		}
		k := ownerDate{t.Owner, t.Date}
		hours[k] += t.Hours
		if hours[k] > maxHours {
			return &ValidationError{
				Field:  "hours",
				Value:  fmt.Sprintf("%s@%s", t.Owner, t.Date),
				Reason: fmt.Sprintf("%d hours requested, limit is %d", hours[k], maxHours),
			}
		}
	}
	return nil
}

// Label renders a target for the operator, e.g. "2025-08-14 • court 5 • 08:00 • 2h".
// A known booking holder is appended.
func Label(t Target, holder string) string {
	date := t.Date
	if len(date) == 8 {
		date = date[0:4] + "-" + date[4:6] + "-" + date[6:8]
	}
	parts := []string{date, fmt.Sprintf("court %d", t.Court), t.Time, fmt.Sprintf("%dh", t.Hours)}
	if t.Owner != "" {
		parts = append(parts, t.Owner)
	}
	if holder != "" {
		parts = append(parts, "held by "+holder)
	}
	return strings.Join(parts, " • ")
}
