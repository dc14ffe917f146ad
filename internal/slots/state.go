// Package slots holds the shared per-date court availability view and the
// rules for folding partial observations into it.
package slots

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind uint8

const (
	Available Kind = iota
	Booked
	BookedWithDetail
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Available:
		return "available"
	case Booked:
		return "booked"
	case BookedWithDetail:
		return "booked_with_detail"
	default:
		return "unknown"
	}
}

// State is the availability of one (date, court, hour) cell. Only the
// fields belonging to Kind are meaningful.
type State struct {
	Kind Kind
	Name string // BookedWithDetail
	Team string // BookedWithDetail
	Raw  string // Unknown
}

func Open() State { return State{Kind: Available} }
func Blocked() State { return State{Kind: Booked} }
func Held(name, team string) State { return State{Kind: BookedWithDetail, Name: name, Team: team} }
func Unrecognized(raw string) State { return State{Kind: Unknown, Raw: raw} }
func (s State) IsAvailable() bool { return s.Kind == Available }

func (s State) String() string {
	switch s.Kind {
	case BookedWithDetail:
		return fmt.Sprintf("booked(%s/%s)", s.Name, s.Team)
	case Unknown:
		return fmt.Sprintf("unknown(%s)", s.Raw)
	default:
		return s.Kind.String()
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	v := struct {
		State string `json:"state"`
		Name  string `json:"name,omitempty"`
		Team  string `json:"team,omitempty"`
		Raw   string `json:"raw,omitempty"`
	}{State: s.Kind.String(), Name: s.Name, Team: s.Team, Raw: s.Raw}
	return json.Marshal(v)
}

// Board labels carry a binary marker: "on" is open, "no" is taken.
func fromBoardMarker(marker string) (State, bool) {
	switch marker {
	case "on":
		return Open(), true
	case "no":
		return Blocked(), true
	}
	return State{}, false
}

// Full-day schedule cells are either a status index
// (0 available, 1 reserved, 2 not available, 3 booked) or a
// [name, team] pair naming the holder.
func fromScheduleCell(raw json.RawMessage) State {
	var pair []string
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) >= 2 {
			return Held(pair[0], pair[1])
		}
		return Unrecognized(string(raw))
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Unrecognized(string(raw))
		}
		n = json.Number(strings.TrimSpace(s))
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return Unrecognized(string(raw))
	}
	switch i {
	case 0:
		return Open()
	case 1, 2, 3:
		return Blocked()
	}
	return Unrecognized(string(raw))
}
