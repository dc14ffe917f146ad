package slots

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseBoardFragment reads the single-court time board returned by a probe.
// Each slot is a <label class="on labelDate" data="HH:MM"> (or "no
// labelDate"). The class must be exactly the marker followed by labelDate;
// any other class list or a malformed time is skipped. Where the labels sit
// in the markup, and how it is broken into lines, does not matter. A
// fragment with no recognizable label yields an empty Court.
func ParseBoardFragment(fragment string) Court {
	out := Court{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return out
	}
	doc.Find("label.labelDate").Each(func(_ int, s *goquery.Selection) {
		label, ok := s.Attr("data")
		if !ok || !reLabel.MatchString(label) {
			return
		}
		class, _ := s.Attr("class")
		fields := strings.Fields(class)
		if len(fields) != 2 || fields[1] != "labelDate" {
			return
		}
		if st, ok := fromBoardMarker(fields[0]); ok {
			out[label] = st
		}
	})
	return out
}

// DecodeDaySchedule reads the whole-date schedule: courts keyed by number,
// each mapping "HH:MM" labels to status cells. The site encodes the court
// list either as an object or as an array indexed by court number.
func DecodeDaySchedule(body []byte) (Courts, error) {
	raw, err := courtList(body)
	if err != nil {
		return nil, fmt.Errorf("decode day schedule: %w", err)
	}
	out := make(Courts, len(raw))
	for n, msg := range raw {
		var cells map[string]json.RawMessage
		if string(bytes.TrimSpace(msg)) == "[]" {
			out[n] = Court{}
			continue
		}
		if err := json.Unmarshal(msg, &cells); err != nil {
			return nil, fmt.Errorf("decode day schedule: court %d: %w", n, err)
		}
		court := make(Court, len(cells))
		for label, cell := range cells {
			if !reLabel.MatchString(label) {
				return nil, fmt.Errorf("decode day schedule: bad time %q on court %d", label, n)
			}
			court[label] = fromScheduleCell(cell)
		}
		out[n] = court
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decode day schedule: no courts")
	}
	return out, nil
}

func courtList(body []byte) (map[int]json.RawMessage, error) {
	out := map[int]json.RawMessage{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, err
		}
		for i, m := range arr {
			if i == 0 || isNull(m) {
				continue
			}
			out[i] = m
		}
		return out, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	for key, m := range obj {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad court %q", key)
		}
		if isNull(m) {
			continue
		}
		out[n] = m
	}
	return out, nil
}

func isNull(m json.RawMessage) bool {
	return len(bytes.TrimSpace(m)) == 0 || string(bytes.TrimSpace(m)) == "null"
}
