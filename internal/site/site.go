// Package site knows the facility booking site: its pages, its AJAX
// endpoints and the scripts that drive its forms.
package site

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/example/court-scheduler/internal/page"
)

const DefaultBaseURL = "http://www.gimposports.or.kr"

type PageKind int

const (
	PageOther PageKind = iota
	PageLogin
	PageRoot
	PageMain
	PageConfirm
)

func (k PageKind) String() string {
	switch k {
	case PageLogin:
		return "login"
	case PageRoot:
		return "root"
	case PageMain:
		return "main"
	case PageConfirm:
		return "confirm"
	}
	return "other"
}

type Site struct {
	base string
}

func New(base string) *Site {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Site{base: strings.TrimRight(base, "/")}
}

func (s *Site) RootURL() string { return s.base + "/" }
func (s *Site) LoginURL() string { return s.base + "/bbs/login.php" }
func (s *Site) MainURL() string { return s.base + "/bbs/orderCourse.php" }
func (s *Site) ConfirmURL() string { return s.base + "/bbs/member_confirm.php" }
func (s *Site) ProbeURL() string { return s.base + "/skin/orders/timeBoard4.php" }
func (s *Site) ScheduleURL() string { return s.base + "/skin/orders/timeSlots.php" }

// Classify maps a page URL to the page the session reacts to. Login and
// root match exactly; the confirm page is matched by prefix since it
// carries a return URL in its query.
func (s *Site) Classify(u string) PageKind {
	switch {
	case u == s.LoginURL():
		return PageLogin
	case u == s.RootURL():
		return PageRoot
	case strings.HasPrefix(u, s.ConfirmURL()):
		return PageConfirm
	case strings.HasPrefix(u, s.MainURL()):
		return PageMain
	}
	return PageOther
}

// ProbeRequest asks for one court's time board on date.
func (s *Site) ProbeRequest(accountID string, court int, date string) page.Request {
	req := page.NewRequest(page.KindProbe, accountID, s.ProbeURL(), url.Values{
		"orderDate": {date},
		"court":     {strconv.Itoa(court)},
	})
	req.Court, req.Date = court, date
	return req
}

// ScheduleRequest asks for every court's schedule on date.
func (s *Site) ScheduleRequest(accountID, date string) page.Request {
	req := page.NewRequest(page.KindSchedule, accountID, s.ScheduleURL(), url.Values{
		"orderDate": {date},
	})
	req.Date = date
	return req
}

// Alerts raised after a reservation submit that mean it went through.
var successMarkers = []string{"완료", "예약되었습니다", "신청되었습니다"}

// CommitSucceeded classifies the alert raised after a reservation submit.
func CommitSucceeded(alert string) bool {
	for _, m := range successMarkers {
		if strings.Contains(alert, m) {
			return true
		}
	}
	return false
}
