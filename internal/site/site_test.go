package site

import (
	"strings"
	"testing"

	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/domain/user"
	"github.com/example/court-scheduler/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	s := New("")
	assert.Equal(t, PageLogin, s.Classify("http://www.gimposports.or.kr/bbs/login.php"))
	assert.Equal(t, PageRoot, s.Classify("http://www.gimposports.or.kr/"))
	assert.Equal(t, PageMain, s.Classify("http://www.gimposports.or.kr/bbs/orderCourse.php"))
	assert.Equal(t, PageConfirm, s.Classify("http://www.gimposports.or.kr/bbs/member_confirm.php?url=x"))
	assert.Equal(t, PageOther, s.Classify("http://www.gimposports.or.kr/bbs/board.php"))
	assert.Equal(t, PageOther, s.Classify("http://www.gimposports.or.kr/bbs/login.php?next=1"))
}

func TestRequests(t *testing.T) {
	s := New("http://example.test/")
	p := s.ProbeRequest("alice", 5, "20250814")
	assert.Equal(t, page.KindProbe, p.Kind)
	assert.Equal(t, "http://example.test/skin/orders/timeBoard4.php", p.URL)
	assert.Equal(t, "20250814", p.Form.Get("orderDate"))
	assert.Equal(t, "5", p.Form.Get("court"))
	assert.Equal(t, 5, p.Court)

	d := s.ScheduleRequest("alice", "20250814")
	assert.Equal(t, page.KindSchedule, d.Kind)
	assert.Equal(t, "http://example.test/skin/orders/timeSlots.php", d.URL)
	assert.NotEqual(t, p.ID, d.ID)
}

func TestCommitFormTwoHours(t *testing.T) {
	target := reservation.Target{Court: 5, Date: "20250814", Time: "08:00", Hours: 2}
	f, err := NewCommitForm(target, reservation.Group{Name: "Smashers", Count: 4})
	require.NoError(t, err)
	assert.Equal(t, CommitForm{
		Room:       "E관",
		HourOption: "selectTim02",
		Timers:     2,
		DateYmd:    "20250814",
		DateTime:   "08:00",
		DateTime2:  "09:00",
		TeamName:   "Smashers",
		TeamCount:  4,
	}, f)

	script := f.Script()
	for _, want := range []string{
		`reservForm.sRoom.value = "E관";`,
		`selectTim02.checked = true;`,
		`reservForm.timers.value = 2;`,
		`reservForm.dateYmd.value = "20250814";`,
		`reservForm.dateTime.value = "08:00";`,
		`reservForm.dateTime2.value = "09:00";`,
		`document.querySelector('#teamName').value = "Smashers";`,
		`document.querySelector('#teamCnt').value = 4;`,
		`reservFormSubFunc();`,
	} {
		assert.Contains(t, script, want)
	}
}

func TestCommitFormOneHour(t *testing.T) {
	f, err := NewCommitForm(reservation.Target{Court: 1, Date: "20250814", Time: "23:00", Hours: 1}, reservation.Group{})
	require.NoError(t, err)
	assert.Equal(t, "A관", f.Room)
	assert.Equal(t, "selectTim01", f.HourOption)
	assert.Equal(t, "", f.DateTime2)
	assert.Contains(t, f.Script(), `reservForm.dateTime2.value = "";`)
}

func TestCommitFormRejectsInvalid(t *testing.T) {
	_, err := NewCommitForm(reservation.Target{Court: 9, Date: "20250814", Time: "08:00", Hours: 1}, reservation.Group{})
	assert.True(t, reservation.IsValidation(err))
}

func TestScriptsQuoteCredentials(t *testing.T) {
	a := user.Account{ID: "o'neil", Password: `p"w'</script>`}
	login := LoginScript(a)
	assert.Contains(t, login, `document.querySelector('#login_id').value = "o'neil";`)
	assert.NotContains(t, login, `</script>`)
	assert.True(t, strings.HasSuffix(login, "document.flogin.submit();"))

	confirm := ConfirmScript(a)
	assert.Contains(t, confirm, "#confirm_mb_password")
	assert.Contains(t, confirm, "fmemberconfirm.submit()")
}

func TestCommitSucceeded(t *testing.T) {
	assert.True(t, CommitSucceeded("예약이 완료되었습니다."))
	assert.False(t, CommitSucceeded("이미 예약된 시간입니다."))
	assert.False(t, CommitSucceeded(""))
}
