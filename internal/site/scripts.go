package site

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/domain/user"
)

var rooms = [...]string{"", "A관", "B관", "C관", "D관", "E관", "F관", "G관", "H관"}

// lit renders v as a JavaScript literal.
func lit(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

var scripts = template.Must(template.New("scripts").Funcs(template.FuncMap{"lit": lit}).Parse(`
{{- define "login" -}}
document.querySelector('#login_id').value = {{lit .ID}};
document.querySelector('#login_pw').value = {{lit .Password}};
document.flogin.submit();
{{- end}}

{{- define "confirm" -}}
document.querySelector('#confirm_mb_password').value = {{lit .Password}};
document.fmemberconfirm.submit();
{{- end}}

{{- define "commit" -}}
reservForm.sRoom.value = {{lit .Room}};
checkVlas.value = 'Y';
{{.HourOption}}.checked = true;
reservForm.timers.value = {{.Timers}};
reservForm.dateYmd.value = {{lit .DateYmd}};
reservForm.dateTime.value = {{lit .DateTime}};
reservForm.dateTime2.value = {{lit .DateTime2}};
reservWriteFunc();

document.querySelector('#xieyi').click();
document.querySelector('#teamName').value = {{lit .TeamName}};
document.querySelector('#teamCnt').value = {{.TeamCount}};
document.querySelector('#area1').click();
document.querySelector('#payGubunTypes1').click();

reservFormSubFunc();
{{- end}}
`))

func render(name string, data any) string {
	var sb strings.Builder
	// Inputs are plain strings and ints; lit cannot fail on them.
	_ = scripts.ExecuteTemplate(&sb, name, data)
	return sb.String()
}

// LoginScript fills and submits the login form.
func LoginScript(a user.Account) string { return render("login", a) }

// ConfirmScript answers the password re-confirmation page.
func ConfirmScript(a user.Account) string { return render("confirm", a) }

// CommitForm is the reservation form as the order page expects it.
type CommitForm struct {
	Room       string
	HourOption string
	Timers     int
	DateYmd    string
	DateTime   string
	DateTime2  string
	TeamName   string
	TeamCount  int
}

// NewCommitForm builds the form for a valid target.
func NewCommitForm(t reservation.Target, g reservation.Group) (CommitForm, error) {
	if err := t.Validate(); err != nil {
		return CommitForm{}, err
	}
	f := CommitForm{
		Room:       rooms[t.Court],
		HourOption: "selectTim01",
		Timers:     1,
		DateYmd:    t.Date,
		DateTime:   t.Time,
		DateTime2:  t.EndTime(),
		TeamName:   g.Name,
		TeamCount:  g.Count,
	}
	if t.Hours == 2 {
		f.HourOption = "selectTim02"
		f.Timers = 2
	}
	return f, nil
}

// Script renders the page script that fills and submits the form.
func (f CommitForm) Script() string { return render("commit", f) }
