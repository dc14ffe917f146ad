package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardFragment = `<div class="timeBoard">
<label class="on labelDate" data="06:00">06:00</label>
<label class="no labelDate" data="07:00">07:00</label>
<label class="on labelDate" data="08:00">08:00</label>
<label class="maybe labelDate" data="09:00">09:00</label>
<label class="on labelDate" data="10">10:00</label>
<label class="on" data="11:00">11:00</label>
</div>`

func TestParseBoardFragment(t *testing.T) {
	got := ParseBoardFragment(boardFragment)
	assert.Equal(t, Court{
		"06:00": Open(),
		"07:00": Blocked(),
		"08:00": Open(),
	}, got)
}

func TestParseBoardFragmentRequiresMarkerThenLabelDate(t *testing.T) {
	got := ParseBoardFragment(`<div>
<label class="labelDate on" data="06:00">06:00</label>
<label class="on labelDate x" data="07:00">07:00</label>
<label class="on no labelDate" data="08:00">08:00</label>
<label class="no labelDate" data="09:00">09:00</label><label class="on  labelDate" data="10:00">10:00</label>
</div>`)
	assert.Equal(t, Court{"09:00": Blocked(), "10:00": Open()}, got)
}

func TestParseBoardFragmentEmpty(t *testing.T) {
	assert.Empty(t, ParseBoardFragment(""))
	assert.Empty(t, ParseBoardFragment("<p>session expired</p>"))
}

func TestDecodeDayScheduleObject(t *testing.T) {
	body := []byte(`{
		"1": {"06:00": 0, "07:00": 1, "08:00": ["kim", "Smash"]},
		"2": {"06:00": "3", "07:00": 9, "08:00": ["solo"]},
		"3": []
	}`)
	got, err := DecodeDaySchedule(body)
	require.NoError(t, err)

	assert.Equal(t, Open(), got[1]["06:00"])
	assert.Equal(t, Blocked(), got[1]["07:00"])
	assert.Equal(t, Held("kim", "Smash"), got[1]["08:00"])
	assert.Equal(t, Blocked(), got[2]["06:00"])
	assert.Equal(t, Unrecognized("9"), got[2]["07:00"])
	assert.Equal(t, Unknown, got[2]["08:00"].Kind)
	assert.Empty(t, got[3])
}

func TestDecodeDayScheduleArray(t *testing.T) {
	got, err := DecodeDaySchedule([]byte(`[null, {"06:00": 2}, {"06:00": 0}]`))
	require.NoError(t, err)
	assert.Equal(t, Courts{1: {"06:00": Blocked()}, 2: {"06:00": Open()}}, got)
}

func TestDecodeDayScheduleErrors(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"x": {}}`, `{"1": {"6am": 0}}`, `{"1": 5}`} {
		_, err := DecodeDaySchedule([]byte(body))
		assert.Error(t, err, body)
	}
}
