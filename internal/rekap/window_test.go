package rekap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayMonth(t *testing.T) {
	cases := []struct {
		in   string
		want DayMonth
		ok   bool
	}{
		{"01/05", DayMonth{Day: 1, Month: time.May}, true},
		{"31/05/2024", DayMonth{Day: 31, Month: time.May}, true},
		{" 7/1/2023 10:22 ", DayMonth{Day: 7, Month: time.January}, true},
		{"29/02", DayMonth{Day: 29, Month: time.February}, true},
		{"31/04", DayMonth{}, false},
		{"00/05", DayMonth{}, false},
		{"12/13", DayMonth{}, false},
		{"2024-05-01", DayMonth{}, false},
		{"", DayMonth{}, false},
		{"aa/bb", DayMonth{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDayMonth(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestInRangeBoundaries(t *testing.T) {
	start, end := MustDayMonth("01/05"), MustDayMonth("31/05")

	assert.True(t, InRange("01/05/2024", &start, &end))
	assert.True(t, InRange("31/05/2024", &start, &end))
	assert.True(t, InRange("15/05", &start, &end))
	assert.False(t, InRange("30/04/2024", &start, &end))
	assert.False(t, InRange("01/06/2024", &start, &end))
}

func TestInRangeIgnoresYear(t *testing.T) {
	start, end := MustDayMonth("01/05"), MustDayMonth("31/05")
	assert.True(t, InRange("10/05/1999", &start, &end))
	assert.True(t, InRange("10/05/2031", &start, &end))
}

func TestInRangeNeverPanicsOnBadInput(t *testing.T) {
	start, end := MustDayMonth("01/05"), MustDayMonth("31/05")
	assert.False(t, InRange("", &start, &end))
	assert.False(t, InRange("garbage", &start, &end))
	assert.False(t, InRange("31/02/2024", &start, &end))
	assert.False(t, InRange("10/05", nil, &end))
	assert.False(t, InRange("10/05", &start, nil))
}

func TestInRangeWrapsAroundNewYear(t *testing.T) {
	w := NewWindow(MustDayMonth("20/12"), MustDayMonth("10/01"))
	assert.True(t, w.Wraps())
	assert.True(t, w.Contains("20/12/2023"))
	assert.True(t, w.Contains("31/12/2023"))
	assert.True(t, w.Contains("01/01/2024"))
	assert.True(t, w.Contains("10/01/2024"))
	assert.False(t, w.Contains("11/01/2024"))
	assert.False(t, w.Contains("19/12/2023"))
	assert.False(t, w.Contains("15/06/2024"))
}

func TestSingleDayWindow(t *testing.T) {
	w := NewWindow(MustDayMonth("17/08"), MustDayMonth("17/08"))
	assert.False(t, w.Wraps())
	assert.True(t, w.Contains("17/08/1945"))
	assert.False(t, w.Contains("18/08/1945"))
}

func TestParseWindow(t *testing.T) {
	w := ParseWindow("01/05", "")
	assert.False(t, w.Complete())
	assert.Equal(t, "-", w.Key())

	w = ParseWindow("01/05/2024", "31/05/2024")
	assert.True(t, w.Complete())
	assert.Equal(t, "0105-3105", w.Key())
	assert.Equal(t, "01/05", w.Start.String())
}

func TestDayMonthOf(t *testing.T) {
	got := DayMonthOf(time.Date(2024, time.March, 9, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, "09/03", got.String())
}

func TestMonthToDate(t *testing.T) {
	w := MonthToDate(time.Date(2024, 3, 17, 15, 0, 0, 0, time.UTC))
	require.True(t, w.Complete())
	assert.Equal(t, "01/03", w.Start.String())
	assert.Equal(t, "17/03", w.End.String())
	assert.False(t, w.Wraps())
}
