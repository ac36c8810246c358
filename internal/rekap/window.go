package rekap

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// referenceYear is a leap year so 29/02 normalises to a real date.
const referenceYear = 2000

// DayMonth is a calendar day without a year.
type DayMonth struct {
	Day   int
	Month time.Month
}

// ParseDayMonth parses "DD/MM" text. Anything after the month (a year, a
// time) is ignored.
func ParseDayMonth(text string) (DayMonth, bool) {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) < 2 {
		return DayMonth{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return DayMonth{}, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return DayMonth{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return DayMonth{}, false
	}
	// Reject days that roll over, e.g. 31/04.
	norm := time.Date(referenceYear, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if norm.Day() != day || norm.Month() != time.Month(month) {
		return DayMonth{}, false
	}
	return DayMonth{Day: day, Month: time.Month(month)}, true
}

// MustDayMonth parses text and panics on failure. Intended for tests and
// static tables.
func MustDayMonth(text string) DayMonth {
	dm, ok := ParseDayMonth(text)
	if !ok {
		panic(fmt.Sprintf("rekap: invalid day/month %q", text))
	}
	return dm
}

// DayMonthOf drops the year of t.
func DayMonthOf(t time.Time) DayMonth {
	return DayMonth{Day: t.Day(), Month: t.Month()}
}

func (d DayMonth) ordinal() int {
	return time.Date(referenceYear, d.Month, d.Day, 0, 0, 0, 0, time.UTC).YearDay()
}

// String renders DD/MM.
func (d DayMonth) String() string {
	return fmt.Sprintf("%02d/%02d", d.Day, int(d.Month))
}

// Window is an inclusive day/month range. Nil bounds mean "not selected".
type Window struct {
	Start *DayMonth
	End   *DayMonth
}

// NewWindow builds a window from two parsed bounds.
func NewWindow(start, end DayMonth) Window {
	return Window{Start: &start, End: &end}
}

// ParseWindow parses both bounds; a blank or malformed bound stays nil.
func ParseWindow(start, end string) Window {
	var w Window
	if dm, ok := ParseDayMonth(start); ok {
		w.Start = &dm
	}
	if dm, ok := ParseDayMonth(end); ok {
		w.End = &dm
	}
	return w
}

// Complete reports whether both bounds are set.
func (w Window) Complete() bool {
	return w.Start != nil && w.End != nil
}

// Wraps reports whether the window crosses the year boundary.
func (w Window) Wraps() bool {
	return w.Complete() && w.Start.ordinal() > w.End.ordinal()
}

// Contains reports whether the date text falls inside the window.
func (w Window) Contains(text string) bool {
	return InRange(text, w.Start, w.End)
}

// Key renders the window for cache keys and file names.
func (w Window) Key() string {
	if !w.Complete() {
		return "-"
	}
	return strings.ReplaceAll(w.Start.String()+"-"+w.End.String(), "/", "")
}

// InRange reports whether dateText falls in [start, end] comparing month and
// day only. A start after end wraps around the new year.
func InRange(dateText string, start, end *DayMonth) bool {
	if start == nil || end == nil {
		return false
	}
	dm, ok := ParseDayMonth(dateText)
	if !ok {
		return false
	}
	v, lo, hi := dm.ordinal(), start.ordinal(), end.ordinal()
	if lo <= hi {
		return v >= lo && v <= hi
	}
	return v >= lo || v <= hi
}

// MonthToDate is the window from the first of now's month up to now.
func MonthToDate(now time.Time) Window {
	return NewWindow(DayMonth{Day: 1, Month: now.Month()}, DayMonthOf(now))
}
