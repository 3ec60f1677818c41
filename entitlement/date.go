package entitlement

import (
	"time"
)

// =============================================================================
// DATE - Calendar day, UTC midnight (entitlement accounting is day-granular)
// =============================================================================

// Date is a calendar day normalized to UTC midnight. All employment-window
// and overlap arithmetic truncates to UTC midnight to avoid timezone drift.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic and properties
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) Year() int          { return d.Time.Year() }
func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) String() string     { return d.Time.Format("2006-01-02") }

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// InclusiveDays returns the calendar-day-inclusive count (to - from + 1).
// Returns 0 when the range is inverted.
func InclusiveDays(from, to Date) int {
	if from.After(to) {
		return 0
	}
	return int(to.normalize().Sub(from.normalize()).Hours()/24) + 1
}

// =============================================================================
// PERIOD - Calendar-year windows for rollover and absence overlap
// =============================================================================

type Period struct {
	Start Date
	End   Date
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

func CalendarYear(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// DaysInYear returns the actual calendar length (365 or 366).
func DaysInYear(year int) int {
	return InclusiveDays(StartOfYear(year), EndOfYear(year))
}

func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// OverlapDays returns the inclusive day count of the intersection with
// [from, to], or 0 when they do not intersect.
func (p Period) OverlapDays(from, to Date) int {
	start := MaxDate(p.Start, from)
	end := MinDate(p.End, to)
	return InclusiveDays(start, end)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
