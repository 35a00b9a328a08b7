// Package schedule expands a weekly recurrence pattern into dated course
// sessions. It does no I/O and never reads the clock.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Weekday is the lower-case English day name used on the wire ("monday").
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdays = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// ParseWeekday accepts any casing and surrounding whitespace.
func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if !w.Valid() {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return w, nil
}

func (w Weekday) Valid() bool {
	_, ok := weekdays[w]
	return ok
}

// UnmarshalText accepts any casing. Unknown names are kept as given so
// Validate can report them.
func (w *Weekday) UnmarshalText(b []byte) error {
	if p, err := ParseWeekday(string(b)); err == nil {
		*w = p
		return nil
	}
	*w = Weekday(b)
	return nil
}

var byTimeWeekday = [...]Weekday{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// WeekdayOf returns the Weekday a calendar date falls on.
func WeekdayOf(d civil.Date) Weekday {
	return FromTimeWeekday(d.In(time.UTC).Weekday())
}

func FromTimeWeekday(d time.Weekday) Weekday {
	if d < 0 || int(d) >= len(byTimeWeekday) {
		return ""
	}
	return byTimeWeekday[d]
}

// Clock is a time of day in "HH:MM" form, without a time zone.
type Clock string

// Parse returns the hour and minute of c. Postgres time values such as
// "09:00:00" are truncated to minutes.
func (c Clock) Parse() (hour, minute int, err error) {
	s := strings.TrimSpace(string(c))
	if len(s) < 5 {
		return 0, 0, fmt.Errorf("invalid time string: %q", string(c))
	}
	layout := "15:04"
	if len(s) > 5 {
		layout = "15:04:05"
	}
	tt, err := time.Parse(layout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time string: %q", string(c))
	}
	return tt.Hour(), tt.Minute(), nil
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() (int, error) {
	h, m, err := c.Parse()
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// Normalize renders c as zero-padded "HH:MM".
func (c Clock) Normalize() (Clock, error) {
	h, m, err := c.Parse()
	if err != nil {
		return "", err
	}
	return ClockAt(h, m), nil
}

func ClockAt(hour, minute int) Clock {
	return Clock(fmt.Sprintf("%02d:%02d", hour, minute))
}

// WeeklySessionSlot is one recurring weekly time slot.
type WeeklySessionSlot struct {
	Weekday   Weekday `json:"weekday"`
	StartTime Clock   `json:"startTime"`
	EndTime   Clock   `json:"endTime"`
}

// BlackoutFunc reports dates on which no session may take place.
type BlackoutFunc func(civil.Date) bool

// Request is the input of Calculate.
type Request struct {
	TotalHours             float64             `json:"totalHours"`
	SessionDurationMinutes int                 `json:"sessionDurationMinutes"`
	FirstSessionDate       civil.Date          `json:"firstSessionDate"`
	WeeklySchedule         []WeeklySessionSlot `json:"weeklySchedule"`

	// Blackout is optional. Matching dates are skipped and do not count
	// toward the session total.
	Blackout BlackoutFunc `json:"-"`
}

// Occurrence is one concrete session on a calendar date.
type Occurrence struct {
	Sequence  int        `json:"sequence"`
	Date      civil.Date `json:"date"`
	Weekday   Weekday    `json:"weekday"`
	StartTime Clock      `json:"startTime"`
	EndTime   Clock      `json:"endTime"`
}

// Result is the output of Calculate.
type Result struct {
	SessionDates      []Occurrence `json:"sessionDates"`
	TotalSessions     int          `json:"totalSessions"`
	CalculatedEndDate civil.Date   `json:"calculatedEndDate"`
	SkippedDates      []civil.Date `json:"skippedDates,omitempty"`
}
