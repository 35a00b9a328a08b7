package schedule

import (
	"math"
	"sort"

	"cloud.google.com/go/civil"
)

// MaxSessions is the largest session count Calculate will expand.
const MaxSessions = 10000

// BlackoutAllowance is how many days of blackouts a walk may absorb on top
// of the 7 days per session a blackout-free weekly schedule needs at most.
const BlackoutAllowance = 3660

// WalkLimit bounds the day-by-day walk for a course of total sessions.
func WalkLimit(total int) int {
	return 7*total + BlackoutAllowance
}

// sessionEpsilon absorbs float noise such as 1.1*60 = 66.00000000000001.
const sessionEpsilon = 1e-9

// TotalSessions is the number of fixed-length sessions needed to cover
// totalHours. The last session is never shortened.
func TotalSessions(totalHours float64, sessionMinutes int) int {
	if sessionMinutes <= 0 || totalHours <= 0 || math.IsNaN(totalHours) || math.IsInf(totalHours, 0) {
		return 0
	}
	n := math.Ceil(totalHours*60/float64(sessionMinutes) - sessionEpsilon)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

type parsedSlot struct {
	weekday Weekday
	start   Clock
	end     Clock
}

// Calculate expands the weekly pattern forward from FirstSessionDate until
// enough sessions exist to cover TotalHours. Run Validate first; Calculate
// only rejects input it cannot work with at all.
func Calculate(req Request) (Result, error) {
	if math.IsNaN(req.TotalHours) || math.IsInf(req.TotalHours, 0) || req.TotalHours <= 0 {
		return Result{}, invalid("totalHours", "must be a positive number, got %v", req.TotalHours)
	}
	if req.SessionDurationMinutes <= 0 {
		return Result{}, invalid("sessionDurationMinutes", "must be positive, got %d", req.SessionDurationMinutes)
	}
	if req.FirstSessionDate.IsZero() || !req.FirstSessionDate.IsValid() {
		return Result{}, invalid("firstSessionDate", "missing or invalid date")
	}
	if len(req.WeeklySchedule) == 0 {
		return Result{}, invalid("weeklySchedule", "no weekly slots")
	}

	byDay := make(map[Weekday]parsedSlot, len(req.WeeklySchedule))
	for _, s := range req.WeeklySchedule {
		w, err := ParseWeekday(string(s.Weekday))
		if err != nil {
			return Result{}, invalid("weeklySchedule", "%v", err)
		}
		start, err := s.StartTime.Normalize()
		if err != nil {
			return Result{}, invalid("weeklySchedule", "%s start: %v", s.Weekday, err)
		}
		end, err := s.EndTime.Normalize()
		if err != nil {
			return Result{}, invalid("weeklySchedule", "%s end: %v", s.Weekday, err)
		}
		// first slot wins; Validate reports duplicates
		if _, ok := byDay[w]; !ok {
			byDay[w] = parsedSlot{weekday: w, start: start, end: end}
		}
	}

	total := TotalSessions(req.TotalHours, req.SessionDurationMinutes)
	if total <= 0 {
		return Result{}, invalid("totalHours", "yields no sessions")
	}
	if total > MaxSessions {
		return Result{}, invalid("totalHours", "needs %d sessions, more than the limit of %d", total, MaxSessions)
	}

	res := Result{
		SessionDates:  make([]Occurrence, 0, total),
		TotalSessions: total,
	}
	limit := WalkLimit(total)
	day := req.FirstSessionDate
	for walked := 0; len(res.SessionDates) < total; walked++ {
		if walked >= limit {
			return Result{}, &CalculationError{
				Reason: "no room for the remaining sessions within the walk limit",
				Err:    ErrWalkLimit,
			}
		}
		if slot, ok := byDay[WeekdayOf(day)]; ok {
			if req.Blackout != nil && req.Blackout(day) {
				res.SkippedDates = append(res.SkippedDates, day)
			} else {
				res.SessionDates = append(res.SessionDates, Occurrence{
					Sequence:  len(res.SessionDates) + 1,
					Date:      day,
					Weekday:   slot.weekday,
					StartTime: slot.start,
					EndTime:   slot.end,
				})
			}
		}
		day = day.AddDays(1)
	}
	res.CalculatedEndDate = res.SessionDates[len(res.SessionDates)-1].Date
	return res, nil
}

// DateSet is a fixed set of dates usable as a BlackoutFunc via Contains.
type DateSet map[civil.Date]struct{}

func NewDateSet(dates ...civil.Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s DateSet) Contains(d civil.Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the dates in ascending order.
func (s DateSet) Sorted() []civil.Date {
	out := make([]civil.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Union blacks out a date if any of fns does. Nil entries are ignored.
func Union(fns ...BlackoutFunc) BlackoutFunc {
	return func(d civil.Date) bool {
		for _, fn := range fns {
			if fn != nil && fn(d) {
				return true
			}
		}
		return false
	}
}
