package app

import (
	"context"

	"go.uber.org/zap"

	"course-scheduler/internal/holiday"
	"course-scheduler/internal/schedule"
)

// tenantCalendar merges file holidays with the tenant's stored holidays
// over the longest window the calculation for req can walk.
func (a *App) tenantCalendar(ctx context.Context, tenantID string, req schedule.Request) (*holiday.Calendar, error) {
	if a.Store == nil {
		return holiday.NewCalendar(a.FileHolidays), nil
	}
	from := req.FirstSessionDate
	total := min(schedule.TotalSessions(req.TotalHours, req.SessionDurationMinutes), schedule.MaxSessions)
	to := from.AddDays(schedule.WalkLimit(total))
	stored, err := a.Store.ListHolidays(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return holiday.NewCalendar(a.FileHolidays, stored), nil
}

// planSessions validates the weekly schedule, then calculates the session
// calendar, optionally skipping the tenant's holidays. Validation failures
// come back as schedule.ValidationErrors.
func (a *App) planSessions(ctx context.Context, tenantID string, req schedule.Request, useHolidays bool) (schedule.Result, error) {
	if errs := schedule.Validate(req.WeeklySchedule); len(errs) > 0 {
		return schedule.Result{}, errs
	}

	req.Blackout = nil
	var cal *holiday.Calendar
	if useHolidays {
		var err error
		cal, err = a.tenantCalendar(ctx, tenantID, req)
		if err != nil {
			return schedule.Result{}, err
		}
		req.Blackout = cal.IsBlackout
	}

	key, keyErr := cacheKey(req, cal.Dates())
	if a.Cache != nil && keyErr == nil {
		res, ok, err := a.Cache.Get(ctx, key)
		if err != nil {
			a.Log.Warn("cache read failed", zap.Error(err))
		} else if ok {
			return res, nil
		}
	}

	res, err := schedule.Calculate(req)
	if err != nil {
		return schedule.Result{}, err
	}

	if a.Cache != nil && keyErr == nil {
		if err := a.Cache.Set(ctx, key, res); err != nil {
			a.Log.Warn("cache write failed", zap.Error(err))
		}
	}
	a.Log.Debug("sessions planned",
		zap.String("tenant", tenantID),
		zap.Int("sessions", res.TotalSessions),
		zap.String("end", res.CalculatedEndDate.String()),
		zap.Int("skipped", len(res.SkippedDates)),
	)
	return res, nil
}
