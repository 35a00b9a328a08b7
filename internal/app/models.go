package app

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"course-scheduler/internal/schedule"
)

// Course is a class with its computed session calendar.
type Course struct {
	ID                     uuid.UUID                    `json:"id"`
	TenantID               string                       `json:"tenant_id"`
	Name                   string                       `json:"name"`
	Timezone               string                       `json:"timezone,omitempty"`
	TotalHours             float64                      `json:"total_hours"`
	SessionDurationMinutes int                          `json:"session_duration_minutes"`
	FirstSessionDate       civil.Date                   `json:"first_session_date"`
	WeeklySchedule         []schedule.WeeklySessionSlot `json:"weekly_schedule"`
	TotalSessions          int                          `json:"total_sessions"`
	CalculatedEndDate      civil.Date                   `json:"calculated_end_date"`
	Sessions               []schedule.Occurrence        `json:"sessions,omitempty"`
	CreatedAt              time.Time                    `json:"created_at,omitempty"`
}

type validateReq struct {
	WeeklySchedule []schedule.WeeklySessionSlot `json:"weeklySchedule"`
}

type calculateReq struct {
	schedule.Request
	UseHolidays bool `json:"useHolidays"`
}

type calculateResp struct {
	schedule.Result
	SessionLength string `json:"sessionLength"`
	TotalLength   string `json:"totalLength"`
}

type createCourseReq struct {
	Name                   string                       `json:"name" binding:"required"`
	Timezone               string                       `json:"timezone" binding:"omitempty,timezone"`
	TotalHours             float64                      `json:"totalHours"`
	SessionDurationMinutes int                          `json:"sessionDurationMinutes"`
	FirstSessionDate       civil.Date                   `json:"firstSessionDate"`
	WeeklySchedule         []schedule.WeeklySessionSlot `json:"weeklySchedule"`
	IgnoreHolidays         bool                         `json:"ignoreHolidays"`
}

type createHolidayReq struct {
	Date civil.Date `json:"date"`
	Name string     `json:"name" binding:"required"`
}
