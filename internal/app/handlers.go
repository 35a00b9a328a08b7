package app

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"course-scheduler/internal/holiday"
	"course-scheduler/internal/schedule"
)

// respondError maps domain errors onto HTTP statuses.
func (a *App) respondError(c *gin.Context, err error) {
	var (
		verrs schedule.ValidationErrors
		cerr  *schedule.CalculationError
	)
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid weekly schedule", "errors": verrs})
	case errors.As(err, &cerr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": cerr.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// POST /schedule/validate
func (a *App) ValidateScheduleHandler(c *gin.Context) {
	var req validateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	errs := schedule.Validate(req.WeeklySchedule)
	c.JSON(http.StatusOK, gin.H{"valid": len(errs) == 0, "errors": errs})
}

// POST /schedule/calculate
func (a *App) CalculateHandler(c *gin.Context) {
	var req calculateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.planSessions(c.Request.Context(), tenantID(c), req.Request, req.UseHolidays)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, calculateResp{
		Result:        res,
		SessionLength: schedule.FormatDuration(req.SessionDurationMinutes),
		TotalLength:   schedule.FormatDuration(res.TotalSessions * req.SessionDurationMinutes),
	})
}

// GET /schedule/duration?minutes=90
func (a *App) FormatDurationHandler(c *gin.Context) {
	minutes, err := strconv.Atoi(c.Query("minutes"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes must be an integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"minutes": minutes, "label": schedule.FormatDuration(minutes)})
}

// GET /schedule/end-time?start=18:00&duration=90
func (a *App) EndTimeHandler(c *gin.Context) {
	duration, err := strconv.Atoi(c.Query("duration"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be an integer"})
		return
	}
	start := schedule.Clock(c.Query("start"))
	end, err := schedule.EndTimeFor(start, duration)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	start, _ = start.Normalize()
	c.JSON(http.StatusOK, gin.H{"startTime": start, "endTime": end})
}

// POST /courses
func (a *App) CreateCourseHandler(c *gin.Context) {
	var req createCourseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	tenant := tenantID(c)

	res, err := a.planSessions(ctx, tenant, schedule.Request{
		TotalHours:             req.TotalHours,
		SessionDurationMinutes: req.SessionDurationMinutes,
		FirstSessionDate:       req.FirstSessionDate,
		WeeklySchedule:         req.WeeklySchedule,
	}, !req.IgnoreHolidays)
	if err != nil {
		a.respondError(c, err)
		return
	}

	course := &Course{
		ID:                     uuid.New(),
		TenantID:               tenant,
		Name:                   req.Name,
		Timezone:               req.Timezone,
		TotalHours:             req.TotalHours,
		SessionDurationMinutes: req.SessionDurationMinutes,
		FirstSessionDate:       req.FirstSessionDate,
		WeeklySchedule:         req.WeeklySchedule,
		TotalSessions:          res.TotalSessions,
		CalculatedEndDate:      res.CalculatedEndDate,
		Sessions:               res.SessionDates,
	}
	if err := a.Store.CreateCourse(ctx, course); err != nil {
		a.respondError(c, err)
		return
	}
	a.Log.Info("course created",
		zap.String("tenant", tenant),
		zap.String("course_id", course.ID.String()),
		zap.Int("sessions", course.TotalSessions),
	)
	c.JSON(http.StatusCreated, course)
}

// GET /courses
func (a *App) ListCoursesHandler(c *gin.Context) {
	courses, err := a.Store.ListCourses(c.Request.Context(), tenantID(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if courses == nil {
		courses = []Course{}
	}
	c.JSON(http.StatusOK, courses)
}

// GET /courses/:id
func (a *App) GetCourseHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	course, err := a.Store.GetCourse(c.Request.Context(), tenantID(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// DELETE /courses/:id
func (a *App) DeleteCourseHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	if err := a.Store.DeleteCourse(c.Request.Context(), tenantID(c), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// dateRange reads ?from=&to= (YYYY-MM-DD). Missing bounds default to the
// coming year.
func dateRange(c *gin.Context) (civil.Date, civil.Date, bool) {
	from := civil.DateOf(time.Now().UTC())
	if s := c.Query("from"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return civil.Date{}, civil.Date{}, false
		}
		from = d
	}
	to := from.AddDays(365)
	if s := c.Query("to"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return civil.Date{}, civil.Date{}, false
		}
		to = d
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return civil.Date{}, civil.Date{}, false
	}
	return from, to, true
}

// GET /holidays?from=&to=
func (a *App) ListHolidaysHandler(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	stored, err := a.Store.ListHolidays(c.Request.Context(), tenantID(c), from, to)
	if err != nil {
		a.respondError(c, err)
		return
	}
	out := make([]holiday.Holiday, 0, len(stored)+len(a.FileHolidays))
	for _, h := range a.FileHolidays {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	out = append(out, stored...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	c.JSON(http.StatusOK, out)
}

// POST /holidays
func (a *App) CreateHolidayHandler(c *gin.Context) {
	var req createHolidayReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date.IsZero() || !req.Date.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
		return
	}
	h := &holiday.Holiday{
		TenantID: tenantID(c),
		Date:     req.Date,
		Name:     req.Name,
		Source:   holiday.SourceManual,
	}
	if err := a.Store.InsertHoliday(c.Request.Context(), h); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

// DELETE /holidays/:id
func (a *App) DeleteHolidayHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid holiday id"})
		return
	}
	if err := a.Store.DeleteHoliday(c.Request.Context(), tenantID(c), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
