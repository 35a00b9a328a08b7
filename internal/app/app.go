package app

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"course-scheduler/internal/holiday"
)

// HolidayImporter pulls holidays from an external calendar.
type HolidayImporter interface {
	Import(ctx context.Context, token *oauth2.Token, calendarID string, from, to civil.Date, tenantID string) ([]holiday.Holiday, error)
}

type App struct {
	Store        Store
	Cache        ResultCache
	Log          *zap.Logger
	FileHolidays []holiday.Holiday

	OAuth    *oauth2.Config
	Importer HolidayImporter

	Auth           AuthConfig
	RequestsPerMin int
	CORSOrigins    []string
}

func (a *App) Router() *gin.Engine {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(a.Log))
	router.Use(RequestLogger(a.Log))
	router.Use(corsMiddleware(a.CORSOrigins))
	if a.RequestsPerMin > 0 {
		router.Use(RateLimitMiddleware(a.RequestsPerMin, a.Log))
	}

	router.GET("/healthz", a.HealthHandler)
	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api")
	api.Use(AuthMiddleware(a.Auth), RequireTenant())
	{
		sched := api.Group("/schedule")
		{
			sched.POST("/validate", a.ValidateScheduleHandler)
			sched.POST("/calculate", a.CalculateHandler)
			sched.GET("/duration", a.FormatDurationHandler)
			sched.GET("/end-time", a.EndTimeHandler)
		}
		courses := api.Group("/courses")
		{
			courses.POST("", a.CreateCourseHandler)
			courses.GET("", a.ListCoursesHandler)
			courses.GET("/:id", a.GetCourseHandler)
			courses.DELETE("/:id", a.DeleteCourseHandler)
		}
		holidays := api.Group("/holidays")
		{
			holidays.GET("", a.ListHolidaysHandler)
			holidays.POST("", a.CreateHolidayHandler)
			holidays.DELETE("/:id", a.DeleteHolidayHandler)
			holidays.POST("/import", a.ImportHolidaysHandler)
		}
		api.GET("/calendar/auth", a.GoogleAuthHandler)
	}
	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Tenant-ID", "X-Google-Token"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	if a.Store != nil {
		if err := a.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
