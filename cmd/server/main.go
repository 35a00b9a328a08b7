package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"course-scheduler/internal/app"
	"course-scheduler/internal/config"
	"course-scheduler/internal/holiday"
	"course-scheduler/internal/logger"
	"course-scheduler/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer l.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := app.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Fatal("database", zap.Error(err))
	}
	defer store.Close()

	appInstance := &app.App{
		Store: store,
		Log:   l,
		Auth: app.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			StaticTokens: cfg.Tokens(),
		},
		RequestsPerMin: cfg.MaxRequestsPerMin,
		CORSOrigins:    cfg.AllowedOrigins(),
	}

	if cfg.RedisAddr != "" {
		cache, err := app.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			l.Warn("redis unavailable, calculation cache disabled", zap.Error(err))
		} else {
			appInstance.Cache = cache
		}
	}

	if cfg.HolidaysFile != "" {
		hs, err := holiday.LoadFile(cfg.HolidaysFile)
		if err != nil {
			l.Fatal("holidays file", zap.String("path", cfg.HolidaysFile), zap.Error(err))
		}
		appInstance.FileHolidays = hs
		l.Info("loaded holidays", zap.Int("count", len(hs)))
	}

	if oc := holiday.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL); oc != nil {
		appInstance.OAuth = oc
		appInstance.Importer = &holiday.GoogleImporter{Config: oc}
	}

	if err := server.Run(ctx, cfg.AppPort, appInstance.Router(), l); err != nil {
		l.Fatal("server", zap.Error(err))
	}
}
