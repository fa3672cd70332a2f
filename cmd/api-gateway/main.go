package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/wfm-timesheet/api/swagger"
	"github.com/noah-isme/wfm-timesheet/internal/app"
	"github.com/noah-isme/wfm-timesheet/internal/handler"
	"github.com/noah-isme/wfm-timesheet/internal/middleware"
	"github.com/noah-isme/wfm-timesheet/pkg/config"
	"github.com/noah-isme/wfm-timesheet/pkg/logger"
	corsmiddleware "github.com/noah-isme/wfm-timesheet/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/wfm-timesheet/pkg/middleware/requestid"
)

// @title WFM Timesheet API
// @version 1.0.0
// @description Fiscal timesheet division: FACT, MAIN and ADDITIONAL sheets per employee-month.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to build application", "error", err)
	}
	defer application.Close()
	application.Jobs.Start(ctx)

	validate := validator.New()
	timesheetHandler := handler.NewTimesheetHandler(application.Timesheets, application.Stats, application.Jobs, validate, cfg.APIPrefix)
	calendarHandler := handler.NewProductionCalendarHandler(application.Calendar, validate)
	settingsHandler := handler.NewNetworkSettingsHandler(application.Settings)
	metricsHandler := handler.NewMetricsHandler(application.Metrics, application.DB)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(application.Metrics, "/metrics", "/health"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		timesheets := api.Group("/timesheets")
		timesheets.POST("/calc", timesheetHandler.Calc)
		timesheets.POST("/calc/async", timesheetHandler.CalcAsync)
		timesheets.GET("/jobs/:id", timesheetHandler.JobStatus)
		timesheets.GET("/stats", timesheetHandler.Stats)

		calendar := api.Group("/production-calendar")
		calendar.PUT("", calendarHandler.Import)
		calendar.POST("/invalidate", calendarHandler.Invalidate)

		networks := api.Group("/networks/:id")
		networks.GET("/settings", settingsHandler.Get)
		networks.PATCH("/settings", settingsHandler.Update)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
