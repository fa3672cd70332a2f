// Package app assembles the timesheet service graph shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/repository"
	"github.com/noah-isme/wfm-timesheet/internal/service"
	"github.com/noah-isme/wfm-timesheet/pkg/cache"
	"github.com/noah-isme/wfm-timesheet/pkg/config"
	"github.com/noah-isme/wfm-timesheet/pkg/database"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
	"github.com/noah-isme/wfm-timesheet/pkg/jobs"
)

// App holds the wired services.
type App struct {
	DB         *sqlx.DB
	Redis      *redis.Client
	Metrics    *service.MetricsService
	Catalog    *service.DayTypeCatalog
	Calendar   *service.ProductionCalendarService
	Timesheets *service.TimesheetService
	Stats      *service.TimesheetStatsService
	Jobs       *service.DividerJobs
	Settings   *service.NetworkSettingsService
	DayTypes   *repository.DayTypeRepository

	logger *zap.Logger
}

// New connects to storage and builds every service. The divider pool is created but not started.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	a := &App{DB: db, logger: logger, Metrics: service.NewMetricsService()}
	a.Redis = cache.NewOptionalRedis(cfg.Redis, cfg.Calendar, logger)
	var calendarCache *service.CalendarCache
	if a.Redis != nil {
		calendarCache = service.NewCalendarCache(repository.NewCalendarCacheRepository(a.Redis), a.Metrics, cfg.Calendar.CacheTTL, logger)
	}

	a.DayTypes = repository.NewDayTypeRepository(db)
	if cfg.DayTypes.SeedFile != "" {
		a.Catalog, err = service.LoadDayTypeCatalogFile(cfg.DayTypes.SeedFile)
	} else {
		a.Catalog, err = service.LoadDayTypeCatalog(ctx, a.DayTypes)
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("day type catalog loaded", zap.Stringer("catalog", a.Catalog))

	networks := repository.NewNetworkRepository(db)
	dayRecords := repository.NewDayRecordRepository(db)
	timesheets := repository.NewTimesheetRepository(db)
	employees := repository.NewEmployeeRepository(db)

	a.Calendar = service.NewProductionCalendarService(repository.NewProductionCalendarRepository(db), calendarCache, logger)
	norms := service.NewNormHoursService(a.Calendar, dayRecords, timesheets, logger)
	divider := service.NewFiscalDivider(logger)
	a.Settings = service.NewNetworkSettingsService(networks, divider.Aliases(), nil, logger)

	a.Timesheets = service.NewTimesheetService(service.TimesheetRepositories{
		Employees:   employees,
		Networks:    networks,
		Employments: repository.NewEmploymentRepository(db),
		Positions:   repository.NewPositionRepository(db),
		Shops:       repository.NewShopRepository(db),
		Schedules:   repository.NewShopScheduleRepository(db),
		DayRecords:  dayRecords,
		Timesheets:  timesheets,
	}, a.Catalog, norms, divider, a.Metrics, logger, service.TimesheetServiceConfig{
		DefaultAlias:   cfg.Divider.DefaultAlias,
		StorageRetries: cfg.Divider.StorageRetries,
		RetryDelay:     cfg.Divider.RetryDelay,
		JobTimeout:     cfg.Divider.JobTimeout,
	})
	a.Stats = service.NewTimesheetStatsService(timesheets, dayRecords, employees, a.Timesheets, logger)

	a.Jobs = service.NewDividerJobs(a.Timesheets, a.Metrics, logger, jobs.QueueConfig{
		Workers:    cfg.Divider.Workers,
		BufferSize: cfg.Divider.QueueSize,
		MaxRetries: cfg.Divider.JobRetries,
		RetryDelay: cfg.Divider.RetryDelay,
		Logger:     logger,
	})
	return a, nil
}

// SeedDayTypes stores the active catalog so that later runs can read it from the database.
func (a *App) SeedDayTypes(ctx context.Context) error {
	if err := a.DayTypes.UpsertAll(ctx, a.Catalog.All()); err != nil {
		return appErrors.Transient(err, "failed to store day types")
	}
	return nil
}

// Close releases the storage connections.
func (a *App) Close() {
	if a.Jobs != nil {
		a.Jobs.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
