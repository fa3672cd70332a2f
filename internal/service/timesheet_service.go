package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
	"github.com/noah-isme/wfm-timesheet/pkg/jobs"
	"github.com/noah-isme/wfm-timesheet/pkg/logger"
)

type employeeReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Employee, error)
}

type networkSettingsReader interface {
	GetSettings(ctx context.Context, networkID string) (models.NetworkSettings, error)
}

type employmentReader interface {
	Active(ctx context.Context, networkID string, from, to time.Time, employeeIDs []string) ([]models.Employment, error)
}

type positionReader interface {
	ListByNetwork(ctx context.Context, networkID string) ([]models.Position, error)
}

type shopReader interface {
	ListByNetwork(ctx context.Context, networkID string) ([]models.Shop, error)
}

type shopScheduleReader interface {
	List(ctx context.Context, shopIDs []string, from, to time.Time) ([]models.ShopSchedule, error)
}

type dayRecordReader interface {
	ListApproved(ctx context.Context, filter models.DayRecordFilter) ([]models.DayRecord, error)
}

type timesheetStore interface {
	ReplaceForEmployeeMonth(ctx context.Context, employeeID string, month time.Time, items []models.TimesheetItem) (deleted int, inserted int, err error)
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetItem, error)
}

type normProvider interface {
	Norm(ctx context.Context, jc *JobContext, plans []models.DayRecord) (NormResult, error)
}

// TimesheetRepositories groups the storage ports the timesheet pipeline reads and writes.
type TimesheetRepositories struct {
	Employees   employeeReader
	Networks    networkSettingsReader
	Employments employmentReader
	Positions   positionReader
	Shops       shopReader
	Schedules   shopScheduleReader
	DayRecords  dayRecordReader
	Timesheets  timesheetStore
}

// TimesheetServiceConfig tunes retries and the network-independent defaults.
type TimesheetServiceConfig struct {
	DefaultAlias   string
	StorageRetries int
	RetryDelay     time.Duration
	MaxRetryDelay  time.Duration
	// JobTimeout bounds one employee-month attempt, not the whole call.
	JobTimeout time.Duration
}

// TimesheetService drives reconciliation, norm and division for employee-months.
type TimesheetService struct {
	repos         TimesheetRepositories
	catalog       *DayTypeCatalog
	norm          normProvider
	reconciliator *FactReconciliator
	divider       *FiscalDivider
	metrics       *MetricsService
	logger        *zap.Logger
	cfg           TimesheetServiceConfig
}

// NewTimesheetService constructs the orchestration service.
func NewTimesheetService(repos TimesheetRepositories, catalog *DayTypeCatalog, norm normProvider, divider *FiscalDivider, metrics *MetricsService, logger *zap.Logger, cfg TimesheetServiceConfig) *TimesheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if divider == nil {
		divider = NewFiscalDivider(logger)
	}
	if cfg.DefaultAlias == "" {
		cfg.DefaultAlias = models.DividerAliasNahodka
	}
	if cfg.StorageRetries < 0 {
		cfg.StorageRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 60 * time.Second
	}
	return &TimesheetService{
		repos:         repos,
		catalog:       catalog,
		norm:          norm,
		reconciliator: NewFactReconciliator(logger),
		divider:       divider,
		metrics:       metrics,
		logger:        logger,
		cfg:           cfg,
	}
}

// calcRun memoises per-network directory data for the duration of one call.
type calcRun struct {
	settings  map[string]models.NetworkSettings
	positions map[string][]models.Position
	shops     map[string][]models.Shop
}

func newCalcRun() *calcRun {
	return &calcRun{
		settings:  make(map[string]models.NetworkSettings),
		positions: make(map[string][]models.Position),
		shops:     make(map[string][]models.Shop),
	}
}

// CalcTimesheet recalculates the FACT, MAIN and ADDITIONAL sheets of every
// (employee, month) overlapping [dtFrom, dtTo]. Failures of one employee-month are
// collected in the stats; with reraise the first failure is returned instead.
func (s *TimesheetService) CalcTimesheet(ctx context.Context, employeeIDs []string, dtFrom, dtTo time.Time, reraise bool) (models.CalcStats, error) {
	stats := models.CalcStats{Succeeded: []string{}}
	if len(employeeIDs) == 0 {
		return stats, appErrors.Clone(appErrors.ErrValidation, "at least one employee id is required")
	}
	dtFrom, dtTo = models.TruncateDay(dtFrom), models.TruncateDay(dtTo)
	if dtTo.Before(dtFrom) {
		return stats, appErrors.Clone(appErrors.ErrValidation, "dt_to must not be before dt_from")
	}

	employees, err := s.repos.Employees.ListByIDs(ctx, uniqueStrings(employeeIDs))
	if err != nil {
		return stats, appErrors.Transient(err, "failed to load employees")
	}
	found := make(map[string]models.Employee, len(employees))
	for _, e := range employees {
		found[e.ID] = e
	}

	run := newCalcRun()
	months := models.MonthsBetween(dtFrom, dtTo)
	for _, id := range uniqueStrings(employeeIDs) {
		employee, ok := found[id]
		if !ok {
			notFound := appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("employee %s not found", id))
			if reraise {
				return stats, notFound
			}
			stats.Errors = append(stats.Errors, models.EmployeeError{EmployeeID: id, Code: notFound.Code, Message: notFound.Message})
			continue
		}

		failed := false
		for _, month := range months {
			monthStats, err := s.calcWithRetry(ctx, run, employee, month)
			stats.Merge(monthStats)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return stats, err
			}
			appErr := appErrors.FromError(err)
			s.logger.Error("timesheet calculation failed",
				zap.String("employee_id", employee.ID),
				zap.String("month", month.Format("2006-01")),
				zap.String("code", appErr.Code),
				zap.Error(err),
			)
			if reraise {
				return stats, err
			}
			stats.Errors = append(stats.Errors, models.EmployeeError{EmployeeID: employee.ID, Month: month, Code: appErr.Code, Message: err.Error()})
			failed = true
		}
		if !failed {
			stats.Succeeded = append(stats.Succeeded, employee.ID)
		}
	}
	return stats, nil
}

func (s *TimesheetService) calcWithRetry(ctx context.Context, run *calcRun, employee models.Employee, month time.Time) (models.CalcStats, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.StorageRetries; attempt++ {
		if attempt > 0 {
			delay := jobs.Backoff(s.cfg.RetryDelay, s.cfg.MaxRetryDelay, attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return models.CalcStats{}, appErrors.Wrap(ctx.Err(), appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, "timesheet calculation cancelled")
			case <-timer.C:
			}
		}
		start := time.Now()
		stats, alias, err := s.calcEmployeeMonth(ctx, run, employee, month)
		switch {
		case err == nil:
			s.metrics.ObserveDivision(alias, OutcomeSuccess, time.Since(start))
			return stats, nil
		case appErrors.IsRetryable(err) && attempt < s.cfg.StorageRetries:
			s.metrics.ObserveDivision(alias, OutcomeRetried, time.Since(start))
			s.logger.Warn("transient storage failure, retrying",
				zap.String("employee_id", employee.ID),
				zap.String("month", month.Format("2006-01")),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		default:
			s.metrics.ObserveDivision(alias, OutcomeFailed, time.Since(start))
			return models.CalcStats{}, err
		}
		lastErr = err
	}
	return models.CalcStats{}, lastErr
}

// calcEmployeeMonth runs one employee-month under its own deadline. A deadline hit while
// the caller is still alive comes back as a retryable timeout for this employee only.
func (s *TimesheetService) calcEmployeeMonth(ctx context.Context, run *calcRun, employee models.Employee, month time.Time) (models.CalcStats, string, error) {
	monthCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	stats, alias, err := s.divideEmployeeMonth(monthCtx, run, employee, month)
	if err != nil && ctx.Err() == nil && errors.Is(monthCtx.Err(), context.DeadlineExceeded) {
		return models.CalcStats{}, alias, appErrors.Timeout(err, fmt.Sprintf("employee-month %s timed out after %s", month.Format("2006-01"), s.cfg.JobTimeout))
	}
	return stats, alias, err
}

// divideEmployeeMonth runs the whole pipeline for one employee-month and replaces its rows atomically.
func (s *TimesheetService) divideEmployeeMonth(ctx context.Context, run *calcRun, employee models.Employee, month time.Time) (models.CalcStats, string, error) {
	month = models.MonthStart(month)
	log := logger.ForEmployeeMonth(s.logger, employee.ID, month)

	jc, records, err := s.jobContext(ctx, run, employee, month)
	if err != nil {
		return models.CalcStats{}, "", err
	}

	reconciled, err := s.reconciliator.Reconcile(jc, records)
	if err != nil {
		return models.CalcStats{}, jc.Alias, err
	}

	norm, err := s.norm.Norm(ctx, jc, records)
	if err != nil {
		return models.CalcStats{}, jc.Alias, err
	}

	lookBehind, err := s.lookBehind(ctx, jc)
	if err != nil {
		return models.CalcStats{}, jc.Alias, err
	}

	division, err := s.divider.Divide(ctx, jc, DivisionInput{Facts: reconciled.Items, Norm: norm.Hours, LookBehind: lookBehind})
	if err != nil {
		return models.CalcStats{}, jc.Alias, err
	}

	items := make([]models.TimesheetItem, 0, len(reconciled.Items)+len(division.Main)+len(division.Additional))
	items = append(items, reconciled.Items...)
	items = append(items, division.Main...)
	items = append(items, division.Additional...)

	deleted, inserted, err := s.repos.Timesheets.ReplaceForEmployeeMonth(ctx, employee.ID, month, items)
	if err != nil {
		return models.CalcStats{}, jc.Alias, appErrors.Transient(err, "failed to store timesheet items")
	}

	s.metrics.ObserveReport(division.Report, sheetTotals(items))

	updated := deleted
	if inserted < updated {
		updated = inserted
	}
	stats := models.CalcStats{Created: inserted - updated, Updated: updated, Deleted: deleted - updated}
	prefix := fmt.Sprintf("%s %s: ", employee.ID, month.Format("2006-01"))
	for _, group := range [][]string{reconciled.Warnings, norm.Warnings, division.Report.AllWarnings()} {
		for _, w := range group {
			stats.Warnings = append(stats.Warnings, prefix+w)
		}
	}

	log.Info("timesheet calculated",
		zap.String("alias", jc.Alias),
		zap.Bool("divided", division.Divided),
		zap.String("norm", norm.Hours.String()),
		zap.Int("fact", len(reconciled.Items)),
		zap.Int("main", len(division.Main)),
		zap.Int("additional", len(division.Additional)),
		zap.Int("warnings", len(stats.Warnings)),
	)
	return stats, jc.Alias, nil
}

// jobContext captures the directory snapshot of an employee-month together with its approved records.
func (s *TimesheetService) jobContext(ctx context.Context, run *calcRun, employee models.Employee, month time.Time) (*JobContext, []models.DayRecord, error) {
	if s.catalog == nil {
		return nil, nil, appErrors.Configuration("day type catalog is not loaded")
	}
	settings, err := run.networkSettings(ctx, s.repos.Networks, employee.NetworkID)
	if err != nil {
		return nil, nil, err
	}
	positions, shops, err := run.directory(ctx, s.repos.Positions, s.repos.Shops, employee.NetworkID)
	if err != nil {
		return nil, nil, err
	}

	monthEnd := models.MonthEnd(month)
	yearStart := time.Date(month.Year(), time.January, 1, 0, 0, 0, 0, month.Location())
	employments, err := s.repos.Employments.Active(ctx, employee.NetworkID, yearStart, monthEnd, []string{employee.ID})
	if err != nil {
		return nil, nil, appErrors.Transient(err, "failed to load employments")
	}

	// neighbouring days are read so that night shifts can match plans across the month boundary
	records, err := s.repos.DayRecords.ListApproved(ctx, models.DayRecordFilter{
		EmployeeIDs: []string{employee.ID},
		DtFrom:      month.AddDate(0, 0, -1),
		DtTo:        monthEnd.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, nil, appErrors.Transient(err, "failed to load day records")
	}

	var schedules []models.ShopSchedule
	if settings.CropWorkHoursByShopSchedule {
		shopIDs := scheduleShopIDs(employments, records)
		if len(shopIDs) > 0 {
			schedules, err = s.repos.Schedules.List(ctx, shopIDs, month, monthEnd)
			if err != nil {
				return nil, nil, appErrors.Transient(err, "failed to load shop schedules")
			}
		}
	}

	jc, err := NewJobContext(JobSnapshot{
		EmployeeID:   employee.ID,
		NetworkID:    employee.NetworkID,
		Month:        month,
		Settings:     settings,
		Catalog:      s.catalog,
		DefaultAlias: s.cfg.DefaultAlias,
		Employments:  employments,
		Positions:    positions,
		Shops:        shops,
		Schedules:    schedules,
	})
	if err != nil {
		return nil, nil, err
	}
	return jc, records, nil
}

func (s *TimesheetService) lookBehind(ctx context.Context, jc *JobContext) ([]models.TimesheetItem, error) {
	days := jc.Settings.LookBehind()
	if days <= 0 {
		return nil, nil
	}
	items, err := s.repos.Timesheets.List(ctx, models.TimesheetFilter{
		EmployeeIDs: []string{jc.EmployeeID},
		DtFrom:      jc.Month.AddDate(0, 0, -days),
		DtTo:        jc.Month.AddDate(0, 0, -1),
		Types:       []models.TimesheetType{models.TimesheetMain},
	})
	if err != nil {
		return nil, appErrors.Transient(err, "failed to load previous month main sheet")
	}
	return items, nil
}

// MonthNorm computes the norm of an employee-month without touching the sheets.
func (s *TimesheetService) MonthNorm(ctx context.Context, employee models.Employee, month time.Time) (NormResult, error) {
	jc, records, err := s.jobContext(ctx, newCalcRun(), employee, models.MonthStart(month))
	if err != nil {
		return NormResult{}, err
	}
	return s.norm.Norm(ctx, jc, records)
}

func (r *calcRun) networkSettings(ctx context.Context, repo networkSettingsReader, networkID string) (models.NetworkSettings, error) {
	if settings, ok := r.settings[networkID]; ok {
		return settings, nil
	}
	settings, err := repo.GetSettings(ctx, networkID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return models.NetworkSettings{}, appErrors.Configuration("network %s has no settings", networkID)
		}
		return models.NetworkSettings{}, appErrors.Transient(err, "failed to load network settings")
	}
	r.settings[networkID] = settings
	return settings, nil
}

func (r *calcRun) directory(ctx context.Context, positions positionReader, shops shopReader, networkID string) ([]models.Position, []models.Shop, error) {
	if _, ok := r.positions[networkID]; !ok {
		list, err := positions.ListByNetwork(ctx, networkID)
		if err != nil {
			return nil, nil, appErrors.Transient(err, "failed to load positions")
		}
		r.positions[networkID] = list
	}
	if _, ok := r.shops[networkID]; !ok {
		list, err := shops.ListByNetwork(ctx, networkID)
		if err != nil {
			return nil, nil, appErrors.Transient(err, "failed to load shops")
		}
		r.shops[networkID] = list
	}
	return r.positions[networkID], r.shops[networkID], nil
}

func scheduleShopIDs(employments []models.Employment, records []models.DayRecord) []string {
	seen := make(map[string]struct{})
	for _, e := range employments {
		seen[e.ShopID] = struct{}{}
	}
	for _, r := range records {
		if r.ShopID != nil {
			seen[*r.ShopID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func sheetTotals(items []models.TimesheetItem) map[string]float64 {
	totals := make(map[string]float64, 3)
	for _, item := range items {
		totals[string(item.TimesheetType)] += item.TotalHours().InexactFloat64()
	}
	return totals
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
