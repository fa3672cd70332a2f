package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/wfm-timesheet/internal/dto"
	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/internal/service"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
	"github.com/noah-isme/wfm-timesheet/pkg/middleware/requestid"
	"github.com/noah-isme/wfm-timesheet/pkg/response"
)

type timesheetCalculator interface {
	CalcTimesheet(ctx context.Context, employeeIDs []string, dtFrom, dtTo time.Time, reraise bool) (models.CalcStats, error)
}

type timesheetStatsReader interface {
	GetTimesheetStats(ctx context.Context, scope models.StatsScope) (map[string]models.EmployeeTimesheetStats, error)
}

type dividerQueue interface {
	Enqueue(job service.DividerJob) (string, error)
	Status(id string) (service.DividerJobStatus, bool)
}

// TimesheetHandler exposes timesheet division and statistics endpoints.
type TimesheetHandler struct {
	calculator timesheetCalculator
	stats      timesheetStatsReader
	jobs       dividerQueue
	validator  *validator.Validate
	jobsPath   string
}

// NewTimesheetHandler constructs the handler. jobs may be nil when the worker pool is disabled.
func NewTimesheetHandler(calculator timesheetCalculator, stats timesheetStatsReader, jobs dividerQueue, validate *validator.Validate, apiPrefix string) *TimesheetHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &TimesheetHandler{
		calculator: calculator,
		stats:      stats,
		jobs:       jobs,
		validator:  validate,
		jobsPath:   strings.TrimRight(apiPrefix, "/") + "/timesheets/jobs/",
	}
}

// Calc godoc
// @Summary Recalculate timesheets
// @Description Rebuilds FACT, MAIN and ADDITIONAL sheets for every employee-month in range.
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.CalcTimesheetRequest true "Employees and date range"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timesheets/calc [post]
func (h *TimesheetHandler) Calc(c *gin.Context) {
	req, from, to, ok := h.bindCalc(c)
	if !ok {
		return
	}
	stats, err := h.calculator.CalcTimesheet(c.Request.Context(), req.EmployeeIDs, from, to, req.Reraise)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, map[string]interface{}{
		"succeeded": len(stats.Succeeded),
		"failed":    len(stats.Errors),
	})
}

// CalcAsync godoc
// @Summary Queue a timesheet recalculation
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.CalcTimesheetRequest true "Employees and date range"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /timesheets/calc/async [post]
func (h *TimesheetHandler) CalcAsync(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.New("QUEUE_UNAVAILABLE", http.StatusServiceUnavailable, "background division is disabled"))
		return
	}
	req, from, to, ok := h.bindCalc(c)
	if !ok {
		return
	}
	id, err := h.jobs.Enqueue(service.DividerJob{EmployeeIDs: req.EmployeeIDs, DtFrom: from, DtTo: to, RequestID: requestid.Value(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.CalcJobAccepted{JobID: id, StatusURL: h.jobsPath + id})
}

// JobStatus godoc
// @Summary Get a queued recalculation
// @Tags Timesheets
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timesheets/jobs/{id} [get]
func (h *TimesheetHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	status, ok := h.jobs.Status(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "job not found"))
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Stats godoc
// @Summary Timesheet statistics
// @Tags Timesheets
// @Produce json
// @Param employee_id query []string true "Employee IDs (repeat or comma separated)"
// @Param dt_from query string true "Start date (YYYY-MM-DD)"
// @Param dt_to query string true "End date (YYYY-MM-DD)"
// @Param include_norm query bool false "Attach monthly norms"
// @Success 200 {object} response.Envelope
// @Router /timesheets/stats [get]
func (h *TimesheetHandler) Stats(c *gin.Context) {
	query := dto.TimesheetStatsQuery{
		EmployeeIDs: splitQuery(c.QueryArray("employee_id")),
		DtFrom:      pickQuery(c, "dt_from", "dtFrom"),
		DtTo:        pickQuery(c, "dt_to", "dtTo"),
	}
	if raw := pickQuery(c, "include_norm", "includeNorm"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "include_norm must be a boolean"))
			return
		}
		query.IncludeNorm = include
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid stats query"))
		return
	}
	scope, err := query.Scope()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}

	stats, err := h.stats.GetTimesheetStats(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

func (h *TimesheetHandler) bindCalc(c *gin.Context) (dto.CalcTimesheetRequest, time.Time, time.Time, bool) {
	var req dto.CalcTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calc payload"))
		return req, time.Time{}, time.Time{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calc payload"))
		return req, time.Time{}, time.Time{}, false
	}
	from, to, err := req.Range()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return req, time.Time{}, time.Time{}, false
	}
	return req, from, to, true
}

func pickQuery(c *gin.Context, preferred string, fallback string) string {
	if value := c.Query(preferred); value != "" {
		return value
	}
	return c.Query(fallback)
}

func splitQuery(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
