package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/internal/service"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type calculatorMock struct {
	ids      []string
	from, to time.Time
	reraise  bool
	stats    models.CalcStats
	err      error
}

func (m *calculatorMock) CalcTimesheet(ctx context.Context, employeeIDs []string, dtFrom, dtTo time.Time, reraise bool) (models.CalcStats, error) {
	m.ids, m.from, m.to, m.reraise = employeeIDs, dtFrom, dtTo, reraise
	return m.stats, m.err
}

type statsMock struct {
	scope models.StatsScope
}

func (m *statsMock) GetTimesheetStats(ctx context.Context, scope models.StatsScope) (map[string]models.EmployeeTimesheetStats, error) {
	m.scope = scope
	out := make(map[string]models.EmployeeTimesheetStats, len(scope.EmployeeIDs))
	for _, id := range scope.EmployeeIDs {
		out[id] = models.EmployeeTimesheetStats{EmployeeID: id, Total: models.HoursTotals{Fact: decimal.NewFromInt(8)}}
	}
	return out, nil
}

type queueMock struct {
	job      service.DividerJob
	statuses map[string]service.DividerJobStatus
}

func (m *queueMock) Enqueue(job service.DividerJob) (string, error) {
	m.job = job
	return "job-1", nil
}

func (m *queueMock) Status(id string) (service.DividerJobStatus, bool) {
	status, ok := m.statuses[id]
	return status, ok
}

func newTimesheetContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestTimesheetHandlerCalcPassesRange(t *testing.T) {
	calc := &calculatorMock{stats: models.CalcStats{Created: 4, Succeeded: []string{"emp-1"}}}
	h := NewTimesheetHandler(calc, &statsMock{}, nil, nil, "/api/v1")
	c, w := newTimesheetContext(http.MethodPost, "/api/v1/timesheets/calc",
		[]byte(`{"employee_ids":["emp-1"],"dt_from":"2024-01-01","dt_to":"2024-02-29","reraise":true}`))

	h.Calc(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"emp-1"}, calc.ids)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), calc.from)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), calc.to)
	assert.True(t, calc.reraise)

	var body struct {
		Data models.CalcStats   `json:"data"`
		Meta map[string]float64 `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Data.Created)
	assert.Equal(t, float64(1), body.Meta["succeeded"])
}

func TestTimesheetHandlerCalcRejectsInvalidPayload(t *testing.T) {
	cases := map[string]string{
		"no employees": `{"employee_ids":[],"dt_from":"2024-01-01","dt_to":"2024-01-31"}`,
		"bad date":     `{"employee_ids":["emp-1"],"dt_from":"01.01.2024","dt_to":"2024-01-31"}`,
		"malformed":    `{"employee_ids":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			calc := &calculatorMock{}
			h := NewTimesheetHandler(calc, &statsMock{}, nil, nil, "/api/v1")
			c, w := newTimesheetContext(http.MethodPost, "/api/v1/timesheets/calc", []byte(payload))

			h.Calc(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, calc.ids)
		})
	}
}

func TestTimesheetHandlerCalcRendersDomainErrors(t *testing.T) {
	calc := &calculatorMock{err: appErrors.DataIntegrity("employee emp-1 has 2 approved plans on 2024-01-09")}
	h := NewTimesheetHandler(calc, &statsMock{}, nil, nil, "/api/v1")
	c, w := newTimesheetContext(http.MethodPost, "/api/v1/timesheets/calc",
		[]byte(`{"employee_ids":["emp-1"],"dt_from":"2024-01-01","dt_to":"2024-01-31","reraise":true}`))

	h.Calc(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DATA_INTEGRITY_ERROR")
}

func TestTimesheetHandlerCalcAsync(t *testing.T) {
	queue := &queueMock{}
	h := NewTimesheetHandler(&calculatorMock{}, &statsMock{}, queue, nil, "/api/v1/")
	c, w := newTimesheetContext(http.MethodPost, "/api/v1/timesheets/calc/async",
		[]byte(`{"employee_ids":["emp-1","emp-2"],"dt_from":"2024-03-01","dt_to":"2024-03-31"}`))

	h.CalcAsync(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"emp-1", "emp-2"}, queue.job.EmployeeIDs)
	assert.Contains(t, w.Body.String(), `"status_url":"/api/v1/timesheets/jobs/job-1"`)
}

func TestTimesheetHandlerCalcAsyncWithoutQueue(t *testing.T) {
	h := NewTimesheetHandler(&calculatorMock{}, &statsMock{}, nil, nil, "/api/v1")
	c, w := newTimesheetContext(http.MethodPost, "/api/v1/timesheets/calc/async",
		[]byte(`{"employee_ids":["emp-1"],"dt_from":"2024-03-01","dt_to":"2024-03-31"}`))

	h.CalcAsync(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTimesheetHandlerJobStatus(t *testing.T) {
	queue := &queueMock{statuses: map[string]service.DividerJobStatus{
		"job-1": {ID: "job-1", State: service.JobStateDone, Attempts: 1},
	}}
	h := NewTimesheetHandler(&calculatorMock{}, &statsMock{}, queue, nil, "/api/v1")

	c, w := newTimesheetContext(http.MethodGet, "/api/v1/timesheets/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	h.JobStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"done"`)

	c, w = newTimesheetContext(http.MethodGet, "/api/v1/timesheets/jobs/ghost", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	h.JobStatus(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimesheetHandlerStatsParsesQuery(t *testing.T) {
	stats := &statsMock{}
	h := NewTimesheetHandler(&calculatorMock{}, stats, nil, nil, "/api/v1")
	c, w := newTimesheetContext(http.MethodGet,
		"/api/v1/timesheets/stats?employee_id=emp-1,emp-2&employee_id=emp-3&dt_from=2024-01-01&dt_to=2024-01-31&include_norm=true", nil)

	h.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"emp-1", "emp-2", "emp-3"}, stats.scope.EmployeeIDs)
	assert.True(t, stats.scope.IncludeNorm)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), stats.scope.DtTo)
	assert.Contains(t, w.Body.String(), `"emp-3"`)
}

func TestTimesheetHandlerStatsRequiresEmployees(t *testing.T) {
	h := NewTimesheetHandler(&calculatorMock{}, &statsMock{}, nil, nil, "/api/v1")
	c, w := newTimesheetContext(http.MethodGet, "/api/v1/timesheets/stats?dt_from=2024-01-01&dt_to=2024-01-31", nil)

	h.Stats(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
