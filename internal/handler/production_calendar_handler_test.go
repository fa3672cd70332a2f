package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/internal/service"
)

type calendarMock struct {
	imported    []models.ProductionCalendarDay
	invalidated []string
}

func (m *calendarMock) Import(ctx context.Context, days []models.ProductionCalendarDay) error {
	m.imported = append(m.imported, days...)
	return nil
}

func (m *calendarMock) Invalidate(ctx context.Context, regionID string) error {
	m.invalidated = append(m.invalidated, regionID)
	return nil
}

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

func TestProductionCalendarHandlerInvalidate(t *testing.T) {
	calendar := &calendarMock{}
	h := NewProductionCalendarHandler(calendar, nil)

	c, w := newTimesheetContext(http.MethodPost, "/api/v1/production-calendar/invalidate", []byte(`{"region_id":"r1"}`))
	h.Invalidate(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)

	c, w = newTimesheetContext(http.MethodPost, "/api/v1/production-calendar/invalidate", nil)
	h.Invalidate(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, []string{"r1", ""}, calendar.invalidated)
}

func TestProductionCalendarHandlerImport(t *testing.T) {
	calendar := &calendarMock{}
	h := NewProductionCalendarHandler(calendar, nil)

	c, w := newTimesheetContext(http.MethodPut, "/api/v1/production-calendar",
		[]byte(`{"days":[{"region_id":"r1","dt":"2024-01-01","kind":"HOLIDAY"},{"region_id":"r1","dt":"2024-02-22","kind":"SHORT_WORK"}]}`))
	h.Import(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, calendar.imported, 2)
	assert.Equal(t, models.DayKindShortWork, calendar.imported[1].Kind)
	assert.Equal(t, 22, calendar.imported[1].Dt.Day())
}

func TestProductionCalendarHandlerImportRejectsUnknownKind(t *testing.T) {
	calendar := &calendarMock{}
	h := NewProductionCalendarHandler(calendar, nil)

	c, w := newTimesheetContext(http.MethodPut, "/api/v1/production-calendar",
		[]byte(`{"days":[{"region_id":"r1","dt":"2024-01-01","kind":"PARTY"}]}`))
	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, calendar.imported)
}

func TestMetricsHandlerReady(t *testing.T) {
	metrics := service.NewMetricsService()

	c, w := newTimesheetContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(metrics, pingerStub{}).Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	c, w = newTimesheetContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(metrics, pingerStub{err: errors.New("connection refused")}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveDivision("nahodka", service.OutcomeSuccess, 0)

	c, w := newTimesheetContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(metrics, nil).Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "timesheet_divisions_total")

	c, w = newTimesheetContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
