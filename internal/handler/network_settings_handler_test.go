package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-timesheet/internal/dto"
	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type networkSettingsMock struct {
	captured dto.UpdateNetworkSettingsRequest
}

func (m *networkSettingsMock) Get(ctx context.Context, networkID string) (models.NetworkSettings, error) {
	if networkID != "net-1" {
		return models.NetworkSettings{}, appErrors.ErrNotFound
	}
	return models.NetworkSettings{FiscalSheetDividerAlias: models.DividerAliasNahodka}, nil
}

func (m *networkSettingsMock) Update(ctx context.Context, networkID string, req dto.UpdateNetworkSettingsRequest) (models.NetworkSettings, error) {
	m.captured = req
	return models.NetworkSettings{FiscalSheetDividerAlias: *req.FiscalSheetDividerAlias}, nil
}

func TestNetworkSettingsHandlerGet(t *testing.T) {
	h := NewNetworkSettingsHandler(&networkSettingsMock{})

	c, w := newTimesheetContext(http.MethodGet, "/api/v1/networks/net-1/settings", nil)
	c.Params = gin.Params{{Key: "id", Value: "net-1"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fiscal_sheet_divider_alias":"nahodka"`)

	c, w = newTimesheetContext(http.MethodGet, "/api/v1/networks/ghost/settings", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNetworkSettingsHandlerUpdate(t *testing.T) {
	svc := &networkSettingsMock{}
	h := NewNetworkSettingsHandler(svc)

	c, w := newTimesheetContext(http.MethodPatch, "/api/v1/networks/net-1/settings",
		[]byte(`{"fiscal_sheet_divider_alias":"pobeda","weekly_rest_hours":"42"}`))
	c.Params = gin.Params{{Key: "id", Value: "net-1"}}
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.captured.WeeklyRestHours)
	assert.Equal(t, "42", svc.captured.WeeklyRestHours.String())
	assert.Nil(t, svc.captured.AccountingPeriodLength)
}
