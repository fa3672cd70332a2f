package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfm-timesheet/internal/dto"
	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
	"github.com/noah-isme/wfm-timesheet/pkg/response"
)

type networkSettingsService interface {
	Get(ctx context.Context, networkID string) (models.NetworkSettings, error)
	Update(ctx context.Context, networkID string, req dto.UpdateNetworkSettingsRequest) (models.NetworkSettings, error)
}

// NetworkSettingsHandler exposes the divider settings of a network.
type NetworkSettingsHandler struct {
	service networkSettingsService
}

// NewNetworkSettingsHandler builds a new handler.
func NewNetworkSettingsHandler(service networkSettingsService) *NetworkSettingsHandler {
	return &NetworkSettingsHandler{service: service}
}

// Get godoc
// @Summary Get network settings
// @Tags Networks
// @Produce json
// @Param id path string true "Network ID"
// @Success 200 {object} response.Envelope
// @Router /networks/{id}/settings [get]
func (h *NetworkSettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}

// Update godoc
// @Summary Patch network settings
// @Tags Networks
// @Accept json
// @Produce json
// @Param id path string true "Network ID"
// @Param payload body dto.UpdateNetworkSettingsRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /networks/{id}/settings [patch]
func (h *NetworkSettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateNetworkSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}
