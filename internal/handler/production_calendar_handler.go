package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/wfm-timesheet/internal/dto"
	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
	"github.com/noah-isme/wfm-timesheet/pkg/response"
)

type productionCalendar interface {
	Import(ctx context.Context, days []models.ProductionCalendarDay) error
	Invalidate(ctx context.Context, regionID string) error
}

// ProductionCalendarHandler maintains regional production calendars.
type ProductionCalendarHandler struct {
	calendar  productionCalendar
	validator *validator.Validate
}

// NewProductionCalendarHandler constructs the handler.
func NewProductionCalendarHandler(calendar productionCalendar, validate *validator.Validate) *ProductionCalendarHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ProductionCalendarHandler{calendar: calendar, validator: validate}
}

// Invalidate godoc
// @Summary Drop cached production calendar months
// @Tags ProductionCalendar
// @Accept json
// @Param payload body dto.InvalidateCalendarRequest false "Region to invalidate; empty clears all"
// @Success 204
// @Router /production-calendar/invalidate [post]
func (h *ProductionCalendarHandler) Invalidate(c *gin.Context) {
	var req dto.InvalidateCalendarRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invalidate payload"))
			return
		}
	}
	if err := h.calendar.Invalidate(c.Request.Context(), req.RegionID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Import production calendar dates
// @Tags ProductionCalendar
// @Accept json
// @Produce json
// @Param payload body dto.ImportCalendarRequest true "Calendar dates"
// @Success 200 {object} response.Envelope
// @Router /production-calendar [put]
func (h *ProductionCalendarHandler) Import(c *gin.Context) {
	var req dto.ImportCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	days, err := req.Models()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	if err := h.calendar.Import(c.Request.Context(), days); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"imported": len(days)})
}
