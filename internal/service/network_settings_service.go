package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/dto"
	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type networkSettingsStore interface {
	GetSettings(ctx context.Context, networkID string) (models.NetworkSettings, error)
	UpdateSettings(ctx context.Context, networkID string, settings models.NetworkSettings) error
}

// NetworkSettingsService reads and patches the settings that drive timesheet division.
type NetworkSettingsService struct {
	repo      networkSettingsStore
	aliases   map[string]struct{}
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNetworkSettingsService constructs the service. aliases lists the accepted divider strategies.
func NewNetworkSettingsService(repo networkSettingsStore, aliases []string, validate *validator.Validate, logger *zap.Logger) *NetworkSettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make(map[string]struct{}, len(aliases))
	for _, alias := range aliases {
		known[alias] = struct{}{}
	}
	return &NetworkSettingsService{repo: repo, aliases: known, validator: validate, logger: logger}
}

// Get returns the stored settings of a network.
func (s *NetworkSettingsService) Get(ctx context.Context, networkID string) (models.NetworkSettings, error) {
	settings, err := s.repo.GetSettings(ctx, networkID)
	if err != nil {
		return models.NetworkSettings{}, s.wrapStoreError(err, networkID, "failed to load network settings")
	}
	return settings, nil
}

// Update applies the non-nil fields of req and stores the result.
func (s *NetworkSettingsService) Update(ctx context.Context, networkID string, req dto.UpdateNetworkSettingsRequest) (models.NetworkSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.NetworkSettings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid network settings")
	}
	if req.FiscalSheetDividerAlias != nil {
		if _, ok := s.aliases[*req.FiscalSheetDividerAlias]; !ok {
			return models.NetworkSettings{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown divider alias %q", *req.FiscalSheetDividerAlias))
		}
	}
	for name, value := range map[string]*decimal.Decimal{
		"timesheet_min_hours_threshold": req.TimesheetMinHoursThreshold,
		"daily_hours_ceiling":           req.DailyHoursCeiling,
		"weekly_rest_hours":             req.WeeklyRestHours,
		"main_norm_slack_hours":         req.MainNormSlackHours,
	} {
		if value != nil && value.IsNegative() {
			return models.NetworkSettings{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must not be negative", name))
		}
	}

	settings, err := s.Get(ctx, networkID)
	if err != nil {
		return models.NetworkSettings{}, err
	}
	applySettingsPatch(&settings, req)

	if err := s.repo.UpdateSettings(ctx, networkID, settings); err != nil {
		return models.NetworkSettings{}, s.wrapStoreError(err, networkID, "failed to store network settings")
	}
	s.logger.Info("network settings updated",
		zap.String("network_id", networkID),
		zap.String("divider_alias", settings.FiscalSheetDividerAlias),
		zap.Int("accounting_period_length", settings.AccountingPeriodLength),
	)
	return settings, nil
}

func (s *NetworkSettingsService) wrapStoreError(err error, networkID, message string) error {
	if errors.Is(err, appErrors.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("network %s not found", networkID))
	}
	return appErrors.Transient(err, message)
}

func applySettingsPatch(settings *models.NetworkSettings, req dto.UpdateNetworkSettingsRequest) {
	if req.FiscalSheetDividerAlias != nil {
		settings.FiscalSheetDividerAlias = *req.FiscalSheetDividerAlias
	}
	if req.AccountingPeriodLength != nil {
		settings.AccountingPeriodLength = *req.AccountingPeriodLength
	}
	if req.CropWorkHoursByShopSchedule != nil {
		settings.CropWorkHoursByShopSchedule = *req.CropWorkHoursByShopSchedule
	}
	if req.OnlyFactHoursThatInApprovedPlan != nil {
		settings.OnlyFactHoursThatInApprovedPlan = *req.OnlyFactHoursThatInApprovedPlan
	}
	if req.RoundWorkHoursAlg != nil {
		settings.RoundWorkHoursAlg = models.RoundWorkHoursAlg(*req.RoundWorkHoursAlg)
	}
	if req.ConsiderRemainingHoursInPrevMonthsWhenCalcNormHours != nil {
		settings.ConsiderRemainingHoursInPrevMonthsWhenCalcNormHours = *req.ConsiderRemainingHoursInPrevMonthsWhenCalcNormHours
	}
	if req.TimesheetMinHoursThreshold != nil {
		settings.TimesheetMinHoursThreshold = *req.TimesheetMinHoursThreshold
	}
	if req.DailyHoursCeiling != nil {
		settings.DailyHoursCeiling = *req.DailyHoursCeiling
	}
	if req.WeeklyRestHours != nil {
		settings.WeeklyRestHours = *req.WeeklyRestHours
	}
	if req.MainNormSlackHours != nil {
		settings.MainNormSlackHours = *req.MainNormSlackHours
	}
	if req.LookBehindDays != nil {
		days := *req.LookBehindDays
		settings.LookBehindDays = &days
	}
}
