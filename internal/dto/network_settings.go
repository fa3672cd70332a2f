package dto

import "github.com/shopspring/decimal"

// UpdateNetworkSettingsRequest patches the divider-related network settings. Nil fields are kept.
type UpdateNetworkSettingsRequest struct {
	FiscalSheetDividerAlias                             *string          `json:"fiscal_sheet_divider_alias"`
	AccountingPeriodLength                              *int             `json:"accounting_period_length" validate:"omitempty,oneof=1 3 6 12"`
	CropWorkHoursByShopSchedule                         *bool            `json:"crop_work_hours_by_shop_schedule"`
	OnlyFactHoursThatInApprovedPlan                     *bool            `json:"only_fact_hours_that_in_approved_plan"`
	RoundWorkHoursAlg                                   *string          `json:"round_work_hours_alg" validate:"omitempty,oneof=round_to_half_an_hour"`
	ConsiderRemainingHoursInPrevMonthsWhenCalcNormHours *bool            `json:"consider_remaining_hours_in_prev_months_when_calc_norm_hours"`
	TimesheetMinHoursThreshold                          *decimal.Decimal `json:"timesheet_min_hours_threshold"`
	DailyHoursCeiling                                   *decimal.Decimal `json:"daily_hours_ceiling"`
	WeeklyRestHours                                     *decimal.Decimal `json:"weekly_rest_hours"`
	MainNormSlackHours                                  *decimal.Decimal `json:"main_norm_slack_hours"`
	LookBehindDays                                      *int             `json:"look_behind_days" validate:"omitempty,min=0,max=7"`
}
