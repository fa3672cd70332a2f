package models

import "github.com/lib/pq"

// WorkHoursMethod selects how a day type derives counted hours.
type WorkHoursMethod string

const (
	WorkHoursByInterval WorkHoursMethod = "interval"
	WorkHoursManual     WorkHoursMethod = "manual"
	WorkHoursZero       WorkHoursMethod = "zero"
)

// Valid reports whether the method is one of the known values.
func (m WorkHoursMethod) Valid() bool {
	switch m {
	case WorkHoursByInterval, WorkHoursManual, WorkHoursZero:
		return true
	}
	return false
}

// Stable day type codes.
const (
	DayTypeWorkday       = "W"
	DayTypeHoliday       = "H"
	DayTypeVacation      = "V"
	DayTypeSick          = "S"
	DayTypeQualification = "Q"
	DayTypeAbsence       = "A"
	DayTypeMaternity     = "M"
	DayTypeBusinessTrip  = "T"
	DayTypeOther         = "O"
	DayTypeSelfVacation  = "TV"
	DayTypeEmpty         = "E"
)

// DayType is an immutable descriptor controlling hour accounting for a day record.
type DayType struct {
	Code                   string          `db:"code" json:"code" yaml:"code"`
	Name                   string          `db:"name" json:"name" yaml:"name"`
	IsDayOff               bool            `db:"is_dayoff" json:"is_dayoff" yaml:"is_dayoff"`
	IsWorkHours            bool            `db:"is_work_hours" json:"is_work_hours" yaml:"is_work_hours"`
	IsReduceNorm           bool            `db:"is_reduce_norm" json:"is_reduce_norm" yaml:"is_reduce_norm"`
	GetWorkHoursMethod     WorkHoursMethod `db:"get_work_hours_method" json:"get_work_hours_method" yaml:"get_work_hours_method"`
	ExcelLoadCode          string          `db:"excel_load_code" json:"excel_load_code" yaml:"excel_load_code"`
	Ordering               int             `db:"ordering" json:"ordering" yaml:"ordering"`
	AllowedAdditionalTypes pq.StringArray  `db:"allowed_additional_types" json:"allowed_additional_types" yaml:"allowed_additional_types"`
}

// CountsAsWork reports whether rows of this type are working shifts (as opposed to day-offs).
func (d DayType) CountsAsWork() bool {
	return !d.IsDayOff
}

// DefaultDayTypes returns the built-in catalog seed.
func DefaultDayTypes() []DayType {
	return []DayType{
		{Code: DayTypeWorkday, Name: "Workday", GetWorkHoursMethod: WorkHoursByInterval, IsWorkHours: true, ExcelLoadCode: "Я", Ordering: 100},
		{Code: DayTypeVacation, Name: "Vacation", IsDayOff: true, IsWorkHours: true, IsReduceNorm: true, GetWorkHoursMethod: WorkHoursManual, ExcelLoadCode: "ОТ", Ordering: 90, AllowedAdditionalTypes: pq.StringArray{DayTypeWorkday}},
		{Code: DayTypeBusinessTrip, Name: "Business trip", IsDayOff: true, IsWorkHours: true, IsReduceNorm: true, GetWorkHoursMethod: WorkHoursManual, ExcelLoadCode: "К", Ordering: 85, AllowedAdditionalTypes: pq.StringArray{DayTypeWorkday}},
		{Code: DayTypeSick, Name: "Sick leave", IsDayOff: true, IsReduceNorm: true, GetWorkHoursMethod: WorkHoursZero, ExcelLoadCode: "Б", Ordering: 80},
		{Code: DayTypeSelfVacation, Name: "Unpaid vacation", IsDayOff: true, IsReduceNorm: true, GetWorkHoursMethod: WorkHoursZero, ExcelLoadCode: "ДО", Ordering: 75},
		{Code: DayTypeQualification, Name: "Qualification", IsDayOff: true, IsWorkHours: true, IsReduceNorm: true, GetWorkHoursMethod: WorkHoursManual, ExcelLoadCode: "ПК", Ordering: 70, AllowedAdditionalTypes: pq.StringArray{DayTypeWorkday}},
		{Code: DayTypeAbsence, Name: "Absence", IsDayOff: true, GetWorkHoursMethod: WorkHoursZero, ExcelLoadCode: "НН", Ordering: 60},
		{Code: DayTypeMaternity, Name: "Maternity leave", IsDayOff: true, IsReduceNorm: true, GetWorkHoursMethod: WorkHoursZero, ExcelLoadCode: "Р", Ordering: 50},
		{Code: DayTypeOther, Name: "Other", IsDayOff: true, GetWorkHoursMethod: WorkHoursZero, ExcelLoadCode: "НВ", Ordering: 10},
		{Code: DayTypeHoliday, Name: "Holiday", IsDayOff: true, GetWorkHoursMethod: WorkHoursZero, ExcelLoadCode: "В", Ordering: 5},
		{Code: DayTypeEmpty, Name: "Empty", IsDayOff: true, GetWorkHoursMethod: WorkHoursZero, Ordering: 0},
	}
}
