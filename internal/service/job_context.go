package service

import (
	"time"

	"github.com/noah-isme/wfm-timesheet/internal/models"
)

type scheduleKey struct {
	shopID string
	day    string
}

func newScheduleKey(shopID string, dt time.Time) scheduleKey {
	return scheduleKey{shopID: shopID, day: dt.Format("2006-01-02")}
}

// JobContext is the immutable snapshot a division runs against. It is captured
// once at job start so that settings or directory changes cannot drift mid-run.
type JobContext struct {
	EmployeeID string
	NetworkID  string
	Month      time.Time

	Settings   models.NetworkSettings
	Catalog    *DayTypeCatalog
	Calculator *WorkHoursCalculator
	Alias      string

	Employments     []models.Employment
	positions       map[string]models.Position
	positionsByName map[string]models.Position
	shops           map[string]models.Shop
	schedules       map[scheduleKey]models.ShopSchedule
}

// JobSnapshot carries the directory data a JobContext is built from.
type JobSnapshot struct {
	EmployeeID   string
	NetworkID    string
	Month        time.Time
	Settings     models.NetworkSettings
	Catalog      *DayTypeCatalog
	DefaultAlias string
	Employments  []models.Employment
	Positions    []models.Position
	Shops        []models.Shop
	Schedules    []models.ShopSchedule
}

// NewJobContext validates the snapshot and indexes it for lookups.
func NewJobContext(snap JobSnapshot) (*JobContext, error) {
	calc, err := NewWorkHoursCalculator(snap.Settings)
	if err != nil {
		return nil, err
	}
	jc := &JobContext{
		EmployeeID:      snap.EmployeeID,
		NetworkID:       snap.NetworkID,
		Month:           models.MonthStart(snap.Month),
		Settings:        snap.Settings,
		Catalog:         snap.Catalog,
		Calculator:      calc,
		Alias:           snap.Settings.DividerAlias(snap.DefaultAlias),
		positions:       make(map[string]models.Position, len(snap.Positions)),
		positionsByName: make(map[string]models.Position, len(snap.Positions)),
		shops:           make(map[string]models.Shop, len(snap.Shops)),
		schedules:       make(map[scheduleKey]models.ShopSchedule, len(snap.Schedules)),
	}
	for _, e := range snap.Employments {
		if e.EmployeeID == snap.EmployeeID {
			jc.Employments = append(jc.Employments, e)
		}
	}
	models.SortEmployments(jc.Employments)
	for _, p := range snap.Positions {
		jc.positions[p.ID] = p
		jc.positionsByName[p.Name] = p
	}
	for _, s := range snap.Shops {
		jc.shops[s.ID] = s
	}
	for _, s := range snap.Schedules {
		jc.schedules[newScheduleKey(s.ShopID, s.Dt)] = s
	}
	return jc, nil
}

// MonthEnd returns the last day of the job month.
func (jc *JobContext) MonthEnd() time.Time {
	return models.MonthEnd(jc.Month)
}

// EmploymentOn returns the primary employment active on the date.
func (jc *JobContext) EmploymentOn(dt time.Time) (models.Employment, bool) {
	for _, e := range jc.Employments {
		if e.ActiveOn(dt) {
			return e, true
		}
	}
	return models.Employment{}, false
}

// EmploymentByID finds an employment of the snapshot.
func (jc *JobContext) EmploymentByID(id string) (models.Employment, bool) {
	for _, e := range jc.Employments {
		if e.ID == id {
			return e, true
		}
	}
	return models.Employment{}, false
}

// Position returns the position by id.
func (jc *JobContext) Position(id *string) *models.Position {
	if id == nil {
		return nil
	}
	p, ok := jc.positions[*id]
	if !ok {
		return nil
	}
	return &p
}

// PositionByName resolves a position from a work type name.
func (jc *JobContext) PositionByName(name string) *models.Position {
	p, ok := jc.positionsByName[name]
	if !ok {
		return nil
	}
	return &p
}

// Schedule returns the shop schedule of a date, if any.
func (jc *JobContext) Schedule(shopID *string, dt time.Time) *models.ShopSchedule {
	if shopID == nil {
		return nil
	}
	s, ok := jc.schedules[newScheduleKey(*shopID, dt)]
	if !ok {
		return nil
	}
	return &s
}

// RegionOf walks up the shop tree to the first shop with a region.
func (jc *JobContext) RegionOf(shopID string) (string, bool) {
	seen := make(map[string]struct{})
	for id := shopID; id != ""; {
		if _, loop := seen[id]; loop {
			return "", false
		}
		seen[id] = struct{}{}
		shop, ok := jc.shops[id]
		if !ok {
			return "", false
		}
		if shop.RegionID != nil && *shop.RegionID != "" {
			return *shop.RegionID, true
		}
		if shop.ParentID == nil {
			return "", false
		}
		id = *shop.ParentID
	}
	return "", false
}
