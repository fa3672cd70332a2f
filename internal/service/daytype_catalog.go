package service

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
)

type dayTypeLister interface {
	ListAll(ctx context.Context) ([]models.DayType, error)
}

type dayTypePair struct {
	a, b string
}

func newDayTypePair(a, b string) dayTypePair {
	if a > b {
		a, b = b, a
	}
	return dayTypePair{a: a, b: b}
}

// DayTypeCatalog is an immutable registry of day type descriptors shared by all workers.
type DayTypeCatalog struct {
	types   map[string]models.DayType
	allowed map[dayTypePair]struct{}
}

// NewDayTypeCatalog validates descriptors and builds the lookup tables.
func NewDayTypeCatalog(types []models.DayType) (*DayTypeCatalog, error) {
	catalog := &DayTypeCatalog{
		types:   make(map[string]models.DayType, len(types)),
		allowed: make(map[dayTypePair]struct{}),
	}
	for _, dt := range types {
		if dt.Code == "" {
			return nil, appErrors.Configuration("day type without code")
		}
		if _, dup := catalog.types[dt.Code]; dup {
			return nil, appErrors.Configuration("duplicate day type %q", dt.Code)
		}
		if dt.GetWorkHoursMethod == "" {
			dt.GetWorkHoursMethod = models.WorkHoursZero
		}
		if !dt.GetWorkHoursMethod.Valid() {
			return nil, appErrors.Configuration("day type %q: unknown work hours method %q", dt.Code, dt.GetWorkHoursMethod)
		}
		catalog.types[dt.Code] = dt
	}
	for _, dt := range catalog.types {
		for _, other := range dt.AllowedAdditionalTypes {
			if _, ok := catalog.types[other]; !ok {
				return nil, appErrors.Configuration("day type %q allows unknown additional type %q", dt.Code, other)
			}
			catalog.allowed[newDayTypePair(dt.Code, other)] = struct{}{}
		}
	}
	return catalog, nil
}

// LoadDayTypeCatalog reads descriptors from the store, falling back to the built-in seed when empty.
func LoadDayTypeCatalog(ctx context.Context, repo dayTypeLister) (*DayTypeCatalog, error) {
	types, err := repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Transient(err, "failed to load day types")
	}
	if len(types) == 0 {
		types = models.DefaultDayTypes()
	}
	return NewDayTypeCatalog(types)
}

type dayTypeSeed struct {
	DayTypes []models.DayType `yaml:"day_types"`
}

// LoadDayTypeCatalogFile builds the catalog from a YAML seed file.
func LoadDayTypeCatalogFile(path string) (*DayTypeCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to read day type seed")
	}
	return ParseDayTypeSeed(data)
}

// ParseDayTypeSeed decodes a YAML document with a top-level day_types list.
func ParseDayTypeSeed(data []byte) (*DayTypeCatalog, error) {
	var seed dayTypeSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid day type seed")
	}
	if len(seed.DayTypes) == 0 {
		return nil, appErrors.Configuration("day type seed is empty")
	}
	return NewDayTypeCatalog(seed.DayTypes)
}

// MarshalSeed renders the catalog back into the YAML seed format.
func (c *DayTypeCatalog) MarshalSeed() ([]byte, error) {
	return yaml.Marshal(dayTypeSeed{DayTypes: c.All()})
}

// Lookup returns the descriptor for a code. Unknown codes indicate a data migration bug.
func (c *DayTypeCatalog) Lookup(code string) (models.DayType, error) {
	dt, ok := c.types[code]
	if !ok {
		return models.DayType{}, appErrors.Configuration("unknown day type %q", code)
	}
	return dt, nil
}

// MustLookup is Lookup for codes already validated by the caller.
func (c *DayTypeCatalog) MustLookup(code string) models.DayType {
	dt, err := c.Lookup(code)
	if err != nil {
		panic(err)
	}
	return dt
}

func (c *DayTypeCatalog) IsDayOff(code string) (bool, error) {
	dt, err := c.Lookup(code)
	return dt.IsDayOff, err
}

func (c *DayTypeCatalog) IsWorkHours(code string) (bool, error) {
	dt, err := c.Lookup(code)
	return dt.IsWorkHours, err
}

func (c *DayTypeCatalog) IsReduceNorm(code string) (bool, error) {
	dt, err := c.Lookup(code)
	return dt.IsReduceNorm, err
}

func (c *DayTypeCatalog) Ordering(code string) (int, error) {
	dt, err := c.Lookup(code)
	return dt.Ordering, err
}

// AllowedAdditional reports whether two day types may coexist on one date. The relation is symmetric.
func (c *DayTypeCatalog) AllowedAdditional(a, b string) bool {
	_, ok := c.allowed[newDayTypePair(a, b)]
	return ok
}

// All returns descriptors sorted by descending ordering, then code.
func (c *DayTypeCatalog) All() []models.DayType {
	list := make([]models.DayType, 0, len(c.types))
	for _, dt := range c.types {
		list = append(list, dt)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Ordering != list[j].Ordering {
			return list[i].Ordering > list[j].Ordering
		}
		return list[i].Code < list[j].Code
	})
	return list
}

// String is used in logs.
func (c *DayTypeCatalog) String() string {
	return fmt.Sprintf("DayTypeCatalog(%d types, %d allowed pairs)", len(c.types), len(c.allowed))
}
