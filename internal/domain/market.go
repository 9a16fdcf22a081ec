package domain

import (
	"fmt"
	"strings"
)

// ScopeLevel is the granularity an escalation or watch applies to.
type ScopeLevel string

const (
	ScopeCity    ScopeLevel = "CITY"
	ScopeCountry ScopeLevel = "COUNTRY"
	ScopeRegion  ScopeLevel = "REGION"
)

// ParseScopeLevel normalizes and validates a scope level.
func ParseScopeLevel(raw string) (ScopeLevel, error) {
	level := ScopeLevel(strings.ToUpper(strings.TrimSpace(raw)))
	switch level {
	case ScopeCity, ScopeCountry, ScopeRegion:
		return level, nil
	}
	return "", fmt.Errorf("unknown scope level %q", raw)
}

// MarketRef identifies one market: a city id, a country code or a region
// name, tagged by Level.
type MarketRef struct {
	Level ScopeLevel
	ID    string
}

// NewMarketRef validates level and id.
func NewMarketRef(level, id string) (MarketRef, error) {
	parsed, err := ParseScopeLevel(level)
	if err != nil {
		return MarketRef{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return MarketRef{}, fmt.Errorf("market id required for scope %s", parsed)
	}
	if parsed == ScopeCountry {
		id = strings.ToUpper(id)
	}
	return MarketRef{Level: parsed, ID: id}, nil
}

// MarketColumns is the persisted shape of a MarketRef.
type MarketColumns struct {
	CityID      *string
	CountryCode *string
	Region      *string
}

// Columns spreads the reference over the three nullable columns.
func (m MarketRef) Columns() MarketColumns {
	id := m.ID
	switch m.Level {
	case ScopeCity:
		return MarketColumns{CityID: &id}
	case ScopeCountry:
		return MarketColumns{CountryCode: &id}
	case ScopeRegion:
		return MarketColumns{Region: &id}
	}
	return MarketColumns{}
}

// MarketRefFromColumns rebuilds a reference from a row. Exactly one column
// must be set and it must match level.
func MarketRefFromColumns(level ScopeLevel, cols MarketColumns) (MarketRef, error) {
	set := 0
	for _, c := range []*string{cols.CityID, cols.CountryCode, cols.Region} {
		if c != nil {
			set++
		}
	}
	if set != 1 {
		return MarketRef{}, fmt.Errorf("market reference must set exactly one column, got %d", set)
	}
	var id *string
	switch level {
	case ScopeCity:
		id = cols.CityID
	case ScopeCountry:
		id = cols.CountryCode
	case ScopeRegion:
		id = cols.Region
	default:
		return MarketRef{}, fmt.Errorf("unknown scope level %q", level)
	}
	if id == nil || *id == "" {
		return MarketRef{}, fmt.Errorf("market column for scope %s is empty", level)
	}
	return MarketRef{Level: level, ID: *id}, nil
}

func (m MarketRef) String() string {
	return string(m.Level) + "/" + m.ID
}
