package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarketRef(t *testing.T) {
	m, err := NewMarketRef("city", " C1 ")
	require.NoError(t, err)
	assert.Equal(t, MarketRef{Level: ScopeCity, ID: "C1"}, m)

	m, err = NewMarketRef("COUNTRY", "de")
	require.NoError(t, err)
	assert.Equal(t, "DE", m.ID)

	_, err = NewMarketRef("CONTINENT", "EU")
	assert.Error(t, err)

	_, err = NewMarketRef("REGION", "  ")
	assert.Error(t, err)
}

func TestMarketColumnsRoundTrip(t *testing.T) {
	for _, m := range []MarketRef{
		{Level: ScopeCity, ID: "C1"},
		{Level: ScopeCountry, ID: "FR"},
		{Level: ScopeRegion, ID: "EMEA"},
	} {
		cols := m.Columns()
		back, err := MarketRefFromColumns(m.Level, cols)
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
}

func TestMarketRefFromColumnsInvariant(t *testing.T) {
	city, country := "C1", "FR"

	_, err := MarketRefFromColumns(ScopeCity, MarketColumns{})
	assert.Error(t, err, "no column set")

	_, err = MarketRefFromColumns(ScopeCity, MarketColumns{CityID: &city, CountryCode: &country})
	assert.Error(t, err, "two columns set")

	_, err = MarketRefFromColumns(ScopeCountry, MarketColumns{CityID: &city})
	assert.Error(t, err, "column does not match scope level")
}
