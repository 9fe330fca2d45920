package directory

import (
	"testing"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const locations = `45.4642|9.19:Milan,Lombardy,IT
45.6983|9.6773:Bergamo,Lombardy,IT
40.7128|-74.006:New York,,US
35.0|139.0:,,Japan
1.0|2.0:Washington, D.C.,District of Columbia,US
not a line
0|0:Nowhere,,ZZ
3|4:City,Province,
`

const countries = "IT:Italy:6.6,35.5,18.5,47.1|12.4,43.9,12.5,44.0\r\nUS:United States:-125,24,-66,49\nJP:Japan\nbroken\n"

func loaded(t *testing.T) *Directory {
	t.Helper()
	d := New()
	cs := d.ImportCountries(countries)
	require.Equal(t, ImportStats{Imported: 3, Skipped: 1}, cs)
	ls := d.ImportFromFeed(locations)
	require.Equal(t, ImportStats{Imported: 5, Skipped: 3}, ls)
	return d
}

func TestResolve(t *testing.T) {
	d := loaded(t)

	place, ok := d.Resolve(domain.NewPointID(45.4642, 9.19))
	require.True(t, ok)
	assert.Equal(t, domain.Place{City: "Milan", Province: "Lombardy", Country: "Italy"}, place)

	place, ok = d.Resolve(domain.NewPointID(40.7128, -74.006))
	require.True(t, ok)
	assert.Equal(t, domain.Place{City: "New York", Country: "United States"}, place)

	place, ok = d.Resolve(domain.NewPointID(35, 139))
	require.True(t, ok)
	assert.Equal(t, "Japan", place.Country)
	assert.Empty(t, place.City)
}

func TestResolve_CityWithComma(t *testing.T) {
	d := loaded(t)

	place, ok := d.Resolve(domain.NewPointID(1, 2))
	require.True(t, ok)
	assert.Equal(t, "Washington, D.C.", place.City)
	assert.Equal(t, "District of Columbia", place.Province)
}

func TestResolve_Unknown(t *testing.T) {
	d := loaded(t)

	_, ok := d.Resolve(domain.NewPointID(-10, -10))
	assert.False(t, ok)
	_, ok = d.Resolve(domain.Placeholder)
	assert.False(t, ok)
}

func TestResolve_FormattingInsensitive(t *testing.T) {
	d := loaded(t)

	p, err := domain.ParsePointID("45.464200|9.1900")
	require.NoError(t, err)
	_, ok := d.Resolve(p)
	assert.True(t, ok)
}

func TestImportFromFeed_ReplacesExisting(t *testing.T) {
	d := loaded(t)
	d.ImportFromFeed("45.4642|9.19:Milano,Lombardia,IT\n")

	place, ok := d.Resolve(domain.NewPointID(45.4642, 9.19))
	require.True(t, ok)
	assert.Equal(t, "Milano", place.City)
	assert.Equal(t, 5, d.Len())
}

func TestCountry(t *testing.T) {
	d := loaded(t)

	c, ok := d.Country("IT")
	require.True(t, ok)
	assert.Equal(t, "Italy", c.Name)
	require.Len(t, c.Bounds, 2)
	assert.Equal(t, orb.Bound{Min: orb.Point{6.6, 35.5}, Max: orb.Point{18.5, 47.1}}, c.Bounds[0])

	name, ok := d.CountryName("JP")
	require.True(t, ok)
	assert.Equal(t, "Japan", name)

	_, ok = d.CountryName("ZZ")
	assert.False(t, ok)
	assert.Equal(t, 3, d.Countries())
}

func TestCountryCenter(t *testing.T) {
	d := loaded(t)

	center, ok := d.CountryCenter("United States")
	require.True(t, ok)
	assert.Equal(t, domain.NewPointID(36.5, -95.5), center)

	_, ok = d.CountryCenter("Japan")
	assert.False(t, ok, "no bounding box")

	_, ok = d.CountryCenter("Atlantis")
	assert.False(t, ok)
}

func TestRegisterSynthetic(t *testing.T) {
	d := loaded(t)
	p := domain.NewPointID(42.79, 12.07)

	d.RegisterSynthetic(p, "Italy")
	place, ok := d.Resolve(p)
	require.True(t, ok)
	assert.Equal(t, domain.Place{Country: "Italy"}, place)

	d.RegisterSynthetic(domain.NewPointID(45.4642, 9.19), "Elsewhere")
	place, _ = d.Resolve(domain.NewPointID(45.4642, 9.19))
	assert.Equal(t, "Milan", place.City, "synthetic points never overwrite real ones")

	d.RegisterSynthetic(domain.Placeholder, "Italy")
	_, ok = d.Resolve(domain.Placeholder)
	assert.False(t, ok)
}
