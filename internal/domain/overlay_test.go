package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapNamer map[string]string

func (m mapNamer) CountryName(code string) (string, bool) {
	name, ok := m[code]
	return name, ok
}

func TestParseOverlay(t *testing.T) {
	payload := []byte(`{"features": [
		{"attributes": {"code": "IT", "cum_conf": "24,747"}, "centroid": {"x": 12.07, "y": 42.79}},
		{"attributes": {"code": "US", "cum_conf": "3,536"}, "centroid": {"x": -98.5, "y": 39.8}},
		{"attributes": {"code": "FR", "cum_conf": 5423}, "centroid": {"x": 2.2, "y": 46.2}},
		{"attributes": {"code": "ZZ", "cum_conf": "1"}, "centroid": {"x": 0, "y": 0}},
		{"attributes": {"code": "DE", "cum_conf": "10"}},
		{"centroid": {"x": 10, "y": 51}}
	]}`)
	namer := mapNamer{"IT": "Italy", "US": "United States", "FR": "France", "DE": "Germany"}

	entries, err := ParseOverlay(payload, namer)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, OverlayEntry{Point: NewPointID(42.79, 12.07), Code: "IT", Name: "Italy", Count: 24747}, entries[0])
	assert.Equal(t, "France", entries[1].Name)
	assert.Equal(t, int64(5423), entries[1].Count)
	assert.Equal(t, "United States", entries[2].Name)
}

func TestParseOverlay_Invalid(t *testing.T) {
	for _, payload := range []string{`nope`, `{}`, `{"features": null}`} {
		t.Run(payload, func(t *testing.T) {
			_, err := ParseOverlay([]byte(payload), mapNamer{})
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestSortOverlay_TiesByName(t *testing.T) {
	entries := []OverlayEntry{
		{Name: "Spain", Count: 5},
		{Name: "Austria", Count: 5},
		{Name: "China", Count: 80},
	}
	SortOverlay(entries)
	assert.Equal(t, []string{"China", "Austria", "Spain"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}

func TestParseHeadline(t *testing.T) {
	h, err := ParseHeadline([]byte(`[{"caseCount": 1234567, "date": "2020-04-07"}]`))
	require.NoError(t, err)
	assert.Equal(t, Headline{CaseCount: 1234567, Date: "2020-04-07"}, h)

	h, err = ParseHeadline([]byte(`[{"caseCount": "1,500", "date": "07.04.2020"}]`))
	require.NoError(t, err)
	assert.Equal(t, Headline{CaseCount: 1500, Date: "2020-04-07"}, h)
}

func TestParseHeadline_Invalid(t *testing.T) {
	for _, payload := range []string{`{}`, `[]`, `[{"caseCount": 1}]`, `[{"caseCount": 1, "date": "soon"}]`} {
		t.Run(payload, func(t *testing.T) {
			_, err := ParseHeadline([]byte(payload))
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}
