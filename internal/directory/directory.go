// Package directory maps point identifiers to places and country codes to
// names and bounding boxes. It is loaded from the upstream location and
// country tables at startup and read concurrently afterwards.
package directory

import (
	"bufio"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/paulmach/orb"
)

// Country is one row of the country table.
type Country struct {
	Code   string
	Name   string
	Bounds []orb.Bound // first entry is the main territory
}

// ImportStats reports how many lines of a table were loaded.
type ImportStats struct {
	Imported int
	Skipped  int
}

// Directory resolves points to places. It is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	records map[domain.PointID]domain.Place
	byCode  map[string]Country
	byName  map[string]Country
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{
		records: make(map[domain.PointID]domain.Place),
		byCode:  make(map[string]Country),
		byName:  make(map[string]Country),
	}
}

// Resolve implements domain.Resolver. A two-letter country code is replaced
// by the country name when the code is known.
func (d *Directory) Resolve(p domain.PointID) (domain.Place, bool) {
	if p.IsPlaceholder() {
		return domain.Place{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	place, ok := d.records[p]
	if !ok {
		return domain.Place{}, false
	}
	if c, ok := d.byCode[place.Country]; ok {
		place.Country = c.Name
	}
	return place, true
}

// ImportFromFeed loads the location table. Each line has the form
// "lat|lon:city,province,country"; city and province may be empty. City
// names that contain commas are kept whole. Malformed lines are skipped.
// Re-importing a point replaces its place.
func (d *Directory) ImportFromFeed(raw string) ImportStats {
	var stats ImportStats
	parsed := make(map[domain.PointID]domain.Place)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, place, ok := parseLocationLine(line)
		if !ok {
			stats.Skipped++
			continue
		}
		parsed[p] = place
		stats.Imported++
	}

	d.mu.Lock()
	for p, place := range parsed {
		d.records[p] = place
	}
	d.mu.Unlock()
	return stats
}

func parseLocationLine(line string) (domain.PointID, domain.Place, bool) {
	geoid, rest, ok := strings.Cut(line, ":")
	if !ok {
		return domain.PointID{}, domain.Place{}, false
	}
	p, err := domain.ParsePointID(geoid)
	if err != nil || p.IsPlaceholder() {
		return domain.PointID{}, domain.Place{}, false
	}

	parts := strings.Split(rest, ",")
	if len(parts) < 3 {
		return domain.PointID{}, domain.Place{}, false
	}
	n := len(parts)
	place := domain.Place{
		City:     strings.TrimSpace(strings.Join(parts[:n-2], ",")),
		Province: strings.TrimSpace(parts[n-2]),
		Country:  strings.TrimSpace(parts[n-1]),
	}
	if place.Country == "" {
		return domain.PointID{}, domain.Place{}, false
	}
	return p, place, true
}

// ImportCountries loads the country table. Each line has the form
// "CODE:Name:minLon,minLat,maxLon,maxLat|minLon,...". A line without any
// valid box is still imported so its name can be resolved.
func (d *Directory) ImportCountries(raw string) ImportStats {
	var stats ImportStats
	var parsed []Country

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c, ok := parseCountryLine(line)
		if !ok {
			stats.Skipped++
			continue
		}
		parsed = append(parsed, c)
		stats.Imported++
	}

	d.mu.Lock()
	for _, c := range parsed {
		if old, ok := d.byCode[c.Code]; ok {
			delete(d.byName, old.Name)
		}
		d.byCode[c.Code] = c
		d.byName[c.Name] = c
	}
	d.mu.Unlock()
	return stats
}

func parseCountryLine(line string) (Country, bool) {
	fields := strings.SplitN(line, ":", 3)
	if len(fields) < 2 {
		return Country{}, false
	}
	c := Country{
		Code: strings.TrimSpace(fields[0]),
		Name: strings.TrimSpace(fields[1]),
	}
	if c.Code == "" || c.Name == "" {
		return Country{}, false
	}
	if len(fields) == 3 {
		for _, box := range strings.Split(fields[2], "|") {
			if b, ok := parseBound(box); ok {
				c.Bounds = append(c.Bounds, b)
			}
		}
	}
	return c, true
}

func parseBound(s string) (orb.Bound, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return orb.Bound{}, false
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, false
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, true
}

// RegisterSynthetic adds a point that resolves to a country with no city or
// province, such as an overlay centroid.
func (d *Directory) RegisterSynthetic(p domain.PointID, country string) {
	if p.IsPlaceholder() || country == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.records[p]; !ok {
		d.records[p] = domain.Place{Country: country}
	}
}

// Country returns the table row for an ISO code.
func (d *Directory) Country(code string) (Country, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byCode[code]
	return c, ok
}

// CountryName implements domain.CountryNamer.
func (d *Directory) CountryName(code string) (string, bool) {
	c, ok := d.Country(code)
	return c.Name, ok
}

// CountryCenter implements domain.CountryLocator using the center of the
// country's main bounding box.
func (d *Directory) CountryCenter(name string) (domain.PointID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byName[name]
	if !ok || len(c.Bounds) == 0 {
		return domain.PointID{}, false
	}
	return domain.PointFromOrb(c.Bounds[0].Center()), true
}

// Len returns the number of known points.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Countries returns the number of known countries.
func (d *Directory) Countries() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byCode)
}
