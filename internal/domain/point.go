package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// coordScale converts degrees to the integer micro-degree grid used for keys.
const coordScale = 1e6

// PointID identifies a geographic point by its coordinates rounded to
// micro-degrees. Two identifiers are equal exactly when their rounded
// coordinates are equal, so PointID is safe to use as a map key.
type PointID struct {
	LatE6 int64
	LonE6 int64
}

// Placeholder is the point assigned to features that carry no location.
// It never resolves in a location directory.
var Placeholder = PointID{}

// NewPointID builds a PointID from latitude and longitude in degrees.
func NewPointID(lat, lon float64) PointID {
	return PointID{
		LatE6: int64(math.Round(lat * coordScale)),
		LonE6: int64(math.Round(lon * coordScale)),
	}
}

// PointFromOrb converts an orb point ([lon, lat]) to a PointID.
func PointFromOrb(p orb.Point) PointID {
	return NewPointID(p.Lat(), p.Lon())
}

// ParsePointID parses the upstream "lat|lon" form, e.g. "45.4642|9.19".
func ParsePointID(s string) (PointID, error) {
	latStr, lonStr, ok := strings.Cut(strings.TrimSpace(s), "|")
	if !ok {
		return PointID{}, fmt.Errorf("parse point id %q: missing '|' separator", s)
	}
	lat, err := parseCoordinate(latStr)
	if err != nil {
		return PointID{}, fmt.Errorf("parse point id %q: latitude: %w", s, err)
	}
	lon, err := parseCoordinate(lonStr)
	if err != nil {
		return PointID{}, fmt.Errorf("parse point id %q: longitude: %w", s, err)
	}
	return NewPointID(lat, lon), nil
}

func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite coordinate %q", s)
	}
	return v, nil
}

// Lat returns the latitude in degrees.
func (p PointID) Lat() float64 { return float64(p.LatE6) / coordScale }

// Lon returns the longitude in degrees.
func (p PointID) Lon() float64 { return float64(p.LonE6) / coordScale }

// Orb returns the point in orb's [lon, lat] order.
func (p PointID) Orb() orb.Point { return orb.Point{p.Lon(), p.Lat()} }

// IsPlaceholder reports whether p is the no-location placeholder.
func (p PointID) IsPlaceholder() bool { return p == Placeholder }

// String formats the point in the upstream "lat|lon" form with the shortest
// decimal representation of each coordinate.
func (p PointID) String() string {
	return strconv.FormatFloat(p.Lat(), 'f', -1, 64) + "|" + strconv.FormatFloat(p.Lon(), 'f', -1, 64)
}

// MarshalText implements encoding.TextMarshaler so PointIDs serialize as
// "lat|lon" strings, including as JSON map keys.
func (p PointID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PointID) UnmarshalText(text []byte) error {
	parsed, err := ParsePointID(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
