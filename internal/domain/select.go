package domain

import (
	"slices"
	"strings"
)

// DefaultZoomThreshold is the zoom level at or below which the latest date
// is shown per country.
const DefaultZoomThreshold = 2

// SnapshotSource gives the selector read access to stored tiers.
type SnapshotSource interface {
	Snapshot(date string) (DaySnapshot, bool)
	OverlayEntries() []OverlayEntry
}

// CountryLocator returns a representative coordinate for a country name.
type CountryLocator interface {
	CountryCenter(name string) (PointID, bool)
}

// SelectorConfig tunes the display policy.
type SelectorConfig struct {
	ZoomThreshold float64

	// HistoricalCountryTier also serves country rollups for dates other
	// than the latest. Off by default.
	HistoricalCountryTier bool
}

// Selector decides which tier to serve for a (date, zoom) request.
type Selector struct {
	source  SnapshotSource
	locator CountryLocator
	cfg     SelectorConfig
}

// NewSelector creates a Selector. locator may be nil, in which case country
// rollups without an overlay entry have no coordinate and are omitted.
func NewSelector(source SnapshotSource, locator CountryLocator, cfg SelectorConfig) *Selector {
	return &Selector{source: source, locator: locator, cfg: cfg}
}

// Select returns the features to render. At zoom <= threshold on the latest
// date it returns one point per country with New = 0: the overlay when one
// is loaded, otherwise the latest snapshot's country buckets placed at each
// country's center. In every other case it returns the atomic tier of date,
// which is empty for unknown dates.
func (s *Selector) Select(date string, zoom float64, isLatest bool) FeatureSet {
	if zoom <= s.cfg.ZoomThreshold {
		switch {
		case isLatest:
			if overlay := s.source.OverlayEntries(); len(overlay) > 0 {
				return overlayFeatureSet(date, overlay)
			}
			return s.countryFeatureSet(date)
		case s.cfg.HistoricalCountryTier:
			return s.countryFeatureSet(date)
		}
	}
	return s.atomicFeatureSet(date)
}

func (s *Selector) atomicFeatureSet(date string) FeatureSet {
	fs := FeatureSet{Date: date, Tier: TierAtomic, Points: []FeaturePoint{}}
	snap, ok := s.source.Snapshot(date)
	if !ok {
		return fs
	}
	fs.Points = make([]FeaturePoint, 0, len(snap.Atomic))
	for _, f := range snap.Atomic {
		fs.Points = append(fs.Points, FeaturePoint{Point: f.Point, Total: f.Total, New: f.New})
	}
	return fs
}

func (s *Selector) countryFeatureSet(date string) FeatureSet {
	fs := FeatureSet{Date: date, Tier: TierCountry, Points: []FeaturePoint{}}
	snap, ok := s.source.Snapshot(date)
	if !ok || s.locator == nil {
		return fs
	}
	for name, b := range snap.Country {
		center, ok := s.locator.CountryCenter(name)
		if !ok {
			continue
		}
		fs.Points = append(fs.Points, FeaturePoint{Point: center, Name: name, Total: b.Total})
	}
	slices.SortFunc(fs.Points, func(a, b FeaturePoint) int { return strings.Compare(a.Name, b.Name) })
	return fs
}

func overlayFeatureSet(date string, overlay []OverlayEntry) FeatureSet {
	points := make([]FeaturePoint, 0, len(overlay))
	for _, e := range overlay {
		points = append(points, FeaturePoint{Point: e.Point, Name: e.Name, Total: e.Count})
	}
	return FeatureSet{Date: date, Tier: TierCountry, Points: points}
}

// RenderSink draws a feature set. The core never depends on how.
type RenderSink interface {
	Render(fs FeatureSet) error
}
