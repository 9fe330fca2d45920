// Package geojson renders feature sets as GeoJSON FeatureCollections, the
// format map clients consume.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// Encode converts a feature set to a FeatureCollection of points. Each
// feature carries geoid, total, and new properties, plus name for country
// points. The date and tier are foreign members of the collection.
func Encode(fs domain.FeatureSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range fs.Points {
		f := geojson.NewFeature(p.Point.Orb())
		f.ID = p.Point.String()
		f.Properties["geoid"] = p.Point.String()
		f.Properties["total"] = p.Total
		f.Properties["new"] = p.New
		if p.Name != "" {
			f.Properties["name"] = p.Name
		}
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{
		"date": fs.Date,
		"tier": string(fs.Tier),
	}
	return fc
}

// Sink writes each rendered feature set to w as one JSON document.
type Sink struct {
	w io.Writer
}

// NewSink creates a Sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Render implements domain.RenderSink.
func (s *Sink) Render(fs domain.FeatureSet) error {
	if err := json.NewEncoder(s.w).Encode(Encode(fs)); err != nil {
		return fmt.Errorf("render %s features for %s: %w", fs.Tier, fs.Date, err)
	}
	return nil
}
