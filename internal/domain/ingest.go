package domain

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RawSlice is the wire schema of a daily slice. Both fields must be present;
// an empty feature list is valid.
type RawSlice struct {
	Date     string       `json:"date" validate:"required"`
	Features []RawFeature `json:"features" validate:"required"`
}

// RawFeature is one feature record of a daily slice.
type RawFeature struct {
	Properties *RawProperties `json:"properties"`
}

// RawProperties carries the location key and counts of a feature.
type RawProperties struct {
	GeoID string `json:"geoid"`
	Total Count  `json:"total"`
	New   Count  `json:"new"`
}

// Normalize parses one day's raw payload. Features without properties or
// with an unparsable geoid are kept under the Placeholder point so they can
// be counted and dropped during aggregation. Malformed counts become 0. A
// payload that is not JSON, or lacks the date or features field, fails with
// a *ParseError.
func Normalize(payload []byte) (NormalizedSlice, error) {
	var raw RawSlice
	if err := json.Unmarshal(payload, &raw); err != nil {
		return NormalizedSlice{}, newParseError("daily slice", "invalid JSON", err)
	}
	if err := validate.Struct(raw); err != nil {
		return NormalizedSlice{}, newParseError("daily slice", "schema mismatch", err)
	}

	date, err := NormalizeDate(raw.Date)
	if err != nil {
		return NormalizedSlice{}, newParseError("daily slice", "bad date", err)
	}

	features := make([]AtomicFeature, 0, len(raw.Features))
	for _, rf := range raw.Features {
		features = append(features, normalizeFeature(rf))
	}
	return NormalizedSlice{Date: date, Features: features}, nil
}

func normalizeFeature(rf RawFeature) AtomicFeature {
	if rf.Properties == nil {
		return AtomicFeature{Point: Placeholder}
	}
	point := Placeholder
	if id := strings.TrimSpace(rf.Properties.GeoID); id != "" {
		if p, err := ParsePointID(id); err == nil {
			point = p
		}
	}
	return AtomicFeature{
		Point: point,
		Total: int64(rf.Properties.Total),
		New:   int64(rf.Properties.New),
	}
}
