package domain

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
)

// CountryNamer translates ISO country codes to display names.
type CountryNamer interface {
	CountryName(code string) (string, bool)
}

// RawOverlay is the wire schema of the country-centroid overlay feed.
type RawOverlay struct {
	Features []RawOverlayFeature `json:"features" validate:"required"`
}

// RawOverlayFeature is one country record of the overlay feed.
type RawOverlayFeature struct {
	Attributes *struct {
		Code    string `json:"code"`
		CumConf Count  `json:"cum_conf"`
	} `json:"attributes"`
	Centroid *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	} `json:"centroid"`
}

// ParseOverlay parses the country-centroid overlay. Records without
// attributes or centroid, and records whose code the namer does not know,
// are skipped. A missing centroid coordinate defaults to 0. Entries are
// returned sorted by decreasing count, ties by name.
func ParseOverlay(payload []byte, namer CountryNamer) ([]OverlayEntry, error) {
	var raw RawOverlay
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, newParseError("overlay", "invalid JSON", err)
	}
	if err := validate.Struct(raw); err != nil {
		return nil, newParseError("overlay", "schema mismatch", err)
	}

	entries := make([]OverlayEntry, 0, len(raw.Features))
	for _, f := range raw.Features {
		if f.Attributes == nil || f.Centroid == nil {
			continue
		}
		code := strings.TrimSpace(f.Attributes.Code)
		name, ok := namer.CountryName(code)
		if !ok {
			continue
		}
		var lat, lon float64
		if f.Centroid.Y != nil {
			lat = *f.Centroid.Y
		}
		if f.Centroid.X != nil {
			lon = *f.Centroid.X
		}
		entries = append(entries, OverlayEntry{
			Point: NewPointID(lat, lon),
			Code:  code,
			Name:  name,
			Count: int64(f.Attributes.CumConf),
		})
	}
	SortOverlay(entries)
	return entries, nil
}

// SortOverlay orders entries by decreasing count, then by name.
func SortOverlay(entries []OverlayEntry) {
	slices.SortStableFunc(entries, func(a, b OverlayEntry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

type rawHeadline struct {
	CaseCount Count  `json:"caseCount"`
	Date      string `json:"date" validate:"required"`
}

// ParseHeadline parses latestCounts.json, a one-element list holding the
// global case count and the date it was computed.
func ParseHeadline(payload []byte) (Headline, error) {
	var raw []rawHeadline
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Headline{}, newParseError("headline", "invalid JSON", err)
	}
	if len(raw) == 0 {
		return Headline{}, newParseError("headline", "empty list", nil)
	}
	if err := validate.Struct(raw[0]); err != nil {
		return Headline{}, newParseError("headline", "schema mismatch", err)
	}
	date, err := NormalizeDate(raw[0].Date)
	if err != nil {
		return Headline{}, newParseError("headline", "bad date", err)
	}
	return Headline{CaseCount: int64(raw[0].CaseCount), Date: date}, nil
}
