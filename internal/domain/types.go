package domain

import (
	"maps"
	"slices"
	"time"
)

// Tier names the granularity at which case counts are presented.
type Tier string

const (
	TierAtomic   Tier = "atomic"
	TierProvince Tier = "province"
	TierCountry  Tier = "country"
)

// Place is the resolved description of a point. City and Province may be
// empty; Country is a display name, or an ISO code the directory could not
// translate.
type Place struct {
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country"`
}

// AtomicFeature is one geotagged observation for one date.
type AtomicFeature struct {
	Point PointID `json:"geoid"`
	Total int64   `json:"total"`
	New   int64   `json:"new"`
}

// AggregateBucket is a rolled-up total/new pair for one place at one tier.
type AggregateBucket struct {
	Total int64 `json:"total"`
	New   int64 `json:"new"`
}

func (b AggregateBucket) add(f AtomicFeature) AggregateBucket {
	b.Total += f.Total
	b.New += f.New
	return b
}

// NormalizedSlice is a parsed daily slice before location resolution.
type NormalizedSlice struct {
	Date     string
	Features []AtomicFeature
}

// DaySnapshot holds the three tiers for one date. A stored snapshot is never
// mutated; re-ingesting a date replaces it whole.
type DaySnapshot struct {
	Date       string                     `json:"date"`
	Atomic     []AtomicFeature            `json:"atomic"`
	Province   map[string]AggregateBucket `json:"province"`
	Country    map[string]AggregateBucket `json:"country"`
	Unresolved int                        `json:"unresolved"`
}

// Clone returns a deep copy safe to hand to callers that may mutate it.
func (s DaySnapshot) Clone() DaySnapshot {
	out := s
	out.Atomic = append([]AtomicFeature(nil), s.Atomic...)
	out.Province = maps.Clone(s.Province)
	out.Country = maps.Clone(s.Country)
	return out
}

// Equal reports whether two snapshots carry the same date and tiers.
func (s DaySnapshot) Equal(o DaySnapshot) bool {
	return s.Date == o.Date &&
		s.Unresolved == o.Unresolved &&
		slices.Equal(s.Atomic, o.Atomic) &&
		maps.Equal(s.Province, o.Province) &&
		maps.Equal(s.Country, o.Country)
}

// PutOutcome is what storing a snapshot did to the store.
type PutOutcome int

const (
	SnapshotAdded     PutOutcome = iota // first snapshot for its date
	SnapshotReplaced                    // different content replaced an earlier snapshot
	SnapshotUnchanged                   // identical to the stored snapshot; nothing written
)

// FeaturePoint is one renderable point. Name is set for country-tier points.
type FeaturePoint struct {
	Point PointID `json:"geoid"`
	Name  string  `json:"name,omitempty"`
	Total int64   `json:"total"`
	New   int64   `json:"new"`
}

// FeatureSet is what the selector hands to a render sink.
type FeatureSet struct {
	Date   string         `json:"date"`
	Tier   Tier           `json:"tier"`
	Points []FeaturePoint `json:"points"`
}

// DatedCount is one point of a per-location time series.
type DatedCount struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
	New   int64  `json:"new"`
}

// OverlayEntry is the latest known cumulative total for one country,
// positioned at the country's centroid.
type OverlayEntry struct {
	Point PointID `json:"geoid"`
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Count int64   `json:"count"`
}

// Headline is the global case count published alongside the slices.
type Headline struct {
	CaseCount int64  `json:"case_count"`
	Date      string `json:"date"`
}

// WalkState is a state of the backfill walk.
type WalkState string

const (
	WalkIdle      WalkState = "idle"
	WalkFetching  WalkState = "fetching"
	WalkExhausted WalkState = "exhausted"
)

// BackfillStatus summarizes the most recent backfill walk.
type BackfillStatus struct {
	State      WalkState `json:"state"`
	Date       string    `json:"date,omitempty"` // date being fetched, or where the walk ended
	Stored     int       `json:"stored"`
	Skipped    int       `json:"skipped"`
	Runs       int       `json:"runs"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}
