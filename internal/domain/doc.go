// Package domain models geotagged epidemiological case counts and the rules
// for rolling them up into coarser geographic tiers.
//
// # Data Source
//
// Case counts arrive as one JSON document per calendar day (a "daily
// slice"). The newest slice is published as d/latest.json and older ones as
// d/YYYY.MM.DD.json:
//
//	{"date": "2020-03-15", "features": [
//	  {"properties": {"geoid": "45.4642|9.19", "total": 10, "new": 2}},
//	  ...
//	]}
//
// "new" is omitted when zero. Features that lack properties entirely are
// carried under the placeholder point "0|0" and later dropped.
//
// # Point Identifiers
//
// Upstream identifies a location by the string "lat|lon". String equality on
// formatted floats is fragile ("45.10" vs "45.1"), so [PointID] stores both
// coordinates as integers scaled by 1e6 and compares those. See
// [ParsePointID].
//
// # Granularity Tiers
//
// Each stored [DaySnapshot] holds three views of the same observations:
//
//	atomic    one entry per resolvable point
//	province  sums keyed by province name ("" for country-only records)
//	country   sums keyed by country name
//
// Features whose point is unknown to the location directory are excluded
// from every tier, so for each date the province and country totals both
// equal the atomic total. [Aggregate] builds all three in a single pass.
//
// # Display Policy
//
// [Selector] serves the country tier only when the map is zoomed out to the
// threshold or below AND the requested date is the newest known date;
// everything else gets the atomic tier. Country points are positioned at the
// overlay centroid when one is known, otherwise at the center of the
// country's main bounding box. Daily deltas are reported as zero in that
// mode.
//
// # Counts
//
// Counts are non-negative integers. Missing, null, negative, or non-numeric
// counts become 0. Overlay totals may arrive as formatted strings
// ("12,345"); thousands separators are stripped. See [Count].
package domain
