package domain

// Resolver looks up the place a point belongs to. Implementations return
// false for unknown points and must never resolve Placeholder.
type Resolver interface {
	Resolve(p PointID) (Place, bool)
}

// Aggregate rolls a normalized slice up into a DaySnapshot. Features whose
// point does not resolve are excluded from every tier and counted in
// Unresolved. Buckets are created on first contribution, so a place appears
// in a tier only if at least one resolvable feature maps to it.
func Aggregate(slice NormalizedSlice, r Resolver) DaySnapshot {
	snap := DaySnapshot{
		Date:     slice.Date,
		Atomic:   make([]AtomicFeature, 0, len(slice.Features)),
		Province: make(map[string]AggregateBucket),
		Country:  make(map[string]AggregateBucket),
	}

	for _, f := range slice.Features {
		place, ok := resolve(r, f.Point)
		if !ok {
			snap.Unresolved++
			continue
		}
		snap.Atomic = append(snap.Atomic, f)
		snap.Province[place.Province] = snap.Province[place.Province].add(f)
		snap.Country[place.Country] = snap.Country[place.Country].add(f)
	}
	return snap
}

func resolve(r Resolver, p PointID) (Place, bool) {
	if r == nil || p.IsPlaceholder() {
		return Place{}, false
	}
	return r.Resolve(p)
}

// Totals sums a tier's buckets.
func Totals(buckets map[string]AggregateBucket) AggregateBucket {
	var sum AggregateBucket
	for _, b := range buckets {
		sum.Total += b.Total
		sum.New += b.New
	}
	return sum
}

// AtomicTotals sums the atomic tier of a snapshot.
func AtomicTotals(features []AtomicFeature) AggregateBucket {
	var sum AggregateBucket
	for _, f := range features {
		sum = sum.add(f)
	}
	return sum
}
