// Command validate runs the backfill against a local feed mirror and checks
// the integrity of the result: timeline ordering, conservation of totals
// across tiers, and the display policy of the selector.
//
// Usage:
//
//	go run ./cmd/validate -feed-dir internal/pipeline/testdata/feed \
//	  -today 2020-03-03 -geojson latest.geojson
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/casemap-service/internal/adapter/feed"
	"github.com/couchcryptid/casemap-service/internal/adapter/geojson"
	"github.com/couchcryptid/casemap-service/internal/directory"
	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/observability"
	"github.com/couchcryptid/casemap-service/internal/pipeline"
	"github.com/couchcryptid/casemap-service/internal/store"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedDir := flag.String("feed-dir", "", "directory mirroring the upstream feed layout")
	today := flag.String("today", "", "pin the clock to this date (YYYY-MM-DD)")
	zoom := flag.Float64("zoom-threshold", domain.DefaultZoomThreshold, "zoom at or below which countries are shown")
	geojsonOut := flag.String("geojson", "", "write the latest low-zoom feature set to this file")
	flag.Parse()

	if *feedDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*feedDir, *today, *zoom, *geojsonOut); code != 0 {
		os.Exit(code)
	}
}

func run(feedDir, today string, zoom float64, geojsonOut string) int {
	if today != "" {
		t, err := domain.ParseDate(today)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -today: %v\n", err)
			return 1
		}
		domain.SetClock(clockwork.NewFakeClockAt(t.Add(12 * time.Hour)))
		defer domain.SetClock(nil)
	}

	fmt.Println("=== Case Map Integrity Validation ===")
	fmt.Println()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	source := feed.NewDirFetcher(feedDir)
	dir := directory.New()
	st := store.New()

	loader := pipeline.NewLoader(source, dir, st, logger, metrics)
	if err := loader.LoadDirectory(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load directory: %v\n", err)
		return 1
	}
	loader.LoadOverlays(ctx)

	p := pipeline.New(source, pipeline.NewTransformer(dir, logger), st, logger, metrics)
	status, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: backfill: %v\n", err)
		return 1
	}

	selector := domain.NewSelector(st, dir, domain.SelectorConfig{ZoomThreshold: zoom})

	phases := []*phase{
		validateWalk(status, st),
		validateConservation(st),
		validateSelector(st, selector, zoom),
	}
	if geojsonOut != "" {
		phases = append(phases, renderLatest(st, selector, zoom, geojsonOut))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Directory: %d locations, %d countries. Walk: %d stored, %d skipped, ended at %q\n",
		dir.Len(), dir.Countries(), status.Stored, status.Skipped, status.Date)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Walk ──
// The walk must terminate and leave an ascending, duplicate-free timeline.

func validateWalk(status domain.BackfillStatus, st *store.Store) *phase {
	p := &phase{name: "Phase 1: Backfill walk and timeline"}

	if status.State != domain.WalkExhausted {
		p.errorf("walk ended in state %q, want %q", status.State, domain.WalkExhausted)
	}
	dates := st.Dates()
	if len(dates) != status.Stored {
		p.errorf("timeline has %d dates, walk stored %d", len(dates), status.Stored)
	}
	if len(dates) == 0 {
		p.errorf("no snapshots stored")
		return p
	}
	for i := 1; i < len(dates); i++ {
		if dates[i-1] >= dates[i] {
			p.errorf("timeline out of order at %d: %s >= %s", i, dates[i-1], dates[i])
		}
	}
	if latest, ok := st.Latest(); !ok || latest != dates[len(dates)-1] {
		p.errorf("latest = %q, want last timeline date %q", latest, dates[len(dates)-1])
	}
	if status.Date != "" && slices.Contains(dates, status.Date) {
		p.errorf("walk ended at %s but that date was stored", status.Date)
	}
	return p
}

// ── Phase 2: Conservation ──
// Every tier of a snapshot must sum to the same totals.

func validateConservation(st *store.Store) *phase {
	p := &phase{name: "Phase 2: Tier conservation"}

	for _, date := range st.Dates() {
		snap, ok := st.Snapshot(date)
		if !ok {
			p.errorf("%s: listed in timeline but not stored", date)
			continue
		}
		atomic := domain.AtomicTotals(snap.Atomic)
		if got := domain.Totals(snap.Province); got != atomic {
			p.errorf("%s: province totals %+v != atomic %+v", date, got, atomic)
		}
		if got := domain.Totals(snap.Country); got != atomic {
			p.errorf("%s: country totals %+v != atomic %+v", date, got, atomic)
		}
		for _, f := range snap.Atomic {
			if f.Point.IsPlaceholder() {
				p.errorf("%s: placeholder point in atomic tier", date)
			}
			if f.Total < 0 || f.New < 0 {
				p.errorf("%s: negative count at %s", date, f.Point)
			}
		}
	}
	return p
}

// ── Phase 3: Selector ──
// Low zoom on the latest date shows countries; everything else is atomic.

func validateSelector(st *store.Store, sel *domain.Selector, zoom float64) *phase {
	p := &phase{name: "Phase 3: Display policy"}

	dates := st.Dates()
	if len(dates) == 0 {
		p.errorf("no dates to select")
		return p
	}
	latest := dates[len(dates)-1]

	low := sel.Select(latest, zoom, true)
	if low.Tier != domain.TierCountry {
		p.errorf("latest at zoom %v: tier %q, want %q", zoom, low.Tier, domain.TierCountry)
	}
	for _, pt := range low.Points {
		if pt.New != 0 {
			p.errorf("country point %s has new = %d, want 0", pt.Name, pt.New)
		}
	}

	for _, date := range dates {
		snap, _ := st.Snapshot(date)
		high := sel.Select(date, math.Inf(1), st.IsLatest(date))
		if high.Tier != domain.TierAtomic {
			p.errorf("%s at max zoom: tier %q, want %q", date, high.Tier, domain.TierAtomic)
		}
		if len(high.Points) != len(snap.Atomic) {
			p.errorf("%s at max zoom: %d points, snapshot has %d", date, len(high.Points), len(snap.Atomic))
		}
		if date == latest {
			continue
		}
		if hist := sel.Select(date, zoom, false); hist.Tier != domain.TierAtomic {
			p.errorf("%s at zoom %v: historical date served tier %q", date, zoom, hist.Tier)
		}
	}
	return p
}

// ── Phase 4: Render ──

func renderLatest(st *store.Store, sel *domain.Selector, zoom float64, path string) *phase {
	p := &phase{name: "Phase 4: GeoJSON render"}

	latest, ok := st.Latest()
	if !ok {
		p.errorf("no latest date to render")
		return p
	}
	f, err := os.Create(path)
	if err != nil {
		p.errorf("create %s: %v", path, err)
		return p
	}
	defer f.Close()

	if err := geojson.NewSink(f).Render(sel.Select(latest, zoom, true)); err != nil {
		p.errorf("render: %v", err)
	}
	return p
}
