package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/casemap-service/internal/adapter/geojson"
	"github.com/couchcryptid/casemap-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// TimelineIndexHeader carries the timeline position of the served date so a
// scrubber can follow the map.
const TimelineIndexHeader = "X-Timeline-Index"

type datesResponse struct {
	Dates  []string `json:"dates"`
	Latest string   `json:"latest,omitempty"`
}

type bucketsResponse struct {
	Date    string                            `json:"date"`
	Tier    domain.Tier                       `json:"tier"`
	Buckets map[string]domain.AggregateBucket `json:"buckets"`
}

type historyResponse struct {
	GeoID   domain.PointID      `json:"geoid"`
	History []domain.DatedCount `json:"history"`
}

type countriesResponse struct {
	Countries []domain.OverlayEntry `json:"countries"`
}

type summaryResponse struct {
	Headline *domain.Headline      `json:"headline"`
	Latest   string                `json:"latest,omitempty"`
	Dates    int                   `json:"dates"`
	Backfill domain.BackfillStatus `json:"backfill"`
}

func (s *Server) handleDates(w http.ResponseWriter, _ *http.Request) {
	latest, _ := s.store.Latest()
	sharedobs.WriteJSON(w, http.StatusOK, datesResponse{Dates: s.store.Dates(), Latest: latest})
}

// handleFeatures serves the GeoJSON the map draws. zoom defaults to +Inf,
// which always selects the atomic tier.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	date, ok := s.resolveDate(w, r)
	if !ok {
		return
	}

	zoom := math.Inf(1)
	if z := r.URL.Query().Get("zoom"); z != "" {
		parsed, err := strconv.ParseFloat(z, 64)
		if err != nil || math.IsNaN(parsed) {
			writeError(w, http.StatusBadRequest, "invalid zoom")
			return
		}
		zoom = parsed
	}

	fs := s.selector.Select(date, zoom, s.store.IsLatest(date))
	if pos, ok := s.store.Position(date); ok {
		w.Header().Set(TimelineIndexHeader, strconv.Itoa(pos))
	}
	sharedobs.WriteJSON(w, http.StatusOK, geojson.Encode(fs))
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	tier := domain.Tier(r.PathValue("tier"))
	if tier != domain.TierProvince && tier != domain.TierCountry {
		writeError(w, http.StatusBadRequest, "tier must be province or country")
		return
	}
	date, ok := s.resolveDate(w, r)
	if !ok {
		return
	}

	var buckets map[string]domain.AggregateBucket
	var found bool
	if tier == domain.TierProvince {
		buckets, found = s.store.ProvinceBuckets(date)
	} else {
		buckets, found = s.store.CountryBuckets(date)
	}
	if !found {
		writeError(w, http.StatusNotFound, "no snapshot for "+date)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, bucketsResponse{Date: date, Tier: tier, Buckets: buckets})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	p, err := domain.ParsePointID(r.URL.Query().Get("point"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "point must be lat|lon")
		return
	}
	history := s.store.History(p)
	if history == nil {
		history = []domain.DatedCount{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, historyResponse{GeoID: p, History: history})
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	countries := s.store.OverlayEntries()
	if countries == nil {
		countries = []domain.OverlayEntry{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, countriesResponse{Countries: countries})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	resp := summaryResponse{
		Dates:    len(s.store.Dates()),
		Backfill: s.backfill.Status(),
	}
	resp.Latest, _ = s.store.Latest()
	if h, ok := s.store.Headline(); ok {
		resp.Headline = &h
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// resolveDate reads the date query parameter, defaulting to the latest
// stored date. It writes the error response itself and reports false on
// failure.
// resolveDate picks the date a request is about: the date parameter, a
// timeline position given as index (oldest first), or the latest date.
func (s *Server) resolveDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query()
	date, index := q.Get("date"), q.Get("index")
	switch {
	case date != "" && index != "":
		writeError(w, http.StatusBadRequest, "date and index are mutually exclusive")
		return "", false
	case index != "":
		i, err := strconv.Atoi(index)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid index")
			return "", false
		}
		d, ok := s.store.DateAt(i)
		if !ok {
			writeError(w, http.StatusNotFound, "no snapshot at index")
			return "", false
		}
		return d, true
	case date == "":
		latest, ok := s.store.Latest()
		if !ok {
			writeError(w, http.StatusNotFound, "no snapshots stored yet")
			return "", false
		}
		return latest, true
	}

	normalized, err := domain.NormalizeDate(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return "", false
	}
	return normalized, true
}
