package http

import (
	"net/http"

	"fintrack/internal/core"
)

func overviewKey(ownerID string) string { return ownerID + ":overview" }
func trendKey(ownerID string) string    { return ownerID + ":trend" }

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	key := overviewKey(ownerID)
	if cached, ok := s.overviewCache.Get(key); ok {
		NewResponse().Header("X-Cache", "HIT").Data(cached).Write(w)
		return
	}

	overview, err := s.svc.Stats.Overview(r.Context(), ownerID)
	if err != nil {
		respondError(w, r, "stats_overview", err)
		return
	}
	s.overviewCache.Set(key, overview)
	NewResponse().Header("X-Cache", "MISS").Data(overview).Write(w)
}

func (s *Server) handleStatsTrend(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	key := trendKey(ownerID)
	trend, ok := s.trendCache.Get(key)
	cacheStatus := "HIT"
	if !ok {
		var err error
		trend, err = s.svc.Stats.Trend(r.Context(), ownerID)
		if err != nil {
			respondError(w, r, "stats_trend", err)
			return
		}
		if trend == nil {
			trend = []core.TrendPoint{}
		}
		s.trendCache.Set(key, trend)
		cacheStatus = "MISS"
	}
	NewResponse().Header("X-Cache", cacheStatus).Data(map[string]any{"trend": trend}).Write(w)
}
