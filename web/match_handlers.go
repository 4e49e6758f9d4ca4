package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"livematch-service/services"
)

// FieldView 单字段的值和出处
type FieldView struct {
	Value     *int64 `json:"value"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// ScoreView 比分及分段构成
type ScoreView struct {
	Total     int    `json:"total"`
	Regular   int    `json:"regular"`
	Overtime  int    `json:"overtime"`
	Penalty   int    `json:"penalty"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// MatchView 对外的协调后比赛状态
type MatchView struct {
	ExternalID string    `json:"external_id"`
	Status     int       `json:"status"`
	StatusName string    `json:"status_name"`
	StatusMeta FieldView `json:"status_meta"`
	HomeScore  ScoreView `json:"home_score"`
	AwayScore  ScoreView `json:"away_score"`
	Minute     FieldView `json:"minute"`

	FirstHalfKickoffTS  *int64 `json:"first_half_kickoff_ts"`
	SecondHalfKickoffTS *int64 `json:"second_half_kickoff_ts"`
	OvertimeKickoffTS   *int64 `json:"overtime_kickoff_ts"`
}

func fieldView(st services.FieldState) FieldView {
	v := FieldView{Source: string(st.Source), Timestamp: st.Timestamp}
	if st.Valid {
		value := st.Value
		v.Value = &value
	}
	return v
}

func anchorValue(st services.FieldState) *int64 {
	if !st.Valid {
		return nil
	}
	v := st.Value
	return &v
}

func matchView(m *services.MatchState) MatchView {
	status := services.Status(m.Status.Value)
	return MatchView{
		ExternalID: m.ExternalID,
		Status:     int(m.Status.Value),
		StatusName: status.String(),
		StatusMeta: fieldView(m.Status),
		HomeScore: ScoreView{
			Total:     int(m.HomeScore.Value),
			Regular:   m.HomeDetail.Regular,
			Overtime:  m.HomeDetail.Overtime,
			Penalty:   m.HomeDetail.Penalty,
			Source:    string(m.HomeScore.Source),
			Timestamp: m.HomeScore.Timestamp,
		},
		AwayScore: ScoreView{
			Total:     int(m.AwayScore.Value),
			Regular:   m.AwayDetail.Regular,
			Overtime:  m.AwayDetail.Overtime,
			Penalty:   m.AwayDetail.Penalty,
			Source:    string(m.AwayScore.Source),
			Timestamp: m.AwayScore.Timestamp,
		},
		Minute:              fieldView(m.Minute),
		FirstHalfKickoffTS:  anchorValue(m.FirstHalfKickoff),
		SecondHalfKickoffTS: anchorValue(m.SecondHalfKickoff),
		OvertimeKickoffTS:   anchorValue(m.OvertimeKickoff),
	}
}

// handleGetLiveMatches 查询进行中的比赛(带短TTL缓存)
func (s *Server) handleGetLiveMatches(w http.ResponseWriter, r *http.Request) {
	cacheKey := "live_matches"
	if cached, ok := s.cache.Get(cacheKey); ok {
		writeJSON(w, cached)
		return
	}

	matches, err := s.store.LiveMatches()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, matchView(m))
	}

	response := map[string]interface{}{
		"count":   len(views),
		"matches": views,
	}
	s.cache.Set(cacheKey, response)
	writeJSON(w, response)
}

// handleGetMatch 按external_id查询单场比赛
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["external_id"]

	m, err := s.store.GetMatch(externalID)
	if err == services.ErrMatchNotFound {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, matchView(m))
}

// handleGetMatchEvents 查询一场比赛最近的字段变更
func (s *Server) handleGetMatchEvents(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["external_id"]
	limit := parseLimit(r, 50)

	events, err := s.store.ListChangeEvents(externalID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"external_id": externalID,
		"count":       len(events),
		"events":      events,
	})
}

// handleGetIncidents 查询最近的异常记录
func (s *Server) handleGetIncidents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	incidents, err := s.store.ListIncidents(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"count":     len(incidents),
		"incidents": incidents,
	})
}

func parseLimit(r *http.Request, def int) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = def
	}
	return limit
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
