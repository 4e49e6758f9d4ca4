package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrMatchNotFound 比赛不存在
var ErrMatchNotFound = errors.New("match not found")

// MatchState 一场比赛的协调后状态（含每字段来源/观测时间）
type MatchState struct {
	ExternalID string

	Status     FieldState
	HomeScore  FieldState
	HomeDetail ScoreDetail
	AwayScore  FieldState
	AwayDetail ScoreDetail
	Minute     FieldState

	FirstHalfKickoff  FieldState
	SecondHalfKickoff FieldState
	OvertimeKickoff   FieldState

	UpdatedAt time.Time
}

// Field 取某个跟踪字段的当前状态
func (m *MatchState) Field(f Field) FieldState {
	switch f {
	case FieldStatus:
		return m.Status
	case FieldHomeScore:
		return m.HomeScore
	case FieldAwayScore:
		return m.AwayScore
	case FieldMinute:
		return m.Minute
	case FieldFirstHalfKickoff:
		return m.FirstHalfKickoff
	case FieldSecondHalfKickoff:
		return m.SecondHalfKickoff
	case FieldOvertimeKickoff:
		return m.OvertimeKickoff
	}
	return FieldState{}
}

// setField 更新内存副本，批处理过程中保持和库内一致
func (m *MatchState) setField(f Field, st FieldState, detail *ScoreDetail) {
	switch f {
	case FieldStatus:
		m.Status = st
	case FieldHomeScore:
		m.HomeScore = st
		if detail != nil {
			m.HomeDetail = *detail
		}
	case FieldAwayScore:
		m.AwayScore = st
		if detail != nil {
			m.AwayDetail = *detail
		}
	case FieldMinute:
		m.Minute = st
	case FieldFirstHalfKickoff:
		m.FirstHalfKickoff = st
	case FieldSecondHalfKickoff:
		m.SecondHalfKickoff = st
	case FieldOvertimeKickoff:
		m.OvertimeKickoff = st
	}
}

// Anchors 提取分钟计算所需的开球锚点
func (m *MatchState) Anchors() KickoffAnchors {
	a := KickoffAnchors{}
	if m.FirstHalfKickoff.Valid {
		v := m.FirstHalfKickoff.Value
		a.FirstHalf = &v
	}
	if m.SecondHalfKickoff.Valid {
		v := m.SecondHalfKickoff.Value
		a.SecondHalf = &v
	}
	if m.OvertimeKickoff.Valid {
		v := m.OvertimeKickoff.Value
		a.Overtime = &v
	}
	return a
}

// MatchStore 比赛状态持久化，所有写入都经过编排器的单场串行化，
// 存储层的时间戳 CAS 只是兜底
type MatchStore struct {
	db *sql.DB
}

// NewMatchStore 创建存储
func NewMatchStore(db *sql.DB) *MatchStore {
	return &MatchStore{db: db}
}

// fieldColumns 跟踪字段到列名的映射
func fieldColumns(f Field) (value, source, timestamp string, ok bool) {
	switch f {
	case FieldStatus:
		return "status", "status_source", "status_timestamp", true
	case FieldHomeScore:
		return "home_score", "home_score_source", "home_score_timestamp", true
	case FieldAwayScore:
		return "away_score", "away_score_source", "away_score_timestamp", true
	case FieldMinute:
		return "minute", "minute_source", "minute_timestamp", true
	case FieldFirstHalfKickoff:
		return "first_half_kickoff_ts", "first_half_kickoff_ts_source", "first_half_kickoff_ts_timestamp", true
	case FieldSecondHalfKickoff:
		return "second_half_kickoff_ts", "second_half_kickoff_ts_source", "second_half_kickoff_ts_timestamp", true
	case FieldOvertimeKickoff:
		return "overtime_kickoff_ts", "overtime_kickoff_ts_source", "overtime_kickoff_ts_timestamp", true
	}
	return "", "", "", false
}

const matchSelectColumns = `external_id,
	status, status_source, status_timestamp,
	home_score, home_score_regular, home_score_overtime, home_score_penalty, home_score_source, home_score_timestamp,
	away_score, away_score_regular, away_score_overtime, away_score_penalty, away_score_source, away_score_timestamp,
	minute, minute_source, minute_timestamp,
	first_half_kickoff_ts, first_half_kickoff_ts_source, first_half_kickoff_ts_timestamp,
	second_half_kickoff_ts, second_half_kickoff_ts_source, second_half_kickoff_ts_timestamp,
	overtime_kickoff_ts, overtime_kickoff_ts_source, overtime_kickoff_ts_timestamp,
	updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*MatchState, error) {
	var (
		m                                      MatchState
		statusSource, homeSource, awaySource   string
		minuteSource                           string
		fhSource, shSource, otSource           string
		minute                                 sql.NullInt64
		fhKickoff, shKickoff, otKickoff        sql.NullInt64
	)

	err := row.Scan(
		&m.ExternalID,
		&m.Status.Value, &statusSource, &m.Status.Timestamp,
		&m.HomeScore.Value, &m.HomeDetail.Regular, &m.HomeDetail.Overtime, &m.HomeDetail.Penalty, &homeSource, &m.HomeScore.Timestamp,
		&m.AwayScore.Value, &m.AwayDetail.Regular, &m.AwayDetail.Overtime, &m.AwayDetail.Penalty, &awaySource, &m.AwayScore.Timestamp,
		&minute, &minuteSource, &m.Minute.Timestamp,
		&fhKickoff, &fhSource, &m.FirstHalfKickoff.Timestamp,
		&shKickoff, &shSource, &m.SecondHalfKickoff.Timestamp,
		&otKickoff, &otSource, &m.OvertimeKickoff.Timestamp,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Status.Valid = true
	m.Status.Source = Source(statusSource)
	m.HomeScore.Valid = true
	m.HomeScore.Source = Source(homeSource)
	m.AwayScore.Valid = true
	m.AwayScore.Source = Source(awaySource)

	m.Minute.Valid = minute.Valid
	m.Minute.Value = minute.Int64
	m.Minute.Source = Source(minuteSource)

	m.FirstHalfKickoff.Valid = fhKickoff.Valid
	m.FirstHalfKickoff.Value = fhKickoff.Int64
	m.FirstHalfKickoff.Source = Source(fhSource)
	m.SecondHalfKickoff.Valid = shKickoff.Valid
	m.SecondHalfKickoff.Value = shKickoff.Int64
	m.SecondHalfKickoff.Source = Source(shSource)
	m.OvertimeKickoff.Valid = otKickoff.Valid
	m.OvertimeKickoff.Value = otKickoff.Int64
	m.OvertimeKickoff.Source = Source(otSource)

	return &m, nil
}

// EnsureMatch 首次见到 external_id 时建行（状态 NOT_STARTED），返回当前状态
func (s *MatchStore) EnsureMatch(externalID string) (*MatchState, error) {
	_, err := s.db.Exec(
		`INSERT INTO matches (external_id, status) VALUES ($1, $2)
		 ON CONFLICT (external_id) DO NOTHING`,
		externalID, int(StatusNotStarted),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure match %s: %w", externalID, err)
	}

	return s.GetMatch(externalID)
}

// GetMatch 按 external_id 查询
func (s *MatchStore) GetMatch(externalID string) (*MatchState, error) {
	row := s.db.QueryRow(
		`SELECT `+matchSelectColumns+` FROM matches WHERE external_id = $1`,
		externalID,
	)

	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", externalID, err)
	}
	return m, nil
}

// LiveMatches 查询进行中的比赛
func (s *MatchStore) LiveMatches() ([]*MatchState, error) {
	rows, err := s.db.Query(
		`SELECT `+matchSelectColumns+` FROM matches WHERE status IN ($1, $2, $3, $4, $5) ORDER BY updated_at DESC`,
		int(StatusFirstHalf), int(StatusHalfTime), int(StatusSecondHalf), int(StatusOvertime), int(StatusPenaltyShootout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query live matches: %w", err)
	}
	defer rows.Close()

	var matches []*MatchState
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan live match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ApplyField 持久化一条被接受的更新，带上赢家的来源和观测时间。
// WHERE 里的时间戳比较是乐观锁兜底，正常情况下编排器的串行化已保证。
// 返回是否真正写入
func (s *MatchStore) ApplyField(externalID string, u FieldUpdate) (bool, error) {
	valueCol, sourceCol, tsCol, ok := fieldColumns(u.Field)
	if !ok {
		return false, fmt.Errorf("unknown field %q", u.Field)
	}

	query := fmt.Sprintf(
		`UPDATE matches SET %s = $1, %s = $2, %s = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE external_id = $4 AND %s <= $3`,
		valueCol, sourceCol, tsCol, tsCol,
	)
	args := []interface{}{u.Value, string(u.Source), u.ObservedAt, externalID}

	// 比分字段同时落分段构成
	if u.Field.IsScore() && u.Detail != nil {
		prefix := "home_score"
		if u.Field == FieldAwayScore {
			prefix = "away_score"
		}
		query = fmt.Sprintf(
			`UPDATE matches SET %s = $1, %s = $2, %s = $3,
				%s_regular = $5, %s_overtime = $6, %s_penalty = $7,
				updated_at = CURRENT_TIMESTAMP
			 WHERE external_id = $4 AND %s <= $3`,
			valueCol, sourceCol, tsCol, prefix, prefix, prefix, tsCol,
		)
		args = append(args, u.Detail.Regular, u.Detail.Overtime, u.Detail.Penalty)
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to apply %s on match %s: %w", u.Field, externalID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearMinute 比赛离开进行中阶段后分钟置空
func (s *MatchStore) ClearMinute(externalID string) error {
	_, err := s.db.Exec(
		`UPDATE matches SET minute = NULL, updated_at = CURRENT_TIMESTAMP WHERE external_id = $1`,
		externalID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear minute on match %s: %w", externalID, err)
	}
	return nil
}

// InsertIncident 写入异常记录
func (s *MatchStore) InsertIncident(inc Incident) error {
	_, err := s.db.Exec(
		`INSERT INTO incidents (external_id, kind, detail) VALUES ($1, $2, $3)`,
		inc.MatchID, inc.Kind, inc.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// ListIncidents 查询最近的异常记录
func (s *MatchStore) ListIncidents(limit int) ([]Incident, error) {
	rows, err := s.db.Query(
		`SELECT external_id, kind, detail, created_at FROM incidents ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var inc Incident
		if err := rows.Scan(&inc.MatchID, &inc.Kind, &inc.Detail, &inc.CreatedAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// InsertChangeEvent 持久化变更事件，供延迟订阅者补数
func (s *MatchStore) InsertChangeEvent(ev ChangeEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO match_events (external_id, field, old_value, new_value, source, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.MatchID, string(ev.Field), ev.OldValue, ev.NewValue, string(ev.Source), ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert change event: %w", err)
	}
	return nil
}

// ListChangeEvents 查询一场比赛最近的变更事件
func (s *MatchStore) ListChangeEvents(externalID string, limit int) ([]ChangeEvent, error) {
	rows, err := s.db.Query(
		`SELECT external_id, field, old_value, new_value, source, timestamp
		 FROM match_events WHERE external_id = $1 ORDER BY id DESC LIMIT $2`,
		externalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query change events: %w", err)
	}
	defer rows.Close()

	var events []ChangeEvent
	for rows.Next() {
		var ev ChangeEvent
		var field, source string
		if err := rows.Scan(&ev.MatchID, &field, &ev.OldValue, &ev.NewValue, &source, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Field = Field(field)
		ev.Source = Source(source)
		events = append(events, ev)
	}
	return events, rows.Err()
}
