package services

import (
	"fmt"
	"time"
)

// Field 被跟踪的比赛字段
type Field string

const (
	FieldStatus           Field = "status"
	FieldHomeScore        Field = "home_score"
	FieldAwayScore        Field = "away_score"
	FieldMinute           Field = "minute"
	FieldFirstHalfKickoff Field = "first_half_kickoff_ts"
	FieldSecondHalfKickoff Field = "second_half_kickoff_ts"
	FieldOvertimeKickoff  Field = "overtime_kickoff_ts"
)

// IsAnchor 开球锚点字段只允许首次写入（防止状态抖动重置锚点导致分钟漂移）
func (f Field) IsAnchor() bool {
	switch f {
	case FieldFirstHalfKickoff, FieldSecondHalfKickoff, FieldOvertimeKickoff:
		return true
	}
	return false
}

// IsScore 比分字段需要额外的回退保护
func (f Field) IsScore() bool {
	return f == FieldHomeScore || f == FieldAwayScore
}

// Source 观测来源
type Source string

const (
	SourceAPI      Source = "api"      // REST 快照轮询
	SourcePush     Source = "push"     // MQTT/AMQP 推送
	SourceComputed Source = "computed" // 本地推导（分钟、锚点）
	SourceWatchdog Source = "watchdog" // 审计器的兜底修正
	// SourceUnknown 迁移前的历史来源无法确认，按最低信任处理
	SourceUnknown Source = ""
)

// UpdateKind 更新类型
type UpdateKind int

const (
	// KindNormal 普通更新
	KindNormal UpdateKind = iota
	// KindCorrective 修正更新（VAR 取消进球、赛后补数），允许比分下降
	KindCorrective
)

// ScoreDetail 比分的分段构成，总分 = 常规 + 加时 + 点球
type ScoreDetail struct {
	Regular  int `json:"regular"`
	Overtime int `json:"overtime"`
	Penalty  int `json:"penalty"`
}

// Total 展示总分
func (d ScoreDetail) Total() int {
	return d.Regular + d.Overtime + d.Penalty
}

// FieldUpdate 归一化后的单字段更新，由适配器产生，创建后不可变
type FieldUpdate struct {
	MatchID    string
	Field      Field
	Value      int64
	Detail     *ScoreDetail // 仅比分字段携带
	Source     Source
	Kind       UpdateKind
	Reason     string // 修正更新必须带原因
	ObservedAt int64  // 观测时间，epoch 秒（不是处理时间）
}

func (u FieldUpdate) String() string {
	return fmt.Sprintf("%s/%s=%d (source=%s observed_at=%d)", u.MatchID, u.Field, u.Value, u.Source, u.ObservedAt)
}

// FieldState 某字段的当前持久化状态
type FieldState struct {
	Value     int64
	Valid     bool // false 表示 NULL（未设置的分钟或锚点）
	Source    Source
	Timestamp int64 // 产生当前值的观测时间
}

// ChangeEvent 被接受的字段变更事件，发给下游订阅者
type ChangeEvent struct {
	MatchID   string `json:"match_id"`
	Field     Field  `json:"field"`
	OldValue  *int64 `json:"old_value"`
	NewValue  int64  `json:"new_value"`
	Source    Source `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// 异常类型
const (
	IncidentStatusRegression      = "status_regression"
	IncidentOrphanedLiveMatch     = "orphaned_live_match"
	IncidentMinuteRegression      = "minute_regression"
	IncidentMissingMinute         = "missing_minute"
	IncidentScoreWithoutProvenance = "score_without_provenance"
)

// Incident 审计/校验发现的异常记录，仅供人工排查，不直接改状态
type Incident struct {
	MatchID   string    `json:"match_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
