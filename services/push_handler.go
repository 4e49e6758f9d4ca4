package services

import (
	"time"

	"livematch-service/logger"
	"livematch-service/thesports"
)

// PushHandler 把推送流的离散事件归一化成字段更新。
// MQTT 和 AMQP 两条推送通道共用这一个处理器
type PushHandler struct {
	orchestrator *Orchestrator
}

// NewPushHandler 创建推送处理器
func NewPushHandler(orchestrator *Orchestrator) *PushHandler {
	return &PushHandler{orchestrator: orchestrator}
}

// HandleMessage 处理一条原始推送消息，签名兼容 thesports.MQTTMessageHandler。
// 解析失败是真正的错误（消息格式坏了），和协调层的正常拒绝不同
func (h *PushHandler) HandleMessage(topic string, payload []byte, receivedAt time.Time) {
	ev, err := thesports.ParsePushEvent(payload)
	if err != nil {
		logger.Errorf("[PushHandler] Malformed push message on %s: %v", topic, err)
		return
	}

	updates := PushEventToUpdates(ev)
	if len(updates) == 0 {
		logger.Debugf("[PushHandler] Event %s for %s carries no tracked field", ev.Type, ev.MatchID)
		return
	}

	if err := h.orchestrator.Apply(ev.MatchID, updates); err != nil {
		logger.Errorf("[PushHandler] Apply failed for match %s: %v", ev.MatchID, err)
	}
}

// PushEventToUpdates 单条推送事件到字段更新的映射
func PushEventToUpdates(ev *thesports.PushEvent) []FieldUpdate {
	var updates []FieldUpdate

	switch ev.Type {
	case thesports.PushTypeStatusChange, thesports.PushTypeHalfStart, thesports.PushTypeHalfEnd:
		updates = append(updates, FieldUpdate{
			MatchID:    ev.MatchID,
			Field:      FieldStatus,
			Value:      int64(*ev.Status),
			Source:     SourcePush,
			ObservedAt: ev.Time,
		})

		// half_start 自带精确的开球时间，比编排器用观测时间推导的锚点准
		if ev.Type == thesports.PushTypeHalfStart && ev.KickoffTS != nil {
			if anchor := anchorFieldFor(Status(*ev.Status)); anchor != "" {
				updates = append(updates, FieldUpdate{
					MatchID:    ev.MatchID,
					Field:      anchor,
					Value:      *ev.KickoffTS,
					Source:     SourcePush,
					ObservedAt: ev.Time,
				})
			}
		}

	case thesports.PushTypeGoal:
		updates = append(updates, scoreUpdates(ev, KindNormal, "")...)

	case thesports.PushTypeVarCancel:
		// VAR 取消是唯一允许比分下降的信号
		reason := ev.Reason
		if reason == "" {
			reason = "var_cancel"
		}
		updates = append(updates, scoreUpdates(ev, KindCorrective, reason)...)
	}

	return updates
}

func anchorFieldFor(status Status) Field {
	switch status {
	case StatusFirstHalf:
		return FieldFirstHalfKickoff
	case StatusSecondHalf:
		return FieldSecondHalfKickoff
	case StatusOvertime:
		return FieldOvertimeKickoff
	}
	return ""
}

func scoreUpdates(ev *thesports.PushEvent, kind UpdateKind, reason string) []FieldUpdate {
	var updates []FieldUpdate

	if ev.HomeScore != nil {
		updates = append(updates, FieldUpdate{
			MatchID: ev.MatchID,
			Field:   FieldHomeScore,
			Value:   int64(ev.HomeScore.Display),
			Detail: &ScoreDetail{
				Regular:  ev.HomeScore.Regular,
				Overtime: ev.HomeScore.Overtime,
				Penalty:  ev.HomeScore.Penalty,
			},
			Source:     SourcePush,
			Kind:       kind,
			Reason:     reason,
			ObservedAt: ev.Time,
		})
	}
	if ev.AwayScore != nil {
		updates = append(updates, FieldUpdate{
			MatchID: ev.MatchID,
			Field:   FieldAwayScore,
			Value:   int64(ev.AwayScore.Display),
			Detail: &ScoreDetail{
				Regular:  ev.AwayScore.Regular,
				Overtime: ev.AwayScore.Overtime,
				Penalty:  ev.AwayScore.Penalty,
			},
			Source:     SourcePush,
			Kind:       kind,
			Reason:     reason,
			ObservedAt: ev.Time,
		})
	}

	return updates
}
