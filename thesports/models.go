package thesports

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ScoreLine is one side's score decomposed into its components.
// The upstream feed delivers scores as a 7-element array:
// [display, halftime, red, yellow, corner, overtime, penalty].
// The display total must equal regular + overtime + penalty; a payload
// violating that is rejected at this boundary instead of flowing into
// the reconciliation core.
type ScoreLine struct {
	Display  int `json:"display"`
	Regular  int `json:"regular"`
	Overtime int `json:"overtime"`
	Penalty  int `json:"penalty"`
}

// UnmarshalJSON decodes the upstream score array into a ScoreLine
func (s *ScoreLine) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("score line is not an int array: %w", err)
	}
	if len(arr) < 7 {
		return fmt.Errorf("score line has %d elements, want 7", len(arr))
	}

	display, overtime, penalty := arr[0], arr[5], arr[6]
	regular := display - overtime - penalty
	if display < 0 || overtime < 0 || penalty < 0 || regular < 0 {
		return fmt.Errorf("score line components do not sum: display=%d overtime=%d penalty=%d", display, overtime, penalty)
	}

	s.Display = display
	s.Regular = regular
	s.Overtime = overtime
	s.Penalty = penalty
	return nil
}

// LiveMatch is one match snapshot from the live endpoint
type LiveMatch struct {
	ID                  string     `json:"id"`
	Status              int        `json:"status"`
	HomeScore           ScoreLine  `json:"home_score"`
	AwayScore           ScoreLine  `json:"away_score"`
	FirstHalfKickoffTS  int64      `json:"kickoff_ts"`
	SecondHalfKickoffTS int64      `json:"second_half_kickoff_ts"`
	OvertimeKickoffTS   int64      `json:"overtime_kickoff_ts"`
	UpdatedAt           int64      `json:"updated_at"`
}

// Validate checks the snapshot for fields the reconciler depends on
func (m *LiveMatch) Validate() error {
	if m.ID == "" {
		return errors.New("live match snapshot missing id")
	}
	if m.UpdatedAt <= 0 {
		return fmt.Errorf("live match %s snapshot missing updated_at", m.ID)
	}
	return nil
}

// Push event types delivered over MQTT/AMQP
const (
	PushTypeGoal         = "goal"
	PushTypeStatusChange = "status_change"
	PushTypeHalfStart    = "half_start"
	PushTypeHalfEnd      = "half_end"
	PushTypeVarCancel    = "var_cancel"
	PushTypeCard         = "card"
)

// PushEvent is one discrete incident from the push stream
type PushEvent struct {
	MatchID   string     `json:"match_id"`
	Type      string     `json:"type"`
	Status    *int       `json:"status,omitempty"`
	HomeScore *ScoreLine `json:"home_score,omitempty"`
	AwayScore *ScoreLine `json:"away_score,omitempty"`
	KickoffTS *int64     `json:"kickoff_ts,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Time      int64      `json:"time"` // observation time, epoch seconds
}

// ParsePushEvent decodes and validates a push payload, failing fast on
// malformed messages rather than propagating untyped data downstream
func ParsePushEvent(payload []byte) (*PushEvent, error) {
	var ev PushEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push event: %w", err)
	}

	if ev.MatchID == "" {
		return nil, errors.New("push event missing match_id")
	}
	if ev.Time <= 0 {
		return nil, fmt.Errorf("push event for %s missing observation time", ev.MatchID)
	}

	switch ev.Type {
	case PushTypeGoal, PushTypeVarCancel:
		if ev.HomeScore == nil && ev.AwayScore == nil {
			return nil, fmt.Errorf("%s event for %s carries no score", ev.Type, ev.MatchID)
		}
	case PushTypeStatusChange, PushTypeHalfStart, PushTypeHalfEnd:
		if ev.Status == nil {
			return nil, fmt.Errorf("%s event for %s carries no status", ev.Type, ev.MatchID)
		}
	case PushTypeCard:
		// cards carry no reconciled field, accepted for completeness
	default:
		return nil, fmt.Errorf("unknown push event type %q for %s", ev.Type, ev.MatchID)
	}

	return &ev, nil
}

// IsTimeout reports whether err is an upstream fetch timeout.
// Callers treat a timed-out poll as an empty batch, not an error.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
