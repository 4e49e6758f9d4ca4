package services

import (
	"fmt"
)

// Status 比赛状态，沿用上游的数字状态码
type Status int

const (
	StatusAbnormal        Status = 0
	StatusNotStarted      Status = 1
	StatusFirstHalf       Status = 2
	StatusHalfTime        Status = 3
	StatusSecondHalf      Status = 4
	StatusOvertime        Status = 5
	StatusPenaltyShootout Status = 7
	StatusFinished        Status = 8
	StatusDelayed         Status = 9
	StatusInterrupted     Status = 10
	StatusCancelled       Status = 12
	StatusTBD             Status = 13
)

// phaseIndex 正常阶段的先后顺序，状态只能沿这个顺序前进
// TBD 视同未开赛
var phaseIndex = map[Status]int{
	StatusNotStarted:      0,
	StatusTBD:             0,
	StatusFirstHalf:       1,
	StatusHalfTime:        2,
	StatusSecondHalf:      3,
	StatusOvertime:        4,
	StatusPenaltyShootout: 5,
	StatusFinished:        6,
}

var statusNames = map[Status]string{
	StatusAbnormal:        "ABNORMAL",
	StatusNotStarted:      "NOT_STARTED",
	StatusFirstHalf:       "FIRST_HALF",
	StatusHalfTime:        "HALF_TIME",
	StatusSecondHalf:      "SECOND_HALF",
	StatusOvertime:        "OVERTIME",
	StatusPenaltyShootout: "PENALTY_SHOOTOUT",
	StatusFinished:        "FINISHED",
	StatusDelayed:         "DELAYED",
	StatusInterrupted:     "INTERRUPTED",
	StatusCancelled:       "CANCELLED",
	StatusTBD:             "TBD",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// IsKnown 是否为已定义的状态码
func (s Status) IsKnown() bool {
	_, ok := statusNames[s]
	return ok
}

// IsLivePhase 进行中阶段，只有这些阶段允许有分钟
func (s Status) IsLivePhase() bool {
	switch s {
	case StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusOvertime, StatusPenaltyShootout:
		return true
	}
	return false
}

// HasMinute 该阶段是否定义展示分钟。
// 点球大战算进行中但没有计时，分钟必须为空
func (s Status) HasMinute() bool {
	switch s {
	case StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusOvertime:
		return true
	}
	return false
}

// IsTerminal 终态：到达后不再接受任何状态变更
// （赛后补数仍然走字段协调，但不再经过状态机）
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusCancelled, StatusAbnormal:
		return true
	}
	return false
}

// IsEscape 逃逸状态：可以从任何非终态进入，不受阶段顺序限制
func (s Status) IsEscape() bool {
	switch s {
	case StatusDelayed, StatusInterrupted, StatusCancelled, StatusAbnormal:
		return true
	}
	return false
}

// isSuspended 延期/中断是可恢复的挂起状态，恢复时允许回到任意阶段
func (s Status) isSuspended() bool {
	return s == StatusDelayed || s == StatusInterrupted
}

// TransitionError 状态机拒绝的转换
type TransitionError struct {
	From       Status
	To         Status
	Regression bool // 整个系统里最关键的防御：上游偶尔重放过期快照
}

func (e *TransitionError) Error() string {
	if e.Regression {
		return fmt.Sprintf("status regression rejected: %s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// ValidateTransition 校验状态转换，返回 nil 表示合法
func ValidateTransition(from, to Status) *TransitionError {
	if !to.IsKnown() {
		return &TransitionError{From: from, To: to}
	}

	// 同状态是无操作（时间戳/来源仍可能前进）
	if from == to {
		return nil
	}

	// 终态之后不接受任何状态变更
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to, Regression: true}
	}

	// 逃逸状态从任何非终态可达
	if to.IsEscape() {
		return nil
	}

	// 挂起状态恢复时允许回到任意正常阶段
	if from.isSuspended() {
		if _, ok := phaseIndex[to]; ok {
			return nil
		}
		return &TransitionError{From: from, To: to}
	}

	fromIdx, okFrom := phaseIndex[from]
	toIdx, okTo := phaseIndex[to]
	if !okFrom || !okTo {
		return &TransitionError{From: from, To: to}
	}

	// 阶段只能向前
	if toIdx < fromIdx {
		return &TransitionError{From: from, To: to, Regression: true}
	}

	return nil
}
