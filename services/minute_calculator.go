package services

// KickoffAnchors 各阶段的开球时间锚点，epoch 秒，未设置为 nil
type KickoffAnchors struct {
	FirstHalf  *int64
	SecondHalf *int64
	Overtime   *int64
}

// ComputeMinute 从开球锚点推导展示分钟，不信任任何来源直接上报的分钟。
// 锚点缺失或状态不在进行中返回 nil（MissingAnchor 不是错误）
func ComputeMinute(now int64, status Status, anchors KickoffAnchors) *int {
	switch status {
	case StatusFirstHalf:
		if anchors.FirstHalf == nil {
			return nil
		}
		return minutePtr(int((now-*anchors.FirstHalf)/60) + 1)

	case StatusHalfTime:
		// 中场固定展示 45
		return minutePtr(45)

	case StatusSecondHalf:
		if anchors.SecondHalf == nil {
			return nil
		}
		return minutePtr(int((now-*anchors.SecondHalf)/60) + 45 + 1)

	case StatusOvertime:
		if anchors.Overtime == nil {
			return nil
		}
		return minutePtr(int((now-*anchors.Overtime)/60) + 90 + 1)
	}

	// 点球大战没有计时，其余状态一律无分钟
	return nil
}

func minutePtr(m int) *int {
	if m < 1 {
		m = 1
	}
	return &m
}
