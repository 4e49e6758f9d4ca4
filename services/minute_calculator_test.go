package services

import (
	"testing"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestComputeMinuteFirstHalf(t *testing.T) {
	now := int64(10000)

	// kickoff 10 minutes ago => minute 11
	anchors := KickoffAnchors{FirstHalf: int64Ptr(now - 600)}
	m := ComputeMinute(now, StatusFirstHalf, anchors)
	if m == nil {
		t.Fatal("Expected a minute, got nil")
	}
	if *m != 11 {
		t.Errorf("Expected minute 11, got %d", *m)
	}
}

func TestComputeMinuteNotStartedIsNil(t *testing.T) {
	now := int64(10000)

	// even with a kickoff timestamp set, minute is only valid in live phases
	anchors := KickoffAnchors{FirstHalf: int64Ptr(now - 600)}
	if m := ComputeMinute(now, StatusNotStarted, anchors); m != nil {
		t.Errorf("Expected nil minute for NOT_STARTED, got %d", *m)
	}
}

func TestComputeMinuteMissingAnchorIsNil(t *testing.T) {
	now := int64(10000)

	if m := ComputeMinute(now, StatusFirstHalf, KickoffAnchors{}); m != nil {
		t.Errorf("Expected nil minute without anchor, got %d", *m)
	}
	if m := ComputeMinute(now, StatusSecondHalf, KickoffAnchors{FirstHalf: int64Ptr(now - 600)}); m != nil {
		t.Errorf("Expected nil minute without second half anchor, got %d", *m)
	}
}

func TestComputeMinuteSecondHalf(t *testing.T) {
	now := int64(20000)

	// second half kickoff 10 minutes ago => 10 + 45 + 1
	anchors := KickoffAnchors{SecondHalf: int64Ptr(now - 600)}
	m := ComputeMinute(now, StatusSecondHalf, anchors)
	if m == nil {
		t.Fatal("Expected a minute, got nil")
	}
	if *m != 56 {
		t.Errorf("Expected minute 56, got %d", *m)
	}
}

func TestComputeMinuteOvertime(t *testing.T) {
	now := int64(30000)

	// overtime kickoff 5 minutes ago => 5 + 90 + 1
	anchors := KickoffAnchors{Overtime: int64Ptr(now - 300)}
	m := ComputeMinute(now, StatusOvertime, anchors)
	if m == nil {
		t.Fatal("Expected a minute, got nil")
	}
	if *m != 96 {
		t.Errorf("Expected minute 96, got %d", *m)
	}
}

func TestComputeMinuteHalfTimePinned(t *testing.T) {
	m := ComputeMinute(10000, StatusHalfTime, KickoffAnchors{})
	if m == nil {
		t.Fatal("Expected a minute, got nil")
	}
	if *m != 45 {
		t.Errorf("Expected half time minute to pin at 45, got %d", *m)
	}
}

func TestComputeMinutePenaltyShootoutIsNil(t *testing.T) {
	now := int64(40000)
	anchors := KickoffAnchors{Overtime: int64Ptr(now - 300)}
	if m := ComputeMinute(now, StatusPenaltyShootout, anchors); m != nil {
		t.Errorf("Expected nil minute for penalty shootout, got %d", *m)
	}
}
