package services

import (
	"testing"
)

func TestForwardTransitionsAllowed(t *testing.T) {
	steps := []struct {
		from Status
		to   Status
	}{
		{StatusNotStarted, StatusFirstHalf},
		{StatusFirstHalf, StatusHalfTime},
		{StatusHalfTime, StatusSecondHalf},
		{StatusSecondHalf, StatusOvertime},
		{StatusOvertime, StatusPenaltyShootout},
		{StatusPenaltyShootout, StatusFinished},
		{StatusSecondHalf, StatusFinished},
		{StatusTBD, StatusFirstHalf},
	}

	for _, step := range steps {
		if err := ValidateTransition(step.from, step.to); err != nil {
			t.Errorf("Expected %s -> %s to be legal, got %v", step.from, step.to, err)
		}
	}
}

func TestFinishedToSecondHalfAlwaysRejected(t *testing.T) {
	err := ValidateTransition(StatusFinished, StatusSecondHalf)
	if err == nil {
		t.Fatal("Expected FINISHED -> SECOND_HALF to be rejected")
	}
	if !err.Regression {
		t.Error("Expected rejection to be flagged as a regression")
	}
}

func TestPhaseRegressionRejected(t *testing.T) {
	err := ValidateTransition(StatusSecondHalf, StatusFirstHalf)
	if err == nil {
		t.Fatal("Expected SECOND_HALF -> FIRST_HALF to be rejected")
	}
	if !err.Regression {
		t.Error("Expected rejection to be flagged as a regression")
	}
}

func TestEscapeStatesReachableFromAnyNonTerminal(t *testing.T) {
	froms := []Status{StatusNotStarted, StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusOvertime, StatusPenaltyShootout, StatusDelayed, StatusTBD}
	escapes := []Status{StatusDelayed, StatusInterrupted, StatusCancelled, StatusAbnormal}

	for _, from := range froms {
		for _, to := range escapes {
			if from == to {
				continue
			}
			if err := ValidateTransition(from, to); err != nil {
				t.Errorf("Expected %s -> %s (escape) to be legal, got %v", from, to, err)
			}
		}
	}
}

func TestTerminalStatesRejectAllTransitions(t *testing.T) {
	terminals := []Status{StatusFinished, StatusCancelled, StatusAbnormal}
	targets := []Status{StatusFirstHalf, StatusSecondHalf, StatusDelayed, StatusNotStarted}

	for _, from := range terminals {
		for _, to := range targets {
			if err := ValidateTransition(from, to); err == nil {
				t.Errorf("Expected terminal %s to reject transition to %s", from, to)
			}
		}
	}
}

func TestSuspendedStatesResume(t *testing.T) {
	if err := ValidateTransition(StatusDelayed, StatusFirstHalf); err != nil {
		t.Errorf("Expected DELAYED -> FIRST_HALF to be legal, got %v", err)
	}
	if err := ValidateTransition(StatusInterrupted, StatusSecondHalf); err != nil {
		t.Errorf("Expected INTERRUPTED -> SECOND_HALF to be legal, got %v", err)
	}
	if err := ValidateTransition(StatusInterrupted, StatusFinished); err != nil {
		t.Errorf("Expected INTERRUPTED -> FINISHED to be legal, got %v", err)
	}
}

func TestSameStateIsNoOp(t *testing.T) {
	if err := ValidateTransition(StatusSecondHalf, StatusSecondHalf); err != nil {
		t.Errorf("Expected same-state transition to be legal, got %v", err)
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	if err := ValidateTransition(StatusFirstHalf, Status(99)); err == nil {
		t.Error("Expected unknown status code to be rejected")
	}
}

func TestMinuteBearingPhases(t *testing.T) {
	withMinute := []Status{StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusOvertime}
	for _, s := range withMinute {
		if !s.HasMinute() {
			t.Errorf("Expected %s to carry a minute", s)
		}
	}

	// penalty shootout is live but unclocked
	withoutMinute := []Status{StatusPenaltyShootout, StatusNotStarted, StatusFinished, StatusDelayed, StatusCancelled}
	for _, s := range withoutMinute {
		if s.HasMinute() {
			t.Errorf("Expected %s to carry no minute", s)
		}
	}
}

func TestLivePhaseClassification(t *testing.T) {
	live := []Status{StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusOvertime, StatusPenaltyShootout}
	for _, s := range live {
		if !s.IsLivePhase() {
			t.Errorf("Expected %s to be a live phase", s)
		}
	}

	notLive := []Status{StatusNotStarted, StatusFinished, StatusDelayed, StatusInterrupted, StatusCancelled, StatusAbnormal, StatusTBD}
	for _, s := range notLive {
		if s.IsLivePhase() {
			t.Errorf("Expected %s to not be a live phase", s)
		}
	}
}
