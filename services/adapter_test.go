package services

import (
	"testing"

	"livematch-service/thesports"
)

func TestSnapshotToUpdates(t *testing.T) {
	lm := &thesports.LiveMatch{
		ID:                 "m1",
		Status:             int(StatusFirstHalf),
		HomeScore:          thesports.ScoreLine{Display: 1, Regular: 1},
		AwayScore:          thesports.ScoreLine{},
		FirstHalfKickoffTS: 1700000000,
		UpdatedAt:          1700000600,
	}

	updates := SnapshotToUpdates(lm)

	byField := make(map[Field]FieldUpdate, len(updates))
	for _, u := range updates {
		byField[u.Field] = u
	}

	status, ok := byField[FieldStatus]
	if !ok {
		t.Fatal("Expected a status update")
	}
	if status.Value != int64(StatusFirstHalf) || status.Source != SourceAPI {
		t.Errorf("Unexpected status update %+v", status)
	}
	if status.ObservedAt != 1700000600 {
		t.Errorf("Expected observed_at from the snapshot, got %d", status.ObservedAt)
	}

	home, ok := byField[FieldHomeScore]
	if !ok {
		t.Fatal("Expected a home score update")
	}
	if home.Value != 1 || home.Detail == nil || home.Detail.Regular != 1 {
		t.Errorf("Unexpected home score update %+v", home)
	}

	anchor, ok := byField[FieldFirstHalfKickoff]
	if !ok {
		t.Fatal("Expected a first half anchor candidate")
	}
	if anchor.Value != 1700000000 {
		t.Errorf("Expected anchor 1700000000, got %d", anchor.Value)
	}

	// minute is always derived locally, never taken from a snapshot
	if _, ok := byField[FieldMinute]; ok {
		t.Error("Expected no minute update from a snapshot")
	}
	// no second half / overtime kickoff in the payload, no candidates
	if _, ok := byField[FieldSecondHalfKickoff]; ok {
		t.Error("Expected no second half anchor without a timestamp")
	}
}

func TestPushEventToUpdatesHalfStart(t *testing.T) {
	status := int(StatusSecondHalf)
	kickoff := int64(1700003000)
	ev := &thesports.PushEvent{
		MatchID:   "m1",
		Type:      thesports.PushTypeHalfStart,
		Status:    &status,
		KickoffTS: &kickoff,
		Time:      1700003005,
	}

	updates := PushEventToUpdates(ev)
	if len(updates) != 2 {
		t.Fatalf("Expected status + anchor updates, got %d", len(updates))
	}

	if updates[0].Field != FieldStatus || updates[0].Value != int64(StatusSecondHalf) {
		t.Errorf("Unexpected status update %+v", updates[0])
	}
	if updates[1].Field != FieldSecondHalfKickoff || updates[1].Value != kickoff {
		t.Errorf("Unexpected anchor update %+v", updates[1])
	}
	if updates[1].Source != SourcePush {
		t.Errorf("Expected push provenance on the anchor, got %s", updates[1].Source)
	}
}

func TestPushEventToUpdatesGoal(t *testing.T) {
	ev := &thesports.PushEvent{
		MatchID:   "m1",
		Type:      thesports.PushTypeGoal,
		AwayScore: &thesports.ScoreLine{Display: 2, Regular: 2},
		Time:      1700001000,
	}

	updates := PushEventToUpdates(ev)
	if len(updates) != 1 {
		t.Fatalf("Expected one score update, got %d", len(updates))
	}

	u := updates[0]
	if u.Field != FieldAwayScore || u.Value != 2 {
		t.Errorf("Unexpected score update %+v", u)
	}
	if u.Kind != KindNormal {
		t.Errorf("Expected a normal update, got kind %d", u.Kind)
	}
}

func TestPushEventToUpdatesVarCancelIsCorrective(t *testing.T) {
	ev := &thesports.PushEvent{
		MatchID:   "m1",
		Type:      thesports.PushTypeVarCancel,
		HomeScore: &thesports.ScoreLine{Display: 0},
		Time:      1700002000,
	}

	updates := PushEventToUpdates(ev)
	if len(updates) != 1 {
		t.Fatalf("Expected one score update, got %d", len(updates))
	}

	u := updates[0]
	if u.Kind != KindCorrective {
		t.Errorf("Expected VAR cancel to be corrective, got kind %d", u.Kind)
	}
	if u.Reason == "" {
		t.Error("Expected a corrective reason to be set")
	}
}

func TestPushEventToUpdatesCardIsIgnored(t *testing.T) {
	ev := &thesports.PushEvent{
		MatchID: "m1",
		Type:    thesports.PushTypeCard,
		Time:    1700001000,
	}

	if updates := PushEventToUpdates(ev); len(updates) != 0 {
		t.Errorf("Expected card events to produce no updates, got %d", len(updates))
	}
}
