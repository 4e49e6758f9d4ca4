package services

import (
	"testing"
	"time"

	"livematch-service/thesports"
)

type fakeFetcher struct {
	matches []thesports.LiveMatch
	err     error
}

func (f *fakeFetcher) GetLiveMatches() ([]thesports.LiveMatch, error) {
	return f.matches, f.err
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "request timed out" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func seedLiveMatch(store *memoryStore, id string, status Status, minute int64) *MatchState {
	m := &MatchState{
		ExternalID: id,
		Status:     FieldState{Value: int64(status), Valid: true, Source: SourcePush, Timestamp: 1000},
		HomeScore:  FieldState{Valid: true, Source: SourcePush, Timestamp: 1000},
		AwayScore:  FieldState{Valid: true, Source: SourcePush, Timestamp: 1000},
		Minute:     FieldState{Value: minute, Valid: true, Source: SourceComputed, Timestamp: 1000},
	}
	store.matches[id] = m
	return m
}

func newTestAuditor(store *memoryStore, fetcher *fakeFetcher, orphanCycles int) *Auditor {
	o := newTestOrchestrator(store, 9000)
	a := NewAuditor(store, o, fetcher, time.Minute, orphanCycles)
	a.now = func() int64 { return 9000 }
	return a
}

func TestAuditorOrphanTerminatesAfterStreak(t *testing.T) {
	store := newMemoryStore()
	seedLiveMatch(store, "m1", StatusFirstHalf, 30)
	fetcher := &fakeFetcher{} // upstream no longer lists the match as live
	a := newTestAuditor(store, fetcher, 3)

	a.RunCycle()
	a.RunCycle()
	if store.hasIncident(IncidentOrphanedLiveMatch) {
		t.Fatal("Expected no orphan incident before the streak threshold")
	}

	a.RunCycle()
	if !store.hasIncident(IncidentOrphanedLiveMatch) {
		t.Fatal("Expected an orphaned_live_match incident after 3 absent cycles")
	}

	m := store.matches["m1"]
	if Status(m.Status.Value) != StatusFinished {
		t.Errorf("Expected watchdog to finish the match, got %s", Status(m.Status.Value))
	}
	if m.Status.Source != SourceWatchdog {
		t.Errorf("Expected status provenance watchdog, got %s", m.Status.Source)
	}
	if m.Minute.Valid {
		t.Error("Expected minute to be cleared after termination")
	}
}

func TestAuditorPresenceResetsOrphanStreak(t *testing.T) {
	store := newMemoryStore()
	seedLiveMatch(store, "m1", StatusSecondHalf, 60)
	fetcher := &fakeFetcher{}
	a := newTestAuditor(store, fetcher, 3)

	a.RunCycle()
	a.RunCycle()

	// the match reappears upstream, streak resets
	fetcher.matches = []thesports.LiveMatch{{ID: "m1", Status: int(StatusSecondHalf)}}
	a.RunCycle()

	fetcher.matches = nil
	a.RunCycle()
	a.RunCycle()

	if store.hasIncident(IncidentOrphanedLiveMatch) {
		t.Error("Expected no orphan incident when absence streak was interrupted")
	}
	if Status(store.matches["m1"].Status.Value) != StatusSecondHalf {
		t.Errorf("Expected match to stay live, got %s", Status(store.matches["m1"].Status.Value))
	}
}

func TestAuditorTimeoutSkipsCycle(t *testing.T) {
	store := newMemoryStore()
	seedLiveMatch(store, "m1", StatusFirstHalf, 30)
	fetcher := &fakeFetcher{err: timeoutErr{}}
	a := newTestAuditor(store, fetcher, 3)

	// a slow upstream must not look like an absent match
	a.RunCycle()
	a.RunCycle()
	a.RunCycle()
	a.RunCycle()

	if len(store.incidents) != 0 {
		t.Errorf("Expected no incidents on timeout cycles, got %d", len(store.incidents))
	}
	if Status(store.matches["m1"].Status.Value) != StatusFirstHalf {
		t.Error("Expected match to be untouched on timeout cycles")
	}
}

func TestAuditorIdleCycleClearsBaselines(t *testing.T) {
	store := newMemoryStore()
	m := seedLiveMatch(store, "m1", StatusFirstHalf, 30)
	fetcher := &fakeFetcher{}
	a := newTestAuditor(store, fetcher, 3)

	// two absent cycles build up a partial orphan streak
	a.RunCycle()
	a.RunCycle()
	if a.orphanStreak["m1"] != 2 {
		t.Fatalf("Expected orphan streak 2, got %d", a.orphanStreak["m1"])
	}

	// the match ends, an idle cycle must drop the stale baselines
	m.Status = FieldState{Value: int64(StatusFinished), Valid: true, Source: SourcePush, Timestamp: 2000}
	a.RunCycle()

	if len(a.prev) != 0 {
		t.Errorf("Expected audit baselines to be cleared on an idle cycle, got %d", len(a.prev))
	}
	if len(a.orphanStreak) != 0 {
		t.Errorf("Expected orphan streaks to be cleared on an idle cycle, got %d", len(a.orphanStreak))
	}
	if store.hasIncident(IncidentOrphanedLiveMatch) {
		t.Error("Expected no orphan incident from a pre-idle partial streak")
	}
}

func TestAuditorReportsMissingMinute(t *testing.T) {
	store := newMemoryStore()
	m := seedLiveMatch(store, "m1", StatusSecondHalf, 0)
	m.Minute.Valid = false
	fetcher := &fakeFetcher{matches: []thesports.LiveMatch{{ID: "m1", Status: int(StatusSecondHalf)}}}
	a := newTestAuditor(store, fetcher, 3)

	a.RunCycle()

	if !store.hasIncident(IncidentMissingMinute) {
		t.Error("Expected a missing_minute incident for a timed phase without minute")
	}
}

func TestAuditorReportsMinuteRegression(t *testing.T) {
	store := newMemoryStore()
	m := seedLiveMatch(store, "m1", StatusFirstHalf, 40)
	fetcher := &fakeFetcher{matches: []thesports.LiveMatch{{ID: "m1", Status: int(StatusFirstHalf)}}}
	a := newTestAuditor(store, fetcher, 3)

	a.RunCycle()

	// something rewound the clock between cycles
	m.Minute.Value = 35
	a.RunCycle()

	if !store.hasIncident(IncidentMinuteRegression) {
		t.Error("Expected a minute_regression incident")
	}
}

func TestAuditorReportsScoreWithoutProvenance(t *testing.T) {
	store := newMemoryStore()
	m := seedLiveMatch(store, "m1", StatusFirstHalf, 30)
	fetcher := &fakeFetcher{matches: []thesports.LiveMatch{{ID: "m1", Status: int(StatusFirstHalf)}}}
	a := newTestAuditor(store, fetcher, 3)

	a.RunCycle()

	// score changed but the observation timestamp did not: a write
	// bypassed the reconciliation path
	m.HomeScore.Value = 1
	a.RunCycle()

	if !store.hasIncident(IncidentScoreWithoutProvenance) {
		t.Error("Expected a score_without_provenance incident")
	}
}
