package config

import (
	"testing"
	"time"
)

func TestGetEnvIntDefaults(t *testing.T) {
	if v := getEnvInt("LIVEMATCH_TEST_UNSET", 7); v != 7 {
		t.Errorf("Expected default 7 for unset var, got %d", v)
	}

	t.Setenv("LIVEMATCH_TEST_INT", "42")
	if v := getEnvInt("LIVEMATCH_TEST_INT", 7); v != 42 {
		t.Errorf("Expected 42, got %d", v)
	}
}

func TestGetEnvIntInvalidFallsBack(t *testing.T) {
	// an explicit zero or garbage must not disable a cycle-count setting
	t.Setenv("LIVEMATCH_TEST_ZERO", "0")
	if v := getEnvInt("LIVEMATCH_TEST_ZERO", 3); v != 3 {
		t.Errorf("Expected explicit 0 to fall back to default 3, got %d", v)
	}

	t.Setenv("LIVEMATCH_TEST_GARBAGE", "three")
	if v := getEnvInt("LIVEMATCH_TEST_GARBAGE", 3); v != 3 {
		t.Errorf("Expected unparsable value to fall back to default 3, got %d", v)
	}
}

func TestStatusTrustOrderParsing(t *testing.T) {
	t.Setenv("STATUS_TRUST_ORDER", " push , watchdog , api ")

	order := getStatusTrustOrder()
	want := []string{"push", "watchdog", "api"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d sources, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected order[%d] = %q, got %q", i, want[i], order[i])
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.PollInterval != 20*time.Second {
		t.Errorf("Expected default poll interval 20s, got %v", cfg.PollInterval)
	}
	if cfg.OrphanCycles != 3 {
		t.Errorf("Expected default orphan cycles 3, got %d", cfg.OrphanCycles)
	}
	if cfg.LockTimeout != time.Second {
		t.Errorf("Expected default lock timeout 1s, got %v", cfg.LockTimeout)
	}
}
