package thesports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("test_token")

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.apiToken != "test_token" {
		t.Errorf("Expected token to be 'test_token', got '%s'", client.apiToken)
	}

	if client.baseURL != DefaultBaseURL {
		t.Errorf("Expected baseURL to be '%s', got '%s'", DefaultBaseURL, client.baseURL)
	}

	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout to be %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}
}

func TestNewClientWithConfig(t *testing.T) {
	config := Config{
		BaseURL:  "https://custom.api.com",
		APIToken: "custom_token",
		Timeout:  60 * time.Second,
	}

	client := NewClientWithConfig(config)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.apiToken != "custom_token" {
		t.Errorf("Expected token to be 'custom_token', got '%s'", client.apiToken)
	}

	if client.baseURL != "https://custom.api.com" {
		t.Errorf("Expected baseURL to be 'https://custom.api.com', got '%s'", client.baseURL)
	}

	if client.httpClient.Timeout != 60*time.Second {
		t.Errorf("Expected timeout to be 60s, got %v", client.httpClient.Timeout)
	}
}

func TestGetLiveMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/football/match/detail_live" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test_token" {
			t.Errorf("Unexpected Authorization header %q", auth)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"results": []map[string]interface{}{
				{
					"id":         "m1",
					"status":     2,
					"home_score": []int{1, 0, 0, 0, 0, 0, 0},
					"away_score": []int{0, 0, 0, 0, 0, 0, 0},
					"kickoff_ts": 1700000000,
					"updated_at": 1700000600,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClientWithConfig(Config{BaseURL: server.URL, APIToken: "test_token"})

	matches, err := client.GetLiveMatches()
	if err != nil {
		t.Fatalf("GetLiveMatches failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.ID != "m1" {
		t.Errorf("Expected id m1, got %s", m.ID)
	}
	if m.Status != 2 {
		t.Errorf("Expected status 2, got %d", m.Status)
	}
	if m.HomeScore.Display != 1 {
		t.Errorf("Expected home score 1, got %d", m.HomeScore.Display)
	}
	if m.FirstHalfKickoffTS != 1700000000 {
		t.Errorf("Expected kickoff_ts 1700000000, got %d", m.FirstHalfKickoffTS)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    0,
			"results": []interface{}{},
		})
	}))
	defer server.Close()

	client := NewClientWithConfig(Config{BaseURL: server.URL, APIToken: "test_token"})

	if _, err := client.GetMatch("missing"); err == nil {
		t.Error("Expected error for a match absent upstream")
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{
		Code:    404,
		Message: "Not found",
		Status:  "error",
	}

	expected := "API error 404: Not found"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}
