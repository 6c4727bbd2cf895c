package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRequestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scrape_inputs.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRequestsArray(t *testing.T) {
	path := writeRequestFile(t, `[
		{"region": "sea-to-sky", "start_date": "2019-12-01", "end_date": "2019-12-10"},
		{"region": "northwest-coastal", "start_date": "2020-01-01", "end_date": "2020-01-05"}
	]`)

	reqs, err := LoadRequests(path)
	if err != nil {
		t.Fatalf("LoadRequests: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].Region != "sea-to-sky" {
		t.Errorf("region: got %q, want %q", reqs[0].Region, "sea-to-sky")
	}
	if reqs[0].Days() != 10 {
		t.Errorf("days: got %d, want 10", reqs[0].Days())
	}
}

func TestLoadRequestsSingleObject(t *testing.T) {
	path := writeRequestFile(t, `{"region": "sea-to-sky", "start_date": "2019-12-01", "end_date": "2019-12-01"}`)

	reqs, err := LoadRequests(path)
	if err != nil {
		t.Fatalf("LoadRequests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Days() != 1 {
		t.Errorf("days: got %d, want 1", reqs[0].Days())
	}
}

func TestLoadRequestsRejectsMissingRegion(t *testing.T) {
	path := writeRequestFile(t, `[{"region": "", "start_date": "2019-12-01", "end_date": "2019-12-10"}]`)

	if _, err := LoadRequests(path); err == nil {
		t.Error("expected error for empty region")
	}
}

func TestLoadRequestsRejectsBadDate(t *testing.T) {
	path := writeRequestFile(t, `[{"region": "sea-to-sky", "start_date": "01/12/2019", "end_date": "2019-12-10"}]`)

	if _, err := LoadRequests(path); err == nil {
		t.Error("expected error for malformed start_date")
	}
}
