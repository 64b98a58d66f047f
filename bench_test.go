package histotune

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSummarizeLatencies(t *testing.T) {
	samples := []float64{10, 20, 30, 40, 50}
	s := SummarizeLatencies(samples)

	if s.MeanUS != 30 {
		t.Errorf("mean = %v, want 30", s.MeanUS)
	}
	if s.MedianUS != 30 {
		t.Errorf("median = %v, want 30", s.MedianUS)
	}
	if s.P95US < s.MedianUS {
		t.Errorf("p95 %v below median %v", s.P95US, s.MedianUS)
	}
	if s.StdDevUS <= 0 {
		t.Errorf("stddev = %v, want positive", s.StdDevUS)
	}
}

func TestSummarizeLatenciesEmpty(t *testing.T) {
	s := SummarizeLatencies(nil)
	if s != (LatencySummary{}) {
		t.Errorf("empty summary = %+v, want zero", s)
	}
}

func TestMicroseconds(t *testing.T) {
	if us := Microseconds(1500 * time.Nanosecond); us != 1.5 {
		t.Errorf("Microseconds(1.5us) = %v", us)
	}
	if us := Microseconds(2 * time.Millisecond); us != 2000 {
		t.Errorf("Microseconds(2ms) = %v", us)
	}
}

func TestRunLoggerWritesSession(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if err := InitRunLogger("unit"); err != nil {
		t.Fatalf("InitRunLogger: %v", err)
	}
	LogRunRecord(RunRecord{
		Name:   "count/H=128",
		Status: "pass",
		Path:   "shared",
		H:      128,
		N:      1000000,
		Kind:   "add",
	})
	LogRunRecord(RunRecord{
		Name:   "sum/H=64",
		Status: "fail",
		Path:   "global",
		H:      64,
		N:      500000,
		Kind:   "cas",
		Error:  "validation failed",
	})

	matches, err := filepath.Glob(filepath.Join(dir, "benchmark_logs", "unit_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one session file, got %v (%v)", matches, err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var records []RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("session file is not valid JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Name != "count/H=128" || records[0].Status != "pass" {
		t.Errorf("first record mangled: %+v", records[0])
	}
	if records[1].Error != "validation failed" {
		t.Errorf("second record lost its error: %+v", records[1])
	}
	if records[0].Timestamp.IsZero() {
		t.Error("record timestamp not set")
	}
}
