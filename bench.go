package histotune

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RunRecord captures the outcome of one benchmark configuration
type RunRecord struct {
	Name          string    `json:"name"`
	Status        string    `json:"status"` // "pass" or "fail"
	Path          string    `json:"path"`   // "shared" or "global"
	H             int       `json:"h"`
	N             int       `json:"n"`
	Kind          string    `json:"kind"`
	M             int       `json:"m,omitempty"`
	NumChunks     int       `json:"num_chunks,omitempty"`
	NumBlocks     int       `json:"num_blocks,omitempty"`
	ShmemSize     int       `json:"shmem_size,omitempty"`
	MeanLatencyUS float64   `json:"mean_latency_us,omitempty"`
	BaselineUS    float64   `json:"baseline_us,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// RunLogger manages logging of benchmark records to file
type RunLogger struct {
	mu          sync.Mutex
	records     []RunRecord
	logDir      string
	sessionFile string
}

var globalLogger = &RunLogger{
	logDir: "benchmark_logs",
}

// InitRunLogger initializes the logger for a new benchmark session
func InitRunLogger(sessionName string) error {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	if err := os.MkdirAll(globalLogger.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	globalLogger.sessionFile = filepath.Join(globalLogger.logDir,
		fmt.Sprintf("%s_%s.json", sessionName, timestamp))

	globalLogger.records = nil
	return globalLogger.flush()
}

// LogRunRecord logs a single benchmark record and flushes to disk so a
// crashing sweep loses nothing
func LogRunRecord(rec RunRecord) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	rec.Timestamp = time.Now()
	globalLogger.records = append(globalLogger.records, rec)
	globalLogger.flush()
}

// flush writes records to disk
func (rl *RunLogger) flush() error {
	if rl.sessionFile == "" {
		return nil // Not initialized
	}

	data, err := json.MarshalIndent(rl.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	return os.WriteFile(rl.sessionFile, data, 0644)
}

// LatencySummary aggregates per-run latency samples, in microseconds
type LatencySummary struct {
	MeanUS   float64 `json:"mean_us"`
	StdDevUS float64 `json:"stddev_us"`
	MedianUS float64 `json:"median_us"`
	P95US    float64 `json:"p95_us"`
}

// SummarizeLatencies computes summary statistics over latency samples
func SummarizeLatencies(samplesUS []float64) LatencySummary {
	if len(samplesUS) == 0 {
		return LatencySummary{}
	}
	sorted := append([]float64(nil), samplesUS...)
	sort.Float64s(sorted)
	return LatencySummary{
		MeanUS:   stat.Mean(samplesUS, nil),
		StdDevUS: stat.StdDev(samplesUS, nil),
		MedianUS: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95US:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}

// Microseconds converts a duration to float microseconds for reporting
func Microseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e3
}
