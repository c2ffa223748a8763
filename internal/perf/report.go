// Package perf is the in-process load driver used by cmd/perf. It pushes
// synthetic exchanges through an App's dispatch engine, measures each
// dispatch path separately, and persists timestamped JSON reports so runs
// can be compared over time.
package perf

import (
	"encoding/json"
	"time"
)

// PathResult captures one measured dispatch path.
type PathResult struct {
	Name           string  `json:"name"`
	Requests       int     `json:"requests"`
	NsPerOp        float64 `json:"ns_per_op"`
	RequestsPerSec float64 `json:"requests_per_sec"`
	Workers        int     `json:"workers"`
}

// Report is one complete perf run.
type Report struct {
	Timestamp time.Time    `json:"timestamp"`
	GoVersion string       `json:"go_version"`
	OS        string       `json:"os"`
	Arch      string       `json:"arch"`
	NumCPU    int          `json:"num_cpu"`
	Results   []PathResult `json:"results"`
	Summary   Summary      `json:"summary"`
}

// Summary aggregates the run: the headline per-path latencies plus the
// framework counters observed during the run.
type Summary struct {
	UltraFastNs    float64 `json:"ultra_fast_ns"`
	WorkerPathNs   float64 `json:"worker_path_ns"`
	HealthNs       float64 `json:"health_ns"`
	PoolMisses     uint64  `json:"pool_misses"`
	TasksSubmitted uint64  `json:"tasks_submitted"`
	TasksCompleted uint64  `json:"tasks_completed"`
	TasksRejected  uint64  `json:"tasks_rejected"`
}

// Comparison relates one path's latency across two runs.
type Comparison struct {
	Name          string  `json:"name"`
	CurrentNs     float64 `json:"current_ns"`
	PreviousNs    float64 `json:"previous_ns"`
	PercentChange float64 `json:"percent_change"`
	Significance  string  `json:"significance"` // "major", "minor", "negligible"
}

// Change significance thresholds, in percent.
const (
	MajorChangeThreshold      = 10.0
	MinorChangeThreshold      = 3.0
	NegligibleChangeThreshold = 1.0
)

// ToJSON renders the report with indentation.
func (r *Report) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
