package perf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

const (
	resultsDir = "results"
	latestFile = "latest.json"
)

// Tracker saves and compares perf reports under results/.
type Tracker struct {
	dir string
}

// NewTracker returns a tracker writing to the default results directory.
func NewTracker() *Tracker { return &Tracker{dir: resultsDir} }

// NewReport stamps a report with the host environment.
func (t *Tracker) NewReport() *Report {
	return &Report{
		Timestamp: time.Now(),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
	}
}

// Save writes the report both under a timestamped name and as latest.json.
func (t *Tracker) Save(report *Report) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("perf: create results dir: %w", err)
	}
	stamped := filepath.Join(t.dir,
		fmt.Sprintf("perf_%s.json", report.Timestamp.Format("2006-01-02_15-04-05")))
	if err := t.write(report, stamped); err != nil {
		return err
	}
	return t.write(report, filepath.Join(t.dir, latestFile))
}

func (t *Tracker) write(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadPrevious loads the second-newest timestamped report.
func (t *Tracker) LoadPrevious() (*Report, error) {
	files, err := t.resultFiles()
	if err != nil {
		return nil, err
	}
	if len(files) < 2 {
		return nil, fmt.Errorf("perf: no previous results")
	}
	return t.load(filepath.Join(t.dir, files[1]))
}

func (t *Tracker) load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *Tracker) resultFiles() ([]string, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "perf_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Compare relates the current report's paths to the previous run.
func (t *Tracker) Compare(current *Report) ([]Comparison, error) {
	previous, err := t.LoadPrevious()
	if err != nil {
		return nil, err
	}
	prevByName := make(map[string]PathResult, len(previous.Results))
	for _, r := range previous.Results {
		prevByName[r.Name] = r
	}

	var out []Comparison
	for _, cur := range current.Results {
		prev, ok := prevByName[cur.Name]
		if !ok || prev.NsPerOp == 0 {
			continue
		}
		change := (cur.NsPerOp - prev.NsPerOp) / prev.NsPerOp * 100
		c := Comparison{
			Name:          cur.Name,
			CurrentNs:     cur.NsPerOp,
			PreviousNs:    prev.NsPerOp,
			PercentChange: change,
		}
		abs := change
		if abs < 0 {
			abs = -abs
		}
		switch {
		case abs >= MajorChangeThreshold:
			c.Significance = "major"
		case abs >= MinorChangeThreshold:
			c.Significance = "minor"
		default:
			c.Significance = "negligible"
		}
		out = append(out, c)
	}
	return out, nil
}

// Print writes a human summary of the report to stdout.
func (t *Tracker) Print(report *Report) {
	fmt.Printf("perf run %s (%s %s/%s, %d CPUs)\n",
		report.Timestamp.Format("2006-01-02 15:04:05"),
		report.GoVersion, report.OS, report.Arch, report.NumCPU)
	for _, r := range report.Results {
		fmt.Printf("  %-14s %10.1f ns/op %12.0f req/s (workers=%d)\n",
			r.Name, r.NsPerOp, r.RequestsPerSec, r.Workers)
	}
	s := report.Summary
	fmt.Printf("  pool misses=%d, tasks submitted=%d completed=%d rejected=%d\n",
		s.PoolMisses, s.TasksSubmitted, s.TasksCompleted, s.TasksRejected)
}

// PrintComparison writes the per-path deltas to stdout.
func (t *Tracker) PrintComparison(cs []Comparison) {
	for _, c := range cs {
		fmt.Printf("  %-14s %+6.1f%% (%s)\n", c.Name, c.PercentChange, c.Significance)
	}
}
