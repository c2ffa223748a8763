// Command perf drives the framework's dispatch paths with synthetic load,
// prints per-path latencies, and saves a timestamped report for comparison
// with earlier runs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goflare/flare/internal/perf"
)

func main() {
	requests := flag.Int("requests", 200000, "requests per dispatch path")
	workers := flag.Int("workers", 8, "concurrent load workers")
	save := flag.Bool("save", true, "persist the report under results/")
	flag.Parse()

	tracker := perf.NewTracker()
	report := perf.Drive(tracker, perf.LoadOptions{
		Requests: *requests,
		Workers:  *workers,
	})

	tracker.Print(report)

	if *save {
		if err := tracker.Save(report); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		if cs, err := tracker.Compare(report); err == nil && len(cs) > 0 {
			fmt.Println("versus previous run:")
			tracker.PrintComparison(cs)
		}
	}
}
