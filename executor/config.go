package executor

import (
	"runtime"
	"time"
)

// Default tuning values. Core and max sizes scale with the host CPU count;
// the queue is deep enough to absorb multi-second bursts at six-figure RPS.
const (
	DefaultQueueCapacity        = 200000
	DefaultKeepAlive            = 30 * time.Second
	DefaultTargetUtilization    = 0.85
	DefaultScalingCheckInterval = 2 * time.Second

	// backlogWarnThreshold is the submitted-minus-completed backlog that makes
	// the monitor warn in work-stealing mode, where adaptive sizing is off.
	backlogWarnThreshold = 1000
)

// Config describes a worker pool. The zero value is not useful; start from
// DefaultConfig and override fields.
type Config struct {
	// CoreSize is the initial worker count kept alive regardless of load.
	CoreSize int
	// MaxSize is the upper bound on live workers.
	MaxSize int
	// QueueCapacity bounds the task queue. Ignored when SynchronousQueue or
	// WorkStealing is set.
	QueueCapacity int
	// KeepAlive is how long a worker above CoreSize may idle before exiting.
	KeepAlive time.Duration
	// SynchronousQueue makes every submission a direct handoff: it either
	// finds a worker immediately or overflows.
	SynchronousQueue bool
	// WorkStealing replaces the central queue with per-worker deques.
	// Adaptive sizing is disabled in this mode.
	WorkStealing bool
	// CallerRunsWhenRejected runs an overflowing task on the submitting
	// goroutine instead of failing the submission.
	CallerRunsWhenRejected bool
	// PrestartCoreThreads spawns all core workers eagerly at construction.
	PrestartCoreThreads bool
	// AdaptiveSizing enables the background monitor that moves CoreSize
	// between its initial value and MaxSize based on utilization.
	AdaptiveSizing bool
	// AdaptiveQueue records a 1.5x larger queue capacity when the live queue
	// runs above 80% fill. The recorded value is advisory: it applies to the
	// next pool constructed from this config, never to the live queue.
	AdaptiveQueue bool
	// CollectMetrics enables per-task execution timing.
	CollectMetrics bool
	// TargetUtilization is the active/live ratio the monitor steers toward.
	TargetUtilization float64
	// ScalingCheckInterval is the monitor tick period.
	ScalingCheckInterval time.Duration
}

// DefaultConfig returns the production defaults: 8x CPU core workers growing
// to 16x CPU, a bounded FIFO queue, caller-runs overflow, eager prestart, and
// adaptive sizing on.
func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{
		CoreSize:               8 * cpus,
		MaxSize:                16 * cpus,
		QueueCapacity:          DefaultQueueCapacity,
		KeepAlive:              DefaultKeepAlive,
		CallerRunsWhenRejected: true,
		PrestartCoreThreads:    true,
		AdaptiveSizing:         true,
		AdaptiveQueue:          true,
		TargetUtilization:      DefaultTargetUtilization,
		ScalingCheckInterval:   DefaultScalingCheckInterval,
	}
}

// sanitize fills in unset or nonsensical fields.
func (c Config) sanitize() Config {
	d := DefaultConfig()
	if c.CoreSize <= 0 {
		c.CoreSize = d.CoreSize
	}
	if c.MaxSize < c.CoreSize {
		c.MaxSize = c.CoreSize
	}
	if c.QueueCapacity < 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = d.KeepAlive
	}
	if c.TargetUtilization <= 0 || c.TargetUtilization > 1 {
		c.TargetUtilization = d.TargetUtilization
	}
	if c.ScalingCheckInterval <= 0 {
		c.ScalingCheckInterval = d.ScalingCheckInterval
	}
	return c
}
