package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape accepted by LoadConfig. Every field is
// optional; absent fields keep their current value.
type FileConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Workers struct {
		CoreSize         int  `yaml:"core_size"`
		MaxSize          int  `yaml:"max_size"`
		QueueCapacity    int  `yaml:"queue_capacity"`
		KeepAliveSeconds int  `yaml:"keep_alive_seconds"`
		SynchronousQueue bool `yaml:"synchronous_queue"`
		WorkStealing     bool `yaml:"work_stealing"`
		CallerRuns       bool `yaml:"caller_runs"`
		CollectMetrics   bool `yaml:"collect_metrics"`
	} `yaml:"workers"`

	Pool struct {
		Size     int   `yaml:"size"`
		Adaptive *bool `yaml:"adaptive"`
	} `yaml:"pool"`

	Breaker struct {
		Enabled             bool `yaml:"enabled"`
		Threshold           int  `yaml:"threshold"`
		ResetTimeoutSeconds int  `yaml:"reset_timeout_seconds"`
	} `yaml:"breaker"`

	Log struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// LoadConfig reads a YAML configuration file and applies it over the current
// tunables. Call before Listen.
func (a *App) LoadConfig(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("app: read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("app: parse config: %w", err)
	}
	a.applyFileConfig(&fc)
	return nil
}

func (a *App) applyFileConfig(fc *FileConfig) {
	if fc.Host != "" {
		a.opts.Host = fc.Host
	}
	if fc.Port > 0 {
		a.opts.Port = fc.Port
	}

	w := &a.opts.Worker
	if fc.Workers.CoreSize > 0 {
		w.CoreSize = fc.Workers.CoreSize
	}
	if fc.Workers.MaxSize > 0 {
		w.MaxSize = fc.Workers.MaxSize
	}
	if fc.Workers.QueueCapacity > 0 {
		w.QueueCapacity = fc.Workers.QueueCapacity
	}
	if fc.Workers.KeepAliveSeconds > 0 {
		w.KeepAlive = time.Duration(fc.Workers.KeepAliveSeconds) * time.Second
	}
	if fc.Workers.SynchronousQueue {
		w.SynchronousQueue = true
	}
	if fc.Workers.WorkStealing {
		w.WorkStealing = true
	}
	if fc.Workers.CallerRuns {
		w.CallerRunsWhenRejected = true
	}
	if fc.Workers.CollectMetrics {
		w.CollectMetrics = true
	}

	if fc.Pool.Size > 0 {
		a.PoolSize(fc.Pool.Size)
	}
	if fc.Pool.Adaptive != nil {
		a.AdaptivePoolSizing(*fc.Pool.Adaptive)
	}

	if fc.Breaker.Enabled {
		a.CircuitBreaker(true)
	}
	if fc.Breaker.Threshold > 0 {
		a.CircuitBreakerThreshold(fc.Breaker.Threshold)
	}
	if fc.Breaker.ResetTimeoutSeconds > 0 {
		a.CircuitBreakerResetTimeout(time.Duration(fc.Breaker.ResetTimeoutSeconds) * time.Second)
	}

	if fc.Log.File != "" {
		a.LogFile(fc.Log.File, fc.Log.MaxSizeMB, fc.Log.MaxBackups, fc.Log.MaxAgeDays)
	}

	if fc.Metrics.Enabled {
		a.opts.EnableMetrics = true
		if fc.Metrics.Path != "" {
			a.opts.MetricsPath = fc.Metrics.Path
		}
	}
}

// LogFile routes the application log to a size-rotated file. Zero limits
// fall back to 100 MB files, 5 backups, 30 days.
func (a *App) LogFile(path string, maxSizeMB, maxBackups, maxAgeDays int) *App {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	if maxBackups <= 0 {
		maxBackups = 5
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	a.logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return a
}
