package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goflare/flare/breaker"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, "0.0.0.0", o.Host)
	assert.Equal(t, 8080, o.Port)
	assert.Equal(t, 30*time.Second, o.RequestTimeout)
	assert.Equal(t, 60*time.Second, o.IdleTimeout)
	assert.True(t, o.UseObjectPooling)
	assert.False(t, o.EnableCircuitBreaker)
	assert.Equal(t, breaker.DefaultThreshold, o.CircuitBreakerThreshold)
}

func TestChainableTuners(t *testing.T) {
	a := testApp()
	defer stopApp(t, a)

	a.Host("127.0.0.1").
		Port(9999).
		AsyncMiddleware(true).
		CircuitBreaker(true).
		CircuitBreakerThreshold(7).
		CircuitBreakerResetTimeout(5 * time.Second).
		AdaptivePoolSizing(false).
		PoolSize(321)

	cfg := a.Config()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.True(t, cfg.AsyncMiddleware)
	assert.True(t, cfg.EnableCircuitBreaker)
	assert.True(t, a.Breaker().Enabled())
	assert.Equal(t, 321, a.reqPool.Capacity())
}

func TestResetCircuitBreaker(t *testing.T) {
	a := testApp()
	defer stopApp(t, a)
	a.CircuitBreaker(true).CircuitBreakerThreshold(1)

	a.Breaker().Failure()
	require.Equal(t, breaker.Open, a.Breaker().State())

	a.ResetCircuitBreaker()
	assert.Equal(t, breaker.Closed, a.Breaker().State())
}

type recordingPlugin struct {
	registered, started, stopped bool
}

func (p *recordingPlugin) Register(*App) error { p.registered = true; return nil }
func (p *recordingPlugin) OnStart(*App) error  { p.started = true; return nil }
func (p *recordingPlugin) OnStop(*App) error   { p.stopped = true; return nil }

func TestPluginLifecycle(t *testing.T) {
	a := testApp()
	p := &recordingPlugin{}
	a.Register(p)
	assert.True(t, p.registered, "Register hook runs immediately")

	require.NoError(t, a.Stop())
	assert.True(t, p.stopped)
}

func TestPluginFuncsAdapter(t *testing.T) {
	called := false
	p := PluginFuncs{RegisterFunc: func(*App) error { called = true; return nil }}
	a := testApp()
	defer stopApp(t, a)
	a.Register(p)
	assert.True(t, called)
	assert.NoError(t, p.OnStart(a))
	assert.NoError(t, p.OnStop(a))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flare.yaml")
	yaml := `
host: 10.0.0.5
port: 9090
workers:
  core_size: 4
  max_size: 8
  queue_capacity: 1000
breaker:
  enabled: true
  threshold: 9
  reset_timeout_seconds: 3
pool:
  size: 250
metrics:
  enabled: true
  path: /internal/metrics
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	a := testApp()
	defer stopApp(t, a)
	require.NoError(t, a.LoadConfig(path))

	cfg := a.Config()
	assert.Equal(t, "10.0.0.5", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 4, cfg.Worker.CoreSize)
	assert.Equal(t, 8, cfg.Worker.MaxSize)
	assert.Equal(t, 1000, cfg.Worker.QueueCapacity)
	assert.True(t, cfg.EnableCircuitBreaker)
	assert.Equal(t, 250, a.reqPool.Capacity())
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, "/internal/metrics", cfg.MetricsPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	a := testApp()
	defer stopApp(t, a)
	assert.Error(t, a.LoadConfig("/does/not/exist.yaml"))
}

func TestLogFileRouting(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	a := testApp()
	defer stopApp(t, a)
	a.LogFile(logPath, 10, 2, 7)
	a.Logger().Info("hello")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestMetricsEndpoint(t *testing.T) {
	a := testApp(func(o *Options) { o.EnableMetrics = true })
	defer stopApp(t, a)
	a.Get("/x", func(c *Ctx) error { return c.Send("ok") })

	serve(t, a, "GET", "/x", "")
	fctx := serve(t, a, "GET", "/metrics", "")
	body := string(fctx.Response.Body())
	assert.Contains(t, body, "flare_requests_total")
	assert.Contains(t, body, "flare_object_pool_capacity")
}

func TestRestartAppliesRecordedQueueCapacity(t *testing.T) {
	a := testApp()
	a.Get("/x", func(c *Ctx) error { return c.Send("ok") })
	serve(t, a, "GET", "/x", "")

	first := a.WorkerPool()
	require.NoError(t, a.Stop())

	// Runtime rebuild constructs a fresh pool from the recorded capacity.
	a.Handler()
	second := a.WorkerPool()
	assert.NotSame(t, first, second)
	assert.Equal(t, first.NextQueueCapacity(), second.NextQueueCapacity())
	require.NoError(t, a.Stop())
}
