package perf

import (
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/goflare/flare/app"
)

// LoadOptions shape a measurement run.
type LoadOptions struct {
	Requests int // per path
	Workers  int // concurrent drivers
}

// DefaultLoadOptions is a quick run suitable for a laptop.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Requests: 200000, Workers: 8}
}

// Drive builds a reference app, pushes load down each dispatch path, and
// returns the populated report.
func Drive(t *Tracker, opts LoadOptions) *Report {
	a := app.New(func(o *app.Options) {
		o.Worker.AdaptiveSizing = false
		o.AdaptivePoolSizing = false
	})
	defer func() { _ = a.Stop() }()

	a.Get("/bench/static", func(c *app.Ctx) error {
		return c.JSON(`{"ok":true}`)
	})
	a.Get("/bench/users/:id", func(c *app.Ctx) error {
		return c.JSON(map[string]string{"id": c.Param("id")})
	})
	a.Post("/bench/echo", func(c *app.Ctx) error {
		return c.SendBytes(c.Body())
	})

	h := a.Handler()
	report := t.NewReport()

	paths := []struct {
		name   string
		method string
		uri    string
		body   string
	}{
		{"health", "GET", "/health", ""},
		{"ultra_fast", "GET", "/bench/static", ""},
		{"fast_params", "GET", "/bench/users/42", ""},
		{"worker_path", "POST", "/bench/echo", `{"payload":"x"}`},
	}

	for _, p := range paths {
		report.Results = append(report.Results, measure(h, p.name, p.method, p.uri, p.body, opts))
	}

	snap := a.WorkerPool().Snapshot()
	report.Summary = Summary{
		UltraFastNs:    pathNs(report, "ultra_fast"),
		WorkerPathNs:   pathNs(report, "worker_path"),
		HealthNs:       pathNs(report, "health"),
		PoolMisses:     a.EntityPoolMisses(),
		TasksSubmitted: snap.Submitted,
		TasksCompleted: snap.Completed,
		TasksRejected:  snap.Rejected,
	}
	return report
}

func pathNs(r *Report, name string) float64 {
	for _, p := range r.Results {
		if p.Name == name {
			return p.NsPerOp
		}
	}
	return 0
}

// measure fires opts.Requests exchanges at the handler from opts.Workers
// goroutines and times the whole batch.
func measure(h fasthttp.RequestHandler, name, method, uri, body string, opts LoadOptions) PathResult {
	perWorker := opts.Requests / opts.Workers
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var req fasthttp.Request
			req.Header.SetMethod(method)
			req.SetRequestURI(uri)
			if body != "" {
				req.SetBodyString(body)
			}
			for i := 0; i < perWorker; i++ {
				var fctx fasthttp.RequestCtx
				fctx.Init(&req, nil, nil)
				h(&fctx)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	total := perWorker * opts.Workers
	return PathResult{
		Name:           name,
		Requests:       total,
		NsPerOp:        float64(elapsed.Nanoseconds()) / float64(total),
		RequestsPerSec: float64(total) / elapsed.Seconds(),
		Workers:        opts.Workers,
	}
}
