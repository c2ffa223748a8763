// Package executor implements the adaptive worker pool that backs the
// dispatch engine's worker path. It is a bounded task executor with three
// interchangeable queueing modes (bounded FIFO, synchronous handoff,
// work-stealing), caller-runs overflow, and a background monitor that tunes
// the core worker count to observed utilization.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrOverflow is returned when the queue is full, every worker slot is
	// taken, and caller-runs is disabled.
	ErrOverflow = errors.New("executor: pool saturated")
	// ErrShutdown is returned for submissions after Shutdown.
	ErrShutdown = errors.New("executor: pool is shut down")
	// ErrNilTask is returned for nil task submissions.
	ErrNilTask = errors.New("executor: nil task")
)

// Pool is a bounded task executor. Construct with NewPool; the zero value is
// unusable.
type Pool struct {
	cfg         Config
	initialCore int32

	core   atomic.Int32 // adaptive core size, initialCore..MaxSize
	live   atomic.Int32 // workers currently alive
	active atomic.Int32 // workers currently executing a task

	tasks chan func()
	steal *stealScheduler

	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
	execNanos atomic.Int64

	nextQueueCap atomic.Int64

	mu     sync.RWMutex // serializes submissions against close(tasks)
	closed bool

	wg     sync.WaitGroup
	logger *slog.Logger

	monitorStop chan struct{}
	monitorDone chan struct{}
	monitorOnce sync.Once
}

// NewPool builds and starts a pool from cfg. Core workers are spawned
// eagerly when PrestartCoreThreads is set; otherwise workers come up on
// demand as tasks arrive.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	cfg = cfg.sanitize()
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		cfg:         cfg,
		initialCore: int32(cfg.CoreSize),
		logger:      logger,
		monitorStop: make(chan struct{}),
		monitorDone: make(chan struct{}),
	}
	p.core.Store(int32(cfg.CoreSize))
	p.nextQueueCap.Store(int64(cfg.QueueCapacity))

	switch {
	case cfg.WorkStealing:
		p.steal = newStealScheduler(cfg.CoreSize)
		for i := 0; i < cfg.CoreSize; i++ {
			p.live.Add(1)
			p.wg.Add(1)
			go p.stealWorker(i)
		}
	case cfg.SynchronousQueue:
		p.tasks = make(chan func())
	default:
		p.tasks = make(chan func(), cfg.QueueCapacity)
	}

	if p.steal == nil && cfg.PrestartCoreThreads {
		for p.live.Load() < p.core.Load() {
			if !p.trySpawn(p.core.Load(), nil) {
				break
			}
		}
	}

	go p.monitor()
	return p
}

// Execute submits a nullary task. When the queue is full and the worker count
// is at MaxSize the task runs on the calling goroutine (caller-runs), unless
// that policy is disabled, in which case ErrOverflow is returned.
func (p *Pool) Execute(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	w := p.wrap(task)

	p.mu.RLock()
	p.submitted.Add(1)
	if p.closed {
		p.mu.RUnlock()
		p.rejected.Add(1)
		return ErrShutdown
	}

	if p.steal != nil {
		p.steal.push(w)
		p.mu.RUnlock()
		return nil
	}

	// Below core: hand the task to a fresh worker directly.
	if p.live.Load() < p.core.Load() && p.trySpawn(p.core.Load(), w) {
		p.mu.RUnlock()
		return nil
	}

	select {
	case p.tasks <- w:
		p.mu.RUnlock()
		return nil
	default:
	}

	// Queue full: grow toward MaxSize, the new worker takes the task.
	if p.trySpawn(int32(p.cfg.MaxSize), w) {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	if p.cfg.CallerRunsWhenRejected {
		w()
		return nil
	}
	p.rejected.Add(1)
	return ErrOverflow
}

// Submit runs task on the pool and returns a Future for its result. The
// overflow policies of Execute apply.
func (p *Pool) Submit(task func() (any, error)) (*Future, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	f := newFuture()
	err := p.Execute(func() {
		v, err := task()
		f.complete(v, err)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// trySpawn starts a new worker with an optional first task if the live count
// is below limit. Returns false when the slot race is lost.
func (p *Pool) trySpawn(limit int32, first func()) bool {
	for {
		n := p.live.Load()
		if n >= limit {
			return false
		}
		if p.live.CompareAndSwap(n, n+1) {
			p.wg.Add(1)
			go p.worker(first)
			return true
		}
	}
}

// worker executes first (if any), then loops on the queue until shutdown or
// keep-alive expiry while above the core size.
func (p *Pool) worker(first func()) {
	defer func() {
		p.live.Add(-1)
		p.wg.Done()
	}()

	if first != nil {
		first()
	}

	idle := time.NewTimer(p.cfg.KeepAlive)
	defer idle.Stop()

	for {
		select {
		case w, ok := <-p.tasks:
			if !ok {
				return
			}
			w()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.cfg.KeepAlive)
		case <-idle.C:
			if p.live.Load() > p.core.Load() {
				return
			}
			idle.Reset(p.cfg.KeepAlive)
		}
	}
}

// wrap adds active/completed accounting, and execution timing when metric
// collection is on.
func (p *Pool) wrap(task func()) func() {
	if !p.cfg.CollectMetrics {
		return func() {
			p.active.Add(1)
			defer func() {
				p.active.Add(-1)
				p.completed.Add(1)
			}()
			task()
		}
	}
	return func() {
		p.active.Add(1)
		start := time.Now()
		defer func() {
			p.execNanos.Add(time.Since(start).Nanoseconds())
			p.active.Add(-1)
			p.completed.Add(1)
		}()
		task()
	}
}

// Shutdown stops accepting tasks. Queued and in-flight tasks run to
// completion; use AwaitTermination to wait for them.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if p.tasks != nil {
			close(p.tasks)
		}
		if p.steal != nil {
			p.steal.close()
		}
	}
	p.mu.Unlock()
	p.stopMonitor()
}

// ShutdownNow stops accepting tasks and drains the queue, returning the
// tasks that never started. Running tasks are not interrupted; they observe
// cancellation through their own contexts at the next blocking boundary.
func (p *Pool) ShutdownNow() []func() {
	p.Shutdown()
	var pending []func()
	if p.steal != nil {
		return p.steal.drain()
	}
	for {
		select {
		case w, ok := <-p.tasks:
			if !ok {
				return pending
			}
			pending = append(pending, w)
		default:
			return pending
		}
	}
}

// AwaitTermination blocks until all workers exit or the deadline elapses.
// It reports whether termination completed in time.
func (p *Pool) AwaitTermination(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func (p *Pool) stopMonitor() {
	p.monitorOnce.Do(func() { close(p.monitorStop) })
	<-p.monitorDone
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Submitted    uint64
	Completed    uint64
	Rejected     uint64
	LiveWorkers  int32
	ActiveWorker int32
	CoreSize     int32
	QueueDepth   int
	// TotalExecNanos and AvgExecNanos are zero unless CollectMetrics is set.
	TotalExecNanos int64
	AvgExecNanos   int64
}

// Snapshot returns the current counters.
func (p *Pool) Snapshot() Stats {
	s := Stats{
		Submitted:      p.submitted.Load(),
		Completed:      p.completed.Load(),
		Rejected:       p.rejected.Load(),
		LiveWorkers:    p.live.Load(),
		ActiveWorker:   p.active.Load(),
		CoreSize:       p.core.Load(),
		TotalExecNanos: p.execNanos.Load(),
	}
	if p.tasks != nil {
		s.QueueDepth = len(p.tasks)
	} else if p.steal != nil {
		s.QueueDepth = p.steal.depth()
	}
	if s.Completed > 0 {
		s.AvgExecNanos = s.TotalExecNanos / int64(s.Completed)
	}
	return s
}

// NextQueueCapacity reports the queue capacity the adaptive monitor
// recommends for the next pool start. Equal to the configured capacity until
// sustained saturation is observed.
func (p *Pool) NextQueueCapacity() int { return int(p.nextQueueCap.Load()) }

// Future carries the eventual result of a Submit call.
type Future struct {
	done chan struct{}
	val  any
	err  error
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

func (f *Future) complete(v any, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Get blocks until the task completes or ctx is cancelled.
func (f *Future) Get(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
