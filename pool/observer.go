package pool

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// ObserveInterval is how often the observer inspects miss counters.
	ObserveInterval = 30 * time.Second
	// shrinkAfter is how long a pool must stay miss-free before shrinking.
	shrinkAfter = 10 * time.Minute
)

// Sizable is the part of Pool the observer needs; it lets one observer
// manage pools of different element types.
type Sizable interface {
	ResetMisses() uint64
	Capacity() int
	SetCapacity(n int)
}

// Observer periodically rebalances the capacity of its registered pools.
// Growth: when an interval's misses exceed 10% of the current capacity the
// limit grows by 1.5x up to MaxCapacity. Shrink: after shrinkAfter with zero
// misses the limit shrinks by 20% down to the pool's base capacity.
type Observer struct {
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	pools []observed

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type observed struct {
	pool     Sizable
	name     string
	base     int
	missFree time.Duration
}

// NewObserver returns an observer ticking at interval; non-positive interval
// uses ObserveInterval.
func NewObserver(interval time.Duration, logger *slog.Logger) *Observer {
	if interval <= 0 {
		interval = ObserveInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds a pool under the observer's management. The pool's current
// capacity becomes its shrink floor.
func (o *Observer) Register(name string, p Sizable) {
	o.mu.Lock()
	o.pools = append(o.pools, observed{pool: p, name: name, base: p.Capacity()})
	o.mu.Unlock()
}

// Start launches the background observation loop.
func (o *Observer) Start() {
	go o.loop()
}

// Stop terminates the loop and waits for it to exit.
func (o *Observer) Stop() {
	o.once.Do(func() { close(o.stop) })
	<-o.done
}

func (o *Observer) loop() {
	defer close(o.done)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.observe()
		case <-o.stop:
			return
		}
	}
}

func (o *Observer) observe() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.pools {
		ob := &o.pools[i]
		misses := ob.pool.ResetMisses()
		capacity := ob.pool.Capacity()

		if misses > uint64(capacity)/10 {
			ob.missFree = 0
			grown := capacity + capacity/2
			if grown > MaxCapacity {
				grown = MaxCapacity
			}
			if grown != capacity {
				ob.pool.SetCapacity(grown)
				o.logger.Info("object pool grown",
					"pool", ob.name, "misses", misses, "from", capacity, "to", grown)
			}
			continue
		}

		if misses == 0 {
			ob.missFree += o.interval
			if ob.missFree >= shrinkAfter && capacity > ob.base {
				shrunk := capacity - capacity/5
				if shrunk < ob.base {
					shrunk = ob.base
				}
				ob.pool.SetCapacity(shrunk)
				ob.missFree = 0
				o.logger.Info("object pool shrunk",
					"pool", ob.name, "from", capacity, "to", shrunk)
			}
		} else {
			ob.missFree = 0
		}
	}
}
