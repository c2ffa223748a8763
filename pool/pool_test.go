package pool

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entity struct{ id int }

func TestPoolAcquireMissAllocates(t *testing.T) {
	n := 0
	p := New(4, func() *entity { n++; return &entity{id: n} })

	e := p.Acquire()
	require.NotNil(t, e)
	assert.Equal(t, uint64(1), p.Misses())
	assert.Equal(t, int64(1), p.InFlight())

	p.Release(e)
	assert.Equal(t, int64(0), p.InFlight())

	// The next acquire reuses the released entity, no new miss.
	e2 := p.Acquire()
	assert.Same(t, e, e2)
	assert.Equal(t, uint64(1), p.Misses())
}

func TestPoolDropsWhenFull(t *testing.T) {
	p := New(2, func() *entity { return &entity{} })

	a, b, c := p.Acquire(), p.Acquire(), p.Acquire()
	p.Release(a)
	p.Release(b)
	p.Release(c) // over capacity, dropped

	assert.Equal(t, 2, p.Idle())
}

func TestPoolCapacityClamping(t *testing.T) {
	p := New(0, func() int { return 0 })
	assert.Equal(t, DefaultCapacity, p.Capacity())

	p.SetCapacity(-5)
	assert.Equal(t, 1, p.Capacity())

	p.SetCapacity(MaxCapacity * 2)
	assert.Equal(t, MaxCapacity, p.Capacity())
}

func TestPoolResetMisses(t *testing.T) {
	p := New(1, func() int { return 0 })
	p.Acquire()
	p.Acquire()
	assert.Equal(t, uint64(2), p.ResetMisses())
	assert.Equal(t, uint64(0), p.Misses())
}

func TestPoolConcurrentAcquireRelease(t *testing.T) {
	p := New(64, func() *entity { return &entity{} })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				e := p.Acquire()
				p.Release(e)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), p.InFlight())
	assert.LessOrEqual(t, p.Idle(), p.Capacity())
}

func TestObserverGrowsOnMisses(t *testing.T) {
	p := New(100, func() *entity { return &entity{} })
	o := NewObserver(10*time.Millisecond, slog.Default())
	o.Register("entities", p)

	// 11 misses > 10% of 100.
	for i := 0; i < 11; i++ {
		p.Acquire()
	}

	o.Start()
	time.Sleep(35 * time.Millisecond)
	o.Stop()

	assert.Equal(t, 150, p.Capacity())
}

func TestObserverGrowthCeiling(t *testing.T) {
	p := New(MaxCapacity, func() int { return 0 })
	o := NewObserver(10*time.Millisecond, nil)
	o.Register("ceil", p)

	for i := 0; i < MaxCapacity/5; i++ {
		p.Acquire()
	}

	o.Start()
	time.Sleep(35 * time.Millisecond)
	o.Stop()

	assert.Equal(t, MaxCapacity, p.Capacity())
}

func TestObserverNoGrowthUnderThreshold(t *testing.T) {
	p := New(100, func() int { return 0 })
	o := NewObserver(10*time.Millisecond, nil)
	o.Register("quiet", p)

	// 5 misses is under the 10% threshold.
	for i := 0; i < 5; i++ {
		p.Acquire()
	}

	o.Start()
	time.Sleep(35 * time.Millisecond)
	o.Stop()

	assert.Equal(t, 100, p.Capacity())
}
