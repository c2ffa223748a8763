package executor

import "time"

// monitor is the single background goroutine that tunes the pool. In the
// default mode it adjusts the core size toward the target utilization and
// records adaptive queue growth; in work-stealing mode it only watches the
// backlog and warns on sustained buildup.
func (p *Pool) monitor() {
	defer close(p.monitorDone)

	if p.steal == nil && !p.cfg.AdaptiveSizing && !p.cfg.AdaptiveQueue {
		<-p.monitorStop
		return
	}

	ticker := time.NewTicker(p.cfg.ScalingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p.steal != nil {
				p.checkBacklog()
				continue
			}
			if p.cfg.AdaptiveSizing {
				p.adjustCore()
			}
			if p.cfg.AdaptiveQueue && !p.cfg.SynchronousQueue {
				p.recordQueueGrowth()
			}
		case <-p.monitorStop:
			return
		}
	}
}

// adjustCore raises the core size by 2 under high utilization and lowers it
// by 1 when the pool runs below half the target. Workers above the lowered
// core decay naturally through keep-alive expiry.
func (p *Pool) adjustCore() {
	live := p.live.Load()
	if live == 0 {
		return
	}
	util := float64(p.active.Load()) / float64(live)
	core := p.core.Load()
	maxSize := int32(p.cfg.MaxSize)

	switch {
	case util > p.cfg.TargetUtilization && core < maxSize:
		next := core + 2
		if next > maxSize {
			next = maxSize
		}
		p.core.Store(next)
		for p.live.Load() < next {
			if !p.trySpawn(next, nil) {
				break
			}
		}
		p.logger.Info("worker pool scaled up",
			"utilization", util, "core", next, "max", maxSize)
	case util < p.cfg.TargetUtilization/2 && core > p.initialCore:
		p.core.Store(core - 1)
		p.logger.Info("worker pool scaled down",
			"utilization", util, "core", core-1)
	}
}

// recordQueueGrowth notes a 1.5x larger capacity when the queue runs above
// 80% fill. The live channel is never resized; the recommendation is read by
// NextQueueCapacity at the next pool start.
func (p *Pool) recordQueueGrowth() {
	capacity := cap(p.tasks)
	if capacity == 0 {
		return
	}
	if len(p.tasks)*5 > capacity*4 {
		next := int64(capacity) + int64(capacity)/2
		if p.nextQueueCap.Load() < next {
			p.nextQueueCap.Store(next)
			p.logger.Warn("task queue saturated, larger capacity recorded for next start",
				"fill", len(p.tasks), "capacity", capacity, "next_capacity", next)
		}
	}
}

// checkBacklog is the work-stealing mode's monitor duty: adaptive sizing is
// off, so it only surfaces sustained backlog.
func (p *Pool) checkBacklog() {
	backlog := p.submitted.Load() - p.completed.Load() - p.rejected.Load()
	if backlog > backlogWarnThreshold {
		p.logger.Warn("work-stealing backlog building up",
			"backlog", backlog, "workers", p.live.Load())
	}
}
