package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically sweeps idle sessions out of a Store. It is started at
// process initialization and closed during graceful shutdown.
type Reaper struct {
	store    *Store
	interval time.Duration
	maxIdle  time.Duration
	logger   *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewReaper creates a reaper that sweeps the store every interval, removing
// sessions idle for longer than maxIdle.
func NewReaper(store *Store, interval, maxIdle time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.run()
}

// Close signals the sweep loop to stop and waits for it to exit.
func (r *Reaper) Close() {
	close(r.stop)
	r.wg.Wait()
}

func (r *Reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("session reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("max_idle", r.maxIdle),
	)

	for {
		select {
		case <-ticker.C:
			removed := r.store.Sweep(time.Now(), r.maxIdle)
			if removed > 0 {
				r.logger.Info("reaped idle sessions",
					zap.Int("removed", removed),
					zap.Int("remaining", r.store.Len()),
				)
			}
		case <-r.stop:
			r.logger.Debug("session reaper stopped")
			return
		}
	}
}
