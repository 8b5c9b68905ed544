package session

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/ai4cs/internal/logging"
)

// DefaultCleanupInterval is the sweep period used when none is configured.
const DefaultCleanupInterval = time.Minute

// Sweeper is the part of a store the cleanup service drives.
type Sweeper interface {
	CleanupExpired() int
	Stats() Stats
}

// CleanupService periodically removes expired sessions.
type CleanupService struct {
	store    Sweeper
	interval time.Duration
	log      *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewCleanupService creates a cleanup service. A non-positive interval uses
// DefaultCleanupInterval.
func NewCleanupService(store Sweeper, interval time.Duration, log *logging.Logger) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupService{
		store:    store,
		interval: interval,
		log:      log.Sub("session.cleanup"),
	}
}

// Start launches the sweep loop. Calling Start on a running service is a no-op.
func (c *CleanupService) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(loopCtx, c.done)
}

// Run starts the service and blocks until ctx is done.
func (c *CleanupService) Run(ctx context.Context) error {
	c.Start(ctx)
	<-ctx.Done()
	c.Stop()
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the sweep loop is active.
func (c *CleanupService) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *CleanupService) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", c.interval).Msg("session cleanup started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("session cleanup stopping")
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *CleanupService) sweep() {
	start := time.Now()
	removed := c.store.CleanupExpired()
	if removed > 0 {
		c.log.Info().Int("removed", removed).Dur("duration", time.Since(start)).Msg("cleaned up expired sessions")
	}
	st := c.store.Stats()
	c.log.Debug().Int("total", st.Total).Int("busy", st.Busy).Msg("session stats after cleanup")
}
