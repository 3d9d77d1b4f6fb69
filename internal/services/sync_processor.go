package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runner performs one complete sync cycle.
type Runner interface {
	SyncAll(ctx context.Context) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Interval is how often a full sync cycle runs (default: 5m)
	Interval time.Duration

	// RunOnStart triggers a cycle as soon as the processor starts (default: true)
	RunOnStart bool
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval:   5 * time.Minute,
		RunOnStart: true,
	}
}

// SyncProcessor is the background timer that runs a full sync periodically.
type SyncProcessor struct {
	runner Runner
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cycles  int
	lastErr error
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(runner Runner, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		runner: runner,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	if p.runner == nil {
		p.mu.Unlock()
		return fmt.Errorf("sync processor has no runner")
	}
	p.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	p.stopCh, p.doneCh = stopCh, doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Sync processor started", "interval", p.config.Interval)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns how many cycles ran and the error of the last one.
func (p *SyncProcessor) Stats() (cycles int, lastErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycles, p.lastErr
}

// runLoop watches only the channels of the Start call that spawned it.
func (p *SyncProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.runCycle(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

func (p *SyncProcessor) runCycle(ctx context.Context) {
	start := time.Now()
	err := p.runner.SyncAll(ctx)

	p.mu.Lock()
	p.cycles++
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		slog.WarnContext(ctx, "Sync cycle failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return
	}
	slog.DebugContext(ctx, "Sync cycle completed", "duration_ms", time.Since(start).Milliseconds())
}
