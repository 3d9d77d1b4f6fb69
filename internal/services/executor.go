package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

var (
	syncTracer       = otel.Tracer("budgetsync/services")
	syncMeter        = otel.Meter("budgetsync/services")
	taskDuration, _  = syncMeter.Float64Histogram("sync.task.duration", metric.WithDescription("Sync task duration in seconds"), metric.WithUnit("s"))
	taskTotal, _     = syncMeter.Int64Counter("sync.task.total", metric.WithDescription("Sync tasks executed by status"))
	itemOutcomes, _  = syncMeter.Int64Counter("sync.items.total", metric.WithDescription("Pushed records by kind and outcome"))
	mergedRecords, _ = syncMeter.Int64Counter("sync.merged.total", metric.WithDescription("Pulled records by kind and action"))
)

// Executor runs sync tasks. Run blocks until fn returns or ctx is done.
type Executor interface {
	Run(ctx context.Context, name string, fn func(context.Context) error) error
}

// InlineExecutor runs tasks on the calling goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return traced(ctx, name, fn)
}

// PoolExecutor runs at most size tasks at once on background goroutines.
// A started task is detached from the caller's cancellation: a caller that
// stops waiting gets ctx.Err() while the task runs to completion.
type PoolExecutor struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewPoolExecutor(size int) *PoolExecutor {
	if size < 1 {
		size = 1
	}
	return &PoolExecutor{sem: semaphore.NewWeighted(int64(size))}
}

func (p *PoolExecutor) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		done <- traced(context.WithoutCancel(ctx), name, fn)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started task has finished or ctx is done.
func (p *PoolExecutor) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func traced(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := syncTracer.Start(ctx, "sync."+name,
		trace.WithAttributes(attribute.String("sync.task", name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	taskTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("task", name), attribute.String("status", status)))
	taskDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("task", name)))
	return err
}

// runTask runs fn through exec and hands back its value. When the caller
// stops waiting the zero value is returned with ctx's error.
func runTask[T any](ctx context.Context, exec Executor, name string, fn func(context.Context) (T, error)) (T, error) {
	var (
		mu  sync.Mutex
		out T
	)
	err := exec.Run(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		mu.Lock()
		out = v
		mu.Unlock()
		return err
	})

	mu.Lock()
	defer mu.Unlock()
	if err != nil && errors.Is(err, ctx.Err()) {
		var zero T
		return zero, err
	}
	return out, err
}

func recordItem(ctx context.Context, kind ItemKind, outcome string) {
	itemOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome)))
}

func recordMerge(ctx context.Context, kind ItemKind, r PullReport) {
	for action, n := range map[string]int{"created": r.Created, "updated": r.Updated, "skipped": r.Skipped} {
		if n > 0 {
			mergedRecords.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("kind", string(kind)),
				attribute.String("action", action)))
		}
	}
}
