// Package seeder fills a host pool from a list of seed endpoints. Each run
// contacts all seeds concurrently, asks each for peer addresses, and calls
// its completion handler exactly once: nil when the pool grew,
// ErrOperationFailed when it did not, or a wrapped ErrCatastrophic when the
// seeding machinery itself failed.
package seeder

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-seeder/pkg/observability/metrics"
    "github.com/amirimatin/go-seeder/pkg/observability/tracing"
)

type Seeder struct {
    opts Options
}

func New(opts Options) (*Seeder, error) {
    opts.applyDefaults()
    if err := opts.Validate(); err != nil { return nil, err }
    return &Seeder{opts: opts}, nil
}

// run is the state of one Start call.
type run struct {
    id         string
    seeds      []endpoint.Endpoint
    startCount int
    began      time.Time
    strand     strand
    barrier    *barrier
    stores     sync.WaitGroup
    end        func()
}

// settle waits up to limit for the batches handed to the pool and reports
// whether all of them finished.
func (r *run) settle(limit time.Duration) bool {
    done := make(chan struct{})
    go func() { r.stores.Wait(); close(done) }()
    t := time.NewTimer(limit)
    defer t.Stop()
    select {
    case <-done:
        return true
    case <-t.C:
        return false
    }
}

// Start seeds the pool in the background and calls handler once with the
// result. A nil handler panics. With no seeds handler(nil) is called before
// Start returns. Canceling ctx abandons the seeds still in flight; the
// handler still fires.
func (s *Seeder) Start(ctx context.Context, seeds []endpoint.Endpoint, handler func(error)) {
    if handler == nil { panic("seeder: nil completion handler") }
    if len(seeds) == 0 {
        logutil.Infof(s.opts.Logger, "No seeds configured, seeding skipped")
        handler(nil)
        return
    }

    ctx, end := tracing.StartSpan(ctx, "seeder.run")
    r := &run{
        id:         uuid.NewString()[:8],
        seeds:      append([]endpoint.Endpoint(nil), seeds...),
        startCount: s.opts.Pool.Size(),
        began:      time.Now(),
        end:        end,
    }
    tracing.Annotate(ctx, "run", r.id)
    r.barrier = newBarrier(len(r.seeds), func(err error) { s.synced(r, err, handler) })

    logutil.Infof(s.opts.Logger, "Seeding run %s: contacting %d seeds (pool=%d)", r.id, len(r.seeds), r.startCount)
    for _, ep := range r.seeds {
        c := newSeedConn(s, r, ep)
        go c.seed(ctx)
    }
}

// Run is the blocking form of Start.
func (s *Seeder) Run(ctx context.Context, seeds []endpoint.Endpoint) error {
    done := make(chan error, 1)
    s.Start(ctx, seeds, func(err error) { done <- err })
    return <-done
}

// synced turns the barrier outcome into the run result.
func (s *Seeder) synced(r *run, err error, handler func(error)) {
    defer r.end()
    obsmetrics.SeedingRunDuration.Observe(time.Since(r.began).Seconds())
    if err != nil {
        obsmetrics.SeedingRuns.WithLabelValues("error").Inc()
        logutil.Errorf(s.opts.Logger, "Seeding run %s aborted: %v", r.id, err)
        handler(err)
        return
    }

    if !r.settle(s.opts.StoreGrace) {
        logutil.Warnf(s.opts.Logger, "Seeding run %s: stores still pending after %s", r.id, s.opts.StoreGrace)
    }
    size := s.opts.Pool.Size()
    obsmetrics.HostPoolSize.Set(float64(size))
    if size > r.startCount {
        obsmetrics.SeedingRuns.WithLabelValues("success").Inc()
        logutil.Infof(s.opts.Logger, "Seeding run %s complete: pool %d -> %d", r.id, r.startCount, size)
        handler(nil)
        return
    }
    obsmetrics.SeedingRuns.WithLabelValues("failed").Inc()
    logutil.Warnf(s.opts.Logger, "Seeding run %s found no new hosts (pool=%d)", r.id, size)
    handler(ErrOperationFailed)
}

// Outcome classifies a run result for status reporting.
func Outcome(err error) string {
    switch {
    case err == nil:
        return "success"
    case errors.Is(err, ErrOperationFailed):
        return "failed"
    default:
        return "error"
    }
}
