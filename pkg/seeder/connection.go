package seeder

import (
    "context"
    "errors"
    "fmt"
    "sync/atomic"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-seeder/pkg/observability/metrics"
    "github.com/amirimatin/go-seeder/pkg/observability/tracing"
    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

// Terminal stages, used as the seed_outcomes_total label.
const (
    stageConnect   = "connect"
    stageHandshake = "handshake"
    stageSend      = "send"
    stageReceive   = "receive"
    stageStop      = "stop"
    stageTimeout   = "timeout"
    stageHarvested = "harvested"
    stagePanic     = "panic"
)

// seedConn drives one seed through connect, handshake, getaddr and addr.
// Every terminal path reports to the run's barrier through report, which
// only lets the first report through.
type seedConn struct {
    s      *Seeder
    r      *run
    target endpoint.Endpoint

    ch       transport.Channel
    reported atomic.Bool
    done     chan struct{}
}

func newSeedConn(s *Seeder, r *run, target endpoint.Endpoint) *seedConn {
    return &seedConn{s: s, r: r, target: target, done: make(chan struct{})}
}

// seed runs the chain on the calling goroutine and returns once this seed
// has reported, or its deadline passed.
func (c *seedConn) seed(ctx context.Context) {
    defer c.rescue()
    ctx, end := tracing.StartSpan(ctx, "seeder.seed")
    defer end()
    tracing.Annotate(ctx, "seed", c.target.String())
    ctx, cancel := context.WithTimeout(ctx, c.s.opts.SeedTimeout)
    defer cancel()
    log := c.s.opts.Logger

    ch, err := c.s.opts.Connector.Connect(ctx, c.target.Host, c.target.Port)
    if err != nil {
        logutil.Infof(log, "Failure connecting to seed [%s] %v", c.target, err)
        c.post(func() { c.report(nil, stageConnect) })
        return
    }
    c.ch = ch
    ch.SubscribeStop(func(reason error) {
        c.post(func() { c.handleStop(reason) })
    })
    ch.Start()

    if err := c.s.opts.Negotiator.Negotiate(ctx, ch, false); err != nil {
        logutil.Debugf(log, "Failure in handshake with seed [%s] %v", c.target, err)
        // the stop subscription reports
        ch.Stop(fmt.Errorf("%s: %w", stageHandshake, err))
        c.await(ctx)
        return
    }

    ch.Subscribe(wire.CmdAddr, func(err error, m wire.Message) {
        c.post(func() { c.handleReceive(err, m) })
    })
    if err := ch.Send(ctx, wire.MustEncode(wire.CmdGetAddr, nil)); err != nil {
        logutil.Debugf(log, "Failure sending address request to seed [%s] %v", c.target, err)
        c.post(func() { c.report(nil, stageSend) })
        ch.Stop(err)
        return
    }
    c.await(ctx)
}

// await blocks until the seed reported. On deadline the channel is stopped
// and the seed reports on its own.
func (c *seedConn) await(ctx context.Context) {
    select {
    case <-c.done:
    case <-ctx.Done():
        reason := ctx.Err()
        if errors.Is(reason, context.DeadlineExceeded) { reason = ErrSeedTimeout }
        logutil.Debugf(c.s.opts.Logger, "Seed [%s] abandoned: %v", c.target, reason)
        c.ch.Stop(reason)
        c.post(func() { c.report(nil, stageTimeout) })
    }
}

// handleReceive runs on the strand.
func (c *seedConn) handleReceive(err error, m wire.Message) {
    if c.reported.Load() { return }
    log := c.s.opts.Logger
    if err != nil {
        logutil.Debugf(log, "Failure receiving addresses from seed [%s] %v", c.target, err)
        c.report(nil, stageReceive)
        return
    }
    batch, err := wire.DecodeAddr(m)
    if err != nil {
        logutil.Debugf(log, "Invalid addresses from seed [%s] %v", c.target, err)
        c.report(nil, stageReceive)
        c.ch.Stop(err)
        return
    }

    logutil.Debugf(log, "Storing addresses from seed [%s] (%d)", c.target, len(batch.Addresses))
    obsmetrics.AddressesReceived.Add(float64(len(batch.Addresses)))
    c.r.stores.Add(1)
    go c.store(batch.Addresses)

    c.report(nil, stageHarvested)
    c.ch.Stop(transport.ErrChannelStopped)
}

// store hands a batch to the pool off the strand. Failures are only logged.
func (c *seedConn) store(addrs []wire.NetAddress) {
    defer c.r.stores.Done()
    log := c.s.opts.Logger
    for _, a := range addrs {
        a := a
        c.s.opts.Pool.Store(a, func(err error) {
            if err == nil { return }
            obsmetrics.StoreErrors.Inc()
            logutil.Debugf(log, "Failure storing address [%s] from seed [%s] %v", a.Key(), c.target, err)
        })
    }
}

// handleStop runs on the strand.
func (c *seedConn) handleStop(reason error) {
    if !errors.Is(reason, transport.ErrChannelStopped) {
        logutil.Debugf(c.s.opts.Logger, "Seed channel [%s] stopped: %v", c.target, reason)
    }
    c.report(nil, stageStop)
}

// report forwards the first outcome of this seed to the barrier and reports
// whether it was the first.
func (c *seedConn) report(err error, stage string) bool {
    if !c.reported.CompareAndSwap(false, true) { return false }
    obsmetrics.SeedOutcomes.WithLabelValues(stage).Inc()
    close(c.done)
    c.r.barrier.report(err)
    return true
}

// post runs fn on the run's strand; a panic in fn fails the run.
func (c *seedConn) post(fn func()) {
    c.r.strand.post(func() {
        defer c.rescue()
        fn()
    })
}

func (c *seedConn) rescue() {
    p := recover()
    if p == nil { return }
    err := fmt.Errorf("%w: seed [%s]: %v", ErrCatastrophic, c.target, p)
    logutil.Errorf(c.s.opts.Logger, "%v", err)
    if c.reported.Load() {
        // outcome already delivered, the panic belongs to the caller's handler
        panic(p)
    }
    // queued ahead of the stop report the channel is about to produce
    c.r.strand.post(func() {
        if !c.report(err, stagePanic) { logutil.Warnf(c.s.opts.Logger, "dropped after report: %v", err) }
    })
    if c.ch != nil { c.ch.Stop(err) }
}
