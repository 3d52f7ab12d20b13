package seeder

import (
    "log"
    "time"

    "github.com/amirimatin/go-seeder/pkg/handshake"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/transport"
)

// DefaultSeedTimeout bounds one seed from connect to the addr reply.
const DefaultSeedTimeout = 60 * time.Second

type Options struct {
    Connector  transport.Connector
    Negotiator handshake.Negotiator
    Pool       hostpool.Pool
    Logger     *log.Logger

    // SeedTimeout bounds each seed chain; zero means DefaultSeedTimeout.
    SeedTimeout time.Duration
    // StoreGrace bounds how long a finished run waits for address batches
    // still being written to the pool before it measures growth; zero
    // means SeedTimeout.
    StoreGrace time.Duration
}

func (o *Options) applyDefaults() {
    if o.Logger == nil { o.Logger = log.Default() }
    if o.SeedTimeout <= 0 { o.SeedTimeout = DefaultSeedTimeout }
    if o.StoreGrace <= 0 { o.StoreGrace = o.SeedTimeout }
}

func (o Options) Validate() error {
    if o.Connector == nil { return ErrNoConnector }
    if o.Negotiator == nil { return ErrNoNegotiator }
    if o.Pool == nil { return ErrNoPool }
    return nil
}
