// Package responder serves the seed side of the protocol: it answers the
// handshake and replies to getaddr with a sample of the local host pool, so
// any node can act as a seed for others.
package responder

import (
    "context"
    "log"
    "time"

    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-seeder/pkg/observability/metrics"
    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

// Acceptor answers the inbound half of a handshake.
type Acceptor interface {
    Accept(ch transport.Channel)
}

type Options struct {
    Acceptor Acceptor
    Source   hostpool.Source
    // MaxAddresses caps one addr reply; zero means wire.MaxAddrPerMessage.
    MaxAddresses int
    SendTimeout  time.Duration
    Logger       *log.Logger
}

type Responder struct {
    opts Options
}

func New(opts Options) *Responder {
    if opts.MaxAddresses <= 0 || opts.MaxAddresses > wire.MaxAddrPerMessage { opts.MaxAddresses = wire.MaxAddrPerMessage }
    if opts.SendTimeout <= 0 { opts.SendTimeout = 5 * time.Second }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &Responder{opts: opts}
}

// Serve registers the handlers on ch and starts its read loop.
func (r *Responder) Serve(ch transport.Channel) {
    if r.opts.Acceptor != nil { r.opts.Acceptor.Accept(ch) }
    ch.Subscribe(wire.CmdGetAddr, func(err error, _ wire.Message) {
        if err != nil { return }
        var addrs []wire.NetAddress
        if r.opts.Source != nil { addrs = r.opts.Source.Sample(r.opts.MaxAddresses) }
        ctx, cancel := context.WithTimeout(context.Background(), r.opts.SendTimeout)
        defer cancel()
        if err := ch.Send(ctx, wire.MustEncode(wire.CmdAddr, wire.Addr{Addresses: addrs})); err != nil {
            logutil.Debugf(r.opts.Logger, "addr reply to [%s] failed: %v", ch.Address(), err)
            ch.Stop(err)
            return
        }
        obsmetrics.GetAddrServed.Inc()
        logutil.Debugf(r.opts.Logger, "sent %d addresses to [%s]", len(addrs), ch.Address())
    })
    ch.Start()
}

var _ transport.Responder = (*Responder)(nil)
