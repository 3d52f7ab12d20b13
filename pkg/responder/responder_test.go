package responder

import (
    "context"
    "io"
    "log"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/handshake"
    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/transport/inmem"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

func TestServe_AnswersGetAddr(t *testing.T) {
    quiet := log.New(io.Discard, "", 0)
    src := hostpool.NewMemory(0)
    for i := 1; i <= 5; i++ { src.Store(wire.NetAddress{Host: "10.0.0.1", Port: uint16(i)}, nil) }

    n := inmem.NewNetwork()
    n.Listen("seed", 8333, New(Options{Acceptor: handshake.New(handshake.Options{Logger: quiet}), Source: src, MaxAddresses: 3, Logger: quiet}))

    ch, err := n.Connect(context.Background(), "seed", 8333)
    if err != nil { t.Fatalf("connect: %v", err) }
    defer ch.Stop(nil)
    got := make(chan wire.Addr, 1)
    ch.Subscribe(wire.CmdAddr, func(err error, m wire.Message) {
        if err != nil { return }
        a, derr := wire.DecodeAddr(m)
        if derr != nil { t.Errorf("decode: %v", derr); return }
        got <- a
    })
    ch.Start()

    if err := handshake.New(handshake.Options{Logger: quiet}).Negotiate(context.Background(), ch, false); err != nil {
        t.Fatalf("handshake: %v", err)
    }
    if err := ch.Send(context.Background(), wire.MustEncode(wire.CmdGetAddr, nil)); err != nil {
        t.Fatalf("getaddr: %v", err)
    }
    select {
    case a := <-got:
        if len(a.Addresses) != 3 { t.Fatalf("got %d addresses, want 3", len(a.Addresses)) }
    case <-time.After(2 * time.Second):
        t.Fatalf("no addr reply")
    }
}

func TestServe_EmptySource(t *testing.T) {
    a, b := inmem.Pipe("client", "seed")
    New(Options{Logger: log.New(io.Discard, "", 0)}).Serve(b)
    got := make(chan int, 1)
    a.Subscribe(wire.CmdAddr, func(err error, m wire.Message) {
        if err != nil { return }
        addr, _ := wire.DecodeAddr(m)
        got <- len(addr.Addresses)
    })
    a.Start()
    if err := a.Send(context.Background(), wire.MustEncode(wire.CmdGetAddr, nil)); err != nil { t.Fatalf("send: %v", err) }
    select {
    case n := <-got:
        if n != 0 { t.Fatalf("want empty reply, got %d", n) }
    case <-time.After(2 * time.Second):
        t.Fatalf("no addr reply")
    }
}
