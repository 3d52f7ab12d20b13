package inmem

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/transport"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

func TestPipe_DeliversInOrder(t *testing.T) {
    a, b := Pipe("a", "b")
    got := make(chan string, 8)
    b.Subscribe(wire.CmdGetAddr, func(err error, m wire.Message) {
        if err == nil { got <- m.Command }
    })
    b.Subscribe(wire.CmdVerack, func(err error, m wire.Message) {
        if err == nil { got <- m.Command }
    })
    b.Start()

    ctx := context.Background()
    for _, cmd := range []string{wire.CmdVerack, wire.CmdGetAddr, wire.CmdVerack} {
        if err := a.Send(ctx, wire.MustEncode(cmd, nil)); err != nil { t.Fatalf("send %s: %v", cmd, err) }
    }
    for _, want := range []string{wire.CmdVerack, wire.CmdGetAddr, wire.CmdVerack} {
        select {
        case c := <-got:
            if c != want { t.Fatalf("got %s want %s", c, want) }
        case <-time.After(time.Second):
            t.Fatalf("timeout waiting for %s", want)
        }
    }
    if a.Address() != "b" || b.Address() != "a" { t.Fatalf("addresses: %s %s", a.Address(), b.Address()) }
}

func TestStop_PropagatesToPeer(t *testing.T) {
    a, b := Pipe("a", "b")
    a.Start(); b.Start()
    local := make(chan error, 1)
    remote := make(chan error, 1)
    a.SubscribeStop(func(r error) { local <- r })
    b.SubscribeStop(func(r error) { remote <- r })

    a.Stop(nil)
    a.Stop(errors.New("second stop ignored"))

    if r := wait(t, local); !errors.Is(r, transport.ErrChannelStopped) { t.Fatalf("local reason %v", r) }
    if r := wait(t, remote); !errors.Is(r, transport.ErrRemoteClosed) { t.Fatalf("remote reason %v", r) }

    if err := a.Send(context.Background(), wire.MustEncode(wire.CmdVerack, nil)); !errors.Is(err, transport.ErrChannelStopped) {
        t.Fatalf("send after stop: %v", err)
    }
    // late subscribers see the reason immediately
    late := make(chan error, 1)
    a.SubscribeStop(func(r error) { late <- r })
    wait(t, late)
}

func TestStop_QueuedMessagesArriveBeforeStop(t *testing.T) {
    for i := 0; i < 100; i++ {
        a, b := Pipe("a", "b")
        got := make(chan error, 16)
        b.Subscribe(wire.CmdVerack, func(err error, m wire.Message) {
            if err == nil { got <- nil }
        })
        b.SubscribeStop(func(r error) { got <- r })
        b.Start()

        for j := 0; j < 5; j++ {
            if err := a.Send(context.Background(), wire.MustEncode(wire.CmdVerack, nil)); err != nil { t.Fatalf("send: %v", err) }
        }
        a.Stop(nil)

        for j := 0; j < 5; j++ {
            if r := wait(t, got); r != nil { t.Fatalf("iteration %d: stop before message %d: %v", i, j, r) }
        }
        if r := wait(t, got); !errors.Is(r, transport.ErrRemoteClosed) { t.Fatalf("iteration %d: reason %v", i, r) }
    }
}

func TestStop_BeforeStartNotifies(t *testing.T) {
    a, _ := Pipe("a", "b")
    stopped := make(chan error, 1)
    a.SubscribeStop(func(r error) { stopped <- r })
    a.Stop(nil)
    a.Start()
    if r := wait(t, stopped); !errors.Is(r, transport.ErrChannelStopped) { t.Fatalf("reason %v", r) }
}

func TestNetwork_ConnectServes(t *testing.T) {
    n := NewNetwork()
    served := make(chan transport.Channel, 1)
    n.Listen("seed", 8333, serveFunc(func(ch transport.Channel) { served <- ch }))

    ch, err := n.Connect(context.Background(), "seed", 8333)
    if err != nil { t.Fatalf("connect: %v", err) }
    defer ch.Stop(nil)
    select {
    case <-served:
    default:
        t.Fatalf("responder was not invoked")
    }

    if _, err := n.Connect(context.Background(), "nobody", 1); !errors.Is(err, ErrConnectionRefused) {
        t.Fatalf("expected refused, got %v", err)
    }
    n.Close("seed", 8333)
    if _, err := n.Connect(context.Background(), "seed", 8333); !errors.Is(err, ErrConnectionRefused) {
        t.Fatalf("expected refused after close, got %v", err)
    }
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    if _, err := n.Connect(ctx, "seed", 8333); !errors.Is(err, context.Canceled) {
        t.Fatalf("expected canceled, got %v", err)
    }
}

type serveFunc func(ch transport.Channel)

func (f serveFunc) Serve(ch transport.Channel) { f(ch) }

func wait(t *testing.T, c chan error) error {
    t.Helper()
    select {
    case r := <-c:
        return r
    case <-time.After(time.Second):
        t.Fatalf("timeout")
        return nil
    }
}
