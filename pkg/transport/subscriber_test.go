package transport

import (
    "errors"
    "testing"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

func TestSubscriptions_DispatchAndClose(t *testing.T) {
    var s Subscriptions
    var got []string
    var stopReason error
    s.Subscribe(wire.CmdAddr, func(err error, m wire.Message) {
        if err != nil { got = append(got, "err:"+err.Error()); return }
        got = append(got, m.Command)
    })
    s.SubscribeStop(func(r error) { stopReason = r })

    if !s.Dispatch(wire.MustEncode(wire.CmdAddr, wire.Addr{})) { t.Fatalf("expected listener") }
    if s.Dispatch(wire.MustEncode(wire.CmdVerack, nil)) { t.Fatalf("unexpected listener for verack") }

    boom := errors.New("boom")
    if !s.Close(boom) { t.Fatalf("first close must report true") }
    if s.Close(nil) { t.Fatalf("second close must be a no-op") }
    if stopReason != boom { t.Fatalf("stop reason = %v", stopReason) }
    if len(got) != 2 || got[0] != wire.CmdAddr || got[1] != "err:boom" {
        t.Fatalf("unexpected handler calls: %v", got)
    }
    if s.Dispatch(wire.MustEncode(wire.CmdAddr, wire.Addr{})) { t.Fatalf("dispatch after close") }
}

func TestSubscriptions_LateSubscribersSeeReason(t *testing.T) {
    var s Subscriptions
    s.Close(nil)
    var reason error
    s.SubscribeStop(func(r error) { reason = r })
    if !errors.Is(reason, ErrChannelStopped) { t.Fatalf("late stop reason = %v", reason) }
    called := false
    s.Subscribe(wire.CmdAddr, func(err error, _ wire.Message) { called = errors.Is(err, ErrChannelStopped) })
    if !called { t.Fatalf("late subscriber not notified") }
}
