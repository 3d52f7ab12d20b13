package gossip

import (
    "context"
    "errors"
    "io"
    "log"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

var quiet = log.New(io.Discard, "", 0)

func startNode(t *testing.T, ctx context.Context, id, peer string, join ...string) *Discovery {
    t.Helper()
    d, err := New(Options{NodeID: id, Bind: "127.0.0.1:0", Peer: peer, Join: join, Logger: quiet, ProbeInterval: 100 * time.Millisecond, SuspicionMult: 2})
    if err != nil { t.Fatalf("new %s: %v", id, err) }
    if err := d.Start(ctx); err != nil { t.Fatalf("start %s: %v", id, err) }
    t.Cleanup(func() { _ = d.Stop() })
    return d
}

func TestNew_Validates(t *testing.T) {
    if _, err := New(Options{Bind: ":0"}); !errors.Is(err, ErrNoNodeID) { t.Fatalf("got %v", err) }
    if _, err := New(Options{NodeID: "a"}); !errors.Is(err, ErrNoBind) { t.Fatalf("got %v", err) }
    if _, err := New(Options{NodeID: "a", Bind: ":0", Peer: "nope"}); err == nil { t.Fatalf("expected peer address error") }
    d, _ := New(Options{NodeID: "a", Bind: ":0"})
    if err := d.Join([]string{"127.0.0.1:1"}); !errors.Is(err, ErrNotStarted) { t.Fatalf("got %v", err) }
    if d.HealthScore() != -1 { t.Fatalf("health score before start") }
}

func TestSeeds_FromMembers(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
    defer cancel()

    n1 := startNode(t, ctx, "n1", "10.0.0.1:8333")
    n2 := startNode(t, ctx, "n2", "10.0.0.2:8333", n1.LocalAddr())
    consumer := startNode(t, ctx, "c1", "", n1.LocalAddr())

    awaitSeeds(t, consumer, 2, 5*time.Second)
    awaitSeeds(t, n1, 1, 5*time.Second)

    got := map[endpoint.Endpoint]bool{}
    for _, ep := range consumer.Seeds() { got[ep] = true }
    if !got[endpoint.MustNew("10.0.0.1", 8333)] || !got[endpoint.MustNew("10.0.0.2", 8333)] { t.Fatalf("seeds %v", got) }

    // n1 sees n2 only; consumers advertise nothing
    if s := n1.Seeds(); len(s) != 1 || s[0] != endpoint.MustNew("10.0.0.2", 8333) { t.Fatalf("n1 seeds %v", s) }

    _ = n2.Leave()
    _ = n2.Stop()
    awaitSeeds(t, consumer, 1, 5*time.Second)
}

func TestEvents_Join(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    n1 := startNode(t, ctx, "e1", "10.0.0.1:8333")
    startNode(t, ctx, "e2", "10.0.0.2:8333", n1.LocalAddr())

    deadline := time.After(5 * time.Second)
    for {
        select {
        case ev := <-n1.Events():
            if ev.Type == EventJoin && ev.Member.ID == "e2" {
                if ep, ok := ev.Member.Peer(); !ok || ep.Port != 8333 { t.Fatalf("peer meta missing: %+v", ev.Member) }
                return
            }
        case <-deadline:
            t.Fatalf("no join event for e2")
        }
    }
}

func awaitSeeds(t *testing.T, d *Discovery, want int, timeout time.Duration) {
    t.Helper()
    deadline := time.Now().Add(timeout)
    for {
        if got := d.Seeds(); len(got) == want { return }
        if time.Now().After(deadline) { t.Fatalf("seeds timeout: got=%v want=%d", d.Seeds(), want) }
        time.Sleep(100 * time.Millisecond)
    }
}
