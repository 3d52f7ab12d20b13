package boltpool

import (
    "path/filepath"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

func TestPool_StoreReopen(t *testing.T) {
    path := filepath.Join(t.TempDir(), "hosts.db")
    p, err := Open(Options{Path: path})
    if err != nil { t.Fatalf("open: %v", err) }

    now := time.Now().UTC().Truncate(time.Second)
    for _, a := range []wire.NetAddress{
        {Host: "10.0.0.1", Port: 8333, Timestamp: now},
        {Host: "10.0.0.1", Port: 8333, Timestamp: now},
        {Host: "10.0.0.2", Port: 8333, Timestamp: now},
    } {
        var got error
        p.Store(a, func(err error) { got = err })
        if got != nil { t.Fatalf("store %s: %v", a.Key(), got) }
    }
    if p.Size() != 2 { t.Fatalf("size=%d want 2", p.Size()) }
    if err := p.Close(); err != nil { t.Fatalf("close: %v", err) }

    p2, err := Open(Options{Path: path})
    if err != nil { t.Fatalf("reopen: %v", err) }
    defer p2.Close()
    if p2.Size() != 2 { t.Fatalf("size after reopen=%d want 2", p2.Size()) }
    if n := len(p2.Sample(1)); n != 1 { t.Fatalf("sample(1) returned %d", n) }
}

func TestPool_RejectsInvalidAndClosed(t *testing.T) {
    p, err := Open(Options{Path: filepath.Join(t.TempDir(), "h.db")})
    if err != nil { t.Fatalf("open: %v", err) }
    var got error
    p.Store(wire.NetAddress{Host: "x"}, func(err error) { got = err })
    if got == nil { t.Fatalf("expected invalid address error") }

    _ = p.Close()
    p.Store(wire.NetAddress{Host: "x", Port: 1}, func(err error) { got = err })
    if got != hostpool.ErrClosed { t.Fatalf("got %v want ErrClosed", got) }
}

func TestPool_SnapshotRestore(t *testing.T) {
    src, err := Open(Options{Path: filepath.Join(t.TempDir(), "a.db")})
    if err != nil { t.Fatalf("open: %v", err) }
    defer src.Close()
    src.Store(wire.NetAddress{Host: "a", Port: 1}, nil)
    src.Store(wire.NetAddress{Host: "b", Port: 2}, nil)
    snap, err := src.Snapshot()
    if err != nil { t.Fatalf("snapshot: %v", err) }

    dst, err := Open(Options{Path: filepath.Join(t.TempDir(), "b.db")})
    if err != nil { t.Fatalf("open: %v", err) }
    defer dst.Close()
    dst.Store(wire.NetAddress{Host: "old", Port: 9}, nil)
    if err := dst.Restore(snap); err != nil { t.Fatalf("restore: %v", err) }
    if dst.Size() != 2 { t.Fatalf("size=%d want 2", dst.Size()) }

    snap2, _ := dst.Snapshot()
    if string(snap2) != string(snap) {
        t.Fatalf("round-trip mismatch:\n got: %s\nwant: %s", snap2, snap)
    }
}
