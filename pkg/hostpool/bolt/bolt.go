// Package boltpool is a durable host pool backed by a single bolt bucket
// keyed by host:port.
package boltpool

import (
    "encoding/json"
    "log"
    "os"
    "path/filepath"
    "sync"
    "sync/atomic"
    "time"

    "github.com/boltdb/bolt"

    "github.com/amirimatin/go-seeder/pkg/hostpool"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
    "github.com/amirimatin/go-seeder/pkg/wire"
)

var bucket = []byte("hosts")

type Options struct {
    // Path of the database file; its directory is created if missing.
    Path   string
    Logger *log.Logger
}

type Pool struct {
    db     *bolt.DB
    logger *log.Logger
    size   atomic.Int64
    closed atomic.Bool
    mu     sync.Mutex
}

func Open(opts Options) (*Pool, error) {
    if opts.Logger == nil { opts.Logger = log.Default() }
    if opts.Path == "" { opts.Path = filepath.Join("data", "hosts.db") }
    if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil { return nil, err }
    db, err := bolt.Open(opts.Path, 0o600, &bolt.Options{Timeout: time.Second})
    if err != nil { return nil, err }
    p := &Pool{db: db, logger: opts.Logger}
    err = db.Update(func(tx *bolt.Tx) error {
        b, err := tx.CreateBucketIfNotExists(bucket)
        if err != nil { return err }
        n, err := count(b)
        p.size.Store(n)
        return err
    })
    if err != nil { _ = db.Close(); return nil, err }
    logutil.Infof(p.logger, "host pool opened at %s (%d hosts)", opts.Path, p.size.Load())
    return p, nil
}

func (p *Pool) Size() int { return int(p.size.Load()) }

// Store writes addr in its own transaction; done observes the commit result.
func (p *Pool) Store(addr wire.NetAddress, done func(error)) {
    if err := hostpool.Validate(addr); err != nil { call(done, err); return }
    if p.closed.Load() { call(done, hostpool.ErrClosed); return }
    p.mu.Lock()
    defer p.mu.Unlock()
    err := p.db.Update(func(tx *bolt.Tx) error {
        b := tx.Bucket(bucket)
        key := []byte(addr.Key())
        fresh := true
        if prev := b.Get(key); prev != nil {
            fresh = false
            var old wire.NetAddress
            if json.Unmarshal(prev, &old) == nil && old.Timestamp.After(addr.Timestamp) {
                addr.Timestamp = old.Timestamp
            }
        }
        buf, err := json.Marshal(addr)
        if err != nil { return err }
        if err := b.Put(key, buf); err != nil { return err }
        if fresh { tx.OnCommit(func() { p.size.Add(1) }) }
        return nil
    })
    call(done, err)
}

func (p *Pool) Sample(max int) []wire.NetAddress {
    all, err := p.all()
    if err != nil { logutil.Warnf(p.logger, "host pool read: %v", err); return nil }
    out := hostpool.Shuffle(all)
    if max > 0 && len(out) > max { out = out[:max] }
    return out
}

func (p *Pool) Snapshot() ([]byte, error) {
    all, err := p.all()
    if err != nil { return nil, err }
    return hostpool.EncodeSnapshot(all)
}

// Restore replaces the bucket content with the snapshot.
func (p *Pool) Restore(buf []byte) error {
    addrs, err := hostpool.DecodeSnapshot(buf)
    if err != nil { return err }
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.db.Update(func(tx *bolt.Tx) error {
        if err := tx.DeleteBucket(bucket); err != nil && err != bolt.ErrBucketNotFound { return err }
        b, err := tx.CreateBucket(bucket)
        if err != nil { return err }
        for _, a := range addrs {
            v, err := json.Marshal(a)
            if err != nil { return err }
            if err := b.Put([]byte(a.Key()), v); err != nil { return err }
        }
        n, err := count(b)
        if err != nil { return err }
        tx.OnCommit(func() { p.size.Store(n) })
        return nil
    })
}

func (p *Pool) Close() error {
    if !p.closed.CompareAndSwap(false, true) { return nil }
    return p.db.Close()
}

func (p *Pool) all() ([]wire.NetAddress, error) {
    var out []wire.NetAddress
    err := p.db.View(func(tx *bolt.Tx) error {
        return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
            var a wire.NetAddress
            if err := json.Unmarshal(v, &a); err != nil { return err }
            out = append(out, a)
            return nil
        })
    })
    return out, err
}

func count(b *bolt.Bucket) (int64, error) {
    var n int64
    err := b.ForEach(func(_, _ []byte) error { n++; return nil })
    return n, err
}

func call(done func(error), err error) {
    if done != nil { done(err) }
}

var (
    _ hostpool.Pool        = (*Pool)(nil)
    _ hostpool.Source      = (*Pool)(nil)
    _ hostpool.Snapshotter = (*Pool)(nil)
)
