package hostpool

import (
    "errors"
    "fmt"
    "math/rand"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

var (
    ErrInvalidAddress = errors.New("hostpool: invalid address")
    ErrClosed         = errors.New("hostpool: closed")
)

// Pool is the shared store of known peer addresses as seen by the seeder:
// it only needs the size and a store operation. Implementations must be
// safe for concurrent use.
type Pool interface {
    Size() int
    // Store inserts or refreshes addr and reports the outcome through done
    // (which may be nil). Duplicate keys collapse into one entry.
    Store(addr wire.NetAddress, done func(error))
}

// Source hands out known addresses, e.g. to answer getaddr.
type Source interface {
    Sample(max int) []wire.NetAddress
}

// Snapshotter encodes and restores the full pool content.
type Snapshotter interface {
    Snapshot() ([]byte, error)
    Restore(buf []byte) error
}

// Validate rejects addresses that cannot be dialed.
func Validate(a wire.NetAddress) error {
    if a.Host == "" { return fmt.Errorf("%w: empty host", ErrInvalidAddress) }
    if a.Port == 0 { return fmt.Errorf("%w: zero port (%s)", ErrInvalidAddress, a.Host) }
    return nil
}

func finish(done func(error), err error) {
    if done != nil { done(err) }
}

// Shuffle randomizes addrs in place and returns it.
func Shuffle(addrs []wire.NetAddress) []wire.NetAddress {
    rand.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
    return addrs
}

// sample picks up to max entries in random order; max <= 0 means all.
func sample(all []wire.NetAddress, max int) []wire.NetAddress {
    all = Shuffle(all)
    if max > 0 && len(all) > max { all = all[:max] }
    return all
}
