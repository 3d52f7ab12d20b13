package hostpool

import (
    "encoding/json"
    "sort"

    lru "github.com/hashicorp/golang-lru/v2"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

// DefaultCapacity bounds an in-memory pool when no capacity is given.
const DefaultCapacity = 1000

// Memory is an in-process pool bounded by an LRU: once full, the least
// recently stored address is evicted. Store applies synchronously and
// invokes done before returning.
type Memory struct {
    cache *lru.Cache[string, wire.NetAddress]
}

func NewMemory(capacity int) *Memory {
    if capacity <= 0 { capacity = DefaultCapacity }
    c, err := lru.New[string, wire.NetAddress](capacity)
    if err != nil { panic(err) } // only fails for capacity <= 0
    return &Memory{cache: c}
}

func (m *Memory) Size() int { return m.cache.Len() }

func (m *Memory) Store(addr wire.NetAddress, done func(error)) {
    if err := Validate(addr); err != nil { finish(done, err); return }
    if old, ok := m.cache.Peek(addr.Key()); ok && old.Timestamp.After(addr.Timestamp) {
        addr.Timestamp = old.Timestamp
    }
    m.cache.Add(addr.Key(), addr)
    finish(done, nil)
}

func (m *Memory) Sample(max int) []wire.NetAddress { return sample(m.cache.Values(), max) }

// Contains reports whether an address with the given key is known.
func (m *Memory) Contains(key string) bool { return m.cache.Contains(key) }

type snapshotV1 struct {
    Version   int               `json:"version"`
    Addresses []wire.NetAddress `json:"addresses"`
}

// Snapshot encodes the pool as stable JSON (sorted by key).
func (m *Memory) Snapshot() ([]byte, error) { return encodeSnapshot(m.cache.Values()) }

func (m *Memory) Restore(buf []byte) error {
    addrs, err := decodeSnapshot(buf)
    if err != nil { return err }
    m.cache.Purge()
    for _, a := range addrs { m.Store(a, nil) }
    return nil
}

func encodeSnapshot(addrs []wire.NetAddress) ([]byte, error) {
    sort.Slice(addrs, func(i, j int) bool { return addrs[i].Key() < addrs[j].Key() })
    return json.Marshal(snapshotV1{Version: 1, Addresses: addrs})
}

func decodeSnapshot(buf []byte) ([]wire.NetAddress, error) {
    var s snapshotV1
    if err := json.Unmarshal(buf, &s); err != nil { return nil, err }
    // For now we only support Version 1.
    out := s.Addresses[:0]
    for _, a := range s.Addresses {
        if Validate(a) == nil { out = append(out, a) }
    }
    return out, nil
}

// EncodeSnapshot and DecodeSnapshot expose the snapshot format to other
// pool implementations.
func EncodeSnapshot(addrs []wire.NetAddress) ([]byte, error) { return encodeSnapshot(addrs) }
func DecodeSnapshot(buf []byte) ([]wire.NetAddress, error)   { return decodeSnapshot(buf) }

var (
    _ Pool        = (*Memory)(nil)
    _ Source      = (*Memory)(nil)
    _ Snapshotter = (*Memory)(nil)
)
