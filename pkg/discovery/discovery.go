package discovery

import (
    "log"
    "sort"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
)

// Discovery abstracts how seed endpoints are provided. Implementations
// return a fresh slice the caller may keep.
type Discovery interface {
    Seeds() []endpoint.Endpoint
}

// Func adapts a function to Discovery.
type Func func() []endpoint.Endpoint

func (f Func) Seeds() []endpoint.Endpoint { return f() }

// Merge returns a Discovery yielding the union of all sources, in order of
// first appearance.
func Merge(sources ...Discovery) Discovery {
    return Func(func() []endpoint.Endpoint {
        seen := make(map[endpoint.Endpoint]struct{})
        var out []endpoint.Endpoint
        for _, s := range sources {
            if s == nil { continue }
            for _, ep := range s.Seeds() {
                if _, ok := seen[ep]; ok { continue }
                seen[ep] = struct{}{}
                out = append(out, ep)
            }
        }
        return out
    })
}

// Endpoints parses host:port items, logging and dropping invalid ones. The
// result is de-duplicated and sorted.
func Endpoints(items []string, logger *log.Logger) []endpoint.Endpoint {
    if logger == nil { logger = log.Default() }
    set := make(map[endpoint.Endpoint]struct{}, len(items))
    for _, it := range items {
        ep, err := endpoint.Parse(it)
        if err != nil {
            logutil.Warnf(logger, "discovery: skipping seed %q: %v", it, err)
            continue
        }
        set[ep] = struct{}{}
    }
    out := make([]endpoint.Endpoint, 0, len(set))
    for ep := range set { out = append(out, ep) }
    sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
    return out
}
