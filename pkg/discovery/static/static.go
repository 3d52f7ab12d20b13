package static

import (
    "strings"

    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

type staticSeeds struct {
    seeds []endpoint.Endpoint
}

func (s *staticSeeds) Seeds() []endpoint.Endpoint { return append([]endpoint.Endpoint(nil), s.seeds...) }

// New returns a Discovery that always returns the given endpoints, in order.
func New(seeds ...endpoint.Endpoint) discovery.Discovery {
    cleaned := make([]endpoint.Endpoint, 0, len(seeds))
    for _, ep := range seeds {
        if !ep.IsZero() { cleaned = append(cleaned, ep) }
    }
    return &staticSeeds{seeds: cleaned}
}

// FromCSV parses a comma-separated host:port list. Any invalid item fails
// the whole list.
func FromCSV(csv string) (discovery.Discovery, error) {
    eps, err := endpoint.ParseList(csv)
    if err != nil { return nil, err }
    return New(eps...), nil
}

// Parse converts a comma-separated list into trimmed, non-empty items.
func Parse(csv string) []string {
    if csv == "" {
        return nil
    }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}
