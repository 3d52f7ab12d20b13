// Package preset holds the well-known seed lists selectable by network name.
package preset

import (
    "errors"
    "fmt"
    "sort"
    "strings"

    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/discovery/static"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

const (
    Mainnet = "mainnet"
    Testnet = "testnet"
)

var ErrUnknownPreset = errors.New("preset: unknown network")

var presets = map[string][]endpoint.Endpoint{
    Mainnet: {
        endpoint.MustNew("seed.bitnodes.io", 8333),
        endpoint.MustNew("seed.bitcoinstats.com", 8333),
        endpoint.MustNew("seed.bitcoin.sipa.be", 8333),
        endpoint.MustNew("dnsseed.bluematt.me", 8333),
        endpoint.MustNew("seed.bitcoin.jonasschnelli.ch", 8333),
        endpoint.MustNew("dnsseed.bitcoin.dashjr.org", 8333),
    },
    Testnet: {
        endpoint.MustNew("testnet-seed.alexykot.me", 18333),
        endpoint.MustNew("testnet-seed.bitcoin.petertodd.org", 18333),
        endpoint.MustNew("testnet-seed.bluematt.me", 18333),
        endpoint.MustNew("testnet-seed.bitcoin.schildbach.de", 18333),
    },
}

// Seeds returns a copy of the named seed list.
func Seeds(name string) ([]endpoint.Endpoint, error) {
    eps, ok := presets[strings.ToLower(strings.TrimSpace(name))]
    if !ok { return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPreset, name, strings.Join(Names(), ", ")) }
    return append([]endpoint.Endpoint(nil), eps...), nil
}

// New returns a static Discovery for the named preset.
func New(name string) (discovery.Discovery, error) {
    eps, err := Seeds(name)
    if err != nil { return nil, err }
    return static.New(eps...), nil
}

// Names lists the known presets, sorted.
func Names() []string {
    out := make([]string, 0, len(presets))
    for k := range presets { out = append(out, k) }
    sort.Strings(out)
    return out
}
