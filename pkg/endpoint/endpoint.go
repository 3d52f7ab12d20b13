package endpoint

import (
    "errors"
    "fmt"
    "net"
    "strconv"
    "strings"
)

var (
    ErrEmptyHost   = errors.New("endpoint: empty host")
    ErrInvalidPort = errors.New("endpoint: invalid port")
)

// Endpoint identifies a seed or a discovered peer by host name (or IP
// literal) and port. The zero value is not a valid endpoint.
type Endpoint struct {
    Host string
    Port uint16
}

// New validates host and port and returns an Endpoint.
func New(host string, port int) (Endpoint, error) {
    host = strings.TrimSpace(host)
    host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
    if host == "" { return Endpoint{}, ErrEmptyHost }
    if port <= 0 || port > 65535 {
        return Endpoint{}, fmt.Errorf("%w: %d", ErrInvalidPort, port)
    }
    return Endpoint{Host: host, Port: uint16(port)}, nil
}

// MustNew is New for static tables; it panics on invalid input.
func MustNew(host string, port int) Endpoint {
    ep, err := New(host, port)
    if err != nil { panic(err) }
    return ep
}

// Parse accepts "host:port" and "[v6]:port".
func Parse(s string) (Endpoint, error) {
    host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
    if err != nil { return Endpoint{}, fmt.Errorf("endpoint: parse %q: %w", s, err) }
    port, err := strconv.Atoi(portStr)
    if err != nil { return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidPort, portStr) }
    return New(host, port)
}

// ParseList parses a comma-separated list. Blank items are skipped; the
// first malformed item aborts with an error.
func ParseList(csv string) ([]Endpoint, error) {
    if strings.TrimSpace(csv) == "" { return nil, nil }
    var out []Endpoint
    for _, p := range strings.Split(csv, ",") {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        ep, err := Parse(p)
        if err != nil { return nil, err }
        out = append(out, ep)
    }
    return out, nil
}

// String renders host:port, bracketing IPv6 literals.
func (e Endpoint) String() string {
    return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// IsZero reports whether e is the zero Endpoint.
func (e Endpoint) IsZero() bool { return e.Host == "" && e.Port == 0 }

// Strings renders a list of endpoints.
func Strings(eps []Endpoint) []string {
    out := make([]string, 0, len(eps))
    for _, e := range eps { out = append(out, e.String()) }
    return out
}
