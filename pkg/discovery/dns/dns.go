package dns

import (
    "context"
    "log"
    "net"
    "strconv"
    "strings"
    "sync"
    "time"

    mdns "github.com/miekg/dns"

    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
    "github.com/amirimatin/go-seeder/pkg/internal/logutil"
)

// Options configures DNS-based discovery.
type Options struct {
    // Names are SRV records or hostnames to resolve.
    // Examples: "_seeder._tcp.example.com" (SRV) or "seed.example.org" (A/AAAA).
    Names []string

    // Port used when resolving A/AAAA records (no port info in DNS answer).
    Port int

    // Refresh controls cache staleness; if zero, defaults to 30s.
    Refresh time.Duration

    // Server, when set (host:port), is queried directly over UDP instead of
    // going through the system resolver.
    Server  string
    Timeout time.Duration

    // Resolver optionally overrides the system resolver.
    Resolver *net.Resolver

    Logger *log.Logger
}

type impl struct {
    opts  Options
    mu    sync.Mutex
    last  time.Time
    cache []endpoint.Endpoint
}

// New returns a DNS-backed discovery that resolves SRV and A/AAAA names
// and caches results for the Refresh duration.
func New(opts Options) discovery.Discovery {
    if opts.Refresh <= 0 { opts.Refresh = 30 * time.Second }
    if opts.Port == 0 { opts.Port = 8333 }
    if opts.Timeout <= 0 { opts.Timeout = 3 * time.Second }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &impl{opts: opts}
}

func (d *impl) Seeds() []endpoint.Endpoint {
    d.mu.Lock()
    defer d.mu.Unlock()
    if time.Since(d.last) < d.opts.Refresh && len(d.cache) > 0 {
        return append([]endpoint.Endpoint(nil), d.cache...)
    }
    ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout*time.Duration(len(d.opts.Names)+1))
    defer cancel()
    d.cache = discovery.Endpoints(d.resolveAll(ctx), d.opts.Logger)
    d.last = time.Now()
    return append([]endpoint.Endpoint(nil), d.cache...)
}

func (d *impl) resolveAll(ctx context.Context) []string {
    var out []string
    for _, name := range d.opts.Names {
        name = strings.TrimSpace(name)
        if name == "" { continue }
        // If already host:port, take as-is
        if strings.Contains(name, ":") && !strings.HasPrefix(name, "_") {
            out = append(out, name)
            continue
        }
        // Try SRV first if pattern matches
        if strings.HasPrefix(name, "_") && strings.Contains(name, "._") {
            if recs := d.lookupSRV(ctx, name); len(recs) > 0 {
                out = append(out, recs...)
                continue
            }
        }
        // Fallback to A/AAAA
        out = append(out, d.lookupHost(ctx, name, d.opts.Port)...)
    }
    return out
}

func (d *impl) lookupSRV(ctx context.Context, fqdn string) []string {
    if d.opts.Server != "" {
        in, err := d.exchange(ctx, fqdn, mdns.TypeSRV)
        if err != nil { return nil }
        var out []string
        for _, rr := range in.Answer {
            if srv, ok := rr.(*mdns.SRV); ok {
                out = append(out, net.JoinHostPort(strings.TrimSuffix(srv.Target, "."), strconv.Itoa(int(srv.Port))))
            }
        }
        return out
    }
    svc, proto, domain := parseSRVName(fqdn)
    if svc == "" || proto == "" || domain == "" { return nil }
    _, addrs, err := d.resolver().LookupSRV(ctx, svc, proto, domain)
    if err != nil { logutil.Debugf(d.opts.Logger, "dns: srv %s: %v", fqdn, err); return nil }
    var out []string
    for _, a := range addrs {
        host := strings.TrimSuffix(a.Target, ".")
        out = append(out, net.JoinHostPort(host, strconv.Itoa(int(a.Port))))
    }
    return out
}

func (d *impl) lookupHost(ctx context.Context, host string, port int) []string {
    var ips []string
    if d.opts.Server != "" {
        for _, qt := range []uint16{mdns.TypeA, mdns.TypeAAAA} {
            in, err := d.exchange(ctx, host, qt)
            if err != nil { continue }
            for _, rr := range in.Answer {
                switch r := rr.(type) {
                case *mdns.A:
                    ips = append(ips, r.A.String())
                case *mdns.AAAA:
                    ips = append(ips, r.AAAA.String())
                }
            }
        }
    } else {
        var err error
        ips, err = d.resolver().LookupHost(ctx, host)
        if err != nil { logutil.Debugf(d.opts.Logger, "dns: host %s: %v", host, err); return nil }
    }
    out := make([]string, 0, len(ips))
    for _, ip := range ips {
        out = append(out, net.JoinHostPort(ip, strconv.Itoa(port)))
    }
    return out
}

func (d *impl) exchange(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
    m := new(mdns.Msg)
    m.SetQuestion(mdns.Fqdn(name), qtype)
    m.RecursionDesired = true
    c := &mdns.Client{Net: "udp", Timeout: d.opts.Timeout}
    in, _, err := c.ExchangeContext(ctx, m, d.opts.Server)
    if err != nil {
        logutil.Debugf(d.opts.Logger, "dns: %s %s via %s: %v", mdns.TypeToString[qtype], name, d.opts.Server, err)
        return nil, err
    }
    return in, nil
}

func (d *impl) resolver() *net.Resolver {
    if d.opts.Resolver != nil { return d.opts.Resolver }
    return net.DefaultResolver
}

func parseSRVName(fqdn string) (service, proto, name string) {
    // Expect pattern: _service._proto.name
    parts := strings.SplitN(fqdn, ".", 3)
    if len(parts) < 3 { return "", "", "" }
    s := strings.TrimPrefix(parts[0], "_")
    p := strings.TrimPrefix(parts[1], "_")
    n := parts[2]
    return s, p, n
}
