package file

import (
    "bufio"
    "log"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/amirimatin/go-seeder/pkg/discovery"
    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

// Options configures file/ENV-based discovery.
type Options struct {
    // Path to a file (or glob) with one host:port per line or comma-separated
    // lists; '#' starts a comment line.
    Path string
    // Env overrides file when non-empty.
    Env string
    // Refresh controls cache staleness; if zero, defaults to 5s.
    Refresh time.Duration
    Logger  *log.Logger
}

type impl struct {
    opts  Options
    mu    sync.Mutex
    last  time.Time
    mtime time.Time
    cache []endpoint.Endpoint
}

func New(opts Options) discovery.Discovery {
    if opts.Refresh <= 0 { opts.Refresh = 5 * time.Second }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &impl{opts: opts}
}

func (i *impl) Seeds() []endpoint.Endpoint {
    i.mu.Lock(); defer i.mu.Unlock()
    // ENV takes precedence
    if v := strings.TrimSpace(os.Getenv(i.opts.Env)); i.opts.Env != "" && v != "" {
        return discovery.Endpoints(splitCSV(v), i.opts.Logger)
    }
    if i.opts.Path == "" {
        return nil
    }
    stat, err := os.Stat(i.opts.Path)
    now := time.Now()
    if err == nil {
        if stat.ModTime().After(i.mtime) || now.Sub(i.last) >= i.opts.Refresh {
            i.cache = discovery.Endpoints(loadFile(i.opts.Path), i.opts.Logger)
            i.last = now
            i.mtime = stat.ModTime()
        }
        return append([]endpoint.Endpoint(nil), i.cache...)
    }
    // try glob
    matches, _ := filepath.Glob(i.opts.Path)
    if len(matches) > 0 {
        var items []string
        for _, m := range matches { items = append(items, loadFile(m)...) }
        i.cache = discovery.Endpoints(items, i.opts.Logger)
        i.last = now
    }
    return append([]endpoint.Endpoint(nil), i.cache...)
}

func loadFile(path string) []string {
    f, err := os.Open(path)
    if err != nil { return nil }
    defer f.Close()
    var seeds []string
    s := bufio.NewScanner(f)
    for s.Scan() {
        line := strings.TrimSpace(s.Text())
        if line == "" || strings.HasPrefix(line, "#") { continue }
        seeds = append(seeds, splitCSV(line)...)
    }
    if err := s.Err(); err != nil { return nil }
    return seeds
}

func splitCSV(csv string) []string {
    var out []string
    for _, p := range strings.Split(csv, ",") {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
