package tlsconfig

import (
    "crypto/tls"
    "crypto/x509"
    "errors"
    "fmt"
    "os"
    "sync"
    "time"
)

var (
    ErrMissingKeyPair = errors.New("tls: server cert/key required when TLS enabled")
    ErrBadCA          = errors.New("tls: no certificates found in CA file")
)

// Options defines mTLS configuration inputs shared by the peer transport
// and the management API.
type Options struct {
    Enable             bool
    CAFile             string
    CertFile           string
    KeyFile            string
    InsecureSkipVerify bool
    ServerName         string
    // Reload is how long a loaded key pair is reused before it is read from
    // disk again by the hot-reload configs; zero means 10s.
    Reload time.Duration
}

// Server returns a tls.Config for servers if enabled, otherwise nil.
func (o Options) Server() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    if o.CertFile == "" || o.KeyFile == "" { return nil, ErrMissingKeyPair }
    cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
    if err != nil { return nil, err }
    cfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
    if err := o.clientCAs(cfg); err != nil { return nil, err }
    return cfg, nil
}

// Client returns a tls.Config for clients if enabled, otherwise nil.
func (o Options) Client() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    cfg, err := o.clientBase()
    if err != nil { return nil, err }
    if o.CertFile != "" && o.KeyFile != "" {
        cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
        if err != nil { return nil, err }
        cfg.Certificates = []tls.Certificate{cert}
    }
    return cfg, nil
}

// ServerHotReload returns a server tls.Config that re-reads the key pair
// from disk (lazily, on handshake) so certificates can be rotated without a
// restart. The CA pool is loaded once.
func (o Options) ServerHotReload() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    if o.CertFile == "" || o.KeyFile == "" { return nil, ErrMissingKeyPair }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12}
    if err := o.clientCAs(cfg); err != nil { return nil, err }
    l := o.loader()
    if _, err := l.get(); err != nil { return nil, err }
    cfg.GetCertificate = func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return l.get() }
    return cfg, nil
}

// ClientHotReload is ServerHotReload for the client certificate.
func (o Options) ClientHotReload() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    cfg, err := o.clientBase()
    if err != nil { return nil, err }
    if o.CertFile == "" || o.KeyFile == "" { return cfg, nil }
    l := o.loader()
    cfg.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) { return l.get() }
    return cfg, nil
}

func (o Options) clientBase() (*tls.Config, error) {
    cfg := &tls.Config{InsecureSkipVerify: o.InsecureSkipVerify, MinVersion: tls.VersionTLS12} //nolint:gosec
    if o.ServerName != "" { cfg.ServerName = o.ServerName }
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.RootCAs = pool
    }
    return cfg, nil
}

func (o Options) clientCAs(cfg *tls.Config) error {
    if o.CAFile == "" { return nil }
    pool, err := loadPool(o.CAFile)
    if err != nil { return err }
    cfg.ClientCAs = pool
    cfg.ClientAuth = tls.RequireAndVerifyClientCert
    return nil
}

func loadPool(path string) (*x509.CertPool, error) {
    ca, err := os.ReadFile(path)
    if err != nil { return nil, err }
    pool := x509.NewCertPool()
    if !pool.AppendCertsFromPEM(ca) { return nil, fmt.Errorf("%w: %s", ErrBadCA, path) }
    return pool, nil
}

// certLoader caches a key pair for ttl.
type certLoader struct {
    cert, key string
    ttl       time.Duration

    mu       sync.RWMutex
    cached   *tls.Certificate
    lastLoad time.Time
}

func (o Options) loader() *certLoader {
    ttl := o.Reload
    if ttl <= 0 { ttl = 10 * time.Second }
    return &certLoader{cert: o.CertFile, key: o.KeyFile, ttl: ttl}
}

func (l *certLoader) get() (*tls.Certificate, error) {
    l.mu.RLock()
    if l.cached != nil && time.Since(l.lastLoad) < l.ttl {
        c := *l.cached
        l.mu.RUnlock()
        return &c, nil
    }
    l.mu.RUnlock()
    cert, err := tls.LoadX509KeyPair(l.cert, l.key)
    if err != nil { return nil, err }
    l.mu.Lock()
    l.cached = &cert
    l.lastLoad = time.Now()
    l.mu.Unlock()
    return &cert, nil
}
