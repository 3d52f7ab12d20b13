package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    HostPoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_seeder",
        Name:      "host_pool_size",
        Help:      "Current number of addresses in the host pool",
    })

    SeedingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Name:      "runs_total",
        Help:      "Total seeding runs by result (success, failed, error)",
    }, []string{"result"})

    SeedingRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
        Namespace: "go_seeder",
        Name:      "run_duration_seconds",
        Help:      "Duration of seeding runs",
        Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
    })

    SeedOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Name:      "seed_outcomes_total",
        Help:      "Per-seed terminal outcomes by stage (connect, handshake, send, receive, stop, harvested)",
    }, []string{"stage"})

    AddressesReceived = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Name:      "addresses_received_total",
        Help:      "Total addresses received from seeds",
    })

    StoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Name:      "store_errors_total",
        Help:      "Total host pool store failures",
    })

    GetAddrServed = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Name:      "getaddr_served_total",
        Help:      "Total getaddr requests answered by this node",
    })

    GRPCConnDials = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Subsystem: "grpc_conn",
        Name:      "dials_total",
        Help:      "Total number of new gRPC connections dialed",
    })
    GRPCConnReuse = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Subsystem: "grpc_conn",
        Name:      "reuse_total",
        Help:      "Total number of gRPC connection reuses from cache",
    })
    GRPCConnEvictions = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Subsystem: "grpc_conn",
        Name:      "evictions_total",
        Help:      "Total number of cached gRPC connections evicted",
    })
    GRPCConnActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_seeder",
        Subsystem: "grpc_conn",
        Name:      "active",
        Help:      "Number of active cached gRPC connections",
    })

    // Replicated pool
    RaftApplies = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_seeder",
        Subsystem: "raft",
        Name:      "applies_total",
        Help:      "Total raft apply calls by result",
    }, []string{"result"})
    IsLeader = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_seeder",
        Subsystem: "raft",
        Name:      "is_leader",
        Help:      "1 if this node leads the replicated host pool, else 0",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(HostPoolSize)
        prometheus.MustRegister(SeedingRuns)
        prometheus.MustRegister(SeedingRunDuration)
        prometheus.MustRegister(SeedOutcomes)
        prometheus.MustRegister(AddressesReceived)
        prometheus.MustRegister(StoreErrors)
        prometheus.MustRegister(GetAddrServed)
        prometheus.MustRegister(GRPCConnDials)
        prometheus.MustRegister(GRPCConnReuse)
        prometheus.MustRegister(GRPCConnEvictions)
        prometheus.MustRegister(GRPCConnActive)
        // replicated pool
        prometheus.MustRegister(RaftApplies)
        prometheus.MustRegister(IsLeader)
    })
}
