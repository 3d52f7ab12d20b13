package seeder

import "errors"

var (
    // ErrOperationFailed is the run result when no seed grew the host pool.
    ErrOperationFailed = errors.New("seeder: operation failed")
    // ErrCatastrophic wraps failures of the seeding machinery itself; it is
    // the only per-seed error that reaches the completion handler.
    ErrCatastrophic = errors.New("seeder: catastrophic failure")
    ErrSeedTimeout  = errors.New("seeder: seed timed out")

    ErrNoConnector  = errors.New("seeder: connector is required")
    ErrNoNegotiator = errors.New("seeder: negotiator is required")
    ErrNoPool       = errors.New("seeder: host pool is required")
)
