package seeder

import "sync"

// barrier joins n reports into one callback. Successful reports count down;
// the last one fires the callback with nil. A failed report fires it at once
// with that error. After firing every report is ignored.
type barrier struct {
    mu        sync.Mutex
    remaining int
    fired     bool
    done      func(error)
}

func newBarrier(n int, done func(error)) *barrier {
    if n < 1 { panic("seeder: barrier arity must be positive") }
    if done == nil { panic("seeder: nil barrier callback") }
    return &barrier{remaining: n, done: done}
}

// report returns true when this call fired the callback.
func (b *barrier) report(err error) bool {
    b.mu.Lock()
    if b.fired {
        b.mu.Unlock()
        return false
    }
    if err == nil {
        b.remaining--
        if b.remaining > 0 {
            b.mu.Unlock()
            return false
        }
    }
    b.fired = true
    b.mu.Unlock()
    b.done(err)
    return true
}

func (b *barrier) isFired() bool {
    b.mu.Lock(); defer b.mu.Unlock()
    return b.fired
}
