package seeder

import (
    "errors"
    "sync"
    "sync/atomic"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestBarrier_FiresOnNthReport(t *testing.T) {
    var fired int
    var got error = errors.New("unset")
    b := newBarrier(3, func(err error) { fired++; got = err })

    assert.False(t, b.report(nil))
    assert.False(t, b.report(nil))
    assert.Zero(t, fired)
    assert.True(t, b.report(nil))
    assert.Equal(t, 1, fired)
    assert.NoError(t, got)
    assert.True(t, b.isFired())

    // no reentry
    assert.False(t, b.report(nil))
    assert.False(t, b.report(errors.New("late")))
    assert.Equal(t, 1, fired)
}

func TestBarrier_ErrorShortCircuits(t *testing.T) {
    boom := errors.New("boom")
    var calls []error
    b := newBarrier(5, func(err error) { calls = append(calls, err) })

    b.report(nil)
    assert.True(t, b.report(boom))
    for i := 0; i < 4; i++ { b.report(nil) }
    require.Len(t, calls, 1)
    assert.Same(t, boom, calls[0])
}

func TestBarrier_ConcurrentReports(t *testing.T) {
    const n = 200
    var fired atomic.Int32
    b := newBarrier(n, func(error) { fired.Add(1) })

    var wg sync.WaitGroup
    for i := 0; i < n*2; i++ {
        wg.Add(1)
        go func() { defer wg.Done(); b.report(nil) }()
    }
    wg.Wait()
    assert.EqualValues(t, 1, fired.Load())
}

func TestBarrier_InvalidArity(t *testing.T) {
    assert.Panics(t, func() { newBarrier(0, func(error) {}) })
    assert.Panics(t, func() { newBarrier(1, nil) })
}

func TestStrand_SerializesInOrder(t *testing.T) {
    var s strand
    var mu sync.Mutex
    var order []int
    var inside atomic.Int32
    done := make(chan struct{})

    const n = 100
    for i := 0; i < n; i++ {
        i := i
        s.post(func() {
            if inside.Add(1) != 1 { t.Errorf("concurrent execution on strand") }
            mu.Lock()
            order = append(order, i)
            mu.Unlock()
            inside.Add(-1)
            if i == n-1 { close(done) }
        })
    }
    <-done
    mu.Lock(); defer mu.Unlock()
    require.Len(t, order, n)
    for i, v := range order { assert.Equal(t, i, v) }
}

func TestStrand_PostFromInside(t *testing.T) {
    var s strand
    done := make(chan struct{})
    s.post(func() { s.post(func() { close(done) }) })
    <-done
}
