package seeder

import "sync"

// strand runs posted functions one at a time in post order. A drain
// goroutine exists only while work is queued, so posting never blocks and
// a function may post to its own strand.
type strand struct {
    mu      sync.Mutex
    queue   []func()
    running bool
}

func (s *strand) post(fn func()) {
    s.mu.Lock()
    s.queue = append(s.queue, fn)
    if s.running {
        s.mu.Unlock()
        return
    }
    s.running = true
    s.mu.Unlock()
    go s.drain()
}

func (s *strand) drain() {
    for {
        s.mu.Lock()
        if len(s.queue) == 0 {
            s.running = false
            s.mu.Unlock()
            return
        }
        fn := s.queue[0]
        s.queue[0] = nil
        s.queue = s.queue[1:]
        s.mu.Unlock()
        fn()
    }
}
