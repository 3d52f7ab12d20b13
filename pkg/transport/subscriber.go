package transport

import (
    "sync"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

// Subscriptions is the handler bookkeeping shared by Channel
// implementations. The zero value is ready to use.
type Subscriptions struct {
    mu      sync.Mutex
    msgs    map[string][]MessageHandler
    stops   []StopHandler
    stopped bool
    reason  error
}

// Subscribe registers h for command. If already closed, h is invoked with
// the stop reason.
func (s *Subscriptions) Subscribe(command string, h MessageHandler) {
    s.mu.Lock()
    if s.stopped {
        reason := s.reason
        s.mu.Unlock()
        h(reason, wire.Message{})
        return
    }
    if s.msgs == nil { s.msgs = make(map[string][]MessageHandler) }
    s.msgs[command] = append(s.msgs[command], h)
    s.mu.Unlock()
}

// SubscribeStop registers h for the stop notification.
func (s *Subscriptions) SubscribeStop(h StopHandler) {
    s.mu.Lock()
    if s.stopped {
        reason := s.reason
        s.mu.Unlock()
        h(reason)
        return
    }
    s.stops = append(s.stops, h)
    s.mu.Unlock()
}

// Dispatch delivers msg to the handlers of its command. It reports whether
// anyone was listening.
func (s *Subscriptions) Dispatch(msg wire.Message) bool {
    s.mu.Lock()
    if s.stopped {
        s.mu.Unlock()
        return false
    }
    hs := append([]MessageHandler(nil), s.msgs[msg.Command]...)
    s.mu.Unlock()
    for _, h := range hs { h(nil, msg) }
    return len(hs) > 0
}

// Close notifies message subscribers with reason, then stop subscribers.
// Only the first call has an effect; it reports whether this call closed.
func (s *Subscriptions) Close(reason error) bool {
    if reason == nil { reason = ErrChannelStopped }
    s.mu.Lock()
    if s.stopped {
        s.mu.Unlock()
        return false
    }
    s.stopped = true
    s.reason = reason
    msgs := s.msgs
    stops := s.stops
    s.msgs, s.stops = nil, nil
    s.mu.Unlock()
    for _, hs := range msgs {
        for _, h := range hs { h(reason, wire.Message{}) }
    }
    for _, h := range stops { h(reason) }
    return true
}

// Stopped reports whether Close was called and with which reason.
func (s *Subscriptions) Stopped() (bool, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    return s.stopped, s.reason
}
