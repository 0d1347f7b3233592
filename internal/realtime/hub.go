package realtime

import (
	"sync"

	"github.com/praxishealth/praxis/pkg/logging"
)

// sendBuffer bounds each subscriber's outgoing queue. A subscriber that
// falls this far behind is dropped rather than allowed to stall the hub.
const sendBuffer = 32

// Hub fans calendar events out to websocket subscribers, grouped by org.
type Hub struct {
	mu     sync.RWMutex
	orgs   map[string]map[*Subscription]struct{}
	logger *logging.Logger
}

// Subscription is one connected client's feed. The frame channel is never
// closed; the done channel signals the end of the subscription so a close
// can never race a concurrent broadcast send.
type Subscription struct {
	hub   *Hub
	orgID string
	ch    chan []byte
	done  chan struct{}

	once sync.Once
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		orgs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new listener for the org's events.
func (h *Hub) Subscribe(orgID string) *Subscription {
	sub := &Subscription{
		hub:   h,
		orgID: orgID,
		ch:    make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
	h.mu.Lock()
	set, ok := h.orgs[orgID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.orgs[orgID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Broadcast queues a frame for every subscriber of the org. Subscribers whose
// buffers are full are closed and removed. Returns how many received the frame.
func (h *Hub) Broadcast(orgID string, frame []byte) int {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.orgs[orgID]))
	for sub := range h.orgs[orgID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case <-sub.done:
		case sub.ch <- frame:
			delivered++
		default:
			h.logger.Warn("realtime: dropping slow subscriber", "org_id", orgID)
			sub.Close()
		}
	}
	return delivered
}

// Subscribers reports how many listeners the org currently has.
func (h *Hub) Subscribers(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.orgs[orgID])
}

// Frames is the receive channel. Select it together with Done.
func (s *Subscription) Frames() <-chan []byte {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close removes the subscription from the hub and signals Done. Idempotent
// and safe to call concurrently with Broadcast.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.orgs[s.orgID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.orgs, s.orgID)
			}
		}
		h.mu.Unlock()
		close(s.done)
	})
}
