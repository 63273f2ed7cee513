// Package correlate maps opaque request identifiers onto whatever
// originated them, so a response parsed off the wire can be routed
// back to whoever is waiting on it -- one outstanding slot per request
// id, swept on a TTL so a peer that never answers doesn't leak state.
package correlate

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTTL is the reference age bound for unmatched
// entries: a 60-second sweep at each timer tick.
const DefaultTTL = 60 * time.Second

// pending is one outstanding request: its caller-supplied origin plus
// the time it was sent, used for the TTL sweep.
type pending struct {
	envelope any
	sentAt   time.Time
}

// BlockOrigin is the origin value the block scheduler stores for a
// dispatched /block request: which block it was, and when it was sent
// (for the round-trip-time histogram).
type BlockOrigin struct {
	TaskID       int64
	BlockID      int64
	DispatchedAt time.Time
}

// HandshakeOrigin is the origin value pkg/client stores for the two
// synchronous, non-scheduler requests a download makes before any
// blocks are scheduled: /test and /download. Reply carries the parsed
// response back to the goroutine blocked waiting on it.
type HandshakeOrigin struct {
	Path  string
	Reply chan<- any
}

// Correlator assigns monotonically increasing request-ids on send and
// maps response request-ids back to the originating caller envelope.
// Safe for concurrent use; the block scheduler and any other sender
// share one Correlator per TransportSession.
type Correlator struct {
	mu      sync.Mutex
	counter uint64
	ttl     time.Duration
	entries map[uint64]pending

	log *log.Entry
}

// New creates a Correlator. ttl<=0 selects DefaultTTL.
func New(ttl time.Duration) *Correlator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Correlator{
		ttl:     ttl,
		entries: make(map[uint64]pending),
		log:     log.WithField("component", "correlator"),
	}
}

// NextID assigns and returns the next monotonic request-id, recording
// envelope as its origin.
func (c *Correlator) NextID(envelope any) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	id := c.counter
	c.entries[id] = pending{envelope: envelope, sentAt: time.Now()}
	return id
}

// Match looks up the envelope that originated requestID and erases the
// mapping. ok is false if there was no such outstanding request (it was
// never sent, already matched, or swept for age) -- the caller must
// drop the response.
func (c *Correlator) Match(requestID uint64) (envelope any, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, found := c.entries[requestID]
	if !found {
		c.log.WithField("request_id", requestID).Warn("response for unknown request-id dropped")
		return nil, false
	}
	delete(c.entries, requestID)
	return p.envelope, true
}

// Sweep drops entries older than the configured TTL, logging each one.
// The reference design drives this from the same timer tick that paces
// block requests.
func (c *Correlator) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for id, p := range c.entries {
		if now.Sub(p.sentAt) > c.ttl {
			delete(c.entries, id)
			dropped++
			c.log.WithField("request_id", id).Warn("dropping stale unmatched request")
		}
	}
	return dropped
}

// Pending returns the number of outstanding, unmatched requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
