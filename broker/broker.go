// Package broker implements the topic broadcaster: subscribe, publish
// and unsubscribe against a topic→subscriber-id fan-out, with
// per-subscriber backpressure and a globally unique, never-reused
// subscriber id.
package broker

import (
	"errors"
	"sync"
	"sync/atomic"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/shinemost/kvbroker/internal/metrics"
	"github.com/shinemost/kvbroker/wire"
)

// ErrNotSubscribed is returned by Unsubscribe when id is not a member of
// the named topic.
var ErrNotSubscribed = errors.New("not found")

// MailboxCapacity is the bounded size of each subscriber's mailbox.
const MailboxCapacity = 128

// Broadcaster owns the process-wide topic/subscriber state. Its lifecycle
// is the lifecycle of the owning service.Service: Halt closes every
// mailbox channel, and every outstanding subscribe stream then observes a
// closed channel. Dropping a Broadcaster without calling Halt closes none
// of them.
type Broadcaster struct {
	log *logging.Logger

	mu     sync.Mutex
	topics map[string]map[uint32]struct{}
	subs   map[uint32]chan *wire.CommandResponse

	nextID uint32 // atomic; the first id allocated from it is 1
}

// New returns a ready-to-use Broadcaster.
func New(log *logging.Logger) *Broadcaster {
	return &Broadcaster{
		log:    log,
		topics: make(map[string]map[uint32]struct{}),
		subs:   make(map[uint32]chan *wire.CommandResponse),
	}
}

// Subscribe allocates a fresh subscriber id, creates its mailbox, adds it
// to topic's membership, and immediately enqueues a status-200
// acknowledgement carrying the id. The returned channel is closed
// when the subscriber is removed (via Unsubscribe or Halt).
func (b *Broadcaster) Subscribe(topic string) (uint32, <-chan *wire.CommandResponse) {
	id := atomic.AddUint32(&b.nextID, 1) // nextID starts at 0, so ids start at 1
	ch := make(chan *wire.CommandResponse, MailboxCapacity)

	b.mu.Lock()
	b.subs[id] = ch
	members, ok := b.topics[topic]
	if !ok {
		members = make(map[uint32]struct{})
		b.topics[topic] = members
	}
	members[id] = struct{}{}
	b.mu.Unlock()

	metrics.ActiveSubscribers.Inc()

	// First frame is always a status-200 ack carrying the subscriber id;
	// the mailbox is freshly created so this send cannot block.
	ch <- wire.OK(wire.IntValue(int64(id)))

	if b.log != nil {
		b.log.Debugf("subscriber %d joined topic %q", id, topic)
	}
	return id, ch
}

// Publish delivers values to every subscriber currently in topic's
// membership at the moment of the call. A publish never blocks:
// a full mailbox drops that subscriber's copy only. Returns the number
// of successful enqueues.
func (b *Broadcaster) Publish(topic string, values []wire.Value) int {
	b.mu.Lock()
	members := b.topics[topic]
	ids := make([]uint32, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	chans := make([]chan *wire.CommandResponse, 0, len(ids))
	for _, id := range ids {
		if ch, ok := b.subs[id]; ok {
			chans = append(chans, ch)
		}
	}
	b.mu.Unlock()

	delivered := 0
	for _, ch := range chans {
		for _, v := range values {
			select {
			case ch <- wire.OK(v):
				delivered++
			default:
				metrics.MailboxDrops.Inc()
			}
		}
	}
	return delivered
}

// Unsubscribe removes id from topic's membership and drops its mailbox,
// which causes the subscriber's receive channel to be closed. Returns an
// error if id was not a member of topic.
func (b *Broadcaster) Unsubscribe(topic string, id uint32) error {
	b.mu.Lock()
	members, ok := b.topics[topic]
	if ok {
		_, ok = members[id]
	}
	if !ok {
		b.mu.Unlock()
		return ErrNotSubscribed
	}
	delete(members, id)
	if len(members) == 0 {
		delete(b.topics, topic)
	}
	ch, hadCh := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()

	if hadCh {
		close(ch)
		metrics.ActiveSubscribers.Dec()
	}
	if b.log != nil {
		b.log.Debugf("subscriber %d left topic %q", id, topic)
	}
	return nil
}

// Halt tears down every mailbox, terminating all outstanding subscribe
// streams. Safe to call more than once.
func (b *Broadcaster) Halt() {
	b.mu.Lock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.topics = make(map[string]map[uint32]struct{})
	b.mu.Unlock()
}
