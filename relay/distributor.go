package relay

import (
	"context"
	"sync"
	"time"

	"github.com/moqtransfork/moqrelay/model"
)

// NotifyTimeout bounds how long an egress loop waits for a subscriber
// notification before polling the ring again. Kept short: a relay with
// many idle subscribers would otherwise spend a thread-parked goroutine
// per subscriber indefinitely, which is fine, but a short timeout also
// catches the race where add() notifies between an egress loop's last
// check and its select.
var NotifyTimeout = 1 * time.Millisecond

// GroupSink receives the groups a trackDistributor fans out to one
// subscriber. Implementations adapt either a session's outgoing
// uni-stream (for a remote subscriber) or a local model.TrackProducer
// (for a subscriber reached entirely in-process).
type GroupSink interface {
	// OpenGroup begins a new group at seq. Returning an error aborts
	// egress to this sink.
	OpenGroup(seq uint64) (FrameSink, error)
}

// FrameSink receives the frames of one group in order.
type FrameSink interface {
	WriteFrame(f []byte) error
	Close()
}

// trackDistributor ingests one upstream track once and fans it out to
// any number of subscribers, each tracking its own position via a
// lightweight notification channel plus the shared groupRing cache.
// This bypasses model.Track's own cell-based fan-out deliberately: a
// relay's pass-through path forwards raw frame bytes between two
// sessions and never needs the model package's group/track handle
// bookkeeping on the hot path, only the ring's catch-up semantics for
// subscribers joining mid-group or falling behind.
type trackDistributor struct {
	ring *groupRing

	mu          sync.RWMutex
	subscribers map[chan struct{}]struct{}

	onClose func()
}

// newTrackDistributor ingests src in the background and returns a
// distributor ready to accept subscribers. onClose runs once ingestion
// stops, letting the caller remove the distributor from its registry.
func newTrackDistributor(ctx context.Context, src *model.TrackConsumer, cacheSize int, onClose func()) *trackDistributor {
	ring := newGroupRing(cacheSize)
	ring.pool = DefaultFramePool
	d := &trackDistributor{
		ring:        ring,
		subscribers: make(map[chan struct{}]struct{}),
		onClose:     onClose,
	}
	go d.ingest(ctx, src)
	return d
}

func (d *trackDistributor) ingest(ctx context.Context, src *model.TrackConsumer) {
	defer d.close()
	for {
		gc, err := src.NextGroup(ctx)
		if err != nil {
			return
		}
		d.ring.add(gc, func() {
			d.mu.RLock()
			for ch := range d.subscribers {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			d.mu.RUnlock()
		})
	}
}

func (d *trackDistributor) close() {
	if d.onClose != nil {
		d.onClose()
	}
}

// subscribe registers a new subscriber and returns its notification
// channel.
func (d *trackDistributor) subscribe() chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{}, 1)
	d.subscribers[ch] = struct{}{}
	return ch
}

// unsubscribe removes a subscriber. Safe to call more than once.
func (d *trackDistributor) unsubscribe(ch chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subscribers, ch)
}

// egress streams the ring's contents to sink, starting from the
// newest group available and catching up whenever the subscriber
// falls behind the ring's retention window.
func (d *trackDistributor) egress(ctx context.Context, sink GroupSink) {
	notify := d.subscribe()
	defer d.unsubscribe(notify)

	// next is the sequence number of the next group to deliver.
	next := d.ring.head()

	for {
		latest := d.ring.head()

		if next < latest || (next == latest && d.ring.get(next) != nil) {
			if earliest := d.ring.earliestAvailable(); next < earliest {
				// Fell behind the ring's retention window: catch up to the
				// oldest group still cached rather than jumping straight to
				// the live edge, so nothing still in the cache gets skipped.
				// Set directly to earliest (not earliest-1-then-continue):
				// earliest is a real sequence number and can be 0, which
				// would underflow the uint64 subtraction.
				next = earliest
			}

			cache := d.ring.get(next)
			if cache == nil {
				continue
			}

			fw, err := sink.OpenGroup(cache.seq)
			if err != nil {
				return
			}

			frameIdx := 0
			for {
				frame := cache.next(frameIdx)
				if frame != nil {
					if err := fw.WriteFrame(frame); err != nil {
						fw.Close()
						return
					}
					frameIdx++
					continue
				}
				if cache.isComplete() {
					break
				}
				select {
				case <-notify:
				case <-time.After(NotifyTimeout):
				case <-ctx.Done():
					fw.Close()
					return
				}
			}
			fw.Close()
			next++
			continue
		}

		select {
		case <-notify:
		case <-time.After(NotifyTimeout):
		case <-ctx.Done():
			return
		}
	}
}
