package relay

import (
	"context"
	"sync"

	"github.com/moqtransfork/moqrelay/model"
)

// DefaultGroupCacheSize is the number of recent groups a ring keeps for
// subscribers that join mid-stream or briefly fall behind.
const DefaultGroupCacheSize = 8

// GroupCacheSize is the package-wide default ring size used when a
// caller doesn't request one explicitly.
var GroupCacheSize = DefaultGroupCacheSize

// cachedGroup holds the frames ingested so far for one group, grown
// incrementally as the upstream producer appends them.
type cachedGroup struct {
	seq      uint64
	mu       sync.Mutex
	frames   [][]byte
	complete bool
}

// next returns the frame at index i, or nil if it hasn't arrived yet.
func (g *cachedGroup) next(i int) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.frames) {
		return nil
	}
	return g.frames[i]
}

func (g *cachedGroup) append(f []byte) {
	g.mu.Lock()
	g.frames = append(g.frames, f)
	g.mu.Unlock()
}

func (g *cachedGroup) finish() {
	g.mu.Lock()
	g.complete = true
	g.mu.Unlock()
}

func (g *cachedGroup) isComplete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.complete
}

// groupRing is a bounded, append-only cache of the most recently
// ingested groups on a relayed track. A subscriber that joins after a
// group has started still sees every frame the group receives from
// that point on; a subscriber that falls behind the ring's window
// catches up by skipping to the oldest group still cached rather than
// erroring.
type groupRing struct {
	mu     sync.Mutex
	size   int
	pool   *FramePool
	groups map[uint64]*cachedGroup
	top    uint64 // highest sequence number added, 0 if none yet
	filled bool
}

// newGroupRing creates a ring retaining the given number of groups
// (GroupCacheSize if omitted or non-positive).
func newGroupRing(size ...int) *groupRing {
	n := GroupCacheSize
	if len(size) > 0 && size[0] > 0 {
		n = size[0]
	}
	return &groupRing{size: n, groups: make(map[uint64]*cachedGroup)}
}

// head returns the highest sequence number added to the ring, or 0 if
// the ring is empty.
func (r *groupRing) head() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.top
}

// earliestAvailable returns the oldest sequence number still cached.
func (r *groupRing) earliestAvailable() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filled {
		return 0
	}
	earliest := r.top
	for seq := range r.groups {
		if seq < earliest {
			earliest = seq
		}
	}
	return earliest
}

// get returns the cached group for seq, or nil if it has been evicted
// or never arrived.
func (r *groupRing) get(seq uint64) *cachedGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[seq]
}

// add drains gc into the ring, invoking notify after every frame and
// once more on completion so a waiting egress loop can wake up
// incrementally rather than only once the whole group has arrived.
func (r *groupRing) add(gc *model.GroupConsumer, notify func()) {
	seq := gc.Sequence()
	cached := &cachedGroup{seq: seq}

	r.mu.Lock()
	r.groups[seq] = cached
	if !r.filled || seq > r.top {
		r.top = seq
	}
	r.filled = true
	r.evictLocked()
	r.mu.Unlock()

	ctx := context.Background()
	for {
		frame, err := gc.NextFrame(ctx)
		if err != nil {
			cached.finish()
			notify()
			return
		}
		buf := frame
		if r.pool != nil {
			buf = append(r.pool.Get(), frame...)
		}
		cached.append(buf)
		notify()
	}
}

// evictLocked drops cached groups older than the retention window.
// Callers must hold r.mu.
func (r *groupRing) evictLocked() {
	if len(r.groups) <= r.size {
		return
	}
	var cutoff uint64
	if r.top+1 > uint64(r.size) {
		cutoff = r.top + 1 - uint64(r.size)
	}
	for seq := range r.groups {
		if seq < cutoff {
			delete(r.groups, seq)
		}
	}
}
