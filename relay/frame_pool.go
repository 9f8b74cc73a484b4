package relay

import "sync"

// DefaultNewFrameCapacity is the byte capacity given to a freshly
// allocated frame when the pool is empty.
const DefaultNewFrameCapacity = 4096

// DefaultFramePool is shared by relay handlers that don't configure
// their own pool.
var DefaultFramePool = NewFramePool(DefaultNewFrameCapacity)

// FramePool hands out the byte slices the ring cache copies ingested
// frames into, and takes slices back through Put for reuse. The ring
// itself never calls Put: frames of evicted groups are left to the
// garbage collector.
type FramePool struct {
	capacity int
	pool     sync.Pool
}

// NewFramePool creates a pool whose slices are allocated with the
// given capacity when none are available for reuse.
func NewFramePool(capacity int) *FramePool {
	if capacity <= 0 {
		capacity = DefaultNewFrameCapacity
	}
	p := &FramePool{capacity: capacity}
	p.pool.New = func() any {
		b := make([]byte, 0, p.capacity)
		return &b
	}
	return p
}

// Get returns a zero-length byte slice ready to be appended to.
func (p *FramePool) Get() []byte {
	b := p.pool.Get().(*[]byte)
	return (*b)[:0]
}

// Put returns a frame's backing array to the pool. The caller must not
// use frame after calling Put.
func (p *FramePool) Put(frame []byte) {
	if cap(frame) == 0 {
		return
	}
	frame = frame[:0]
	p.pool.Put(&frame)
}
