package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moqtransfork/moqrelay/model"
	"github.com/stretchr/testify/require"
)

// fakeFrameSink records the frames written to one group.
type fakeFrameSink struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (s *fakeFrameSink) WriteFrame(f []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, append([]byte(nil), f...))
	return nil
}

func (s *fakeFrameSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// gatedGroupSink records every group opened on it, in order, and lets a
// test hold up the very first OpenGroup call until release() is
// called, so the ring can advance past its retention window while the
// subscriber is still "inside" that first call.
type gatedGroupSink struct {
	mu      sync.Mutex
	seqs    []uint64
	gate    chan struct{}
	gateSeq uint64
	gated   bool
}

func newGatedGroupSink(gateSeq uint64) *gatedGroupSink {
	return &gatedGroupSink{gate: make(chan struct{}), gateSeq: gateSeq}
}

func (s *gatedGroupSink) release() { close(s.gate) }

func (s *gatedGroupSink) OpenGroup(seq uint64) (FrameSink, error) {
	s.mu.Lock()
	s.seqs = append(s.seqs, seq)
	hold := seq == s.gateSeq && !s.gated
	if hold {
		s.gated = true
	}
	s.mu.Unlock()
	if hold {
		<-s.gate
	}
	return &fakeFrameSink{}, nil
}

func (s *gatedGroupSink) opened() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.seqs...)
}

// addFinishedGroup ingests a complete one-frame group directly into the
// ring, bypassing newTrackDistributor's background ingest goroutine so
// the test controls exactly when each group lands.
func addFinishedGroup(dist *trackDistributor, seq uint64) {
	gp, gc := model.NewGroup(seq)
	_ = gp.AppendFrame(model.Frame("f"))
	gp.Finish()
	dist.ring.add(gc, func() { broadcastToSubscribers(dist) })
}

// TestEgressCatchesUpToEarliestAvailable exercises the path where a
// subscriber's egress loop falls behind the ring's retention window
// while blocked delivering an earlier group: per SPEC_FULL.md §4.12,
// once it returns to the ring it must resume at the oldest group
// still cached, not jump straight to the live edge.
func TestEgressCatchesUpToEarliestAvailable(t *testing.T) {
	dist := newTestDistributor(3) // ring retains only 3 groups

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newGatedGroupSink(1)
	go dist.egress(ctx, sink)

	// First group the subscriber will see is seq 1; the gated sink
	// blocks the loop right after opening it.
	addFinishedGroup(dist, 1)
	require.Eventually(t, func() bool {
		return len(sink.opened()) >= 1
	}, time.Second, 2*time.Millisecond)

	// While the loop is stuck inside OpenGroup(1), advance the ring far
	// beyond its retention window so group 1 (and its immediate
	// successors) get evicted before the loop comes back around.
	for seq := uint64(2); seq <= 10; seq++ {
		addFinishedGroup(dist, seq)
	}
	earliest := dist.ring.earliestAvailable()
	require.Equal(t, uint64(8), earliest, "ring of size 3 with top=10 should retain 8,9,10")

	sink.release()

	require.Eventually(t, func() bool {
		return len(sink.opened()) >= 2
	}, time.Second, 2*time.Millisecond)

	opened := sink.opened()
	require.Equal(t, uint64(1), opened[0])
	require.Equal(t, earliest, opened[1],
		"after falling behind, egress must resume at the ring's earliest cached group")
	require.NotEqual(t, dist.ring.head()-1, opened[1],
		"a subscriber that fell behind must not jump to the newest-minus-one group")
}
