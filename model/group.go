package model

import (
	"context"
	"io"
)

// Frame is an immutable byte buffer appended to a group.
type Frame []byte

type groupState struct {
	frames []Frame
}

// Group is the shared cell behind one (producer, consumer) pair for a
// single sequence-numbered group of frames.
type Group struct {
	Sequence uint64
	cell     *cell[groupState]
}

func newGroup(seq uint64) *Group {
	return &Group{Sequence: seq, cell: newCell(groupState{})}
}

// GroupProducer appends frames to a group and terminates it.
type GroupProducer struct {
	g *Group
}

// NewGroup creates a fresh group and its producer/consumer pair. Track
// uses this internally; it is exported so callers needing a standalone
// group (e.g. tests, or a relay's group cache) can create one directly.
func NewGroup(seq uint64) (*GroupProducer, *GroupConsumer) {
	g := newGroup(seq)
	return &GroupProducer{g: g}, &GroupConsumer{g: g}
}

// AppendFrame adds a frame to the group. Always succeeds unless the group
// is already finished or aborted.
func (p *GroupProducer) AppendFrame(f Frame) error {
	ok := p.g.cell.mutate(func(s *groupState) {
		s.frames = append(s.frames, f)
	})
	if !ok {
		return p.g.cell.closedErr()
	}
	return nil
}

// Finish marks the group cleanly complete; no more frames will arrive.
func (p *GroupProducer) Finish() {
	p.g.cell.close(ErrDone)
}

// Abort marks the group terminated with an application error code.
func (p *GroupProducer) Abort(code uint64, reason string) {
	p.g.cell.close(AppError(code, reason))
}

// GroupConsumer reads frames from a group in append order.
type GroupConsumer struct {
	g      *Group
	cursor int
}

// Sequence returns the group's sequence number.
func (c *GroupConsumer) Sequence() uint64 { return c.g.Sequence }

// NextFrame blocks until the next frame is available, the group finishes
// cleanly (returns io.EOF), or the group aborts (returns the stored
// *ClosedError), or ctx is cancelled.
func (c *GroupConsumer) NextFrame(ctx context.Context) (Frame, error) {
	for {
		snap := c.g.cell.snapshot()
		if c.cursor < len(snap.val.frames) {
			f := snap.val.frames[c.cursor]
			c.cursor++
			return f, nil
		}
		if snap.closed {
			if snap.err == ErrDone {
				return nil, io.EOF
			}
			return nil, snap.err
		}
		if err := c.g.cell.wait(ctx, snap.ver); err != nil {
			return nil, err
		}
	}
}

// Clone returns an independent consumer over the same group, starting
// from the beginning. Cloning is cheap: no data is copied, only a cursor.
func (c *GroupConsumer) Clone() *GroupConsumer {
	return &GroupConsumer{g: c.g}
}
