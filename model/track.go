package model

import (
	"context"
	"io"
	"sort"
)

type trackState struct {
	groups []*Group
}

// Track is the shared cell behind one (producer, consumer) pair for a
// named, priority-tagged append-only sequence of groups.
type Track struct {
	Name     string
	Priority uint64
	cell     *cell[trackState]
}

// NewTrack creates a fresh track and its producer/consumer pair.
func NewTrack(name string, priority uint64) (*TrackProducer, *TrackConsumer) {
	t := &Track{Name: name, Priority: priority, cell: newCell(trackState{})}
	return &TrackProducer{t: t}, &TrackConsumer{t: t, lastSeq: -1}
}

// TrackProducer appends groups to a track in strictly increasing sequence
// order.
type TrackProducer struct {
	t *Track
}

// AppendGroup starts a new group. seq must exceed every previously
// appended group's sequence number.
func (p *TrackProducer) AppendGroup(seq uint64) (*GroupProducer, error) {
	g := newGroup(seq)
	ok := p.t.cell.mutate(func(s *trackState) {
		if n := len(s.groups); n > 0 && seq <= s.groups[n-1].Sequence {
			// Caller error: sequence must strictly increase. We still record
			// nothing and let the mutate no-op by leaving the slice
			// untouched; the caller sees this via the returned error below.
			return
		}
		s.groups = append(s.groups, g)
	})
	if !ok {
		return nil, p.t.cell.closedErr()
	}
	snap := p.t.cell.snapshot()
	if n := len(snap.val.groups); n == 0 || snap.val.groups[n-1] != g {
		return nil, ErrInvalidSequence
	}
	return &GroupProducer{g: g}, nil
}

// Close terminates the track with the given reason, idempotently.
func (p *TrackProducer) Close(err error) {
	p.t.cell.close(err)
}

// Retain drops all but the n most recently appended groups, bounding
// memory for long-lived live tracks. Consumers that already hold a
// GroupConsumer for a dropped group are unaffected: they read from the
// group's own cell, not the track's slice. Only future NextGroup/
// LatestGroup calls stop being able to reach the dropped groups.
func (p *TrackProducer) Retain(n int) {
	if n <= 0 {
		return
	}
	p.t.cell.mutate(func(s *trackState) {
		if len(s.groups) > n {
			s.groups = append([]*Group(nil), s.groups[len(s.groups)-n:]...)
		}
	})
}

// Closed blocks until the track closes and returns the stored reason.
func (p *TrackProducer) Closed(ctx context.Context) error {
	return waitClosed(ctx, p.t.cell)
}

// TrackConsumer reads groups from a track, either sequentially or skipping
// to the newest ("latest-wins"). Cursor state is the last observed
// sequence number, not a slice index, so it survives TrackProducer.Retain
// trimming the backing slice out from under it.
type TrackConsumer struct {
	t       *Track
	lastSeq int64
}

// Name returns the track's name.
func (c *TrackConsumer) Name() string { return c.t.Name }

// Priority returns the track's send-priority hint.
func (c *TrackConsumer) Priority() uint64 { return c.t.Priority }

// NextGroup returns groups strictly in sequence order, never skipping any
// still held by the track. If Retain dropped groups between the last one
// observed and the next live one, NextGroup jumps to the oldest retained
// group rather than erroring: the gap is visible to the caller only as a
// non-adjacent sequence number. Returns io.EOF when the track finishes
// cleanly.
func (c *TrackConsumer) NextGroup(ctx context.Context) (*GroupConsumer, error) {
	for {
		snap := c.t.cell.snapshot()
		if g, ok := firstAfter(snap.val.groups, c.lastSeq); ok {
			c.lastSeq = int64(g.Sequence)
			return g.Consumer(), nil
		}
		if snap.closed {
			if snap.err == ErrDone {
				return nil, io.EOF
			}
			return nil, snap.err
		}
		if err := c.t.cell.wait(ctx, snap.ver); err != nil {
			return nil, err
		}
	}
}

// LatestGroup returns the newest group not yet observed, skipping any
// groups in between. It never returns a group older than the last one
// returned. Used for live playback where staleness is worse than loss.
func (c *TrackConsumer) LatestGroup(ctx context.Context) (*GroupConsumer, error) {
	for {
		snap := c.t.cell.snapshot()
		if n := len(snap.val.groups); n > 0 {
			g := snap.val.groups[n-1]
			if int64(g.Sequence) > c.lastSeq {
				c.lastSeq = int64(g.Sequence)
				return g.Consumer(), nil
			}
		}
		if snap.closed {
			if snap.err == ErrDone {
				return nil, io.EOF
			}
			return nil, snap.err
		}
		if err := c.t.cell.wait(ctx, snap.ver); err != nil {
			return nil, err
		}
	}
}

// firstAfter returns the group with the smallest sequence number strictly
// greater than after, if any. groups is kept sorted by Sequence by
// TrackProducer.AppendGroup.
func firstAfter(groups []*Group, after int64) (*Group, bool) {
	i := sort.Search(len(groups), func(i int) bool {
		return int64(groups[i].Sequence) > after
	})
	if i == len(groups) {
		return nil, false
	}
	return groups[i], true
}

// Closed blocks until the track closes and returns the stored reason.
func (c *TrackConsumer) Closed(ctx context.Context) error {
	return waitClosed(ctx, c.t.cell)
}

// Clone returns an independent consumer over the same track, starting
// from the beginning. Every caller that resolves a subscription against
// a shared track (e.g. BroadcastConsumer.Subscribe) needs its own
// cursor; sharing one TrackConsumer across subscribers would let them
// race over lastSeq and silently steal groups from one another.
func (c *TrackConsumer) Clone() *TrackConsumer {
	return &TrackConsumer{t: c.t, lastSeq: -1}
}

// Consumer returns a fresh GroupConsumer reading this group from the start.
func (g *Group) Consumer() *GroupConsumer {
	return &GroupConsumer{g: g}
}

func waitClosed[T any](ctx context.Context, c *cell[T]) error {
	for {
		snap := c.snapshot()
		if snap.closed {
			return snap.err
		}
		if err := c.wait(ctx, snap.ver); err != nil {
			return err
		}
	}
}
