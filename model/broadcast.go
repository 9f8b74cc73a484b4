package model

import "context"

// UnknownHandler is consulted when a subscribe names a track the broadcast
// has no producer for. Returning an error (typically ErrUnknownTrack)
// rejects the subscription.
type UnknownHandler func(trackName string) (*TrackConsumer, error)

type broadcastState struct {
	tracks  map[string]*TrackConsumer
	unknown UnknownHandler
}

// Broadcast is the shared cell behind one (producer, consumer) pair for a
// named collection of tracks.
type Broadcast struct {
	Name string
	cell *cell[broadcastState]
}

// NewBroadcast creates a fresh broadcast and its producer/consumer pair.
func NewBroadcast(name string) (*BroadcastProducer, *BroadcastConsumer) {
	b := &Broadcast{Name: name, cell: newCell(broadcastState{tracks: make(map[string]*TrackConsumer)})}
	return &BroadcastProducer{b: b}, &BroadcastConsumer{b: b}
}

// BroadcastProducer creates and removes tracks within a broadcast.
type BroadcastProducer struct {
	b *Broadcast
}

// Create inserts a new track under name. If a track of the same name
// already exists, its shared state is closed with ErrReplaced before the
// new track takes its place, so every consumer still reading the old
// track (directly or via a Clone) observes the replacement rather than
// silently stalling.
func (p *BroadcastProducer) Create(name string, priority uint64) (*TrackProducer, error) {
	tp, tc := NewTrack(name, priority)
	var replaced *TrackConsumer
	ok := p.b.cell.mutate(func(s *broadcastState) {
		replaced = s.tracks[name]
		s.tracks[name] = tc
	})
	if !ok {
		return nil, p.b.cell.closedErr()
	}
	if replaced != nil {
		replaced.t.cell.close(ErrReplaced)
	}
	return tp, nil
}

// Unknown registers the fallback consulted for subscriptions to tracks
// with no producer.
func (p *BroadcastProducer) Unknown(fn UnknownHandler) error {
	ok := p.b.cell.mutate(func(s *broadcastState) {
		s.unknown = fn
	})
	if !ok {
		return p.b.cell.closedErr()
	}
	return nil
}

// Remove deletes a track by name, returning its consumer if present.
func (p *BroadcastProducer) Remove(name string) (*TrackConsumer, bool) {
	var removed *TrackConsumer
	var found bool
	p.b.cell.mutate(func(s *broadcastState) {
		removed, found = s.tracks[name]
		if found {
			delete(s.tracks, name)
		}
	})
	return removed, found
}

// Close terminates the broadcast with the given reason, idempotently.
func (p *BroadcastProducer) Close(err error) {
	p.b.cell.close(err)
}

// Closed blocks until the broadcast closes and returns the stored reason.
func (p *BroadcastProducer) Closed(ctx context.Context) error {
	return waitClosed(ctx, p.b.cell)
}

// BroadcastConsumer resolves track subscriptions against a broadcast's
// current track set.
type BroadcastConsumer struct {
	b *Broadcast
}

// Name returns the broadcast's name.
func (c *BroadcastConsumer) Name() string { return c.b.Name }

// Subscribe returns the consumer for the named track, consulting the
// unknown-track handler if no producer has created it. If neither
// resolves it, returns the broadcast's closure reason when it is closed
// and ErrUnknownTrack otherwise.
func (c *BroadcastConsumer) Subscribe(trackName string) (*TrackConsumer, error) {
	snap := c.b.cell.snapshot()
	if tc, ok := snap.val.tracks[trackName]; ok {
		return tc.Clone(), nil
	}
	if snap.val.unknown != nil {
		return snap.val.unknown(trackName)
	}
	if snap.closed {
		return nil, snap.err
	}
	return nil, ErrUnknownTrack
}

// Closed blocks until the broadcast closes and returns the stored reason.
func (c *BroadcastConsumer) Closed(ctx context.Context) error {
	return waitClosed(ctx, c.b.cell)
}

// Clone returns an independent consumer handle over the same broadcast.
func (c *BroadcastConsumer) Clone() *BroadcastConsumer {
	return &BroadcastConsumer{b: c.b}
}
