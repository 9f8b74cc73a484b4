package model

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupFrameOrderAndFinish(t *testing.T) {
	gp, gc := NewGroup(1)

	require.NoError(t, gp.AppendFrame(Frame("a")))
	require.NoError(t, gp.AppendFrame(Frame("b")))
	gp.Finish()

	ctx := context.Background()
	f1, err := gc.NextFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, Frame("a"), f1)

	f2, err := gc.NextFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, Frame("b"), f2)

	_, err = gc.NextFrame(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestGroupConsumerAttachedBeforeOrAfterSeesAllFrames(t *testing.T) {
	gp, before := NewGroup(1)
	require.NoError(t, gp.AppendFrame(Frame("a")))

	after := before.Clone()

	require.NoError(t, gp.AppendFrame(Frame("b")))
	gp.Finish()

	ctx := context.Background()
	for _, c := range []*GroupConsumer{before, after} {
		f1, err := c.NextFrame(ctx)
		require.NoError(t, err)
		require.Equal(t, Frame("a"), f1)
		f2, err := c.NextFrame(ctx)
		require.NoError(t, err)
		require.Equal(t, Frame("b"), f2)
	}
}

func TestGroupAbort(t *testing.T) {
	gp, gc := NewGroup(1)
	gp.Abort(7, "boom")

	_, err := gc.NextFrame(context.Background())
	var closedErr *ClosedError
	require.ErrorAs(t, err, &closedErr)
	require.Equal(t, uint64(7), closedErr.Code)
}

func TestTrackSequenceMustIncrease(t *testing.T) {
	tp, _ := NewTrack("video", 1)

	g1, err := tp.AppendGroup(1)
	require.NoError(t, err)
	g1.Finish()

	_, err = tp.AppendGroup(1)
	require.ErrorIs(t, err, ErrInvalidSequence)

	g2, err := tp.AppendGroup(2)
	require.NoError(t, err)
	g2.Finish()
}

func TestTrackNextGroupIsSequential(t *testing.T) {
	tp, tc := NewTrack("video", 1)
	for seq := uint64(1); seq <= 3; seq++ {
		g, err := tp.AppendGroup(seq)
		require.NoError(t, err)
		g.Finish()
	}
	tp.Close(ErrDone)

	ctx := context.Background()
	var seen []uint64
	for {
		g, err := tc.NextGroup(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen = append(seen, g.Sequence())
	}
	require.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestTrackLatestGroupNeverGoesBackward(t *testing.T) {
	tp, tc := NewTrack("video", 1)
	for seq := uint64(1); seq <= 10; seq++ {
		g, err := tp.AppendGroup(seq)
		require.NoError(t, err)
		g.Finish()
	}

	ctx := context.Background()
	last := uint64(0)
	g, err := tc.LatestGroup(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, g.Sequence(), last)
	require.Equal(t, uint64(10), g.Sequence())

	// Groups 1-9 are older than 10: once the track is closed, a further
	// LatestGroup reports the end rather than handing one of them back.
	tp.Close(ErrDone)
	_, err = tc.LatestGroup(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestTrackRetainBoundsHistoryWithoutBreakingCursors(t *testing.T) {
	tp, tc := NewTrack("video", 1)
	for seq := uint64(1); seq <= 5; seq++ {
		g, err := tp.AppendGroup(seq)
		require.NoError(t, err)
		g.Finish()
	}

	tp.Retain(2)
	tp.Close(ErrDone)

	ctx := context.Background()
	var seen []uint64
	for {
		g, err := tc.NextGroup(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen = append(seen, g.Sequence())
	}
	// Groups 1-3 were evicted; the consumer jumps straight to what remains
	// rather than erroring on the gap.
	require.Equal(t, []uint64{4, 5}, seen)
}

func TestBroadcastCreateAndSubscribe(t *testing.T) {
	bp, bc := NewBroadcast("room")
	tp, err := bp.Create("video", 1)
	require.NoError(t, err)

	tc, err := bc.Subscribe("video")
	require.NoError(t, err)
	require.Equal(t, "video", tc.Name())

	g, err := tp.AppendGroup(1)
	require.NoError(t, err)
	require.NoError(t, g.AppendFrame(Frame("x")))
	g.Finish()

	frame, err := func() (Frame, error) {
		gc, err := tc.NextGroup(context.Background())
		if err != nil {
			return nil, err
		}
		return gc.NextFrame(context.Background())
	}()
	require.NoError(t, err)
	require.Equal(t, Frame("x"), frame)
}

func TestBroadcastUnknownTrack(t *testing.T) {
	_, bc := NewBroadcast("live")
	_, err := bc.Subscribe("absent")
	require.ErrorIs(t, err, ErrUnknownTrack)
}

func TestBroadcastCreateReplacesPriorTrackWithErrReplaced(t *testing.T) {
	bp, bc := NewBroadcast("room")
	_, err := bp.Create("video", 1)
	require.NoError(t, err)

	oldConsumer, err := bc.Subscribe("video")
	require.NoError(t, err)

	_, err = bp.Create("video", 2)
	require.NoError(t, err)

	_, err = oldConsumer.NextGroup(context.Background())
	var closedErr *ClosedError
	require.ErrorAs(t, err, &closedErr)
	require.Equal(t, ErrReplaced, closedErr)

	newConsumer, err := bc.Subscribe("video")
	require.NoError(t, err)
	require.NotSame(t, oldConsumer, newConsumer)
}

func TestBroadcastClosedWakesAllWaiters(t *testing.T) {
	bp, bc1 := NewBroadcast("room")
	bc2 := bc1.Clone()

	done := make(chan error, 2)
	go func() { done <- bc1.Closed(context.Background()) }()
	go func() { done <- bc2.Closed(context.Background()) }()

	bp.Close(ErrDone)

	for i := 0; i < 2; i++ {
		err := <-done
		require.ErrorIs(t, err, ErrDone)
	}
}
