package session

import (
	"bufio"
	"errors"
	"io"

	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/model"
	"github.com/moqtransfork/moqrelay/wire"
)

// Group streams are unidirectional QUIC/WebTransport streams carrying one
// group each. Header: varint track alias, varint group sequence, varint
// publisher priority. Body: a sequence of varint-length-prefixed frames
// until the stream closes cleanly (group finished) or is reset with a
// CancelRead/CancelWrite code (group aborted).

func writeGroupHeader(w io.Writer, alias, sequence, priority uint64) error {
	if err := wire.WriteVarInt(w, alias); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, sequence); err != nil {
		return err
	}
	return wire.WriteVarInt(w, priority)
}

func readGroupHeader(r io.ByteReader) (alias, sequence, priority uint64, err error) {
	if alias, err = wire.ReadVarInt(r); err != nil {
		return
	}
	if sequence, err = wire.ReadVarInt(r); err != nil {
		return
	}
	priority, err = wire.ReadVarInt(r)
	return
}

// groupAcceptLoop accepts the uni-streams the peer opens to deliver groups
// for subscriptions we issued, and feeds each into the matching local
// TrackProducer.
func (s *Session) groupAcceptLoop() {
	defer s.wg.Done()

	for {
		rs, err := s.conn.AcceptUniStream(s.runCtx)
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.receiveGroup(rs)
	}
}

func (s *Session) receiveGroup(rs ReceiveStream) {
	defer s.wg.Done()

	br := bufio.NewReader(rs)
	alias, sequence, _, err := readGroupHeader(br)
	if err != nil {
		rs.CancelRead(StreamErrorCode(0))
		return
	}

	s.mu.Lock()
	sub, ok := s.aliasToSub[alias]
	s.mu.Unlock()
	if !ok {
		rs.CancelRead(StreamErrorCode(0))
		return
	}

	gp, err := sub.producer.AppendGroup(sequence)
	if err != nil {
		rs.CancelRead(StreamErrorCode(0))
		return
	}

	for {
		frame, err := wire.ReadBytes(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				gp.Finish()
			} else {
				gp.Abort(0, err.Error())
			}
			return
		}
		if err := gp.AppendFrame(model.Frame(frame)); err != nil {
			gp.Abort(0, err.Error())
			return
		}
	}
}

// dispatchGroups forwards every group a locally-accepted subscription's
// TrackConsumer yields to the peer, one uni-stream per group, until the
// consumer or the session closes.
func (s *Session) dispatchGroups(subID, alias uint64, tc *model.TrackConsumer) {
	defer s.wg.Done()

	for {
		gc, err := tc.NextGroup(s.runCtx)
		if err != nil {
			var ce *model.ClosedError
			if errors.As(err, &ce) {
				_ = s.writeControl(message.SubscribeDone{ID: subID, Code: ce.Code, Reason: ce.Reason})
			}
			return
		}

		ss, err := s.conn.OpenUniStreamSync(s.runCtx)
		if err != nil {
			return
		}
		if err := s.sendGroup(ss, alias, tc.Priority(), gc); err != nil {
			return
		}
	}
}

func (s *Session) sendGroup(ss SendStream, alias, priority uint64, gc *model.GroupConsumer) error {
	if err := writeGroupHeader(ss, alias, gc.Sequence(), priority); err != nil {
		ss.CancelWrite(StreamErrorCode(0))
		return err
	}

	for {
		frame, err := gc.NextFrame(s.runCtx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ss.Close()
			}
			ss.CancelWrite(StreamErrorCode(0))
			return err
		}
		if err := wire.WriteBytes(ss, []byte(frame)); err != nil {
			ss.CancelWrite(StreamErrorCode(0))
			return err
		}
	}
}
