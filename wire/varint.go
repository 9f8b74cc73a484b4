// Package wire implements the QUIC-style variable-length integer and
// byte/string/parameter coding shared by every message on the control
// stream and every group-stream header.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrBoundsExceeded is returned when a value cannot be represented by the
// varint encoding (> 2^62-1).
var ErrBoundsExceeded = errors.New("wire: value exceeds varint range")

const (
	maxVarInt1 = 1<<6 - 1
	maxVarInt2 = 1<<14 - 1
	maxVarInt4 = 1<<30 - 1
	maxVarInt8 = 1<<62 - 1
)

// AppendVarInt appends the QUIC varint encoding of v to buf and returns
// the extended slice, or ErrBoundsExceeded if v exceeds maxVarInt8.
func AppendVarInt(buf []byte, v uint64) ([]byte, error) {
	switch {
	case v <= maxVarInt1:
		return append(buf, byte(v)), nil
	case v <= maxVarInt2:
		return binary.BigEndian.AppendUint16(buf, uint16(v)|0x4000), nil
	case v <= maxVarInt4:
		return binary.BigEndian.AppendUint32(buf, uint32(v)|0x80000000), nil
	case v <= maxVarInt8:
		return binary.BigEndian.AppendUint64(buf, v|0xc000000000000000), nil
	default:
		return nil, ErrBoundsExceeded
	}
}

// WriteVarInt encodes v to w.
func WriteVarInt(w io.Writer, v uint64) error {
	buf, err := AppendVarInt(nil, v)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadVarInt decodes a varint from r.
func ReadVarInt(r io.ByteReader) (uint64, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	length := 1 << (first >> 6)
	b := make([]byte, length)
	b[0] = first & 0x3f

	for i := 1; i < length; i++ {
		next, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		b[i] = next
	}

	var v uint64
	for _, x := range b {
		v = (v << 8) | uint64(x)
	}
	return v, nil
}

// byteReader adapts an io.Reader lacking ReadByte (required by ReadVarInt).
type byteReader struct {
	io.Reader
	one [1]byte
}

func (r *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(r.Reader, r.one[:])
	return r.one[0], err
}

// AsByteReader wraps r so it can be passed to ReadVarInt, unless it already
// implements io.ByteReader.
func AsByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &byteReader{Reader: r}
}
