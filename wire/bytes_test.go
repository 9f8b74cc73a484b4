package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "quic.video/room"))

	s, err := ReadString(&buf)
	require.NoError(t, err)
	require.Equal(t, "quic.video/room", s)
}

func TestStringInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBytes(&buf, []byte{0xff, 0xfe}))

	_, err := ReadString(&buf)
	require.ErrorIs(t, err, ErrInvalidString)
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0x01, 0x02, 0x03, 0xff}
	require.NoError(t, WriteBytes(&buf, payload))

	got, err := ReadBytes(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestParamsRoundTrip(t *testing.T) {
	p := NewParams()
	p.Set(0x02, []byte("token"))
	p.Set(0x10, []byte{0x01})

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))

	decoded, err := DecodeParams(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, decoded.Len())

	v, ok := decoded.Get(0x02)
	require.True(t, ok)
	require.Equal(t, []byte("token"), v)
}

func TestParamsCloneIsIndependent(t *testing.T) {
	p := NewParams()
	p.Set(0x02, []byte("token"))

	clone := p.Clone()
	clone.Set(0x10, []byte{0x01})

	require.Equal(t, 1, p.Len())
	require.Equal(t, 2, clone.Len())

	_, ok := p.Get(0x10)
	require.False(t, ok)
}

func TestParamsDuplicateRejected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 2))
	require.NoError(t, WriteVarInt(&buf, 0x02))
	require.NoError(t, WriteBytes(&buf, []byte("a")))
	require.NoError(t, WriteVarInt(&buf, 0x02))
	require.NoError(t, WriteBytes(&buf, []byte("b")))

	_, err := DecodeParams(&buf)
	require.ErrorIs(t, err, ErrDuplicateParam)
}
