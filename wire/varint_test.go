package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarIntLengths(t *testing.T) {
	cases := []struct {
		v      uint64
		length int
	}{
		{0, 1},
		{63, 1},
		{64, 2},
		{16383, 2},
		{16384, 4},
		{1<<30 - 1, 4},
		{1 << 30, 8},
		{maxVarInt8, 8},
	}

	for _, c := range cases {
		buf, err := AppendVarInt(nil, c.v)
		require.NoError(t, err)
		require.Lenf(t, buf, c.length, "value %d", c.v)

		got, err := ReadVarInt(AsByteReader(bytes.NewReader(buf)))
		require.NoError(t, err)
		require.Equal(t, c.v, got)
	}
}

func TestVarIntTooLarge(t *testing.T) {
	_, err := AppendVarInt(nil, maxVarInt8+1)
	require.ErrorIs(t, err, ErrBoundsExceeded)
}

func TestVarIntRoundTripWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 1_000_000))
	v, err := ReadVarInt(AsByteReader(&buf))
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), v)
}
