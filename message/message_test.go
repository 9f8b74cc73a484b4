package message

import (
	"bytes"
	"testing"

	"github.com/moqtransfork/moqrelay/wire"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))
	got, err := Read(&buf)
	require.NoError(t, err)
	return got
}

func TestAnnounceRoundTrip(t *testing.T) {
	want := Announce{Namespace: "quic.video/room", Auth: []byte("token"), Unknown: wire.NewParams()}
	got := roundTrip(t, want).(Announce)
	require.Equal(t, want.Namespace, got.Namespace)
	require.Equal(t, want.Auth, got.Auth)
}

func TestSubscribeLatestGroupRoundTrip(t *testing.T) {
	want := Subscribe{
		ID:        1,
		Alias:     2,
		Namespace: "quic.video/room",
		TrackName: "video",
		Filter:    FilterLatestGroup,
		Params:    wire.NewParams(),
	}
	got := roundTrip(t, want).(Subscribe)
	require.Equal(t, want, got)
}

func TestSubscribeAbsoluteRangeRoundTrip(t *testing.T) {
	start := &SubscribePair{Group: SubscribeLocation{Kind: LocationAbsolute, Value: 1}, Object: NoLocation}
	end := &SubscribePair{Group: SubscribeLocation{Kind: LocationAbsolute, Value: 5}, Object: NoLocation}
	want := Subscribe{
		ID:        7,
		Namespace: "ns",
		TrackName: "video",
		Filter:    FilterAbsoluteRange,
		Start:     start,
		End:       end,
		Params:    wire.NewParams(),
	}
	got := roundTrip(t, want).(Subscribe)
	require.Equal(t, *want.Start, *got.Start)
	require.Equal(t, *want.End, *got.End)
}

func TestSubscribeInvalidLocationRejected(t *testing.T) {
	var buf bytes.Buffer
	// Hand-craft: object location present (Absolute) with group=None, a
	// combination a malicious peer can put on the wire.
	require.NoError(t, wire.WriteVarInt(&buf, uint64(KindSubscribe)))
	require.NoError(t, wire.WriteVarInt(&buf, 1))
	require.NoError(t, wire.WriteVarInt(&buf, 0))
	require.NoError(t, wire.WriteString(&buf, "ns"))
	require.NoError(t, wire.WriteString(&buf, "track"))
	require.NoError(t, wire.WriteVarInt(&buf, uint64(FilterAbsoluteStart)))
	require.NoError(t, wire.WriteVarInt(&buf, uint64(LocationNone)))
	require.NoError(t, wire.WriteVarInt(&buf, uint64(LocationAbsolute)))
	require.NoError(t, wire.WriteVarInt(&buf, 3))

	_, err := Read(&buf)
	require.ErrorIs(t, err, ErrInvalidSubscribeLocation)
}

func TestSetupRoundTrip(t *testing.T) {
	want := ClientSetup{Versions: []Version{CurrentVersion}, Role: RoleBoth, Params: wire.NewParams()}
	got := roundTrip(t, want).(ClientSetup)
	require.Equal(t, want.Versions, got.Versions)
	require.Equal(t, want.Role, got.Role)
}

func TestAnnounceEncodeDoesNotMutateCallerParams(t *testing.T) {
	shared := wire.NewParams()
	m := Announce{Namespace: "ns", Auth: []byte("token"), Unknown: shared}

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	_, ok := shared.Get(ParamAuth)
	require.False(t, ok, "Encode must not inject ParamAuth into the caller's own Params")
	require.Equal(t, 0, shared.Len())
}

func TestSetupEncodeDoesNotMutateCallerParams(t *testing.T) {
	shared := wire.NewParams()
	m := ClientSetup{Versions: []Version{CurrentVersion}, Role: RoleBoth, Params: shared}

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	_, ok := shared.Get(ParamRole)
	require.False(t, ok, "Encode must not inject ParamRole into the caller's own Params")
	require.Equal(t, 0, shared.Len())
}

func TestNegotiateVersion(t *testing.T) {
	v, err := NegotiateVersion([]Version{99, CurrentVersion}, CurrentVersion)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, v)

	_, err = NegotiateVersion([]Version{99}, CurrentVersion)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestGoAwayRoundTrip(t *testing.T) {
	want := GoAway{NewURI: "https://relay2.example/"}
	got := roundTrip(t, want).(GoAway)
	require.Equal(t, want, got)
}
