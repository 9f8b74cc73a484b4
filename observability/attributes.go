package observability

import "go.opentelemetry.io/otel/attribute"

const (
	keyTrack       = "moq.track"
	keyGroup       = "moq.group"
	keyFrames      = "moq.frames"
	keyBroadcast   = "moq.broadcast"
	keySubscribers = "moq.subscribers"
)

// Track identifies the track a span or metric sample belongs to.
func Track(name string) attribute.KeyValue {
	return attribute.String(keyTrack, name)
}

// Group identifies a group sequence number.
func Group(seq int64) attribute.KeyValue {
	return attribute.Int64(keyGroup, seq)
}

// GroupSequence is an alias of Group for call sites that read more
// naturally naming the sequence number explicitly.
func GroupSequence(seq int64) attribute.KeyValue {
	return Group(seq)
}

// Frames records a frame count.
func Frames(n int) attribute.KeyValue {
	return attribute.Int64(keyFrames, int64(n))
}

// Broadcast identifies a broadcast namespace.
func Broadcast(namespace string) attribute.KeyValue {
	return attribute.String(keyBroadcast, namespace)
}

// Subscribers records a subscriber count.
func Subscribers(n int) attribute.KeyValue {
	return attribute.Int64(keySubscribers, int64(n))
}

// Str builds an arbitrary string attribute for call sites with no
// dedicated constructor above.
func Str(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Num builds an arbitrary integer attribute for call sites with no
// dedicated constructor above.
func Num(key string, value int64) attribute.KeyValue {
	return attribute.Int64(key, value)
}
