package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	groupsCounter    metric.Int64Counter
	cacheHitCounter  metric.Int64Counter
	cacheMissCounter metric.Int64Counter
	catchupHist      metric.Int64Histogram
	subscribersGauge metric.Int64UpDownCounter
	broadcastDur     metric.Float64Histogram
	broadcastFrames  metric.Int64Histogram
	broadcastSubs    metric.Int64Histogram
	latencyHist      metric.Float64Histogram
	tracksGauge      metric.Int64UpDownCounter
)

func initInstruments(m metric.Meter) error {
	var err error
	if groupsCounter, err = m.Int64Counter("moq.groups_received"); err != nil {
		return err
	}
	if cacheHitCounter, err = m.Int64Counter("moq.cache_hits"); err != nil {
		return err
	}
	if cacheMissCounter, err = m.Int64Counter("moq.cache_misses"); err != nil {
		return err
	}
	if catchupHist, err = m.Int64Histogram("moq.catchup_groups"); err != nil {
		return err
	}
	if subscribersGauge, err = m.Int64UpDownCounter("moq.subscribers"); err != nil {
		return err
	}
	if broadcastDur, err = m.Float64Histogram("moq.broadcast_seconds"); err != nil {
		return err
	}
	if broadcastFrames, err = m.Int64Histogram("moq.broadcast_frames"); err != nil {
		return err
	}
	if broadcastSubs, err = m.Int64Histogram("moq.broadcast_subscribers"); err != nil {
		return err
	}
	if latencyHist, err = m.Float64Histogram("moq.latency_seconds"); err != nil {
		return err
	}
	if tracksGauge, err = m.Int64UpDownCounter("moq.tracks"); err != nil {
		return err
	}
	return nil
}

func clearInstruments() {
	groupsCounter, cacheHitCounter, cacheMissCounter = nil, nil, nil
	catchupHist, subscribersGauge = nil, nil
	broadcastDur, broadcastFrames, broadcastSubs = nil, nil, nil
	latencyHist, tracksGauge = nil, nil
}

// Recorder batches the per-track metrics a relay or publisher emits while
// serving one track, so callers don't repeat the track attribute at every
// call site.
type Recorder struct {
	track string
	subs  int64
}

// NewRecorder returns a Recorder scoped to track. Safe to use even when
// metrics are disabled; every method becomes a no-op.
func NewRecorder(track string) *Recorder {
	return &Recorder{track: track}
}

func (r *Recorder) attr() attribute.KeyValue {
	return Track(r.track)
}

// GroupReceived records one group arriving on the track.
func (r *Recorder) GroupReceived() {
	if groupsCounter == nil {
		return
	}
	groupsCounter.Add(context.Background(), 1, metric.WithAttributes(r.attr()))
}

// CacheHit records a subscriber catching up from the cached group ring.
func (r *Recorder) CacheHit() {
	if cacheHitCounter == nil {
		return
	}
	cacheHitCounter.Add(context.Background(), 1, metric.WithAttributes(r.attr()))
}

// CacheMiss records a subscriber needing a group the cache no longer has.
func (r *Recorder) CacheMiss() {
	if cacheMissCounter == nil {
		return
	}
	cacheMissCounter.Add(context.Background(), 1, metric.WithAttributes(r.attr()))
}

// Catchup records how many cached groups a new subscriber was handed.
func (r *Recorder) Catchup(n int) {
	if catchupHist == nil {
		return
	}
	catchupHist.Record(context.Background(), int64(n), metric.WithAttributes(r.attr()))
}

// IncSubscribers records a subscriber joining the track.
func (r *Recorder) IncSubscribers() {
	r.SetSubscribers(int(r.subs) + 1)
}

// DecSubscribers records a subscriber leaving the track.
func (r *Recorder) DecSubscribers() {
	r.SetSubscribers(int(r.subs) - 1)
}

// SetSubscribers records the current subscriber count directly.
func (r *Recorder) SetSubscribers(n int) {
	if subscribersGauge == nil {
		r.subs = int64(n)
		return
	}
	delta := int64(n) - r.subs
	if delta != 0 {
		subscribersGauge.Add(context.Background(), delta, metric.WithAttributes(r.attr()))
	}
	r.subs = int64(n)
}

// Broadcast records one completed group's size and fan-out: dur is how long
// the group took to fully relay, frames is its frame count, subscribers is
// how many consumers received it.
func (r *Recorder) Broadcast(dur time.Duration, frames, subscribers int) {
	if broadcastDur != nil {
		broadcastDur.Record(context.Background(), dur.Seconds(), metric.WithAttributes(r.attr()))
	}
	if broadcastFrames != nil {
		broadcastFrames.Record(context.Background(), int64(frames), metric.WithAttributes(r.attr()))
	}
	if broadcastSubs != nil {
		broadcastSubs.Record(context.Background(), int64(subscribers), metric.WithAttributes(r.attr(), Subscribers(subscribers)))
	}
}

// LatencyObs returns an observer for a named latency measurement (e.g.
// "receive-to-relay"), or nil when metrics are disabled.
func (r *Recorder) LatencyObs(name string) *LatencyObserver {
	if latencyHist == nil {
		return nil
	}
	return &LatencyObserver{track: r.track, name: name}
}

// LatencyObserver records samples of one named latency measurement.
type LatencyObserver struct {
	track string
	name  string
}

// Observe records one latency sample in seconds.
func (o *LatencyObserver) Observe(seconds float64) {
	if o == nil || latencyHist == nil {
		return
	}
	latencyHist.Record(context.Background(), seconds, metric.WithAttributes(Track(o.track), Str("moq.op", o.name)))
}

// IncTracks records a track being opened for the first time.
func IncTracks() {
	if tracksGauge == nil {
		return
	}
	tracksGauge.Add(context.Background(), 1)
}

// DecTracks records a track closing.
func DecTracks() {
	if tracksGauge == nil {
		return
	}
	tracksGauge.Add(context.Background(), -1)
}
