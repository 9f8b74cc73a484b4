// Package model implements the broadcast/track/group/frame data model:
// producer/consumer handle pairs sharing state through a mutex-guarded
// cell with change notification, per SPEC_FULL.md §3/§4.2/§9.
package model

import "fmt"

// ClosedError is the terminal state of any producer/consumer pair. Every
// Closed::* variant named in SPEC_FULL.md §7 is a predefined code here.
type ClosedError struct {
	Code   uint64
	Reason string
}

func (e *ClosedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("model: closed (code %d)", e.Code)
	}
	return fmt.Sprintf("model: closed: %s (code %d)", e.Reason, e.Code)
}

const (
	codeDone = iota
	codeCancel
	codeReplaced
	codeUnknownTrack
	codeNotFound
	codeDuplicate
)

var (
	// ErrDone marks normal, expected end of stream.
	ErrDone = &ClosedError{Code: codeDone, Reason: "done"}
	// ErrCancel marks peer cancellation or a dropped local handle.
	ErrCancel = &ClosedError{Code: codeCancel, Reason: "cancel"}
	// ErrReplaced marks a producer superseded by a newer one of the same name.
	ErrReplaced = &ClosedError{Code: codeReplaced, Reason: "replaced"}
	// ErrUnknownTrack marks a subscribe to a track with no producer and no
	// unknown-track fallback.
	ErrUnknownTrack = &ClosedError{Code: codeUnknownTrack, Reason: "unknown track"}
	// ErrNotFound marks a router lookup that matched nothing.
	ErrNotFound = &ClosedError{Code: codeNotFound, Reason: "not found"}
	// ErrDuplicate marks an attempt to register an already-registered name.
	ErrDuplicate = &ClosedError{Code: codeDuplicate, Reason: "duplicate"}
)

// AppError constructs an application-defined closure code, for callers
// that abort a group or close a broadcast with their own error semantics.
func AppError(code uint64, reason string) *ClosedError {
	return &ClosedError{Code: code, Reason: reason}
}

// ErrInvalidSequence is returned by TrackProducer.AppendGroup when seq does
// not strictly exceed the previous group's sequence number.
var ErrInvalidSequence = fmt.Errorf("model: group sequence must strictly increase")
