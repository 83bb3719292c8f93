package h2core

// StreamState is one of the seven states a stream occupies over its
// lifetime (https://tools.ietf.org/html/rfc7540#section-5.1).
type StreamState int8

const (
	// StreamIdle is the default state for any identifier not yet present
	// in the stream table.
	StreamIdle StreamState = iota
	StreamReservedLocal
	StreamReservedRemote
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	// StreamClosed is terminal; no further transitions are admitted
	// except the bounded tolerance window described in §4.2.
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "Idle"
	case StreamReservedLocal:
		return "ReservedLocal"
	case StreamReservedRemote:
		return "ReservedRemote"
	case StreamOpen:
		return "Open"
	case StreamHalfClosedLocal:
		return "HalfClosedLocal"
	case StreamHalfClosedRemote:
		return "HalfClosedRemote"
	case StreamClosed:
		return "Closed"
	}
	return "Unknown"
}

// PriorityLink records the dependency bits a stream carried on its last
// HEADERS or PRIORITY frame. Weight follows RFC 7540 and ranges 1-256,
// represented here as the raw 0-255 wire value plus one.
type PriorityLink struct {
	Parent    uint32
	Weight    uint8
	Exclusive bool
}

// StreamStatus is the per-stream record the core mutates as frames are
// admitted. Invariants it must uphold:
//
//  1. ExpectsContinuation implies only CONTINUATION is admissible on this
//     stream, and no other stream may be served until the chain ends.
//  2. ShouldEnd records a deferred END_STREAM, applied on the transition
//     that clears ExpectsContinuation: an Open stream half-closes, a
//     HalfClosed* or Reserved* stream closes.
//  3. A table entry in StreamIdle exists only if IsReserved is true.
//  4. StreamClosed has no outgoing edges.
type StreamStatus struct {
	State                StreamState
	ExpectsContinuation  bool
	ShouldEnd            bool
	IsReserved           bool
	Priority             PriorityLink
	HasPriority          bool
}

// NewStreamStatus returns a status in the Idle state with no pending
// continuation or end-of-stream bits set.
func NewStreamStatus() *StreamStatus {
	return &StreamStatus{State: StreamIdle}
}

// SetPriority records a priority-bearing frame's dependency data on the
// stream. PRIORITY-frame and HEADERS-frame-with-PRIORITY-flag callers both
// funnel through here once they've parsed the payload (an external
// collaborator).
func (s *StreamStatus) SetPriority(link PriorityLink) {
	s.Priority = link
	s.HasPriority = true
}
