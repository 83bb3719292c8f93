package h2core

import (
	"golang.org/x/net/http2"
)

// FrameValidator is a pure predicate: given the current table state, does
// this RawFrame get to run its handler? It performs no mutation — all
// three pipeline steps only ever read.
type FrameValidator struct{}

// Validate runs the three-step pipeline (opener check, continuation gate,
// state whitelist) and returns the admissibility verdict. It does not
// open or close streams; StreamManager does that after a successful
// Validate call.
func (FrameValidator) Validate(table *StreamTable, lastClientID, lastServerID uint32, role Role, receiving bool, frame RawFrame) Verdict {
	id := frame.StreamID
	typ := frame.Type

	// Cross-stream half of the continuation gate: while any other stream
	// is mid header block, no frame on a different stream is admissible.
	for otherID, other := range table.streams {
		if otherID != id && other.ExpectsContinuation {
			return connError(http2.ErrCodeProtocol)
		}
	}

	// Step 1: opener check, only for frames that can begin a stream.
	if (typ == http2.FrameHeaders || typ == http2.FramePushPromise) && !table.Has(id) {
		if !isValidOpener(id, lastClientID, lastServerID, role, receiving) {
			return connError(http2.ErrCodeProtocol)
		}
		// A fresh opener always passes the continuation gate (nothing is
		// pending yet) and the Idle whitelist; fall through to confirm
		// the frame type is one Idle admits.
		return checkIdleWhitelist(typ, receiving)
	}

	status := table.Get(id)
	state := StreamIdle
	if status != nil {
		state = status.State
	}

	// Step 2: continuation gate.
	if status != nil && status.ExpectsContinuation {
		if typ != http2.FrameContinuation {
			return connError(http2.ErrCodeProtocol)
		}
	} else if typ == http2.FrameContinuation {
		return connError(http2.ErrCodeProtocol)
	}

	// Step 3: per-state whitelist (Table 1).
	return checkStateWhitelist(id, state, typ, receiving)
}

// isValidOpener enforces identifier parity and monotonicity for a frame
// that opens a new stream. Parity is id % 2 (odd = client-initiated),
// uniformly in both directions.
func isValidOpener(id, lastClientID, lastServerID uint32, role Role, receiving bool) bool {
	isClientID := id%2 == 1

	var last uint32
	if isClientID {
		last = lastClientID
	} else {
		last = lastServerID
	}
	if id <= last {
		return false
	}

	// The initiator of a client-id stream is the client; of a
	// server-id stream, the server. Direction + role tell us who the
	// local endpoint is relative to that initiator.
	localIsServer := role == RoleServer
	initiatorIsClient := isClientID

	if receiving {
		// We're receiving; the frame was sent by the peer, so the
		// peer must be the initiator implied by the id's parity.
		peerIsClient := localIsServer
		return initiatorIsClient == peerIsClient
	}
	// We're sending; we must be the initiator implied by the id's parity.
	localIsClient := !localIsServer
	return initiatorIsClient == localIsClient
}

func checkIdleWhitelist(typ http2.FrameType, receiving bool) Verdict {
	switch typ {
	case http2.FrameHeaders, http2.FramePushPromise, http2.FramePriority:
		return admitted()
	case http2.FrameContinuation:
		// Only reached here once the continuation gate has already
		// confirmed a reservation (is_reserved) was expecting it.
		return admitted()
	case http2.FrameRSTStream:
		if !receiving {
			return admitted()
		}
		return connError(http2.ErrCodeProtocol)
	default:
		return connError(http2.ErrCodeProtocol)
	}
}

// checkStateWhitelist implements the per-state frame admissibility
// table. A rejection here is a stream error, except frames on streams
// that were never opened at all (Idle with no entry), which are bare
// protocol violations and are reported as connection errors by the Idle
// branch above via checkIdleWhitelist, and except CONTINUATION, handled
// by the gate.
func checkStateWhitelist(id uint32, state StreamState, typ http2.FrameType, receiving bool) Verdict {
	switch state {
	case StreamIdle:
		return checkIdleWhitelist(typ, receiving)

	case StreamReservedLocal:
		switch typ {
		case http2.FrameHeaders:
			if !receiving {
				return admitted()
			}
		case http2.FrameContinuation:
			if !receiving {
				return admitted()
			}
		case http2.FramePriority, http2.FrameRSTStream, http2.FrameWindowUpdate:
			return admitted()
		}
		return streamError(id, http2.ErrCodeProtocol)

	case StreamReservedRemote:
		switch typ {
		case http2.FrameHeaders:
			if receiving {
				return admitted()
			}
		case http2.FrameContinuation:
			if receiving {
				return admitted()
			}
		case http2.FramePriority, http2.FrameRSTStream, http2.FrameWindowUpdate:
			return admitted()
		}
		return streamError(id, http2.ErrCodeProtocol)

	case StreamOpen:
		switch typ {
		case http2.FrameData, http2.FrameHeaders, http2.FramePriority,
			http2.FrameRSTStream, http2.FramePushPromise,
			http2.FrameWindowUpdate, http2.FrameContinuation:
			return admitted()
		}
		return streamError(id, http2.ErrCodeProtocol)

	case StreamHalfClosedLocal:
		switch typ {
		case http2.FrameData, http2.FrameHeaders:
			if receiving {
				return admitted()
			}
		case http2.FramePriority, http2.FrameRSTStream, http2.FrameContinuation:
			return admitted()
		case http2.FrameWindowUpdate:
			if receiving {
				return admitted()
			}
		}
		return streamError(id, http2.ErrCodeProtocol)

	case StreamHalfClosedRemote:
		switch typ {
		case http2.FrameData:
			if !receiving {
				return admitted()
			}
		case http2.FramePriority, http2.FrameRSTStream, http2.FrameContinuation:
			return admitted()
		case http2.FrameWindowUpdate:
			if !receiving {
				return admitted()
			}
		}
		return streamError(id, http2.ErrCodeStreamClosed)

	case StreamClosed:
		switch typ {
		case http2.FramePriority:
			return admitted()
		case http2.FrameRSTStream, http2.FrameWindowUpdate:
			// Closed-state tolerance: a RST_STREAM or WINDOW_UPDATE
			// arriving briefly after END_STREAM/RST_STREAM is tolerated
			// here; the connection layer owns the bounded time window
			// and decides when a late frame graduates to a connection
			// error.
			return admitted()
		}
		return streamError(id, http2.ErrCodeStreamClosed)
	}
	return connError(http2.ErrCodeProtocol)
}
