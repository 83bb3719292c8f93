package h2core

import (
	"errors"
	"fmt"

	"golang.org/x/net/http2"
)

// Role distinguishes which side of the connection this core is
// instantiated for; it governs identifier-parity checks.
type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Sentinel errors for programmer-error conditions that are not part of
// the HTTP/2 wire protocol (i.e. not surfaced as StreamErr/ConnErr).
var (
	ErrUnknownStream = errors.New("h2core: unknown stream id")
	ErrZeroStreamID  = errors.New("h2core: stream id 0 is connection-level, not a stream")
)

// VerdictKind distinguishes the three possible outcomes of handling an
// inbound or outbound frame.
type VerdictKind uint8

const (
	Admitted VerdictKind = iota
	StreamErr
	ConnErr
)

// Verdict is the outcome StreamManager.HandleFrame hands back to the
// connection layer. The connection layer is responsible for turning a
// StreamErr into an outbound RST_STREAM and a ConnErr into a GOAWAY —
// this core never emits wire bytes itself.
type Verdict struct {
	Kind     VerdictKind
	StreamID uint32
	Code     http2.ErrCode
}

func (v Verdict) String() string {
	switch v.Kind {
	case Admitted:
		return "admitted"
	case StreamErr:
		return fmt.Sprintf("stream error on %d: %s", v.StreamID, v.Code)
	case ConnErr:
		return fmt.Sprintf("connection error: %s", v.Code)
	}
	return "unknown verdict"
}

// Err adapts a Verdict into a Go error using the same StreamError /
// ConnectionError types golang.org/x/net/http2 already exports, so a
// caller that also links x/net/http2 can handle both uniformly. Returns
// nil for Admitted.
func (v Verdict) Err() error {
	switch v.Kind {
	case StreamErr:
		return http2.StreamError{StreamID: v.StreamID, Code: v.Code}
	case ConnErr:
		return http2.ConnectionError(v.Code)
	}
	return nil
}

func admitted() Verdict { return Verdict{Kind: Admitted} }

func streamError(id uint32, code http2.ErrCode) Verdict {
	return Verdict{Kind: StreamErr, StreamID: id, Code: code}
}

func connError(code http2.ErrCode) Verdict {
	return Verdict{Kind: ConnErr, Code: code}
}
