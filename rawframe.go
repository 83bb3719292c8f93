package h2core

import (
	"golang.org/x/net/http2"
)

// RawFrame is the unit of work this core consumes. The binary codec that
// produces one — header pack/unpack, padded-payload parsing — is an
// external collaborator; this module only ever looks at the
// already-decoded header fields and treats Payload as opaque, except for
// the small set of already-parsed priority/window-update values handed in
// separately by the caller (see PriorityParams, WindowUpdateParams).
//
// http2.FrameHeader is reused as-is rather than reinvented: it already
// carries exactly the (length, type, flags, stream id) tuple this module
// needs.
type RawFrame struct {
	http2.FrameHeader
	Payload []byte
}

// NewRawFrame builds a RawFrame from its wire fields. Length is derived
// from the payload, matching how http2.Framer populates FrameHeader.
func NewRawFrame(typ http2.FrameType, flags http2.Flags, streamID uint32, payload []byte) RawFrame {
	return RawFrame{
		FrameHeader: http2.FrameHeader{
			Type:     typ,
			Flags:    flags,
			StreamID: streamID,
			Length:   uint32(len(payload)),
		},
		Payload: payload,
	}
}

// PriorityParams is the already-parsed payload of a PRIORITY frame, or of
// the priority fields carried by a HEADERS frame with the PRIORITY flag
// set. Parsing the five raw bytes into this shape is the external
// codec's job; this core only ever consumes the result.
type PriorityParams struct {
	Dependency uint32
	Weight     uint8
	Exclusive  bool
}

// WindowUpdateParams is the already-parsed payload of a WINDOW_UPDATE
// frame. Flow-control accounting itself is out of scope;
// HandleWindowUpdate accepts this value and takes no action on it, leaving
// it to the connection layer's flow controller.
type WindowUpdateParams struct {
	Increment uint32
}

// RstStreamParams is the already-parsed payload of a RST_STREAM frame.
type RstStreamParams struct {
	Code http2.ErrCode
}
