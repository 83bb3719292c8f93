package h2core

import (
	"log"
	"os"

	"github.com/valyala/fasthttp"
	"golang.org/x/net/http2"
)

// ManagerOpts configures a StreamManager at construction time.
type ManagerOpts struct {
	Role                 Role
	MaxConcurrentStreams uint32
	Logger               fasthttp.Logger
	Debug                bool
}

func (o *ManagerOpts) defaults() {
	if o.MaxConcurrentStreams == 0 {
		o.MaxConcurrentStreams = defaultMaxConcurrentStreams
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "h2core: ", log.LstdFlags)
	}
}

// StreamManager owns the StreamTable, the identifier counters, and the
// admission limit, and is the single integration point the connection
// layer calls per frame.
type StreamManager struct {
	table *StreamTable

	lastClientID uint32
	lastServerID uint32

	maxConcurrentStreams uint32

	role Role

	validator FrameValidator

	logger fasthttp.Logger
	debug  bool

	priority *PriorityManager
}

const defaultMaxConcurrentStreams = 100

// NewStreamManager builds a StreamManager. A PriorityManager is created
// alongside it since PRIORITY-bearing frames are routed there by the
// manager's dispatch step.
func NewStreamManager(opts ManagerOpts) *StreamManager {
	opts.defaults()
	return &StreamManager{
		table:                NewStreamTable(),
		maxConcurrentStreams: opts.MaxConcurrentStreams,
		role:                 opts.Role,
		logger:               opts.Logger,
		debug:                opts.Debug,
		priority:             NewPriorityManager(),
	}
}

// Priority exposes the owned PriorityManager for the scheduler side of
// the connection layer.
func (m *StreamManager) Priority() *PriorityManager {
	return m.priority
}

// Table exposes the underlying StreamTable for inspection (tests,
// metrics); handlers mutate it, callers should treat it read-only.
func (m *StreamManager) Table() *StreamTable {
	return m.table
}

func (m *StreamManager) logf(format string, args ...interface{}) {
	if m.debug {
		m.logger.Printf(format, args...)
	}
}

// ApplyMaxConcurrentStreams consumes SETTINGS.MAX_CONCURRENT_STREAMS, the
// one piece of SETTINGS semantics this core requires.
func (m *StreamManager) ApplyMaxConcurrentStreams(n uint32) {
	m.maxConcurrentStreams = n
}

// openIdle registers a stream as Idle, recording it against the
// appropriate parity counter. Used directly by PUSH_PROMISE reservations
// and indirectly by Open.
func (m *StreamManager) openIdle(id uint32) {
	m.table.GetOrCreate(id)
	if id%2 == 1 {
		if id > m.lastClientID {
			m.lastClientID = id
		}
	} else if id > m.lastServerID {
		m.lastServerID = id
	}
}

// Open forces a transition from absent/Idle to Open, creating the table
// entry if needed.
func (m *StreamManager) Open(id uint32) *StreamStatus {
	status := m.table.Get(id)
	if status == nil {
		m.openIdle(id)
		status = m.table.Get(id)
	}
	if status.State == StreamIdle {
		status.State = StreamOpen
		m.priority.Add(id)
	}
	return status
}

// Close forces id to Closed unconditionally, used by the RST_STREAM
// handler and by HandleFrame when a frame draws a stream error.
func (m *StreamManager) Close(id uint32) {
	status := m.table.Get(id)
	if status == nil {
		return
	}
	status.State = StreamClosed
}

// HandleFrame is the integration point: the transport hands in a RawFrame
// and a receiving flag; HandleFrame validates it and, if admitted,
// dispatches to the per-type handler that mutates StreamStatus. It does
// not touch the PriorityManager for PRIORITY frames; their decoded
// payload reaches the tree through HandlePriority.
func (m *StreamManager) HandleFrame(receiving bool, frame RawFrame) Verdict {
	if frame.StreamID == 0 {
		// Connection-level frames (SETTINGS, PING, GOAWAY, and
		// connection-level PRIORITY/WINDOW_UPDATE) are not this core's
		// concern beyond the SETTINGS.MAX_CONCURRENT_STREAMS hook.
		return admitted()
	}

	verdict := m.validator.Validate(m.table, m.lastClientID, m.lastServerID, m.role, receiving, frame)
	if verdict.Kind != Admitted {
		if verdict.Kind == StreamErr {
			m.Close(verdict.StreamID)
			m.logf("rejected frame type=%s stream=%d: %s", frame.Type, frame.StreamID, verdict)
		} else {
			m.logf("connection error on frame type=%s stream=%d: %s", frame.Type, frame.StreamID, verdict)
		}
		return verdict
	}

	if err := m.admitOpener(receiving, frame); err != nil {
		return *err
	}

	switch frame.Type {
	case http2.FrameHeaders:
		m.handleHeaders(receiving, frame)
	case http2.FramePushPromise:
		if m.table.Has(frame.StreamID) {
			m.logf("PUSH_PROMISE on existing stream=%d", frame.StreamID)
			return connError(http2.ErrCodeProtocol)
		}
		m.handlePushPromise(receiving, frame)
	case http2.FrameContinuation:
		m.handleContinuation(receiving, frame)
	case http2.FrameData:
		m.handleData(receiving, frame)
	case http2.FrameRSTStream:
		m.handleRstStream(frame)
	case http2.FramePriority, http2.FrameWindowUpdate:
		// Payload parsing and dispatch to PriorityManager / flow
		// control is driven through HandlePriority/HandleWindowUpdate
		// once the caller has decoded the payload; a bare
		// HandleFrame call for these types performs no state change of
		// its own beyond the admissibility check already run above.
	}

	return admitted()
}

// admitOpener applies the REFUSED_STREAM admission-control rule before a
// HEADERS frame is allowed to open a brand new stream.
func (m *StreamManager) admitOpener(receiving bool, frame RawFrame) *Verdict {
	if frame.Type != http2.FrameHeaders {
		return nil
	}
	if m.table.Has(frame.StreamID) {
		return nil
	}
	if uint32(m.table.CountActive()) >= m.maxConcurrentStreams {
		v := streamError(frame.StreamID, http2.ErrCodeRefusedStream)
		m.table.GetOrCreate(frame.StreamID).State = StreamClosed
		return &v
	}
	return nil
}

// handleHeaders is the HEADERS handler. When END_HEADERS is absent the
// frame only sets ExpectsContinuation/ShouldEnd; the state transition
// those bits imply is deferred to the CONTINUATION frame that eventually
// clears ExpectsContinuation — an implied-CONTINUATION chain must not
// apply END_STREAM's closure early.
func (m *StreamManager) handleHeaders(receiving bool, frame RawFrame) {
	status := m.table.Get(frame.StreamID)
	if status == nil || status.State == StreamIdle && !status.IsReserved {
		status = m.Open(frame.StreamID)
	}

	endHeaders := frame.Flags.Has(http2.FlagHeadersEndHeaders)
	endStream := frame.Flags.Has(http2.FlagHeadersEndStream)

	if endStream {
		status.ShouldEnd = true
	}

	if endHeaders {
		status.ExpectsContinuation = false
		completeHeaderBlock(status, receiving)
	} else {
		status.ExpectsContinuation = true
	}
}

// completeHeaderBlock applies the state transition implied by a header
// block (HEADERS or the PUSH_PROMISE-adjacent HEADERS that follows a
// reservation) once END_HEADERS has been observed, whether that happened
// on the opening frame itself or on the CONTINUATION that finished a
// deferred chain.
func completeHeaderBlock(status *StreamStatus, receiving bool) {
	switch status.State {
	case StreamReservedLocal:
		if !receiving {
			if status.ShouldEnd {
				status.State = StreamClosed
			} else {
				status.State = StreamHalfClosedRemote
			}
		}
	case StreamReservedRemote:
		if receiving {
			if status.ShouldEnd {
				status.State = StreamClosed
			} else {
				status.State = StreamHalfClosedLocal
			}
		}
	case StreamOpen:
		if status.ShouldEnd {
			if receiving {
				status.State = StreamHalfClosedRemote
			} else {
				status.State = StreamHalfClosedLocal
			}
		}
	case StreamHalfClosedLocal, StreamHalfClosedRemote:
		if status.ShouldEnd {
			status.State = StreamClosed
		}
	}
}

// handlePushPromise is the PUSH_PROMISE handler. Only valid when the
// promised id is absent from the table; the validator's
// opener check (triggered for PUSH_PROMISE too) already enforces
// identifier monotonicity, but an existing entry means the id collides
// with a stream already opened by other means, a connection error that
// HandleFrame returns before calling this handler.
func (m *StreamManager) handlePushPromise(receiving bool, frame RawFrame) {
	m.openIdle(frame.StreamID)
	status := m.table.Get(frame.StreamID)
	status.IsReserved = true

	if frame.Flags.Has(http2.FlagPushPromiseEndHeaders) {
		if receiving {
			status.State = StreamReservedRemote
		} else {
			status.State = StreamReservedLocal
		}
		status.ExpectsContinuation = false
	} else {
		status.ExpectsContinuation = true
	}
}

// handleContinuation is the CONTINUATION handler. It only acts when
// END_HEADERS is set; otherwise the chain continues and no
// state changes. The PUSH_PROMISE reservation-completion case is handled
// separately from completeHeaderBlock since it moves a stream out of
// Idle, a transition completeHeaderBlock never performs.
func (m *StreamManager) handleContinuation(receiving bool, frame RawFrame) {
	if !frame.Flags.Has(http2.FlagContinuationEndHeaders) {
		return
	}
	status := m.table.Get(frame.StreamID)
	if status == nil {
		return
	}

	status.ExpectsContinuation = false

	if status.State == StreamIdle && status.IsReserved {
		if receiving {
			status.State = StreamReservedRemote
		} else {
			status.State = StreamReservedLocal
		}
		status.IsReserved = false
		return
	}

	completeHeaderBlock(status, receiving)
}

// handleData is the DATA handler: END_STREAM moves Open to the
// appropriate HalfClosed*, and only reaches Closed directly when the
// stream was already half-closed in the other direction. A frame that
// unconditionally closed on END_STREAM regardless of starting state
// would skip the half-closed stage entirely; this handler never does.
func (m *StreamManager) handleData(receiving bool, frame RawFrame) {
	if !frame.Flags.Has(http2.FlagDataEndStream) {
		return
	}
	status := m.table.Get(frame.StreamID)
	if status == nil {
		return
	}

	status.ShouldEnd = true

	switch status.State {
	case StreamOpen:
		if receiving {
			status.State = StreamHalfClosedRemote
		} else {
			status.State = StreamHalfClosedLocal
		}
	case StreamHalfClosedLocal, StreamHalfClosedRemote:
		status.State = StreamClosed
	}
}

// handleRstStream is the RST_STREAM handler: unconditional close,
// subject to the admissibility check already run.
func (m *StreamManager) handleRstStream(frame RawFrame) {
	m.Close(frame.StreamID)
}

// HandlePriority parses a PRIORITY frame's already-decoded payload and
// forwards it to the PriorityManager. The frame is also subject to
// ordinary HandleFrame admissibility; callers invoke both (HandleFrame
// for the admissibility gate, then this once the codec has decoded the
// payload) since PRIORITY/WINDOW_UPDATE payload parsing is an external
// collaborator.
func (m *StreamManager) HandlePriority(streamID uint32, params PriorityParams) error {
	if streamID == 0 {
		return ErrZeroStreamID
	}
	status := m.table.Get(streamID)
	if status != nil {
		status.SetPriority(PriorityLink{Parent: params.Dependency, Weight: params.Weight, Exclusive: params.Exclusive})
	}
	if params.Exclusive {
		m.priority.SetExclusive(streamID, params.Dependency)
	} else {
		m.priority.SetDependency(streamID, params.Dependency)
	}
	return nil
}

// HandleWindowUpdate is the integration point for WINDOW_UPDATE;
// flow-control byte accounting itself is out of scope and is the
// connection layer's responsibility. This core takes no action here
// beyond having already validated admissibility.
func (m *StreamManager) HandleWindowUpdate(streamID uint32, params WindowUpdateParams) error {
	if streamID == 0 {
		return ErrZeroStreamID
	}
	_ = params
	return nil
}

// HandleRstStream logs the peer-supplied error code carried in an
// already-decoded RST_STREAM payload. The state transition itself
// happens unconditionally in handleRstStream once HandleFrame admits
// the frame; this is an observability hook for callers that decode the
// payload, following the same split as HandlePriority/HandleWindowUpdate.
func (m *StreamManager) HandleRstStream(streamID uint32, params RstStreamParams) error {
	if streamID == 0 {
		return ErrZeroStreamID
	}
	m.logf("RST_STREAM stream=%d code=%s", streamID, params.Code)
	return nil
}

// Retire removes a Closed stream's table entry and priority-tree node.
// Not part of HandleFrame's automatic flow — the connection layer calls
// this once its tolerance window has elapsed.
func (m *StreamManager) Retire(id uint32) error {
	if id == 0 {
		return ErrZeroStreamID
	}
	status := m.table.Get(id)
	if status == nil {
		return ErrUnknownStream
	}
	m.priority.Retire(id)
	m.table.Delete(id)
	return nil
}
