package h2core

import (
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/net/http2"
)

// defaultCloseTolerance is how long a Closed stream's table entry is kept
// around before Retire is called automatically, so a WINDOW_UPDATE or
// RST_STREAM that crosses the wire just after closure isn't treated as a
// protocol violation against an unknown stream.
const defaultCloseTolerance = 2 * time.Second

// ConnOpts configures a Conn: role, admission limit, retirement delay,
// and logging, trimmed to what this transport-less core needs.
type ConnOpts struct {
	Role                 Role
	MaxConcurrentStreams uint32
	CloseTolerance       time.Duration
	Logger               fasthttp.Logger
	Debug                bool
}

func (o *ConnOpts) defaults() {
	if o.CloseTolerance == 0 {
		o.CloseTolerance = defaultCloseTolerance
	}
}

// Conn is the single-goroutine owner of a StreamManager for one HTTP/2
// connection. It has no socket of its own — frames arrive via Ingest,
// pushed in by whatever owns the net.Conn/TLS layer — but it serializes
// all access to the manager: one goroutine, one loop, no locks.
type Conn struct {
	manager *StreamManager
	events  chan connEvent
	closer  chan struct{}
	logger  fasthttp.Logger
	debug   bool
	pending map[uint32]*time.Timer
}

// connEvent is either an inbound/outbound frame awaiting a verdict, or an
// internal retirement tick; exactly one of result/retireID applies.
type connEvent struct {
	receiving bool
	frame     RawFrame
	result    chan Verdict

	retireID uint32
	isRetire bool
}

// NewConn builds a Conn and starts its event loop goroutine.
func NewConn(opts ConnOpts) *Conn {
	opts.defaults()
	m := NewStreamManager(ManagerOpts{
		Role:                 opts.Role,
		MaxConcurrentStreams: opts.MaxConcurrentStreams,
		Logger:               opts.Logger,
		Debug:                opts.Debug,
	})
	c := &Conn{
		manager: m,
		events:  make(chan connEvent),
		closer:  make(chan struct{}),
		logger:  m.logger,
		debug:   opts.Debug,
		pending: make(map[uint32]*time.Timer),
	}
	go c.loop(opts.CloseTolerance)
	return c
}

// Ingest hands a decoded frame to the connection's single event-loop
// goroutine and blocks for its verdict. receiving is true for an inbound
// frame, false for one this endpoint is about to send.
func (c *Conn) Ingest(receiving bool, frame RawFrame) Verdict {
	result := make(chan Verdict, 1)
	select {
	case c.events <- connEvent{receiving: receiving, frame: frame, result: result}:
	case <-c.closer:
		return connError(http2.ErrCodeInternal)
	}
	return <-result
}

// Manager exposes the owned StreamManager, primarily for tests and for
// the scheduler side of a real transport loop to call Priority().Next().
func (c *Conn) Manager() *StreamManager {
	return c.manager
}

// Close stops the event loop. Already-scheduled retirement timers are
// stopped without firing.
func (c *Conn) Close() {
	close(c.closer)
}

func (c *Conn) loop(tolerance time.Duration) {
	for {
		select {
		case ev := <-c.events:
			if ev.isRetire {
				delete(c.pending, ev.retireID)
				if err := c.manager.Retire(ev.retireID); err != nil {
					c.logger.Printf("retire stream=%d: %s", ev.retireID, err)
				}
				continue
			}
			verdict := c.manager.HandleFrame(ev.receiving, ev.frame)
			if verdict.Kind != ConnErr {
				c.scheduleRetireIfClosed(ev.frame.StreamID, tolerance)
			}
			ev.result <- verdict
		case <-c.closer:
			for _, t := range c.pending {
				t.Stop()
			}
			return
		}
	}
}

// scheduleRetireIfClosed arms a one-shot timer that, on the loop
// goroutine, removes a just-closed stream's bookkeeping once the
// tolerance window has elapsed, instead of retiring immediately on
// Closed. The timer callback only ever sends a retire event; it never
// touches the manager directly, keeping all manager access on the
// single owning goroutine.
func (c *Conn) scheduleRetireIfClosed(id uint32, tolerance time.Duration) {
	status := c.manager.Table().Get(id)
	if status == nil || status.State != StreamClosed {
		return
	}
	if _, scheduled := c.pending[id]; scheduled {
		return
	}
	c.pending[id] = time.AfterFunc(tolerance, func() {
		select {
		case c.events <- connEvent{isRetire: true, retireID: id}:
		case <-c.closer:
		}
	})
}
