package h2core

// StreamTable maps a 31-bit stream id to its StreamStatus. A key's
// absence is semantically equivalent to StreamIdle with IsReserved=false;
// callers should not rely on a zero-value *StreamStatus being returned
// for missing keys and should treat a nil result as idle.
type StreamTable struct {
	streams map[uint32]*StreamStatus
}

// NewStreamTable returns an empty table.
func NewStreamTable() *StreamTable {
	return &StreamTable{streams: make(map[uint32]*StreamStatus)}
}

// Get returns the status for id, or nil if absent (idle).
func (t *StreamTable) Get(id uint32) *StreamStatus {
	return t.streams[id]
}

// GetOrCreate returns the existing status for id, creating a fresh Idle
// one and inserting it if absent.
func (t *StreamTable) GetOrCreate(id uint32) *StreamStatus {
	s := t.streams[id]
	if s == nil {
		s = NewStreamStatus()
		t.streams[id] = s
	}
	return s
}

// Set inserts or replaces the status for id.
func (t *StreamTable) Set(id uint32, status *StreamStatus) {
	t.streams[id] = status
}

// Has reports whether id has a table entry, regardless of state.
func (t *StreamTable) Has(id uint32) bool {
	_, ok := t.streams[id]
	return ok
}

// Delete removes id from the table. Retiring a Closed stream's entry is
// the connection layer's call to make, typically after a bounded
// tolerance window; this method performs the removal unconditionally.
func (t *StreamTable) Delete(id uint32) {
	delete(t.streams, id)
}

// Len reports the number of tracked streams, open or not.
func (t *StreamTable) Len() int {
	return len(t.streams)
}

// CountActive reports the number of streams counted against
// MAX_CONCURRENT_STREAMS: Open and both HalfClosed states. Reserved and
// Idle streams do not count (RFC 7540 §5.1.2).
func (t *StreamTable) CountActive() int {
	n := 0
	for _, s := range t.streams {
		switch s.State {
		case StreamOpen, StreamHalfClosedLocal, StreamHalfClosedRemote:
			n++
		}
	}
	return n
}
