package h2core

// Settings holds the one SETTINGS parameter this core consumes.
// Everything but MAX_CONCURRENT_STREAMS belongs to flow control and
// HPACK, both external collaborators here, so this is a deliberately
// narrowed struct rather than the full SETTINGS frame catalog.
type Settings struct {
	MaxConcurrentStreams uint32
}

// DefaultSettings returns the same MAX_CONCURRENT_STREAMS limit
// NewStreamManager uses when none is configured (100). This is a finite
// limit, unlike RFC 7540 §6.5.2's unlimited initial value.
func DefaultSettings() Settings {
	return Settings{MaxConcurrentStreams: defaultMaxConcurrentStreams}
}

// Apply pushes the settings onto a StreamManager, the single point where
// a negotiated SETTINGS frame changes this core's admission behavior.
func (s Settings) Apply(m *StreamManager) {
	m.ApplyMaxConcurrentStreams(s.MaxConcurrentStreams)
}
