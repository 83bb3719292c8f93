package h2core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestConnIngestOpenAndClose(t *testing.T) {
	c := NewConn(ConnOpts{Role: RoleServer, MaxConcurrentStreams: 10})
	defer c.Close()

	headers := NewRawFrame(http2.FrameHeaders, http2.FlagHeadersEndHeaders, 1, nil)
	verdict := c.Ingest(true, headers)
	require.Equal(t, Admitted, verdict.Kind)
	require.Equal(t, StreamOpen, c.Manager().Table().Get(1).State)

	rst := NewRawFrame(http2.FrameRSTStream, 0, 1, nil)
	verdict = c.Ingest(true, rst)
	require.Equal(t, Admitted, verdict.Kind)
	require.Equal(t, StreamClosed, c.Manager().Table().Get(1).State)
}

func TestConnRetiresAfterToleranceWindow(t *testing.T) {
	c := NewConn(ConnOpts{Role: RoleServer, MaxConcurrentStreams: 10, CloseTolerance: 20 * time.Millisecond})
	defer c.Close()

	headers := NewRawFrame(http2.FrameHeaders, http2.FlagHeadersEndHeaders, 1, nil)
	c.Ingest(true, headers)
	rst := NewRawFrame(http2.FrameRSTStream, 0, 1, nil)
	c.Ingest(true, rst)

	require.Eventually(t, func() bool {
		return !c.Manager().Table().Has(1)
	}, time.Second, 5*time.Millisecond)
}
