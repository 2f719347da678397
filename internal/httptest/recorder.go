// Package httptest provides a small wrapper around go-vcr for
// recording and replaying HTTP interactions in tests.
package httptest

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/dnaeon/go-vcr.v4/pkg/cassette"
	"gopkg.in/dnaeon/go-vcr.v4/pkg/recorder"
)

// RecorderOptions configures [NewRecorder].
type RecorderOptions struct {
	// Record, when true, sends requests to RealTransport and
	// writes the interaction to the cassette. Otherwise requests
	// are served from the existing cassette.
	Record bool

	// RealTransport is the transport used to make live requests
	// while recording. Defaults to http.DefaultTransport.
	RealTransport http.RoundTripper
}

// NewRecorder returns an *http.Client whose transport replays (or
// records) HTTP interactions stored under testdata/fixtures/<name>.
func NewRecorder(t testing.TB, name string, opts RecorderOptions) *http.Client {
	t.Helper()

	mode := recorder.ModeReplayOnly
	realTransport := opts.RealTransport
	if realTransport == nil {
		realTransport = http.DefaultTransport
	}
	if opts.Record {
		mode = recorder.ModeRecordOnly
	}

	rec, err := recorder.New(filepath.Join("testdata", "fixtures", name),
		recorder.WithMode(mode),
		recorder.WithRealTransport(realTransport),
		recorder.WithSkipRequestLatency(true),
		recorder.WithMatcher(cassette.DefaultMatcher),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, rec.Stop())
	})

	return rec.GetDefaultClient()
}
