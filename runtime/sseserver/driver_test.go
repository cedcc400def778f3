package sseserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawaca/poe-go/runtime/protocol"
)

// TestDriveHappyPathEmitsTextThenDone exercises scenario S1: one text
// PartialResponse followed by the closed channel produces a text event
// then a done event.
func TestDriveHappyPathEmitsTextThenDone(t *testing.T) {
	drv := New(WithPing(time.Hour))
	items := make(chan Item, 1)
	items <- Item{Response: ptr(protocol.NewTextResponse("hi"))}
	close(items)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		drv.Drive(r.Context(), w, items, nil)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Contains(t, string(body), "event: text\r\ndata: {\"text\":\"hi\"}\r\n\r\n")
	require.Contains(t, string(body), "event: done\r\ndata: {}\r\n\r\n")
}

// TestDriveHandlerErrorEmitsErrorThenDone exercises scenario S2: a handler
// error produces an error event followed by a done event, never an
// exception escaping the driver.
func TestDriveHandlerErrorEmitsErrorThenDone(t *testing.T) {
	drv := New(WithPing(time.Hour))
	items := make(chan Item, 1)
	items <- Item{Err: errBoom{}}
	close(items)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		drv.Drive(r.Context(), w, items, nil)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Contains(t, string(body), `event: error`)
	require.Contains(t, string(body), `"allow_retry":false`)
	require.Contains(t, string(body), `"text":"boom"`)
	require.True(t, strings.HasSuffix(string(body), "event: done\r\ndata: {}\r\n\r\n"))
}

// TestDriveDisconnectStopsWithNoDone exercises scenario S6: when the
// client disconnects mid-stream, the driver stops with no further writes
// and no done event.
func TestDriveDisconnectStopsWithNoDone(t *testing.T) {
	drv := New(WithPing(time.Hour))
	items := make(chan Item)
	defer close(items)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rec := httptest.NewRecorder()
	go func() {
		drv.Drive(ctx, rec, items, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drive did not return after context cancellation")
	}

	require.NotContains(t, rec.Body.String(), "event: done")
}

// TestIsWriteTimeoutRecognizesDeadlineExceeded verifies the classification
// used to choose the send-timeout trailer over a silent disconnect: both a
// timing-out net.Error and the raw os.ErrDeadlineExceeded (what
// SetWriteDeadline produces on some transports) must be recognized.
func TestIsWriteTimeoutRecognizesDeadlineExceeded(t *testing.T) {
	require.True(t, isWriteTimeout(fakeNetTimeoutErr{}))
	require.True(t, isWriteTimeout(os.ErrDeadlineExceeded))
	require.False(t, isWriteTimeout(errBoom{}))
	require.False(t, isWriteTimeout(nil))
}

func ptr[T any](v T) *T { return &v }

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type fakeNetTimeoutErr struct{}

func (fakeNetTimeoutErr) Error() string   { return "fake net timeout" }
func (fakeNetTimeoutErr) Timeout() bool   { return true }
func (fakeNetTimeoutErr) Temporary() bool { return true }
