package botclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawaca/poe-go/runtime/boterrors"
	"github.com/pawaca/poe-go/runtime/protocol"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(WithBaseURL(srv.URL + "/"))
	return c, srv
}

func drain(ch <-chan Chunk) ([]protocol.PartialResponse, error) {
	var responses []protocol.PartialResponse
	for chunk := range ch {
		if chunk.Err != nil {
			if chunk.Response.Kind != "" {
				responses = append(responses, chunk.Response)
			}
			return responses, chunk.Err
		}
		responses = append(responses, chunk.Response)
	}
	return responses, nil
}

// TestPerformQueryHappyPath exercises scenario S3: a meta event followed by
// a stream of text events and a final done.
func TestPerformQueryHappyPath(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: meta\r\ndata: {\"linkify\":true,\"suggested_replies\":false}\r\n\r\n")
		fmt.Fprint(w, "event: text\r\ndata: {\"text\":\"hello \"}\r\n\r\n")
		fmt.Fprint(w, "event: text\r\ndata: {\"text\":\"world\"}\r\n\r\n")
		fmt.Fprint(w, "event: done\r\ndata: {}\r\n\r\n")
	})

	req := protocol.NewQuery([]protocol.ProtocolMessage{{Role: protocol.RoleUser, Content: "hi"}})
	responses, err := drain(c.PerformQuery(context.Background(), "TestBot", req, QueryOptions{}))
	require.NoError(t, err)
	require.Len(t, responses, 3)
	require.Equal(t, protocol.KindMeta, responses[0].Kind)
	require.Equal(t, "hello ", responses[1].Text)
	require.Equal(t, "world", responses[2].Text)
}

// TestPerformQueryErrorEventTerminatesStream verifies that an error event
// ends the stream immediately without waiting for done.
func TestPerformQueryErrorEventTerminatesStream(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: text\r\ndata: {\"text\":\"partial\"}\r\n\r\n")
		fmt.Fprint(w, "event: error\r\ndata: {\"text\":\"boom\",\"allow_retry\":false}\r\n\r\n")
	})

	req := protocol.NewQuery(nil)
	responses, err := drain(c.PerformQuery(context.Background(), "TestBot", req, QueryOptions{}))
	require.Error(t, err)
	require.True(t, boterrors.IsNoRetry(err))
	require.Len(t, responses, 2)
	require.Equal(t, protocol.KindError, responses[1].Kind)
}

// TestPerformQueryRejectsNonSSEContentType guards the Content-Type check
// before any event decoding is attempted.
func TestPerformQueryRejectsNonSSEContentType(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":"not streaming"}`)
	})

	req := protocol.NewQuery(nil)
	_, err := drain(c.PerformQuery(context.Background(), "TestBot", req, QueryOptions{}))
	require.Error(t, err)
	require.True(t, boterrors.IsNoRetry(err))
}

// TestStreamRequestRetriesBeforeAnyText verifies Property 6: an attempt that
// fails before producing any text is retried up to numTries.
func TestStreamRequestRetriesBeforeAnyText(t *testing.T) {
	var attempts int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			fmt.Fprint(w, "event: error\r\ndata: {\"text\":\"transient\",\"allow_retry\":true}\r\n\r\n")
			return
		}
		fmt.Fprint(w, "event: text\r\ndata: {\"text\":\"recovered\"}\r\n\r\n")
		fmt.Fprint(w, "event: done\r\ndata: {}\r\n\r\n")
	})
	c.numTries = 2
	c.retrySleepTime = 0

	req := protocol.NewQuery(nil)
	responses, err := drain(c.StreamRequest(context.Background(), "TestBot", req, QueryOptions{}))
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	require.Equal(t, "recovered", responses[len(responses)-1].Text)
}

// TestStreamRequestDoesNotRetryNoRetryError verifies that a
// BotErrorNoRetry short-circuits the retry loop even on the first attempt.
func TestStreamRequestDoesNotRetryNoRetryError(t *testing.T) {
	var attempts int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: error\r\ndata: {\"text\":\"fatal\",\"allow_retry\":false}\r\n\r\n")
	})
	c.numTries = 3
	c.retrySleepTime = 0

	req := protocol.NewQuery(nil)
	_, err := drain(c.StreamRequest(context.Background(), "TestBot", req, QueryOptions{}))
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestFetchSettingsAppliesDefaultsAndValidates(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"allow_attachments":true}`)
	})
	settings, err := c.FetchSettings(context.Background(), "TestBot", "")
	require.NoError(t, err)
	require.True(t, settings.AllowAttachments)
	require.True(t, settings.ExpandTextAttachments)
}

func TestFetchSettingsRejectsInvalidDependencyCount(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"server_bot_dependencies":{"GPT-4o":0}}`)
	})
	_, err := c.FetchSettings(context.Background(), "TestBot", "")
	require.Error(t, err)
	var invalid *boterrors.InvalidBotSettings
	require.ErrorAs(t, err, &invalid)
}
