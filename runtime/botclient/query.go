package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pawaca/poe-go/runtime/boterrors"
	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/sse"
)

// Chunk is one item yielded by PerformQuery: either a PartialResponse or a
// terminal error. The channel returned by PerformQuery is closed after the
// last Chunk.
type Chunk struct {
	Response protocol.PartialResponse
	Err      error
}

// QueryOptions bundles the optional tool-call fields a caller may attach to
// a Query request alongside the required fields already on
// protocol.Query.
type QueryOptions struct {
	Tools       []protocol.ToolDefinition
	ToolCalls   []protocol.ToolCallDefinition
	ToolResults []protocol.ToolResultDefinition
}

// wireQuery carries the Query plus the optional round-2 tool fields,
// serialized snake_case exactly as protocol.Query already tags them.
type wireQuery struct {
	protocol.Query
}

// PerformQuery executes a single HTTP POST to botName's endpoint, streams
// the response through the client state machine, and returns a channel of
// Chunks not safe to restart: the returned channel is exhausted exactly
// once. The channel is unbuffered; callers must drain it to avoid leaking
// the request goroutine.
func (c *Client) PerformQuery(ctx context.Context, botName string, req protocol.Query, opts QueryOptions) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		c.performQuery(ctx, botName, req, opts, out)
	}()
	return out
}

func (c *Client) performQuery(ctx context.Context, botName string, req protocol.Query, opts QueryOptions, out chan<- Chunk) {
	ctx, span := c.tracer.Start(ctx, "botclient.PerformQuery")
	defer span.End()

	req.Tools = opts.Tools
	req.ToolCalls = opts.ToolCalls
	req.ToolResults = opts.ToolResults

	body, err := json.Marshal(wireQuery{req})
	if err != nil {
		out <- Chunk{Err: boterrors.WrapBotErrorNoRetry("encoding query", err)}
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(botName), bytes.NewReader(body))
	if err != nil {
		out <- Chunk{Err: boterrors.WrapBotErrorNoRetry("building request", err)}
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		out <- Chunk{Err: err}
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		raw := make([]byte, 2048)
		n, _ := resp.Body.Read(raw)
		out <- Chunk{Err: boterrors.WrapBotErrorNoRetry(
			fmt.Sprintf("invalid content type %q: %s", ct, string(raw[:n])), nil)}
		return
	}

	state := &streamState{client: c, botName: botName, req: req, hasTools: len(opts.Tools) > 0}
	scanner := sse.NewScanner(resp.Body)
	for {
		ev, err := scanner.Next()
		if err != nil {
			if !state.sawDone {
				c.reportError(ctx, botName, req, "Bot exited without sending 'done' event")
			}
			if !errors.Is(err, io.EOF) {
				// A transport fault mid-stream (read timeout, truncated
				// body) is surfaced so StreamRequest can classify it.
				out <- Chunk{Err: err}
			}
			return
		}
		if done := state.handle(ctx, c, botName, req, ev, out); done {
			return
		}
	}
}

// streamState tracks per-stream accumulation across events: the running
// text chunks, how many events have been processed so far (meta is
// authoritative only when it is the very first), whether any text was
// produced, and whether the terminal done event has arrived.
type streamState struct {
	client     *Client
	botName    string
	req        protocol.Query
	hasTools   bool
	chunks     []string
	eventCount int
	sawText    bool
	sawError   bool
	sawDone    bool
}

// handle dispatches one decoded SSE event per the client state machine in
// spec.md section 4.2. It returns true when the stream has reached a
// terminal condition (done, or a fatal/no-retry error).
func (s *streamState) handle(ctx context.Context, c *Client, botName string, req protocol.Query, ev sse.Event, out chan<- Chunk) bool {
	s.eventCount++
	switch ev.Name {
	case "text":
		text, ok := decodeText(ev.Data)
		if !ok {
			c.reportError(ctx, botName, req, "malformed text event")
			return false
		}
		s.chunks = append(s.chunks, text)
		s.sawText = true
		out <- Chunk{Response: protocol.NewTextResponse(text)}
		return false

	case "replace_response":
		text, ok := decodeText(ev.Data)
		if !ok {
			c.reportError(ctx, botName, req, "malformed replace_response event")
			return false
		}
		s.chunks = []string{text}
		s.sawText = true
		out <- Chunk{Response: protocol.NewReplaceResponse(text)}
		return false

	case "suggested_reply":
		text, ok := decodeText(ev.Data)
		if !ok {
			c.reportError(ctx, botName, req, "malformed suggested_reply event")
			return false
		}
		out <- Chunk{Response: protocol.NewSuggestedReply(text)}
		return false

	case "json":
		var data map[string]any
		if ev.Data != "" {
			_ = json.Unmarshal([]byte(ev.Data), &data)
		}
		out <- Chunk{Response: protocol.NewJSONResponse(data)}
		return false

	case "meta":
		if s.eventCount != 1 {
			// A meta event seen anywhere but first is silently ignored:
			// meta is authoritative only as the first event of a stream.
			return false
		}
		meta, ok := decodeMeta(ev.Data)
		if !ok {
			c.reportError(ctx, botName, req, "malformed meta event")
			return false
		}
		out <- Chunk{Response: protocol.NewMetaResponse(meta)}
		return false

	case "error":
		allowRetry, text, errType := decodeError(ev.Data)
		s.sawError = true
		out <- Chunk{
			Response: protocol.NewErrorResponse(text, allowRetry, errType),
			Err:      botErrorFromEvent(allowRetry, text),
		}
		return true

	case "ping":
		return false

	case "done":
		s.sawDone = true
		if !s.sawText && !s.sawError && !s.hasTools {
			c.reportError(ctx, botName, req, "Bot returned no text in response")
		}
		return true

	default:
		name := ev.Name
		if len(name) > 100 {
			name = name[:100]
		}
		data := ev.Data
		if len(data) > 500 {
			data = data[:500]
		}
		c.reportError(ctx, botName, req, fmt.Sprintf("Unknown event type: %s %s", name, data))
		return false
	}
}

func botErrorFromEvent(allowRetry bool, text string) error {
	if !allowRetry {
		return boterrors.NewBotErrorNoRetry(text)
	}
	return boterrors.NewBotError(text)
}

func decodeText(data string) (string, bool) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return "", false
	}
	return payload.Text, true
}

func decodeMeta(data string) (protocol.MetaFields, bool) {
	var payload struct {
		Linkify          *bool   `json:"linkify"`
		SuggestedReplies *bool   `json:"suggested_replies"`
		ContentType      *string `json:"content_type"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return protocol.MetaFields{}, false
	}
	if payload.Linkify == nil || payload.SuggestedReplies == nil {
		return protocol.MetaFields{}, false
	}
	meta := protocol.DefaultMetaFields()
	meta.Linkify = *payload.Linkify
	meta.SuggestedReplies = *payload.SuggestedReplies
	if payload.ContentType != nil {
		meta.ContentType = protocol.ContentType(*payload.ContentType)
	}
	return meta, true
}

func decodeError(data string) (allowRetry bool, text string, errType string) {
	var payload struct {
		Text       string  `json:"text"`
		AllowRetry *bool   `json:"allow_retry"`
		ErrorType  *string `json:"error_type"`
	}
	allowRetry = true
	if err := json.Unmarshal([]byte(data), &payload); err == nil {
		text = payload.Text
		if payload.AllowRetry != nil {
			allowRetry = *payload.AllowRetry
		}
		if payload.ErrorType != nil {
			errType = *payload.ErrorType
		}
	}
	return allowRetry, text, errType
}

// GetFinalResponse drains PerformQuery and returns the final accumulated
// text, honoring replace_response resets.
func GetFinalResponse(ctx context.Context, c *Client, botName string, req protocol.Query, opts QueryOptions) (string, error) {
	var chunks []string
	for chunk := range c.PerformQuery(ctx, botName, req, opts) {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Response.Kind != protocol.KindText {
			continue
		}
		if chunk.Response.IsSuggestedReply {
			continue
		}
		if chunk.Response.IsReplaceResponse {
			chunks = []string{chunk.Response.Text}
			continue
		}
		if chunk.Response.Text != "" {
			chunks = append(chunks, chunk.Response.Text)
		}
	}
	return strings.Join(chunks, ""), nil
}
