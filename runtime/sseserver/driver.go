// Package sseserver implements the streaming response driver: it pumps a
// bot handler's event stream onto an open HTTP response as Server-Sent
// Events, running a heartbeat and honoring per-event send timeouts and
// peer disconnect alongside the emitter. Grounded on the teacher's
// runtime/agents/stream/stream.go for the handler-event-to-wire-event
// translation and runtime/a2a/server.go for the functional-options Server
// shape; the three-cooperative-task race is modeled with
// golang.org/x/sync/errgroup the way the teacher races concurrent
// subtasks elsewhere in runtime/agent.
package sseserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/trace"

	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/sse"
	"github.com/pawaca/poe-go/runtime/telemetry"
)

// Item is one element of the stream a bot handler feeds to the driver:
// either a PartialResponse to translate into a wire event, a raw
// ServerSentEvent to pass through unmodified, or a terminal error. Exactly
// one of Response, Raw, or Err is set on a given Item (an Item with none
// set is written as a comment-only ": empty" record, which carries no
// event).
type Item struct {
	Response *protocol.PartialResponse
	Raw      *sse.Event
	Err      error
}

// PingMessageFactory produces a custom heartbeat event in place of the
// default comment-only ping.
type PingMessageFactory func() sse.Event

// Driver drives one HTTP response as an SSE stream.
type Driver struct {
	ping               time.Duration
	sep                sse.Separator
	sendTimeout        time.Duration
	pingMessageFactory PingMessageFactory
	headers            http.Header
	logger             telemetry.Logger
	tracer             trace.Tracer
}

// Option configures a Driver.
type Option func(*Driver)

// DefaultPingInterval is the heartbeat period applied when WithPing is not
// given.
const DefaultPingInterval = 15 * time.Second

// WithPing overrides the heartbeat period.
func WithPing(d time.Duration) Option { return func(drv *Driver) { drv.ping = d } }

// WithSeparator overrides the line separator used to encode events.
func WithSeparator(sep sse.Separator) Option { return func(drv *Driver) { drv.sep = sep } }

// WithSendTimeout sets a per-event write deadline. Zero (the default)
// means no deadline is applied.
func WithSendTimeout(d time.Duration) Option { return func(drv *Driver) { drv.sendTimeout = d } }

// WithPingMessageFactory overrides the default comment-only heartbeat with
// a custom event.
func WithPingMessageFactory(f PingMessageFactory) Option {
	return func(drv *Driver) { drv.pingMessageFactory = f }
}

// WithHeaders adds response headers alongside the mandatory SSE headers.
// A header named the same as one of the mandatory headers is ignored: the
// mandatory value always wins.
func WithHeaders(h http.Header) Option { return func(drv *Driver) { drv.headers = h } }

// WithLogger sets the Logger used for heartbeat and disconnect
// diagnostics.
func WithLogger(l telemetry.Logger) Option { return func(drv *Driver) { drv.logger = l } }

// WithTracer sets the OTEL tracer used to span each driven response.
// Defaults to the OTEL no-op tracer.
func WithTracer(t trace.Tracer) Option { return func(drv *Driver) { drv.tracer = t } }

// New constructs a Driver with protocol defaults applied.
func New(opts ...Option) *Driver {
	drv := &Driver{
		ping:   DefaultPingInterval,
		sep:    sse.DefaultSeparator,
		logger: telemetry.NoopLogger{},
		tracer: trace.NewNoopTracerProvider().Tracer("sseserver"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(drv)
		}
	}
	if drv.logger == nil {
		drv.logger = telemetry.NoopLogger{}
	}
	return drv
}

// mandatoryHeaders returns the four headers every SSE response must carry.
func mandatoryHeaders() http.Header {
	h := make(http.Header, 4)
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return h
}

// Drive writes mandatory and configured headers, then pumps items onto w
// as SSE events until items closes, the request context is canceled (peer
// disconnect), or a send times out. It always terminates one of three ways:
// a final "done" event on normal completion (attachments drained first via
// drain, if non-nil — a non-nil error it returns is surfaced as one final
// "error" event with allow_retry=false before "done"); silent termination
// with no further writes on peer disconnect — per scenario S6, a disconnect
// never emits done and never lets an error escape to the caller; or, when a
// write times out, one best-effort synthetic "error" event
// ({"text":"error sse write timeout","allow_retry":false}) in place of
// "done".
func (d *Driver) Drive(ctx context.Context, w http.ResponseWriter, items <-chan Item, drain func(context.Context) error) {
	ctx, span := d.tracer.Start(ctx, "sseserver.Drive")
	defer span.End()

	mandatory := mandatoryHeaders()
	for key, values := range d.headers {
		if mandatory.Get(key) != "" {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	for key, values := range mandatory {
		w.Header()[key] = values
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := sse.NewEncoder(w, d.sep)

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()
	group, gctx := errgroup.WithContext(workCtx)
	writeErrCh := make(chan error, 1)

	group.Go(func() error {
		defer cancelWork()
		return d.emit(gctx, w, enc, flusher, items, writeErrCh)
	})
	group.Go(func() error {
		return d.heartbeat(gctx, w, enc, flusher, writeErrCh)
	})
	group.Go(func() error {
		<-gctx.Done()
		return nil
	})

	_ = group.Wait()

	select {
	case werr := <-writeErrCh:
		if werr != nil {
			if isWriteTimeout(werr) {
				d.logger.Warn(ctx, "sse write timed out, sending interrupted trailer", "err", werr)
				_ = d.write(w, enc, flusher, errorEvent("error sse write timeout", false, ""))
				return
			}
			d.logger.Warn(ctx, "sse write failed", "err", werr)
			return
		}
	default:
	}

	if ctx.Err() != nil {
		// Peer disconnected or the request was canceled: no further
		// writes, no done event.
		return
	}

	if drain != nil {
		if drainErr := drain(ctx); drainErr != nil {
			d.logger.Warn(ctx, "attachment drain failed", "err", drainErr)
			_ = d.write(w, enc, flusher, errorEvent(drainErr.Error(), false, ""))
		}
	}
	_ = enc.Encode(sse.Event{Name: "done", Data: "{}"})
	if flusher != nil {
		flusher.Flush()
	}
}

// emit drains items and encodes each as a wire event, applying the send
// timeout to each write. It returns once items closes (normal completion)
// or the group context is canceled.
func (d *Driver) emit(ctx context.Context, w http.ResponseWriter, enc *sse.Encoder, flusher http.Flusher, items <-chan Item, writeErrCh chan<- error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-items:
			if !ok {
				return nil
			}
			if err := d.write(w, enc, flusher, translate(item)); err != nil {
				writeErrCh <- err
				return err
			}
			if item.Err != nil {
				return nil
			}
		}
	}
}

// heartbeat periodically writes a ping event until ctx is canceled.
func (d *Driver) heartbeat(ctx context.Context, w http.ResponseWriter, enc *sse.Encoder, flusher http.Flusher, writeErrCh chan<- error) error {
	ticker := time.NewTicker(d.ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ev := sse.Event{Comment: "ping"}
			if d.pingMessageFactory != nil {
				ev = d.pingMessageFactory()
			}
			if err := d.write(w, enc, flusher, ev); err != nil {
				writeErrCh <- err
				return err
			}
		}
	}
}

// write encodes ev, applying the configured send timeout as a write
// deadline on the underlying connection when supported.
func (d *Driver) write(w http.ResponseWriter, enc *sse.Encoder, flusher http.Flusher, ev sse.Event) error {
	if d.sendTimeout > 0 {
		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Now().Add(d.sendTimeout))
	}
	if err := enc.Encode(ev); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// translate converts one handler Item into the wire sse.Event it
// produces. A raw passthrough event wins over a Response; an Err produces
// a synthetic error event.
func translate(item Item) sse.Event {
	if item.Raw != nil {
		return *item.Raw
	}
	if item.Err != nil {
		return errorEvent(item.Err.Error(), false, "")
	}
	if item.Response == nil {
		return sse.Event{Comment: "empty"}
	}
	return responseEvent(*item.Response)
}

func responseEvent(resp protocol.PartialResponse) sse.Event {
	switch resp.Kind {
	case protocol.KindMeta:
		data, _ := json.Marshal(resp.Meta)
		return sse.Event{Name: "meta", Data: string(data)}
	case protocol.KindError:
		allowRetry, errType := true, ""
		if resp.Error != nil {
			allowRetry, errType = resp.Error.AllowRetry, resp.Error.ErrorType
		}
		return errorEvent(resp.Text, allowRetry, errType)
	default:
		name := "text"
		switch {
		case resp.IsReplaceResponse:
			name = "replace_response"
		case resp.IsSuggestedReply:
			name = "suggested_reply"
		case resp.Data != nil && resp.Text == "":
			name = "json"
		}
		var payload map[string]any
		if name == "json" {
			payload = resp.Data
		} else {
			payload = map[string]any{"text": resp.Text}
		}
		data, _ := json.Marshal(payload)
		return sse.Event{Name: name, Data: string(data)}
	}
}

// isWriteTimeout reports whether err is the result of a per-event send
// timeout set by write via http.NewResponseController.SetWriteDeadline,
// distinguishing that case from an ordinary peer disconnect.
func isWriteTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

func errorEvent(text string, allowRetry bool, errType string) sse.Event {
	payload := map[string]any{"text": text, "allow_retry": allowRetry}
	if errType != "" {
		payload["error_type"] = errType
	}
	data, _ := json.Marshal(payload)
	return sse.Event{Name: "error", Data: string(data)}
}
