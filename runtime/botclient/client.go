// Package botclient implements the outbound side of the bot protocol: POST
// a query to a remote bot, consume its SSE stream, validate per-event
// payloads, report protocol violations back to the bot, and retry
// transient failures. Grounded on the teacher's
// runtime/a2a/httpclient/client.go for request construction and
// runtime/a2a/retry/retry.go for the retry-loop shape.
package botclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/pawaca/poe-go/runtime/telemetry"
)

// DefaultBaseURL is the default outbound endpoint prefix. The full endpoint
// for a bot named "GPT-4o" is BaseURL + "GPT-4o".
const DefaultBaseURL = "https://api.poe.com/bot/"

type (
	// Client performs queries against remote bots over the bot protocol.
	Client struct {
		http    *http.Client
		baseURL string
		logger  telemetry.Logger
		tracer  trace.Tracer
		meter   metric.Meter

		numTries       int
		retrySleepTime time.Duration

		retryCounter metric.Int64Counter
	}

	// Option configures a Client.
	Option func(*Client)
)

// WithHTTPClient overrides the underlying *http.Client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(cl *Client) { cl.baseURL = url }
}

// WithLogger sets the Logger used for back-channel failures and retry
// diagnostics.
func WithLogger(l telemetry.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithTracer sets the OTEL tracer used to span each query round. Defaults
// to the OTEL no-op tracer.
func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) { cl.tracer = t }
}

// WithMeter sets the OTEL meter used to count retries. Defaults to the OTEL
// no-op meter.
func WithMeter(m metric.Meter) Option {
	return func(cl *Client) { cl.meter = m }
}

// WithRetryPolicy overrides the default retry attempt count and sleep
// duration used by StreamRequest.
func WithRetryPolicy(numTries int, sleep time.Duration) Option {
	return func(cl *Client) {
		cl.numTries = numTries
		cl.retrySleepTime = sleep
	}
}

// DefaultNumTries and DefaultRetrySleepTime are StreamRequest's defaults
// when WithRetryPolicy is not given.
const (
	DefaultNumTries       = 2
	DefaultRetrySleepTime = 500 * time.Millisecond
)

// New constructs a Client with protocol defaults applied.
func New(opts ...Option) *Client {
	cl := &Client{
		http:           &http.Client{Timeout: 5 * time.Minute},
		baseURL:        DefaultBaseURL,
		logger:         telemetry.NoopLogger{},
		tracer:         trace.NewNoopTracerProvider().Tracer("botclient"),
		numTries:       DefaultNumTries,
		retrySleepTime: DefaultRetrySleepTime,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cl)
		}
	}
	if cl.logger == nil {
		cl.logger = telemetry.NoopLogger{}
	}
	if cl.meter == nil {
		cl.meter = noop.NewMeterProvider().Meter("botclient")
	}
	counter, err := cl.meter.Int64Counter("botclient.retries",
		metric.WithDescription("number of retried bot query attempts"))
	if err == nil {
		cl.retryCounter = counter
	}
	return cl
}

func (c *Client) endpoint(botName string) string {
	return c.baseURL + botName
}
