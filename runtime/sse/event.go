// Package sse implements the Server-Sent Events wire format: encoding and
// decoding of the line-oriented text framing used to stream bot protocol
// events over HTTP. It has no knowledge of the bot protocol itself — it only
// knows about event/data/id/retry fields and blank-line record framing.
package sse

// Separator is one of the three line terminators SSE allows on output.
// Input tolerates all three interchangeably regardless of which Separator
// is configured.
type Separator string

const (
	SepCRLF Separator = "\r\n"
	SepCR   Separator = "\r"
	SepLF   Separator = "\n"
)

// DefaultSeparator is used when an Encoder is not given one.
const DefaultSeparator = SepCRLF

// Event is one Server-Sent Event record. An absent Name decodes to the
// logical event name "message" per the SSE spec.
type Event struct {
	// Name is the event's "event:" field. Empty means the default,
	// unnamed "message" event.
	Name string
	// Data is the event's payload, already joined from any "data:" lines
	// the wire format may have split it across.
	Data string
	// ID is the event's "id:" field, used to resume a stream at
	// last_event_id.
	ID string
	// Retry is the event's "retry:" field in milliseconds, if present.
	Retry *int
	// Comment, when set on encode, is emitted as one or more ": "-prefixed
	// comment lines before the event's fields. Decoding never populates
	// this field: a comment line carries no event data by design.
	Comment string
}

// MessageEventName is the logical name a decoded Event with an empty Name
// represents.
const MessageEventName = "message"
