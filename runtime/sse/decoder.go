package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Decoder is a stateful SSE accumulator. Feed one line at a time (already
// stripped of its line terminator); it returns a decoded Event on a blank
// line, or ok=false while still accumulating. Grounded on the teacher's
// runtime/mcp/ssecaller.go:readSSEEvent loop, generalized from a one-shot
// reader into a resumable accumulator that callers can drive line-by-line
// from any transport.
type Decoder struct {
	event  string
	data   []string
	retry  *int
	sawAny bool
	lastID string
}

// NewDecoder constructs an empty Decoder. LastEventID starts unset.
func NewDecoder() *Decoder { return &Decoder{} }

// LastEventID returns the most recently decoded id field (an id field with
// an empty value resets it to empty). It is preserved across dispatched
// events per the SSE spec, even though event, data, and retry are reset on
// every dispatch.
func (d *Decoder) LastEventID() string { return d.lastID }

// Feed consumes one line (without its terminator) and reports a decoded
// Event when the line is blank and at least one field was seen since the
// last dispatch. An empty record (a blank line with no preceding fields)
// produces nothing.
func (d *Decoder) Feed(line string) (Event, bool) {
	if line == "" {
		if !d.sawAny {
			return Event{}, false
		}
		ev := Event{
			Name:  d.event,
			Data:  strings.Join(d.data, "\n"),
			ID:    d.lastID,
			Retry: d.retry,
		}
		if ev.Name == "" {
			ev.Name = MessageEventName
		}
		d.event = ""
		d.data = nil
		d.retry = nil
		d.sawAny = false
		return ev, true
	}

	if strings.HasPrefix(line, ":") {
		return Event{}, false
	}

	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "event":
		d.event = value
		d.sawAny = true
	case "data":
		d.data = append(d.data, value)
		d.sawAny = true
	case "id":
		if strings.ContainsRune(value, 0) {
			return Event{}, false
		}
		d.lastID = value
		d.sawAny = true
	case "retry":
		if n, err := strconv.Atoi(value); err == nil {
			d.retry = &n
		}
		d.sawAny = true
	default:
		// Unrecognised fields are ignored per the SSE spec.
	}
	return Event{}, false
}

// Scanner reads SSE events off an io.Reader, tolerating \r\n, \r, or \n line
// terminators interchangeably regardless of what the server actually sends.
type Scanner struct {
	r       *bufio.Reader
	decoder *Decoder
	err     error
}

// NewScanner wraps r in a Scanner. r's content is read lazily, one line at a
// time, as Next is called.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r), decoder: NewDecoder()}
}

// LastEventID returns the value of the last id field seen so far.
func (s *Scanner) LastEventID() string { return s.decoder.LastEventID() }

// Next returns the next decoded Event, blocking on reads as needed. It
// returns io.EOF when the underlying reader is exhausted with no further
// event pending.
func (s *Scanner) Next() (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	for {
		line, err := s.readLine()
		if line != "" || err == nil {
			if ev, ok := s.decoder.Feed(line); ok {
				if err != nil {
					s.err = err
				}
				return ev, nil
			}
		}
		if err != nil {
			s.err = err
			return Event{}, err
		}
	}
}

// readLine reads one line, accepting \r\n, \r, or \n as its terminator.
func (s *Scanner) readLine() (string, error) {
	var b strings.Builder
	for {
		r, _, err := s.r.ReadRune()
		if err != nil {
			if b.Len() > 0 {
				return b.String(), err
			}
			return "", err
		}
		switch r {
		case '\n':
			return b.String(), nil
		case '\r':
			next, _, err := s.r.ReadRune()
			if err == nil && next != '\n' {
				_ = s.r.UnreadRune()
			}
			return b.String(), nil
		default:
			b.WriteRune(r)
		}
	}
}
