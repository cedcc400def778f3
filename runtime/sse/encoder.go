package sse

import (
	"io"
	"strconv"
	"strings"
)

// Encoder writes Events to an io.Writer in the SSE wire format using a
// configurable line separator.
type Encoder struct {
	w   io.Writer
	sep Separator
}

// NewEncoder constructs an Encoder writing to w with the given separator.
// An empty sep is treated as DefaultSeparator.
func NewEncoder(w io.Writer, sep Separator) *Encoder {
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Encoder{w: w, sep: sep}
}

// splitLines splits s on any of the three line terminators SSE allows, so
// embedded terminators in an id/event/data field can be stripped or split
// consistently regardless of which style produced them.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// stripTerminators removes any embedded line terminator from a single-line
// field value (id, event), per the encoding contract: these fields are
// clipped to one wire line even if the caller's value contains newlines.
func stripTerminators(s string) string {
	return strings.Join(splitLines(s), "")
}

// Encode writes one Event record, terminated by a blank line.
func (e *Encoder) Encode(ev Event) error {
	var b strings.Builder

	if ev.Comment != "" {
		for _, line := range splitLines(ev.Comment) {
			b.WriteString(": ")
			b.WriteString(line)
			b.WriteString(string(e.sep))
		}
	}
	if ev.ID != "" {
		b.WriteString("id: ")
		b.WriteString(stripTerminators(ev.ID))
		b.WriteString(string(e.sep))
	}
	if ev.Name != "" {
		b.WriteString("event: ")
		b.WriteString(stripTerminators(ev.Name))
		b.WriteString(string(e.sep))
	}
	if ev.Data != "" {
		for _, fragment := range splitLines(ev.Data) {
			b.WriteString("data: ")
			b.WriteString(fragment)
			b.WriteString(string(e.sep))
		}
	}
	if ev.Retry != nil {
		b.WriteString("retry: ")
		b.WriteString(strconv.Itoa(*ev.Retry))
		b.WriteString(string(e.sep))
	}
	b.WriteString(string(e.sep))

	_, err := io.WriteString(e.w, b.String())
	return err
}

// EncodeComment writes a standalone comment-only record (used for
// heartbeats that should not be mistaken for a logical event).
func (e *Encoder) EncodeComment(comment string) error {
	return e.Encode(Event{Comment: comment})
}

// String returns ev rendered with the given separator, without writing it
// anywhere. Useful for tests and for callers that need the raw bytes.
func (ev Event) String(sep Separator) string {
	var b strings.Builder
	enc := NewEncoder(&stringWriter{&b}, sep)
	_ = enc.Encode(ev)
	return b.String()
}

type stringWriter struct{ b *strings.Builder }

func (s *stringWriter) Write(p []byte) (int, error) {
	return s.b.Write(p)
}
