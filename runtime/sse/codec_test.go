package sse

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// decodeAll feeds an already-encoded record through a fresh Decoder and
// returns every event it yields.
func decodeAll(t *testing.T, encoded string) []Event {
	t.Helper()
	s := NewScanner(strings.NewReader(encoded))
	var events []Event
	for {
		ev, err := s.Next()
		if err != nil {
			break
		}
		events = append(events, ev)
	}
	return events
}

// TestCodecRoundTripProperty verifies Property 1: for any event whose data
// contains no embedded NUL, decoding an encoded event reproduces it, except
// that an absent event name decodes to "message".
func TestCodecRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("round-trips event name and data", prop.ForAll(
		func(name, data string) bool {
			ev := Event{Name: name, Data: data}
			encoded := ev.String(SepCRLF)
			got := decodeAll(t, encoded)
			if name == "" && data == "" {
				// An event with no fields encodes to an empty record,
				// which decodes to no event.
				return len(got) == 0
			}
			if len(got) != 1 {
				return false
			}
			wantName := name
			if wantName == "" {
				wantName = MessageEventName
			}
			return got[0].Name == wantName && got[0].Data == data && got[0].Retry == nil
		},
		gen.RegexMatch(`[a-zA-Z_]{0,12}`),
		gen.RegexMatch(`[a-zA-Z0-9 ]{0,40}`),
	))

	properties.TestingRun(t)
}

// TestSeparatorStrippingProperty verifies Property 2: encoding an id or
// event value containing a line terminator never leaks that terminator into
// the field value on the wire.
func TestSeparatorStrippingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("id survives embedded terminators", prop.ForAll(
		func(prefix, suffix string) bool {
			id := prefix + "\r\n" + suffix
			encoded := Event{ID: id}.String(SepCRLF)
			// The record terminator itself is the only CRLF that should
			// remain; strip trailing blank-line terminator pairs before
			// checking the id line in isolation.
			lines := strings.Split(strings.TrimRight(encoded, "\r\n"), "\r\n")
			return len(lines) == 1 && lines[0] == "id: "+prefix+suffix
		},
		gen.RegexMatch(`[a-zA-Z0-9]{0,10}`),
		gen.RegexMatch(`[a-zA-Z0-9]{0,10}`),
	))

	properties.TestingRun(t)
}

// TestCommentFramingProperty verifies Property 3: a comment line decodes to
// no event.
func TestCommentFramingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a lone comment never yields an event", prop.ForAll(
		func(comment string) bool {
			encoded := ": " + comment + "\r\n\r\n"
			return len(decodeAll(t, encoded)) == 0
		},
		gen.RegexMatch(`[a-zA-Z0-9 ]{0,40}`),
	))

	properties.TestingRun(t)
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	encoded := "event: text\r\nfoo: bar\r\ndata: {\"text\":\"hi\"}\r\n\r\n"
	events := decodeAll(t, encoded)
	require.Len(t, events, 1)
	require.Equal(t, "text", events[0].Name)
	require.Equal(t, `{"text":"hi"}`, events[0].Data)
}

func TestDecodeMultiLineData(t *testing.T) {
	encoded := "event: text\ndata: line one\ndata: line two\n\n"
	events := decodeAll(t, encoded)
	require.Len(t, events, 1)
	require.Equal(t, "line one\nline two", events[0].Data)
}

func TestDecodePreservesLastEventIDAcrossDispatch(t *testing.T) {
	encoded := "id: abc\r\ndata: first\r\n\r\ndata: second\r\n\r\n"
	s := NewScanner(strings.NewReader(encoded))

	ev1, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "abc", ev1.ID)

	ev2, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "abc", ev2.ID, "last_event_id must survive across dispatch")
}

func TestDecodeDiscardsIDContainingNUL(t *testing.T) {
	encoded := "id: ab\x00c\r\ndata: x\r\n\r\n"
	events := decodeAll(t, encoded)
	require.Len(t, events, 1)
	require.Empty(t, events[0].ID)
}

func TestDecodeIgnoresUnparseableRetry(t *testing.T) {
	encoded := "event: ping\r\nretry: not-a-number\r\ndata: x\r\n\r\n"
	events := decodeAll(t, encoded)
	require.Len(t, events, 1)
	require.Nil(t, events[0].Retry)
}

func TestDecodeEmptyRecordProducesNoEvent(t *testing.T) {
	encoded := "\r\n\r\n"
	events := decodeAll(t, encoded)
	require.Empty(t, events)
}

func TestEncodeRetry(t *testing.T) {
	retry := 3000
	encoded := Event{Name: "ping", Retry: &retry}.String(SepCRLF)
	require.Equal(t, "event: ping\r\nretry: 3000\r\n\r\n", encoded)
}

func TestScannerTreatsAllSeparatorsEquivalently(t *testing.T) {
	for _, sep := range []string{"\r\n", "\r", "\n"} {
		encoded := "event: text" + sep + "data: hi" + sep + sep
		events := decodeAll(t, encoded)
		require.Len(t, events, 1, "separator %q", sep)
		require.Equal(t, "hi", events[0].Data)
	}
}
