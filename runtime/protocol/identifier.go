// Package protocol defines the wire data model of the bot protocol: chat
// messages, attachments, the request union, settings, and the streamed
// response variants. Wire field names are snake_case (via json tags);
// in-process field names are idiomatic Go.
package protocol

import "github.com/google/uuid"

const (
	// IdentifierLength is the exact length of an access_key.
	IdentifierLength = 32

	// MessageLengthLimit is the protocol's limit on a single message's
	// content length. The client does not enforce it.
	MessageLengthLimit = 10000

	// MaxEventCount is the protocol's soft limit on events per stream. The
	// client does not enforce it.
	MaxEventCount = 1000

	// ProtocolVersion is the constant protocol version sent on every
	// client-originated request.
	ProtocolVersion = "1.0"
)

// Identifier is an opaque ASCII string identifying a message, request, user,
// or conversation.
type Identifier string

// NewIdentifier mints a fresh random Identifier.
func NewIdentifier() Identifier {
	return Identifier(uuid.NewString())
}

// ValidAccessKey reports whether key has the exact length required of an
// access_key.
func ValidAccessKey(key string) bool {
	return len(key) == IdentifierLength
}
