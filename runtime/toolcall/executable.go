package toolcall

import (
	"context"
	"encoding/json"

	"github.com/pawaca/poe-go/internal/caseconv"
	"github.com/pawaca/poe-go/runtime/protocol"
)

// Item is one element of the lazy sequence an Executable produces: either
// a live-status PartialResponse, forwarded upstream immediately, or a
// terminal AsyncResult carrying the call's final value. Exactly one of the
// two fields is set.
type Item struct {
	Response *protocol.PartialResponse
	Result   *AsyncResult
}

// AsyncResult is a tool executable's final value, stringified as JSON into
// a ToolResultDefinition once the executable's item sequence ends.
type AsyncResult struct {
	Result any
}

// Executable runs one tool call and returns a channel of Items, closed
// when the call has finished. Registered executables are looked up by
// their camelCase name; see Registry.
type Executable func(ctx context.Context, args json.RawMessage) <-chan Item

// Registry maps a tool executable's camelCase name to its implementation.
// Grounded on runtime/toolregistry/executor/executor.go's Client
// interface-keyed-by-name lookup.
type Registry map[string]Executable

// Lookup resolves snakeName (as it arrives in a ToolCallDefinition's
// function.name, e.g. "get_weather") against the registry's camelCase
// keys. Conversion happens at lookup time so callers register executables
// under the same camelCase identifiers they use in process-local code.
func (r Registry) Lookup(snakeName string) (Executable, bool) {
	exe, ok := r[caseconv.ToCamel(snakeName)]
	return exe, ok
}
