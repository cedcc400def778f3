// Package toolcall implements the tool-call orchestrator: aggregate
// streamed tool-call deltas by index, dispatch each assembled call to a
// registered executable, and feed the results back as a second query
// round. Grounded on the teacher's
// runtime/toolregistry/executor/executor.go, which aggregates a similarly
// shaped streamed delta into a single call before invoking a registered
// tool, and on runtime/agent/tools/spec.go for naming a tool by a stable
// identifier.
package toolcall

import (
	"encoding/json"
	"sort"

	"github.com/pawaca/poe-go/runtime/protocol"
)

// delta is the opaque shape of one streamed tool-call fragment, accessed
// defensively so a shape mismatch degrades to "skip this delta" rather than
// panicking inside the aggregation loop.
type delta struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Aggregator accumulates tool-call deltas keyed by index and produces the
// final ascending-index-ordered call sequence once a stream ends.
type Aggregator struct {
	byIndex map[int]*protocol.ToolCallDefinition
	order   []int
}

// NewAggregator constructs an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byIndex: make(map[int]*protocol.ToolCallDefinition)}
}

// Feed extracts tool-call deltas from a PartialResponse's Data payload, if
// any are present, and folds them into the running aggregation. A
// PartialResponse with no choices[0].delta.tool_calls shape is ignored.
func (a *Aggregator) Feed(resp protocol.PartialResponse) {
	if resp.Data == nil {
		return
	}
	deltas := extractDeltas(resp.Data)
	for _, d := range deltas {
		a.feedOne(d)
	}
}

func (a *Aggregator) feedOne(d delta) {
	if existing, ok := a.byIndex[d.Index]; ok {
		existing.Function.Arguments += d.Function.Arguments
		if d.Function.Name != "" {
			existing.Function.Name = d.Function.Name
		}
		if d.ID != "" {
			existing.ID = d.ID
		}
		if d.Type != "" {
			existing.Type = d.Type
		}
		return
	}
	a.order = append(a.order, d.Index)
	a.byIndex[d.Index] = &protocol.ToolCallDefinition{
		Index: d.Index,
		ID:    d.ID,
		Type:  d.Type,
		Function: protocol.FunctionCallDefinition{
			Name:      d.Function.Name,
			Arguments: d.Function.Arguments,
		},
	}
}

// Calls returns the aggregated tool calls, sorted by ascending index, not
// arrival order.
func (a *Aggregator) Calls() []protocol.ToolCallDefinition {
	indices := make([]int, 0, len(a.byIndex))
	for idx := range a.byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	calls := make([]protocol.ToolCallDefinition, 0, len(indices))
	for _, idx := range indices {
		calls = append(calls, *a.byIndex[idx])
	}
	return calls
}

// extractDeltas decodes the choices[0].delta.tool_calls path out of an
// opaque data map, returning nil (never erroring) on any shape mismatch.
func extractDeltas(data map[string]any) []delta {
	choices, ok := data["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return nil
	}
	deltaObj, ok := choice["delta"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := deltaObj["tool_calls"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var deltas []delta
	if err := json.Unmarshal(encoded, &deltas); err != nil {
		return nil
	}
	return deltas
}
