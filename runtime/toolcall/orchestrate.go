package toolcall

import (
	"context"
	"encoding/json"

	"github.com/pawaca/poe-go/runtime/botclient"
	"github.com/pawaca/poe-go/runtime/protocol"
)

// Orchestrator drives the two-round tool-call protocol described in
// spec.md section 4.3 on top of a botclient.Client: round 1 collects
// streamed tool-call deltas, the registry executes each assembled call,
// and round 2 forwards the accumulated results back to the bot verbatim.
type Orchestrator struct {
	client   *botclient.Client
	registry Registry
}

// NewOrchestrator constructs an Orchestrator over client, dispatching tool
// calls against registry.
func NewOrchestrator(client *botclient.Client, registry Registry) *Orchestrator {
	return &Orchestrator{client: client, registry: registry}
}

// Run executes the full tool-call round trip: PerformQuery with tools
// attached, execute every assembled call, then PerformQuery again with
// tool_calls and tool_results attached, forwarding round 2's events
// upstream verbatim. Used only when both req.Tools and a non-empty
// registry are supplied; callers with no tools should call
// client.PerformQuery directly instead.
func (o *Orchestrator) Run(ctx context.Context, botName string, req protocol.Query, tools []protocol.ToolDefinition) <-chan botclient.Chunk {
	out := make(chan botclient.Chunk)
	go func() {
		defer close(out)
		o.run(ctx, botName, req, tools, out)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, botName string, req protocol.Query, tools []protocol.ToolDefinition, out chan<- botclient.Chunk) {
	agg := NewAggregator()
	for chunk := range o.client.PerformQuery(ctx, botName, req, botclient.QueryOptions{Tools: tools}) {
		if chunk.Err != nil {
			out <- chunk
			return
		}
		agg.Feed(chunk.Response)
	}

	calls := agg.Calls()
	if len(calls) == 0 {
		return
	}

	results := o.execute(ctx, calls, out)

	for chunk := range o.client.PerformQuery(ctx, botName, req, botclient.QueryOptions{
		Tools:       tools,
		ToolCalls:   calls,
		ToolResults: results,
	}) {
		out <- chunk
	}
}

// execute dispatches each assembled call in order, looking up its
// executable by the camelCase conversion of function.name. A call with no
// registered executable is skipped silently, per spec.md section 4.3 step
// 1. Live-status PartialResponses an executable yields are forwarded
// upstream immediately; the executable's terminal AsyncResult becomes one
// ToolResultDefinition.
func (o *Orchestrator) execute(ctx context.Context, calls []protocol.ToolCallDefinition, out chan<- botclient.Chunk) []protocol.ToolResultDefinition {
	results := make([]protocol.ToolResultDefinition, 0, len(calls))
	for _, call := range calls {
		exe, ok := o.registry.Lookup(call.Function.Name)
		if !ok {
			continue
		}

		result := o.runOne(ctx, exe, call, out)
		results = append(results, result)
	}
	return results
}

func (o *Orchestrator) runOne(ctx context.Context, exe Executable, call protocol.ToolCallDefinition, out chan<- botclient.Chunk) protocol.ToolResultDefinition {
	var content string
	for item := range exe(ctx, json.RawMessage(call.Function.Arguments)) {
		if item.Response != nil {
			out <- botclient.Chunk{Response: *item.Response}
			continue
		}
		if item.Result != nil {
			encoded, err := json.Marshal(item.Result.Result)
			if err != nil {
				content = ""
				continue
			}
			content = string(encoded)
		}
	}
	return protocol.ToolResultDefinition{
		Role:       "tool",
		ToolCallID: call.ID,
		Name:       call.Function.Name,
		Content:    content,
	}
}
