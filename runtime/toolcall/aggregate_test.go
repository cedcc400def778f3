package toolcall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawaca/poe-go/runtime/protocol"
)

func deltaResponse(index int, name, args string) protocol.PartialResponse {
	return protocol.PartialResponse{
		Kind: protocol.KindText,
		Data: map[string]any{
			"choices": []any{
				map[string]any{
					"delta": map[string]any{
						"tool_calls": []any{
							map[string]any{
								"index": index,
								"function": map[string]any{
									"name":      name,
									"arguments": args,
								},
							},
						},
					},
				},
			},
		},
	}
}

// TestAggregatorOrdersByIndexNotArrival verifies Property 7: deltas
// arriving with indices [1, 0, 1] and arguments ["b", "a", "c"] aggregate
// to [{index:0, arguments:"a"}, {index:1, arguments:"bc"}].
func TestAggregatorOrdersByIndexNotArrival(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(deltaResponse(1, "mul", "b"))
	agg.Feed(deltaResponse(0, "add", "a"))
	agg.Feed(deltaResponse(1, "", "c"))

	calls := agg.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, 0, calls[0].Index)
	require.Equal(t, "a", calls[0].Function.Arguments)
	require.Equal(t, 1, calls[1].Index)
	require.Equal(t, "bc", calls[1].Function.Arguments)
}

func TestAggregatorIgnoresShapeMismatch(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(protocol.PartialResponse{Kind: protocol.KindText, Data: map[string]any{"unrelated": true}})
	agg.Feed(protocol.PartialResponse{Kind: protocol.KindText})
	require.Empty(t, agg.Calls())
}
