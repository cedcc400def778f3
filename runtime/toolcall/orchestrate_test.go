package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawaca/poe-go/runtime/botclient"
	"github.com/pawaca/poe-go/runtime/protocol"
)

func constResult(value any) Executable {
	return func(ctx context.Context, args json.RawMessage) <-chan Item {
		ch := make(chan Item, 1)
		ch <- Item{Result: &AsyncResult{Result: value}}
		close(ch)
		return ch
	}
}

// TestOrchestratorRunsTwoRoundTrip exercises scenario S5: round 1 streams
// tool-call deltas for "add" and "mul", both executables run, and round 2's
// request body carries the matching tool_results.
func TestOrchestratorRunsTwoRoundTrip(t *testing.T) {
	var round int
	var secondBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		round++
		w.Header().Set("Content-Type", "text/event-stream")
		if round == 1 {
			fmt.Fprint(w, "event: json\r\ndata: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_0\",\"function\":{\"name\":\"add\",\"arguments\":\"{}\"}}]}}]}\r\n\r\n")
			fmt.Fprint(w, "event: json\r\ndata: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":1,\"id\":\"call_1\",\"function\":{\"name\":\"mul\",\"arguments\":\"{}\"}}]}}]}\r\n\r\n")
			fmt.Fprint(w, "event: done\r\ndata: {}\r\n\r\n")
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &secondBody)
		fmt.Fprint(w, "event: text\r\ndata: {\"text\":\"11\"}\r\n\r\n")
		fmt.Fprint(w, "event: done\r\ndata: {}\r\n\r\n")
	}))
	defer srv.Close()

	client := botclient.New(botclient.WithBaseURL(srv.URL + "/"))
	registry := Registry{
		"add": constResult(3),
		"mul": constResult(8),
	}
	orch := NewOrchestrator(client, registry)

	tools := []protocol.ToolDefinition{
		{Type: "function", Function: protocol.FunctionDefinition{Name: "add"}},
		{Type: "function", Function: protocol.FunctionDefinition{Name: "mul"}},
	}
	req := protocol.NewQuery([]protocol.ProtocolMessage{{Role: protocol.RoleUser, Content: "3+3, 4*2"}})
	var finalText string
	for chunk := range orch.Run(context.Background(), "ToolBot", req, tools) {
		require.NoError(t, chunk.Err)
		if chunk.Response.Kind == protocol.KindText {
			finalText = chunk.Response.Text
		}
	}
	require.Equal(t, "11", finalText)
	require.Equal(t, 2, round)

	toolResults, ok := secondBody["tool_results"].([]any)
	require.True(t, ok)
	require.Len(t, toolResults, 2)

	first := toolResults[0].(map[string]any)
	require.Equal(t, "add", first["name"])
	require.Equal(t, "3", first["content"])

	second := toolResults[1].(map[string]any)
	require.Equal(t, "mul", second["name"])
	require.Equal(t, "8", second["content"])
}

func TestRegistryLookupConvertsSnakeToCamel(t *testing.T) {
	registry := Registry{"getWeather": constResult("sunny")}
	exe, ok := registry.Lookup("get_weather")
	require.True(t, ok)
	require.NotNil(t, exe)
}

func TestExecuteSkipsUnregisteredCallSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: done\r\ndata: {}\r\n\r\n")
	}))
	defer srv.Close()

	client := botclient.New(botclient.WithBaseURL(srv.URL + "/"))
	orch := NewOrchestrator(client, Registry{})
	calls := []protocol.ToolCallDefinition{{Index: 0, ID: "x", Function: protocol.FunctionCallDefinition{Name: "unknown"}}}
	results := orch.execute(context.Background(), calls, make(chan botclient.Chunk, 4))
	require.Empty(t, results)
}
