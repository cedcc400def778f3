// Command demoserver runs a minimal Poe-protocol bot: it echoes back the
// last user message as a single streamed text chunk. It exists to give
// runtime/botserver and runtime/sseserver a runnable wiring example,
// analogous in spirit to the teacher's cmd/demo/main.go.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/pawaca/poe-go/runtime/botserver"
	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/sseserver"
)

// echoHandler implements botserver.Handler by replying with the content of
// the last message in the query.
type echoHandler struct{}

func (echoHandler) HandleQuery(ctx context.Context, req protocol.Query) <-chan sseserver.Item {
	out := make(chan sseserver.Item, 2)
	go func() {
		defer close(out)
		reply := "(empty query)"
		if n := len(req.Query); n > 0 {
			reply = fmt.Sprintf("You said: %s", req.Query[n-1].Content)
		}
		resp := protocol.NewTextResponse(reply)
		out <- sseserver.Item{Response: &resp}
	}()
	return out
}

func (echoHandler) HandleSettings(ctx context.Context, req protocol.Settings) (protocol.SettingsResponse, error) {
	return protocol.DefaultSettingsResponse(), nil
}

func (echoHandler) HandleReportFeedback(ctx context.Context, req protocol.ReportFeedback) error {
	return nil
}

func (echoHandler) HandleReportError(ctx context.Context, req protocol.ReportError) error {
	return nil
}

func main() {
	srv, err := botserver.New([]botserver.BotConfig{
		{
			Path:            "/echo",
			Handler:         echoHandler{},
			AllowWithoutKey: true,
		},
	}, "")
	if err != nil {
		log.Fatalf("constructing bot server: %v", err)
	}

	const addr = ":8080"
	log.Printf("demo echo bot listening on %s/echo", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatal(err)
	}
}
