// Command democlient queries a running demoserver instance over the Poe
// protocol and prints its streamed response. It exists to give
// runtime/botclient a runnable wiring example, analogous in spirit to the
// teacher's cmd/demo/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/pawaca/poe-go/runtime/botclient"
	"github.com/pawaca/poe-go/runtime/protocol"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080/", "bot endpoint prefix, e.g. http://localhost:8080/")
	bot := flag.String("bot", "echo", "bot path to query, relative to base-url")
	message := flag.String("message", "Hello from democlient!", "user message to send")
	flag.Parse()

	client := botclient.New(botclient.WithBaseURL(*baseURL))

	req := protocol.NewQuery([]protocol.ProtocolMessage{
		{Role: protocol.RoleUser, Content: *message},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for chunk := range client.StreamRequest(ctx, *bot, req, botclient.QueryOptions{}) {
		if chunk.Err != nil {
			log.Fatalf("query failed: %v", chunk.Err)
		}
		if chunk.Response.Kind == protocol.KindText && chunk.Response.Text != "" {
			fmt.Print(chunk.Response.Text)
		}
	}
	fmt.Println()
}
