// Package botserver implements the bot request dispatcher: route incoming
// POSTs by request type to the correct handler, authenticate, and
// translate handler output to SSE events via runtime/sseserver. Grounded
// on the teacher's runtime/a2a/server.go Server/ServerConfig/ServerOption
// construction pattern, in particular its constructor-time validation
// returning an error rather than panicking and its TaskStore-style
// interface injection, applied here to the bot registry and to
// PendingAttachmentTable.
package botserver

import (
	"context"
	"sync"

	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/sseserver"
)

// Handler implements the four request handlers a PoeBot exposes. HandleQuery
// returns a channel of sseserver.Items so the dispatcher can hand it
// straight to the streaming response driver; the other three are plain
// request/response.
type Handler interface {
	HandleQuery(ctx context.Context, req protocol.Query) <-chan sseserver.Item
	HandleSettings(ctx context.Context, req protocol.Settings) (protocol.SettingsResponse, error)
	HandleReportFeedback(ctx context.Context, req protocol.ReportFeedback) error
	HandleReportError(ctx context.Context, req protocol.ReportError) error
}

// PoeBot is one registered bot: its route path, its handler, its
// resolved access key (when empty, requests are accepted only if
// AllowWithoutKey is set), and the attachment-injection flags used by the
// query path.
type PoeBot struct {
	Path                           string
	Handler                        Handler
	AccessKey                      string
	AllowWithoutKey                bool
	ShouldInsertAttachmentMessages bool
	ConcatAttachmentsToMessage     bool

	attachments *PendingAttachmentTable
}

// attachmentUpload is one in-flight upload task tracked against a message.
type attachmentUpload struct {
	done chan struct{}
	err  error
}

// PendingAttachmentTable tracks in-flight attachment uploads keyed by
// message_id. Entries are created on first upload for a message and
// drained when that message's query response ends; an entry never
// survives past the query response it belongs to.
type PendingAttachmentTable struct {
	mu      sync.Mutex
	pending map[protocol.Identifier][]*attachmentUpload
}

// NewPendingAttachmentTable constructs an empty table.
func NewPendingAttachmentTable() *PendingAttachmentTable {
	return &PendingAttachmentTable{pending: make(map[protocol.Identifier][]*attachmentUpload)}
}

// Track registers an in-flight upload for messageID and returns a function
// the caller invokes with the upload's outcome when it completes.
func (t *PendingAttachmentTable) Track(messageID protocol.Identifier) func(err error) {
	upload := &attachmentUpload{done: make(chan struct{})}
	t.mu.Lock()
	t.pending[messageID] = append(t.pending[messageID], upload)
	t.mu.Unlock()
	return func(err error) {
		upload.err = err
		close(upload.done)
	}
}

// Drain blocks until every upload tracked for messageID has completed,
// then removes the entry. Called once, just before a query response's
// terminal done event is emitted.
func (t *PendingAttachmentTable) Drain(ctx context.Context, messageID protocol.Identifier) []error {
	t.mu.Lock()
	uploads := t.pending[messageID]
	delete(t.pending, messageID)
	t.mu.Unlock()

	var errs []error
	for _, u := range uploads {
		select {
		case <-u.done:
			if u.err != nil {
				errs = append(errs, u.err)
			}
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	return errs
}
