package botserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/telemetry"
)

func queryWithAttachment() protocol.Query {
	return protocol.NewQuery([]protocol.ProtocolMessage{
		{
			Role:    protocol.RoleUser,
			Content: "what does this say",
			Attachments: []protocol.Attachment{
				{URL: "https://example.com/a.pdf", ParsedContent: "hello from pdf"},
			},
		},
	})
}

func TestInsertAttachmentMessagesWinsOverConcat(t *testing.T) {
	bot := &PoeBot{ShouldInsertAttachmentMessages: true, ConcatAttachmentsToMessage: true}
	out := applyAttachmentInjectionPolicy(context.Background(), telemetry.NoopLogger{}, bot, queryWithAttachment())
	require.Len(t, out.Query, 2)
	require.Equal(t, protocol.RoleSystem, out.Query[1].Role)
	require.Equal(t, "hello from pdf", out.Query[1].Content)
}

func TestConcatAttachmentsFoldsIntoMessage(t *testing.T) {
	bot := &PoeBot{ConcatAttachmentsToMessage: true}
	out := applyAttachmentInjectionPolicy(context.Background(), telemetry.NoopLogger{}, bot, queryWithAttachment())
	require.Len(t, out.Query, 1)
	require.Contains(t, out.Query[0].Content, "hello from pdf")
}

func TestNoAttachmentPolicyLeavesQueryUnchanged(t *testing.T) {
	bot := &PoeBot{}
	in := queryWithAttachment()
	out := applyAttachmentInjectionPolicy(context.Background(), telemetry.NoopLogger{}, bot, in)
	require.Equal(t, in, out)
}
