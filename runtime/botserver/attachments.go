package botserver

import (
	"context"

	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/telemetry"
)

// applyAttachmentInjectionPolicy resolves the query's attachment-handling
// flags per spec.md section 9's open question: when both
// ShouldInsertAttachmentMessages and the deprecated
// ConcatAttachmentsToMessage are set, ShouldInsertAttachmentMessages wins
// and the deprecated path is logged and ignored.
func applyAttachmentInjectionPolicy(ctx context.Context, logger telemetry.Logger, bot *PoeBot, req protocol.Query) protocol.Query {
	if bot.ShouldInsertAttachmentMessages {
		if bot.ConcatAttachmentsToMessage {
			logger.Warn(ctx, "concat_attachments_to_message is deprecated and ignored when should_insert_attachment_messages is set")
		}
		return insertAttachmentMessages(req)
	}
	if bot.ConcatAttachmentsToMessage {
		return concatAttachmentsIntoLastMessage(req)
	}
	return req
}

// insertAttachmentMessages appends one system message per attachment's
// parsed content, preserving message order, so a bot that does not parse
// attachments itself still sees their content as part of the query.
func insertAttachmentMessages(req protocol.Query) protocol.Query {
	var extra []protocol.ProtocolMessage
	for _, msg := range req.Query {
		for _, att := range msg.Attachments {
			if att.ParsedContent == "" {
				continue
			}
			extra = append(extra, protocol.ProtocolMessage{
				Role:    protocol.RoleSystem,
				Content: att.ParsedContent,
			})
		}
	}
	if len(extra) == 0 {
		return req
	}
	req.Query = append(append([]protocol.ProtocolMessage{}, req.Query...), extra...)
	return req
}

// concatAttachmentsIntoLastMessage folds every attachment's parsed content
// into the content of the message it is attached to. Deprecated: callers
// should prefer ShouldInsertAttachmentMessages.
func concatAttachmentsIntoLastMessage(req protocol.Query) protocol.Query {
	messages := append([]protocol.ProtocolMessage{}, req.Query...)
	for i, msg := range messages {
		for _, att := range msg.Attachments {
			if att.ParsedContent == "" {
				continue
			}
			messages[i].Content += "\n\n" + att.ParsedContent
		}
	}
	req.Query = messages
	return req
}
