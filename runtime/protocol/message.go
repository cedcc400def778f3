package protocol

// Role identifies the author of a ProtocolMessage.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
)

// ContentType identifies the MIME-ish type of a message's content.
type ContentType string

const (
	ContentTypeMarkdown ContentType = "text/markdown"
	ContentTypePlain    ContentType = "text/plain"
)

// FeedbackType identifies a user's reaction to a bot message.
type FeedbackType string

const (
	FeedbackLike    FeedbackType = "like"
	FeedbackDislike FeedbackType = "dislike"
)

type (
	// MessageFeedback records one feedback entry on a ProtocolMessage.
	MessageFeedback struct {
		Type   FeedbackType `json:"type"`
		Reason string       `json:"reason,omitempty"`
	}

	// Attachment is a file or URL attached to a ProtocolMessage. URL is
	// unique within the deduplicated view used by role-alternation
	// merging (see MergeRoleAlternation).
	Attachment struct {
		URL           string `json:"url"`
		ContentType   string `json:"content_type"`
		Name          string `json:"name"`
		ParsedContent string `json:"parsed_content,omitempty"`
	}

	// ProtocolMessage is one turn in a conversation. Ordering within a
	// query's message sequence is significant; duplicate messages are
	// permitted.
	ProtocolMessage struct {
		Role        Role              `json:"role"`
		Content     string            `json:"content"`
		ContentType ContentType       `json:"content_type,omitempty"`
		Timestamp   int64             `json:"timestamp,omitempty"`
		MessageID   Identifier        `json:"message_id,omitempty"`
		Feedback    []MessageFeedback `json:"feedback,omitempty"`
		Attachments []Attachment      `json:"attachments,omitempty"`
		SenderID    string            `json:"sender_id,omitempty"`
	}
)

// MergeRoleAlternation enforces author-role alternation on a message
// sequence by merging consecutive same-role messages, concatenating their
// content and deduplicating attachments by URL while preserving first-seen
// order. Callers apply it when a SettingsResponse sets
// enforce_author_role_alternation; the client and server do not call it.
func MergeRoleAlternation(messages []ProtocolMessage) []ProtocolMessage {
	if len(messages) == 0 {
		return nil
	}
	merged := make([]ProtocolMessage, 0, len(messages))
	for _, m := range messages {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content += "\n\n" + m.Content
			merged[n-1].Attachments = dedupAttachments(append(merged[n-1].Attachments, m.Attachments...))
			merged[n-1].Feedback = append(merged[n-1].Feedback, m.Feedback...)
			continue
		}
		cp := m
		cp.Attachments = dedupAttachments(m.Attachments)
		merged = append(merged, cp)
	}
	return merged
}

func dedupAttachments(attachments []Attachment) []Attachment {
	if len(attachments) == 0 {
		return attachments
	}
	seen := make(map[string]struct{}, len(attachments))
	out := make([]Attachment, 0, len(attachments))
	for _, a := range attachments {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}
