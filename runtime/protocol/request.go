package protocol

import "encoding/json"

// RequestType identifies the variant of the tagged Request union.
type RequestType string

const (
	RequestTypeQuery          RequestType = "query"
	RequestTypeSettings       RequestType = "settings"
	RequestTypeReportFeedback RequestType = "report_feedback"
	RequestTypeReportError    RequestType = "report_error"
)

// BaseRequest carries the fields common to every request variant.
type BaseRequest struct {
	Version string      `json:"version"`
	Type    RequestType `json:"type"`
}

// Query is the request that asks a bot to respond to a conversation.
type Query struct {
	BaseRequest
	Query            []ProtocolMessage  `json:"query"`
	UserID           string             `json:"user_id"`
	ConversationID   string             `json:"conversation_id"`
	MessageID        Identifier         `json:"message_id"`
	Temperature      float64            `json:"temperature"`
	SkipSystemPrompt bool               `json:"skip_system_prompt"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	StopSequences    []string           `json:"stop_sequences,omitempty"`
	Metadata         json.RawMessage    `json:"metadata,omitempty"`
	APIKey           string             `json:"api_key,omitempty"`
	AccessKey        string             `json:"access_key,omitempty"`

	// Tools, ToolCalls, and ToolResults are included on the outbound
	// payload only when non-empty; they are not part of the platform's
	// core Query shape but ride alongside it for tool-call rounds.
	Tools       []ToolDefinition       `json:"tools,omitempty"`
	ToolCalls   []ToolCallDefinition   `json:"tool_calls,omitempty"`
	ToolResults []ToolResultDefinition `json:"tool_results,omitempty"`
}

// DefaultTemperature is applied by NewQuery when the caller does not
// specify one.
const DefaultTemperature = 0.7

// NewQuery constructs a Query with protocol defaults applied: version
// ProtocolVersion, temperature DefaultTemperature, skip_system_prompt
// false.
func NewQuery(messages []ProtocolMessage) Query {
	return Query{
		BaseRequest: BaseRequest{Version: ProtocolVersion, Type: RequestTypeQuery},
		Query:       messages,
		Temperature: DefaultTemperature,
	}
}

// Settings is the request the platform sends to fetch a bot's settings.
type Settings struct {
	BaseRequest
}

// ReportFeedback is the request the platform sends when a user reacts to a
// bot message.
type ReportFeedback struct {
	BaseRequest
	ConversationID string       `json:"conversation_id"`
	MessageID      Identifier   `json:"message_id"`
	UserID         string       `json:"user_id"`
	FeedbackType   FeedbackType `json:"feedback_type"`
}

// ReportError is the request the platform (or a client back-channel) sends
// to report a protocol violation.
type ReportError struct {
	BaseRequest
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
