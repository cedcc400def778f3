package protocol

// ResponseKind discriminates the PartialResponse tagged variant. Modeled as
// a common struct plus a Kind tag rather than interface embedding/
// inheritance, so C5's handler-to-event translation can switch on Kind
// directly instead of doing type assertions.
type ResponseKind string

const (
	KindText  ResponseKind = "text"
	KindMeta  ResponseKind = "meta"
	KindError ResponseKind = "error"
)

type (
	// PartialResponse is one chunk of a bot's streamed reply. Meta and
	// Error, when non-nil, carry the fields specific to the Meta and
	// Error specializations; Kind tells a consumer which (if any) is
	// populated.
	PartialResponse struct {
		Kind              ResponseKind
		Text              string         `json:"text"`
		Data              map[string]any `json:"data,omitempty"`
		RawResponse       any            `json:"raw_response,omitempty"`
		FullPrompt        string         `json:"full_prompt,omitempty"`
		RequestID         string         `json:"request_id,omitempty"`
		IsSuggestedReply  bool           `json:"is_suggested_reply,omitempty"`
		IsReplaceResponse bool           `json:"is_replace_response,omitempty"`

		Meta  *MetaFields  `json:"-"`
		Error *ErrorFields `json:"-"`
	}

	// MetaFields carries the fields specific to a "meta" event. A meta
	// event is authoritative only when it is the first event of a
	// stream.
	MetaFields struct {
		Linkify          bool        `json:"linkify"`
		SuggestedReplies bool        `json:"suggested_replies"`
		ContentType      ContentType `json:"content_type"`
		RefetchSettings  bool        `json:"refetch_settings,omitempty"`
	}

	// ErrorFields carries the fields specific to an "error" event.
	ErrorFields struct {
		AllowRetry bool   `json:"allow_retry"`
		ErrorType  string `json:"error_type,omitempty"`
	}
)

// DefaultMetaFields returns MetaFields with protocol defaults applied
// (content_type defaults to text/markdown).
func DefaultMetaFields() MetaFields {
	return MetaFields{ContentType: ContentTypeMarkdown}
}

// NewTextResponse constructs a plain text PartialResponse.
func NewTextResponse(text string) PartialResponse {
	return PartialResponse{Kind: KindText, Text: text}
}

// NewReplaceResponse constructs a replace_response PartialResponse.
func NewReplaceResponse(text string) PartialResponse {
	return PartialResponse{Kind: KindText, Text: text, IsReplaceResponse: true}
}

// NewSuggestedReply constructs a suggested_reply PartialResponse.
func NewSuggestedReply(text string) PartialResponse {
	return PartialResponse{Kind: KindText, Text: text, IsSuggestedReply: true}
}

// NewJSONResponse constructs a "json" event PartialResponse carrying only a
// data payload.
func NewJSONResponse(data map[string]any) PartialResponse {
	return PartialResponse{Kind: KindText, Data: data}
}

// NewMetaResponse constructs a meta PartialResponse.
func NewMetaResponse(meta MetaFields) PartialResponse {
	return PartialResponse{Kind: KindMeta, Meta: &meta}
}

// NewErrorResponse constructs an error PartialResponse.
func NewErrorResponse(text string, allowRetry bool, errorType string) PartialResponse {
	return PartialResponse{
		Kind:  KindError,
		Text:  text,
		Error: &ErrorFields{AllowRetry: allowRetry, ErrorType: errorType},
	}
}
