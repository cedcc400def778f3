package protocol

// SettingsResponse is a bot's answer to a Settings request.
type SettingsResponse struct {
	ServerBotDependencies        map[string]int `json:"server_bot_dependencies,omitempty"`
	AllowAttachments             bool           `json:"allow_attachments,omitempty"`
	IntroductionMessage          string         `json:"introduction_message,omitempty"`
	ExpandTextAttachments        bool           `json:"expand_text_attachments"`
	EnableImageComprehension     bool           `json:"enable_image_comprehension,omitempty"`
	EnforceAuthorRoleAlternation bool           `json:"enforce_author_role_alternation,omitempty"`
	EnableMultiBotChatPrompting  bool           `json:"enable_multi_bot_chat_prompting,omitempty"`

	// ContextClearWindowSecs and AllowUserContextClear are deprecated:
	// the platform may still send them and a bot may still set them, but
	// they have no effect and are accepted only so older callers do not
	// break.
	ContextClearWindowSecs int  `json:"context_clear_window_secs,omitempty"`
	AllowUserContextClear  bool `json:"allow_user_context_clear,omitempty"`
}

// DefaultSettingsResponse returns a SettingsResponse with the protocol
// defaults applied (expand_text_attachments defaults true).
func DefaultSettingsResponse() SettingsResponse {
	return SettingsResponse{ExpandTextAttachments: true}
}

// Validate checks invariants on a SettingsResponse that a bot author might
// violate, returning a *boterrors.InvalidBotSettings-compatible message, or
// "" when valid. The caller wraps a non-empty message in
// boterrors.NewInvalidBotSettings.
func (s SettingsResponse) Validate() string {
	for name, count := range s.ServerBotDependencies {
		if count <= 0 {
			return "server_bot_dependencies count must be positive for " + name
		}
	}
	return ""
}
