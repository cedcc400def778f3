package botserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pawaca/poe-go/runtime/boterrors"
	"github.com/pawaca/poe-go/runtime/protocol"
	"github.com/pawaca/poe-go/runtime/sseserver"
	"github.com/pawaca/poe-go/runtime/telemetry"
)

// BotConfig describes one bot to register: its route path, its handler,
// and the raw, not-yet-resolved authentication and attachment-injection
// settings. Construction resolves AccessKey per the preference order in
// resolveAccessKey and rejects a topLevelKey shared across multiple bots.
type BotConfig struct {
	Path                           string
	Handler                        Handler
	AccessKey                      string
	DeprecatedAPIKey               string
	AllowWithoutKey                bool
	ShouldInsertAttachmentMessages bool
	ConcatAttachmentsToMessage     bool
}

// Server dispatches incoming POSTs across one or more registered bots.
type Server struct {
	bots   map[string]*PoeBot
	driver *sseserver.Driver
	logger telemetry.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDriver overrides the sseserver.Driver used to stream query
// responses. Defaults to sseserver.New() with protocol defaults.
func WithDriver(d *sseserver.Driver) Option { return func(s *Server) { s.driver = d } }

// WithLogger sets the Logger used for authentication and dispatch
// diagnostics.
func WithLogger(l telemetry.Logger) Option { return func(s *Server) { s.logger = l } }

// New constructs a Server from the given bot configurations. Construction
// fails with *boterrors.InvalidParameter if two bots share a path, or if a
// topLevelKey is supplied alongside more than one bot.
func New(configs []BotConfig, topLevelKey string, opts ...Option) (*Server, error) {
	s := &Server{bots: make(map[string]*PoeBot, len(configs)), logger: telemetry.NoopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = telemetry.NoopLogger{}
	}
	if s.driver == nil {
		s.driver = sseserver.New()
	}

	if topLevelKey != "" && len(configs) > 1 {
		return nil, boterrors.NewInvalidParameter("a top-level access key cannot be shared across multiple bots; configure access_key per bot")
	}

	for _, cfg := range configs {
		if _, exists := s.bots[cfg.Path]; exists {
			return nil, boterrors.InvalidParameterf("duplicate bot path %q", cfg.Path)
		}
		explicit := cfg.AccessKey
		if explicit == "" {
			explicit = topLevelKey
		}
		key := resolveAccessKey(context.Background(), s.logger, explicit, cfg.DeprecatedAPIKey)
		s.bots[cfg.Path] = &PoeBot{
			Path:                           cfg.Path,
			Handler:                        cfg.Handler,
			AccessKey:                      key,
			AllowWithoutKey:                cfg.AllowWithoutKey,
			ShouldInsertAttachmentMessages: cfg.ShouldInsertAttachmentMessages,
			ConcatAttachmentsToMessage:     cfg.ConcatAttachmentsToMessage,
			attachments:                    NewPendingAttachmentTable(),
		}
	}
	return s, nil
}

// ServeHTTP implements http.Handler, routing by request path to the
// matching bot and then by method and JSON body type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bot, ok := s.bots[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodGet {
		s.serveLandingPage(w, bot)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := authenticate(bot, r); err != nil {
		s.writeHTTPException(w, err)
		return
	}

	var envelope protocol.BaseRequest
	body, err := decodeBody(r, &envelope)
	if err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case protocol.RequestTypeQuery:
		s.dispatchQuery(w, r, bot, body)
	case protocol.RequestTypeSettings:
		s.dispatchSettings(w, r, bot)
	case protocol.RequestTypeReportFeedback:
		s.dispatchReportFeedback(w, r, bot, body)
	case protocol.RequestTypeReportError:
		s.dispatchReportError(w, r, bot, body)
	default:
		s.writeHTTPException(w, boterrors.NewHTTPException(http.StatusNotImplemented, "Unsupported request type"))
	}
}

func (s *Server) dispatchQuery(w http.ResponseWriter, r *http.Request, bot *PoeBot, body []byte) {
	var req protocol.Query
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed query request", http.StatusBadRequest)
		return
	}
	req = applyAttachmentInjectionPolicy(r.Context(), s.logger, bot, req)
	items := bot.Handler.HandleQuery(r.Context(), req)
	drain := func(ctx context.Context) error {
		if req.MessageID == "" {
			return nil
		}
		uploadErrs := bot.attachments.Drain(ctx, req.MessageID)
		if len(uploadErrs) == 0 {
			return nil
		}
		return boterrors.NewAttachmentUploadError(joinAttachmentErrors(uploadErrs))
	}
	s.driver.Drive(r.Context(), w, items, drain)
}

func (s *Server) dispatchSettings(w http.ResponseWriter, r *http.Request, bot *PoeBot) {
	settings, err := bot.Handler.HandleSettings(r.Context(), protocol.Settings{
		BaseRequest: protocol.BaseRequest{Version: protocol.ProtocolVersion, Type: protocol.RequestTypeSettings},
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) dispatchReportFeedback(w http.ResponseWriter, r *http.Request, bot *PoeBot, body []byte) {
	var req protocol.ReportFeedback
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed report_feedback request", http.StatusBadRequest)
		return
	}
	if err := bot.Handler.HandleReportFeedback(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) dispatchReportError(w http.ResponseWriter, r *http.Request, bot *PoeBot, body []byte) {
	var req protocol.ReportError
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed report_error request", http.StatusBadRequest)
		return
	}
	if err := bot.Handler.HandleReportError(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) serveLandingPage(w http.ResponseWriter, bot *PoeBot) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body><h1>" + bot.Path + "</h1><p>This endpoint implements the Poe bot protocol.</p></body></html>"))
}

func (s *Server) writeHTTPException(w http.ResponseWriter, err error) {
	var exc *boterrors.HTTPException
	if as, ok := err.(*boterrors.HTTPException); ok {
		exc = as
	} else {
		exc = boterrors.NewHTTPException(http.StatusInternalServerError, err.Error())
	}
	for key, values := range exc.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	http.Error(w, exc.Message, exc.Status)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeHTTPException(w, err)
}

func decodeBody(r *http.Request, v *protocol.BaseRequest) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, err
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// joinAttachmentErrors folds multiple attachment-upload failures for one
// message into the single message an AttachmentUploadError carries.
func joinAttachmentErrors(errs []error) string {
	msg := errs[0].Error()
	for _, err := range errs[1:] {
		msg += "; " + err.Error()
	}
	return msg
}
