package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pawaca/poe-go/runtime/protocol"
)

// reportError posts a report_error request back to the bot that produced a
// protocol violation (malformed event, unknown event name, missing done
// event). Failures to deliver the report are logged and otherwise
// swallowed: a back-channel failure must never mask the original stream
// outcome.
func (c *Client) reportError(ctx context.Context, botName string, req protocol.Query, message string) {
	report := protocol.ReportError{
		BaseRequest: protocol.BaseRequest{
			Version: protocol.ProtocolVersion,
			Type:    protocol.RequestTypeReportError,
		},
		Message: message,
	}

	body, err := json.Marshal(report)
	if err != nil {
		c.logger.Warn(ctx, "failed to encode report_error", "bot", botName, "err", err)
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(botName), bytes.NewReader(body))
	if err != nil {
		c.logger.Warn(ctx, "failed to build report_error request", "bot", botName, "err", err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn(ctx, "failed to deliver report_error", "bot", botName, "message", message, "err", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		c.logger.Warn(ctx, "bot rejected report_error", "bot", botName, "status", resp.StatusCode)
	}
}

// ReportFeedback posts a report_feedback request for a prior message.
func (c *Client) ReportFeedback(ctx context.Context, botName string, feedback protocol.ReportFeedback) error {
	feedback.Version = protocol.ProtocolVersion
	feedback.Type = protocol.RequestTypeReportFeedback

	body, err := json.Marshal(feedback)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(botName), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}
