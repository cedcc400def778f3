package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pawaca/poe-go/runtime/boterrors"
	"github.com/pawaca/poe-go/runtime/protocol"
)

// FetchSettings sends a Settings request to botName and decodes its
// SettingsResponse. Settings requests are plain request/response, not SSE:
// the bot returns a single JSON object. Fields the bot omits keep the
// protocol defaults of DefaultSettingsResponse.
func (c *Client) FetchSettings(ctx context.Context, botName string, apiKey string) (protocol.SettingsResponse, error) {
	req := protocol.Settings{
		BaseRequest: protocol.BaseRequest{
			Version: protocol.ProtocolVersion,
			Type:    protocol.RequestTypeSettings,
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return protocol.SettingsResponse{}, boterrors.WrapBotErrorNoRetry("encoding settings request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(botName), bytes.NewReader(body))
	if err != nil {
		return protocol.SettingsResponse{}, boterrors.WrapBotErrorNoRetry("building settings request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return protocol.SettingsResponse{}, boterrors.WrapBotError("fetching settings", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return protocol.SettingsResponse{}, boterrors.NewHTTPException(resp.StatusCode, "settings request rejected")
	}

	settings := protocol.DefaultSettingsResponse()
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		return protocol.SettingsResponse{}, boterrors.WrapBotErrorNoRetry("decoding settings response", err)
	}
	if msg := settings.Validate(); msg != "" {
		return protocol.SettingsResponse{}, boterrors.NewInvalidBotSettings(msg)
	}
	return settings, nil
}

// SyncBotSettings fetches settings from botName and POSTs them to the platform's
// bot-settings endpoint, mirroring the platform operation a bot's owner
// would otherwise trigger manually after changing the bot's behavior.
func (c *Client) SyncBotSettings(ctx context.Context, botName, accessKey, settingsEndpoint string) error {
	settings, err := c.FetchSettings(ctx, botName, "")
	if err != nil {
		return err
	}

	body, err := json.Marshal(settings)
	if err != nil {
		return boterrors.WrapBotErrorNoRetry("encoding settings sync payload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, settingsEndpoint, bytes.NewReader(body))
	if err != nil {
		return boterrors.WrapBotErrorNoRetry("building settings sync request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return boterrors.WrapBotError("syncing settings", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return boterrors.NewHTTPException(resp.StatusCode, fmt.Sprintf("settings sync rejected: %s", raw))
	}
	return nil
}
