package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pawaca/poe-go/runtime/boterrors"
)

// DefaultUploadURL is the third-party attachment upload endpoint a bot POSTs
// generated files to on the caller's behalf.
const DefaultUploadURL = "https://www.quora.com/poe_api/file_attachment_3RD_PARTY_POST"

// UploadedAttachment is the platform's response to a successful upload: an
// attachment URL the bot can then reference in its response text.
type UploadedAttachment struct {
	AttachmentURL string `json:"attachment_url"`
	InlineRef     string `json:"inline_ref,omitempty"`
}

// UploadFile uploads an in-memory file as a multipart/form-data POST, using
// accessKey to authenticate and messageID to associate the attachment with
// a message.
func (c *Client) UploadFile(ctx context.Context, accessKey, messageID string, filename string, content io.Reader) (UploadedAttachment, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("message_id", messageID); err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("writing message_id field", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("creating form file part", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("copying file content", err)
	}
	if err := writer.Close(); err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("closing multipart writer", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, DefaultUploadURL, &body)
	if err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("building upload request", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	// file_attachment_3RD_PARTY_POST takes the bare access key, not a
	// bearer token: no "Bearer " prefix, unlike the bot-query endpoint.
	httpReq.Header.Set("Authorization", accessKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("sending upload request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return UploadedAttachment{}, boterrors.NewAttachmentUploadError(
			fmt.Sprintf("upload rejected with status %d: %s", resp.StatusCode, raw))
	}

	var uploaded UploadedAttachment
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return UploadedAttachment{}, boterrors.WrapAttachmentUploadError("decoding upload response", err)
	}
	return uploaded, nil
}
