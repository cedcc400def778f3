// Package boterrors provides the structured error kinds surfaced by the
// bot protocol engine. Each kind implements error and Unwrap so callers can
// use errors.As to recover a specific kind without losing the underlying
// cause, the same shape the teacher's tool-error package uses for tool
// invocation failures.
package boterrors

import (
	"errors"
	"fmt"
	"net/http"
)

type (
	// InvalidParameter reports construction-time misuse: duplicate bot
	// paths, or a top-level access key supplied alongside more than one
	// bot. SSE separator options are not validated and never produce it.
	// It never reaches the wire.
	InvalidParameter struct {
		Message string
		Cause   error
	}

	// HTTPException is a handler-signalled HTTP fault with a status code,
	// a message, and optional extra headers. The dispatcher translates it
	// to the response verbatim.
	HTTPException struct {
		Status  int
		Message string
		Headers http.Header
		Cause   error
	}

	// BotError is a transient failure talking to a remote bot. It is
	// retried subject to the client's retry policy.
	BotError struct {
		Message string
		Cause   error
	}

	// BotErrorNoRetry is a terminal failure: bad protocol framing,
	// structural JSON errors in an event, or an explicit
	// allow_retry=false error event. It is never retried.
	BotErrorNoRetry struct {
		Message string
		Cause   error
	}

	// InvalidBotSettings reports that a settings response failed
	// validation.
	InvalidBotSettings struct {
		Message string
		Cause   error
	}

	// AttachmentUploadError reports that an attachment upload request
	// failed. It is surfaced as a final error event in the streaming
	// response.
	AttachmentUploadError struct {
		Message string
		Cause   error
	}
)

// NewInvalidParameter constructs an InvalidParameter with the given message.
func NewInvalidParameter(message string) *InvalidParameter { return &InvalidParameter{Message: message} }

// InvalidParameterf constructs an InvalidParameter from a format string.
func InvalidParameterf(format string, args ...any) *InvalidParameter {
	return &InvalidParameter{Message: fmt.Sprintf(format, args...)}
}

func (e *InvalidParameter) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *InvalidParameter) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewHTTPException constructs an HTTPException with the given status and
// message.
func NewHTTPException(status int, message string) *HTTPException {
	return &HTTPException{Status: status, Message: message}
}

func (e *HTTPException) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *HTTPException) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewBotError constructs a BotError with the given message.
func NewBotError(message string) *BotError { return &BotError{Message: message} }

// BotErrorf constructs a BotError from a format string.
func BotErrorf(format string, args ...any) *BotError {
	return &BotError{Message: fmt.Sprintf(format, args...)}
}

// WrapBotError wraps an underlying error in a BotError with the given
// message. If message is empty the cause's message is used.
func WrapBotError(message string, cause error) *BotError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &BotError{Message: message, Cause: cause}
}

func (e *BotError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *BotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewBotErrorNoRetry constructs a BotErrorNoRetry with the given message.
func NewBotErrorNoRetry(message string) *BotErrorNoRetry { return &BotErrorNoRetry{Message: message} }

// WrapBotErrorNoRetry wraps an underlying error in a BotErrorNoRetry.
func WrapBotErrorNoRetry(message string, cause error) *BotErrorNoRetry {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &BotErrorNoRetry{Message: message, Cause: cause}
}

func (e *BotErrorNoRetry) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *BotErrorNoRetry) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewInvalidBotSettings constructs an InvalidBotSettings with the given
// message.
func NewInvalidBotSettings(message string) *InvalidBotSettings {
	return &InvalidBotSettings{Message: message}
}

func (e *InvalidBotSettings) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *InvalidBotSettings) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewAttachmentUploadError constructs an AttachmentUploadError with the
// given message.
func NewAttachmentUploadError(message string) *AttachmentUploadError {
	return &AttachmentUploadError{Message: message}
}

// WrapAttachmentUploadError wraps an underlying error.
func WrapAttachmentUploadError(message string, cause error) *AttachmentUploadError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &AttachmentUploadError{Message: message, Cause: cause}
}

func (e *AttachmentUploadError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *AttachmentUploadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsNoRetry reports whether err is, or wraps, a BotErrorNoRetry.
func IsNoRetry(err error) bool {
	var nr *BotErrorNoRetry
	return errors.As(err, &nr)
}
