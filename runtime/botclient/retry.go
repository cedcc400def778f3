package botclient

import (
	"context"
	"time"

	"github.com/pawaca/poe-go/runtime/boterrors"
	"github.com/pawaca/poe-go/runtime/protocol"
)

// StreamRequest drives PerformQuery with the client's retry policy applied.
// Grounded on the teacher's runtime/a2a/retry/retry.go attempt-loop shape: a
// fixed number of tries with a flat sleep between attempts, restarting the
// whole call rather than resuming mid-stream.
//
// A BotErrorNoRetry chunk is never retried. A BotError (or transport-level
// error) is retried only if the failing attempt had not yet yielded any
// text chunk, or if the underlying cause looks like a connection abort or
// read timeout — an attempt that already streamed partial text is only
// retried for those transport faults, never for an ordinary error event,
// since replaying would duplicate output the caller may already have
// committed.
func (c *Client) StreamRequest(ctx context.Context, botName string, req protocol.Query, opts QueryOptions) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		c.streamWithRetry(ctx, botName, req, opts, out)
	}()
	return out
}

func (c *Client) streamWithRetry(ctx context.Context, botName string, req protocol.Query, opts QueryOptions, out chan<- Chunk) {
	var lastErr error
	for attempt := 0; attempt < c.numTries; attempt++ {
		if attempt > 0 {
			c.logger.Warn(ctx, "retrying bot query", "bot", botName, "attempt", attempt)
			if c.retryCounter != nil {
				c.retryCounter.Add(ctx, 1)
			}
			select {
			case <-time.After(c.retrySleepTime):
			case <-ctx.Done():
				out <- Chunk{Err: ctx.Err()}
				return
			}
		}

		yieldedText := false
		var attemptErr error
		for chunk := range c.PerformQuery(ctx, botName, req, opts) {
			if chunk.Err == nil {
				if chunk.Response.Kind == protocol.KindText && chunk.Response.Text != "" {
					yieldedText = true
				}
				out <- chunk
				continue
			}
			attemptErr = chunk.Err
			if !isRetryable(attemptErr, yieldedText) {
				out <- chunk
				return
			}
			break
		}

		if attemptErr == nil {
			return
		}
		lastErr = attemptErr
	}
	if lastErr != nil {
		out <- Chunk{Err: boterrors.WrapBotError("Error communicating with bot "+botName, lastErr)}
	}
}

// isRetryable classifies a failed attempt: BotErrorNoRetry is always
// terminal; otherwise the attempt is retried if it produced no text yet, or
// if the failure looks like a connection-level fault that can plausibly
// succeed on a fresh attempt even after partial output.
func isRetryable(err error, yieldedText bool) bool {
	if err == nil {
		return false
	}
	if boterrors.IsNoRetry(err) {
		return false
	}
	if !yieldedText {
		return true
	}
	return isConnectionFault(err)
}
