package botclient

import (
	"errors"
	"io"
	"net"
)

// isConnectionFault reports whether err looks like a connection abort or
// read timeout rather than an ordinary bot-side failure: a net.Error marked
// Timeout, an unexpected EOF mid-stream, or a closed pipe. These are retried even after an
// attempt has already yielded partial text, since the fault is in the
// transport rather than in anything the bot said.
func isConnectionFault(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe)
}
