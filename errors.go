package voice

import (
	"github.com/pkg/errors"

	"github.com/fenwickvoice/voiceengine/opus"
	"github.com/fenwickvoice/voiceengine/rtp"
)

// Error kinds returned by this package. Callers should compare with
// errors.Is, since these are often wrapped with additional context via
// github.com/pkg/errors.
var (
	// ErrNotInitialized is returned by Send, SendSpeaking when the
	// connection has not yet reached the Ready state.
	ErrNotInitialized = errors.New("voice: connection is not ready")

	// ErrMalformedPacket is returned by the RTP parser when a packet is
	// shorter than a valid RTP header; it is rtp.ErrMalformedPacket.
	ErrMalformedPacket = rtp.ErrMalformedPacket

	// ErrAuthenticationFailed is returned when a secretbox payload fails
	// to authenticate.
	ErrAuthenticationFailed = errors.New("voice: secretbox authentication failed")

	// ErrCodecFailure is returned when the Opus encoder or decoder fails;
	// it is opus.ErrCodecFailure, which the codec's errors wrap.
	ErrCodecFailure = opus.ErrCodecFailure

	// ErrTransportClosed names the closed-transport error kind. No
	// function of this package returns it: Send reports a closed UDP
	// socket as a *TransportError wrapping transport.ErrUDPClosed, and
	// SendSpeaking passes through transport.ErrClosed for a closed
	// WebSocket.
	ErrTransportClosed = errors.New("voice: transport closed")

	// ErrAlreadyDisposed is returned by Send once Disconnect has run.
	ErrAlreadyDisposed = errors.New("voice: connection already disposed")

	// ErrCannotSend is returned when Send is called on a connection whose
	// send path has been torn down.
	ErrCannotSend = errors.New("voice: cannot send audio on a closed connection")
)

// TransportError wraps a transport-level I/O failure. Send returns it
// when the UDP write fails; WebSocket failures reach subscribers through
// the SocketError event carrying the transport's own error instead.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "voice: transport error during " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
