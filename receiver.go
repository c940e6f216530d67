package voice

import (
	"runtime"

	"github.com/fenwickvoice/voiceengine/rtp"
	"github.com/fenwickvoice/voiceengine/transport"
)

// receiveLoop runs only if Config.EnableIncoming (§4.8). It polls the
// media socket's backlog rather than blocking on Receive, per the UDP
// shim's DataAvailable/Receive split (§4.4); this is cooperative so the
// loop can observe cancellation between packets instead of parking in
// a blocking read. Individual packet failures are dropped and never
// terminate the loop (§4.8, §7). It ends on ctx cancellation, and also
// returns at once if no UDP socket is open yet, or when Receive reports
// the socket closed.
func (c *Connection) receiveLoop() {
	udp := c.gw.UDP()
	if udp == nil {
		return
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if udp.DataAvailable() == 0 {
			runtime.Gosched()
			continue
		}

		packet, err := udp.Receive()
		if err != nil {
			if err == transport.ErrUDPClosed {
				return
			}
			continue
		}

		c.handleIncomingPacket(packet)
	}
}

// handleIncomingPacket implements §4.8 steps 3-9: split header/payload,
// derive the nonce, decrypt, parse, strip any header extension, decode,
// resolve the sending user, and emit a VoiceReceivedEvent. Any failure
// along the way drops the packet silently.
func (c *Connection) handleIncomingPacket(packet []byte) {
	if len(packet) < rtp.HeaderSize {
		return
	}

	var header [rtp.HeaderSize]byte
	copy(header[:], packet[:rtp.HeaderSize])
	ciphertext := packet[rtp.HeaderSize:]

	key, ready := c.sharedKey()
	if !ready {
		return
	}

	nonce := rtp.MakeNonce(header)
	plaintext, err := secretboxDecrypt(ciphertext, nonce, key)
	if err != nil {
		return
	}

	parsed, err := rtp.Parse(packet)
	if err != nil {
		return
	}

	opusPayload := rtp.StripExtension(plaintext, parsed.HasExtension)

	if c.dec == nil {
		return
	}
	pcm, err := c.dec.Decode(opusPayload, 0, len(opusPayload))
	if err != nil {
		return
	}

	userID, _ := c.ssrc.Load(parsed.SSRC)
	user := c.resolveUser(userID)

	c.emitVoiceReceived(VoiceReceivedEvent{
		SSRC:     parsed.SSRC,
		PCM:      pcm,
		FrameLen: 20,
		User:     user,
	})
}
