package voicegateway

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/fenwickvoice/voiceengine/transport"
)

// discoveryProbeSize is the fixed size of the outbound IP-discovery
// packet (§4.6).
const discoveryProbeSize = 70

// ssrcOffset is where the 4-byte little-endian SSRC sits in the probe.
const ssrcOffset = 66

// ErrDiscoveryFailed covers a malformed or missing IP-discovery reply.
var ErrDiscoveryFailed = errors.New("voicegateway: ip discovery failed")

// discover performs the §4.6 IP-discovery exchange over an already
// dialed UDP socket: send a 70-byte probe (66 zero bytes, then ssrc
// little-endian at [66:70]), then parse the reply's nul-terminated
// ASCII address starting at byte 4 and its big-endian port in the last
// two bytes.
func discover(udp *transport.UDP, ssrc uint32) (addr string, port uint16, err error) {
	probe := make([]byte, discoveryProbeSize)
	binary.LittleEndian.PutUint32(probe[ssrcOffset:ssrcOffset+4], ssrc)

	if err := udp.Send(probe); err != nil {
		return "", 0, errors.Wrap(err, "voicegateway: failed to send discovery probe")
	}

	reply, err := udp.Receive()
	if err != nil {
		return "", 0, errors.Wrap(err, "voicegateway: failed to read discovery reply")
	}
	if len(reply) < 70 {
		return "", 0, ErrDiscoveryFailed
	}

	body := reply[4 : len(reply)-2]
	nullPos := bytes.IndexByte(body, 0)
	if nullPos < 0 {
		return "", 0, ErrDiscoveryFailed
	}

	addr = string(body[:nullPos])
	port = binary.BigEndian.Uint16(reply[len(reply)-2:])
	return addr, port, nil
}
