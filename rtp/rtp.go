// Package rtp builds and parses the 12-byte RTP header used on the
// media path, and derives the secretbox nonce bound to it. Grounded on
// the inline header handling in the teacher's voice/udp.go
// (opusSendLoop) and voice/udp/connection.go (Write, ReadPacket),
// pulled out into its own package since it is independently testable
// (§8's nonce-derivation and header-parse properties).
package rtp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize is the fixed size of an RTP header on this media path: no
// CSRC list, version 2, no padding.
const HeaderSize = 12

// versionFlags is byte 0 of every header this engine sends: version 2,
// no padding, no extension, no CSRC.
const versionFlags = 0x80

// payloadTypeOpus is byte 1: RTP payload type 120, used for Opus.
const payloadTypeOpus = 0x78

// extensionBit is bit 4 of byte 0 (0x10), set when the sender included an
// RFC 5285 one-byte header extension.
const extensionBit = 0x10

// oneByteExtProfile is the profile id RFC 5285 §4.2 assigns to the
// one-byte header extension form.
var oneByteExtProfile = [2]byte{0xBE, 0xDE}

// ErrMalformedPacket is returned by Parse when the packet is shorter
// than HeaderSize.
var ErrMalformedPacket = errors.New("rtp: packet shorter than header size")

// BuildHeader produces the 12-byte RTP header prefix for a frame with
// the given sequence number, timestamp, and SSRC (§4.1).
func BuildHeader(seq uint16, timestamp, ssrc uint32) [HeaderSize]byte {
	var h [HeaderSize]byte
	h[0] = versionFlags
	h[1] = payloadTypeOpus
	binary.BigEndian.PutUint16(h[2:4], seq)
	binary.BigEndian.PutUint32(h[4:8], timestamp)
	binary.BigEndian.PutUint32(h[8:12], ssrc)
	return h
}

// Frame appends ciphertext after header, producing the wire packet. The
// header is copied verbatim; no bytes are reinterpreted.
func Frame(header [HeaderSize]byte, ciphertext []byte) []byte {
	out := make([]byte, HeaderSize+len(ciphertext))
	copy(out, header[:])
	copy(out[HeaderSize:], ciphertext)
	return out
}

// Header is a parsed RTP header (§4.1's Parse header operation).
type Header struct {
	Sequence     uint16
	Timestamp    uint32
	SSRC         uint32
	HasExtension bool
}

// Parse reads the 12-byte RTP header from the front of packet. It fails
// with ErrMalformedPacket if packet is shorter than HeaderSize.
func Parse(packet []byte) (Header, error) {
	if len(packet) < HeaderSize {
		return Header{}, ErrMalformedPacket
	}

	return Header{
		Sequence:     binary.BigEndian.Uint16(packet[2:4]),
		Timestamp:    binary.BigEndian.Uint32(packet[4:8]),
		SSRC:         binary.BigEndian.Uint32(packet[8:12]),
		HasExtension: packet[0]&extensionBit != 0,
	}, nil
}

// MakeNonce derives the 24-byte secretbox nonce from a 12-byte RTP
// header: the header itself, zero-padded on the right (§4.1, §8).
func MakeNonce(header [HeaderSize]byte) [24]byte {
	var nonce [24]byte
	copy(nonce[:HeaderSize], header[:])
	return nonce
}

// StripExtension locates the start of the Opus payload within payload,
// given whether the RTP header declared a header extension. If
// hasExtension is true and payload begins with the RFC 5285 one-byte
// extension profile (0xBEDE), the extension elements (and any trailing
// zero padding) are skipped and the rest of payload, starting at the
// Opus data, is returned. Otherwise payload is returned unchanged (§4.1).
func StripExtension(payload []byte, hasExtension bool) []byte {
	if !hasExtension || len(payload) < 4 {
		return payload
	}
	if payload[0] != oneByteExtProfile[0] || payload[1] != oneByteExtProfile[1] {
		return payload
	}

	extLenWords := binary.BigEndian.Uint16(payload[2:4])
	off := 4

	// Each one-byte extension element's header byte encodes (id<<4 |
	// len-1) in its low nibble, per RFC 5285 §4.2; walk extLenWords*4
	// bytes of extension data consuming one element at a time so we
	// correctly skip padding bytes (id==0) interleaved between elements.
	end := off + int(extLenWords)*4
	if end > len(payload) {
		return payload[min(off, len(payload)):]
	}

	for off < end {
		b := payload[off]
		if b == 0x00 {
			// Padding byte between extension elements.
			off++
			continue
		}

		elemLen := int(b&0x0F) + 1
		off += 1 + elemLen
	}

	if off > len(payload) {
		off = len(payload)
	}

	// Skip any further zero padding up to the word boundary already
	// computed above.
	for off < end && payload[off] == 0x00 {
		off++
	}

	return payload[off:]
}
