// Package voicegateway implements the signalling state machine (§4.5):
// the WebSocket opcode protocol that negotiates SSRC, the UDP media
// endpoint, the shared encryption key, and carries heartbeats and
// speaking updates for the lifetime of a voice connection.
//
// Grounded on the teacher's voice/voicegateway package, restructured
// around this protocol's opcode table (notably its redefinition of
// opcode 9) and around a callback-driven dispatch loop instead of the
// teacher's blocking wsutil.WaitForEvent/PacemakerLoop machinery.
package voicegateway

// Server is the voice-server payload the upstream client supplies at
// construction (§6's upstream API).
type Server struct {
	Endpoint string
	GuildID  uint64
	Token    string
}

// VoiceState is the voice-state payload the upstream client supplies at
// construction (§6).
type VoiceState struct {
	UserID    uint64
	SessionID string
}

// State is the signalling gateway's identity: everything Identify and
// Resume need, plus the resume flag that selects between them.
type State struct {
	GuildID   uint64
	UserID    uint64
	ChannelID uint64

	SessionID string
	Token     string
	Endpoint  string

	// Resume selects Resume (opcode 7) over Identify (opcode 0) on the
	// next Open. Cleared by a fresh Identify and set again only after a
	// successful Ready (§4.5).
	Resume bool
}
