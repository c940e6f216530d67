package voicegateway

// ReadyEvent is the opcode 2 payload: the server hands back the
// connection's SSRC and the UDP port to discover against (§4.5 row 2).
// Unlike the teacher's ReadyEvent, there is no ip/modes/experiments
// field: the media host is the same host already known from Server.
type ReadyEvent struct {
	SSRC              uint32 `json:"ssrc"`
	Port              int    `json:"port"`
	HeartbeatInterval int    `json:"heartbeat_interval"`
}

// SessionDescriptionEvent is the opcode 4 payload carrying the shared
// secretbox key (§4.5 row 4).
type SessionDescriptionEvent struct {
	SecretKey [32]byte `json:"secret_key"`
}

// SpeakingEvent is both the opcode 5 send payload and the shape of an
// inbound speaking update (§4.5 row 5).
type SpeakingEvent struct {
	Speaking bool   `json:"speaking"`
	Delay    int    `json:"delay"`
	SSRC     uint32 `json:"ssrc,omitempty"`
	UserID   uint64 `json:"user_id,omitempty"`
}

// heartbeatPayload is the opcode 3/6 payload: a 32-bit UNIX
// epoch-seconds timestamp (§4.5 row 3, not UnixNano).
type heartbeatPayload uint32
