package voicegateway

import "encoding/json"

// OPCode is the top-level integer discriminator on every signalling
// frame (§4.5).
type OPCode int

const (
	IdentifyOP           OPCode = 0 // send
	SelectProtocolOP     OPCode = 1 // send
	ReadyOP              OPCode = 2 // receive
	HeartbeatOP          OPCode = 3 // send/receive
	SessionDescriptionOP OPCode = 4 // receive
	SpeakingOP           OPCode = 5 // send/receive
	HeartbeatAckOP       OPCode = 6 // receive
	ResumeOP             OPCode = 7 // send
	HelloOP              OPCode = 8 // receive, tolerated and ignored
	// InvalidatedOP, unlike the real Discord voice gateway's "Resumed"
	// opcode 9, means the session was invalidated server-side here: the
	// handler clears the resume flag and restarts identification (§4.5).
	InvalidatedOP OPCode = 9
)

// OP is the envelope every signalling frame is wrapped in: a top-level
// integer op and a raw payload d.
type OP struct {
	Code OPCode          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
}
