package voicegateway

import (
	"encoding/json"
	"testing"
)

func TestOpcodeValues(t *testing.T) {
	cases := map[OPCode]int{
		IdentifyOP:           0,
		SelectProtocolOP:     1,
		ReadyOP:              2,
		HeartbeatOP:          3,
		SessionDescriptionOP: 4,
		SpeakingOP:           5,
		HeartbeatAckOP:       6,
		ResumeOP:             7,
		HelloOP:              8,
		InvalidatedOP:        9,
	}
	for op, want := range cases {
		if int(op) != want {
			t.Fatalf("opcode = %d, want %d", op, want)
		}
	}
}

func TestOPRoundTrip(t *testing.T) {
	in := OP{Code: ReadyOP, Data: json.RawMessage(`{"ssrc":42}`)}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out OP
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Code != ReadyOP {
		t.Fatalf("Code = %d, want ReadyOP", out.Code)
	}
}
