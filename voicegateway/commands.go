package voicegateway

import (
	"context"
	"time"
)

// identifyData is the opcode 0 payload (§4.5 row 0, §8 scenario 1:
// server_id and user_id are bare JSON numbers on the wire).
type identifyData struct {
	GuildID   uint64 `json:"server_id"`
	UserID    uint64 `json:"user_id"`
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

func (g *Gateway) sendIdentify(ctx context.Context) error {
	return g.send(ctx, IdentifyOP, identifyData{
		GuildID:   g.state.GuildID,
		UserID:    g.state.UserID,
		SessionID: g.state.SessionID,
		Token:     g.state.Token,
	})
}

// resumeData is the opcode 7 payload (§4.5 row 7).
type resumeData struct {
	GuildID   uint64 `json:"server_id"`
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

func (g *Gateway) sendResume(ctx context.Context) error {
	return g.send(ctx, ResumeOP, resumeData{
		GuildID:   g.state.GuildID,
		SessionID: g.state.SessionID,
		Token:     g.state.Token,
	})
}

// selectProtocolData is the opcode 1 payload (§4.5 row 1). mode is
// always xsalsa20_poly1305, the only encryption mode this engine speaks.
type selectProtocolData struct {
	Protocol string `json:"protocol"`
	Data     struct {
		Address string `json:"address"`
		Port    uint16 `json:"port"`
		Mode    string `json:"mode"`
	} `json:"data"`
}

const encryptionMode = "xsalsa20_poly1305"

func (g *Gateway) sendSelectProtocol(ctx context.Context, address string, port uint16) error {
	var payload selectProtocolData
	payload.Protocol = "udp"
	payload.Data.Address = address
	payload.Data.Port = port
	payload.Data.Mode = encryptionMode

	return g.send(ctx, SelectProtocolOP, payload)
}

func (g *Gateway) sendHeartbeat(ctx context.Context) error {
	return g.send(ctx, HeartbeatOP, heartbeatPayload(time.Now().Unix()))
}

// SendSpeaking sends an opcode 5 speaking update for this connection's
// own SSRC (§4.7 step 5, §6's send_speaking).
func (g *Gateway) SendSpeaking(ctx context.Context, speaking bool) error {
	g.mu.RLock()
	ssrc := g.ready.SSRC
	g.mu.RUnlock()

	return g.send(ctx, SpeakingOP, SpeakingEvent{
		Speaking: speaking,
		SSRC:     ssrc,
	})
}
