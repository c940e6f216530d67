package voice

import (
	"time"

	"go.uber.org/zap"

	"github.com/fenwickvoice/voiceengine/opus"
)

// ApplicationProfile selects the Opus encoder's tuning profile, mirroring
// the three application modes Opus exposes (§3 Configuration).
type ApplicationProfile = opus.Application

const (
	// ProfileVoIP tunes the encoder for speech over a lossy network.
	ProfileVoIP = opus.AppVoIP
	// ProfileAudio tunes the encoder for general (music-grade) audio.
	ProfileAudio = opus.AppAudio
	// ProfileLowDelay tunes the encoder for the lowest achievable latency.
	ProfileLowDelay = opus.AppLowDelay
)

// Config configures a Connection at construction time. A zero Config is
// valid: it selects ProfileVoIP, disables the receive path, and logs
// nowhere.
type Config struct {
	// Profile selects the Opus encoder's application profile.
	Profile ApplicationProfile

	// EnableIncoming starts the receiver loop (§4.8) once the session
	// description is processed. Disabled by default, since most callers
	// only ever send.
	EnableIncoming bool

	// DefaultBitrateKbps is used by Send callers that pass 0 for
	// bitrateKbps. Defaults to 16 (§4.3).
	DefaultBitrateKbps int

	// DialTimeout bounds the signalling WebSocket dial, including each
	// reconnect attempt. The UDP setup and the IP-discovery exchange are
	// not bounded by it. Defaults to 10s, matching the teacher's
	// WSTimeout.
	DialTimeout time.Duration

	// GuildMembers and Users are external collaborators consulted by
	// the receive path's SSRC→user resolution (§4.8 step 8). Either may
	// be nil, in which case that step of the fallback chain is skipped.
	GuildMembers GuildMemberCache
	Users        UserCache

	// Logger receives structured log events. Defaults to a no-op logger.
	Logger *zap.SugaredLogger

	// ErrorLog is a source-compatible callback in the teacher's style
	// (voice/connection.go's ErrorLog field). If set, it is called in
	// addition to Logger for every error-level event.
	ErrorLog func(err error)
}

func (c Config) withDefaults() Config {
	if c.DefaultBitrateKbps <= 0 {
		c.DefaultBitrateKbps = 16
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	return c
}

func (c Config) logError(context string, err error) {
	c.Logger.Errorw(context, "err", err)
	if c.ErrorLog != nil {
		c.ErrorLog(err)
	}
}
