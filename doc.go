// Package voice implements a client endpoint for a real-time voice
// service: a signalling session over a secure WebSocket paired with a
// media session over UDP, carrying encrypted Opus-encoded audio frames
// encapsulated in RTP.
//
// A Connection negotiates session parameters through the signalling
// state machine in package voicegateway, paces and transmits PCM audio
// through Send, and optionally receives and decodes inbound audio
// through the receiver loop. The higher-level client that discovers
// voice endpoints, supplies credentials, and resolves users from a
// guild/user cache is an external collaborator reached only through the
// narrow interfaces in resolver.go.
package voice
