// Package ipc implements the newline-delimited JSON channel between the bot
// process and its parent: a small tagged union of outbound messages and the
// three inbound control commands.
package ipc

import (
	"encoding/base64"
	"time"
)

// Kind tags every outbound message.
type Kind string

const (
	KindStatus      Kind = "status"
	KindError       Kind = "error"
	KindAudio       Kind = "audio"
	KindParticipant Kind = "participant"
	KindSpeaker     Kind = "speaker"
	KindHealth      Kind = "health"
)

// Header is embedded by every outbound message; the sink stamps the type tag
// and a monotonic sequence number at send time so the parent can detect gaps.
type Header struct {
	Type Kind   `json:"type"`
	Seq  uint64 `json:"seq"`
}

func (h *Header) header() *Header { return h }

// Message is implemented by every outbound payload.
type Message interface {
	Kind() Kind
	header() *Header
}

// StatusMessage reports a lifecycle transition; the snapshot fields are only
// populated for status echoes requested by the parent.
type StatusMessage struct {
	Header
	Status           string           `json:"status"`
	Stats            map[string]int64 `json:"stats,omitempty"`
	Uptime           int64            `json:"uptime,omitempty"`
	ParticipantCount int              `json:"participantCount,omitempty"`
}

// NewStatus reports a bare lifecycle transition.
func NewStatus(status string) *StatusMessage {
	return &StatusMessage{Status: status}
}

// NewStatusSnapshot answers a parent status query with the full run state.
func NewStatusSnapshot(status string, stats map[string]int64, uptimeMs int64, participants int) *StatusMessage {
	return &StatusMessage{Status: status, Stats: stats, Uptime: uptimeMs, ParticipantCount: participants}
}

func (*StatusMessage) Kind() Kind { return KindStatus }

// ErrorMessage surfaces a failure to the parent.
type ErrorMessage struct {
	Header
	Error string `json:"error"`
}

func NewError(msg string) *ErrorMessage {
	return &ErrorMessage{Error: msg}
}

func (*ErrorMessage) Kind() Kind { return KindError }

// AudioMessage carries one transcription-ready chunk, payload base64-encoded.
type AudioMessage struct {
	Header
	Data       string `json:"data"`
	Timestamp  int64  `json:"timestamp"`
	Duration   int    `json:"duration"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

func NewAudio(pcm []byte, ts time.Time, durationMs, sampleRate, channels int) *AudioMessage {
	return &AudioMessage{
		Data:       base64.StdEncoding.EncodeToString(pcm),
		Timestamp:  ts.UnixMilli(),
		Duration:   durationMs,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

func (*AudioMessage) Kind() Kind { return KindAudio }

// ParticipantInfo is the wire form of one attendee.
type ParticipantInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	IsHost bool   `json:"isHost"`
}

// ParticipantMessage reports a roster change.
type ParticipantMessage struct {
	Header
	Action      string          `json:"action"`
	Participant ParticipantInfo `json:"participant"`
}

func NewParticipant(action string, p ParticipantInfo) *ParticipantMessage {
	return &ParticipantMessage{Action: action, Participant: p}
}

func (*ParticipantMessage) Kind() Kind { return KindParticipant }

// SpeakerMessage reports an active-speaker change.
type SpeakerMessage struct {
	Header
	SpeakerID   string `json:"speakerId"`
	SpeakerName string `json:"speakerName"`
}

func NewSpeaker(id, name string) *SpeakerMessage {
	return &SpeakerMessage{SpeakerID: id, SpeakerName: name}
}

func (*SpeakerMessage) Kind() Kind { return KindSpeaker }

// HealthMessage is the periodic health ping.
type HealthMessage struct {
	Header
	Stats            map[string]int64 `json:"stats"`
	Uptime           int64            `json:"uptime"`
	ParticipantCount int              `json:"participantCount"`
}

func NewHealth(stats map[string]int64, uptimeMs int64, participants int) *HealthMessage {
	return &HealthMessage{Stats: stats, Uptime: uptimeMs, ParticipantCount: participants}
}

func (*HealthMessage) Kind() Kind { return KindHealth }
