// Package meeting abstracts the meeting provider behind a uniform
// join/leave/event surface. The run loop and audio pipeline never touch a
// concrete provider; they see a Client wrapped by the Adapter, which degrades
// to a simulated fallback mode when no usable provider exists.
package meeting

import (
	"context"
	"time"
)

// Frame is one raw audio delivery from a provider, pre-aggregation. It is
// consumed immediately by the processor and discarded.
type Frame struct {
	Data       []byte
	SampleRate int
	Channels   int
	Timestamp  time.Time
}

// Participant is a meeting attendee as reported by the provider.
type Participant struct {
	ID     string
	Name   string
	Email  string
	IsHost bool
}

// ParticipantAction is the roster change that produced a ParticipantEvent.
type ParticipantAction string

const (
	ActionJoined ParticipantAction = "joined"
	ActionLeft   ParticipantAction = "left"
)

// ParticipantEvent pairs an attendee with a roster change.
type ParticipantEvent struct {
	Action      ParticipantAction
	Participant Participant
}

// Status is a provider-level connection signal.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// EventSink receives provider events. A single sink is injected at
// construction; implementations must tolerate calls from provider goroutines.
type EventSink interface {
	OnAudio(Frame)
	OnParticipant(ParticipantEvent)
	OnActiveSpeaker(id, name string)
	OnStatus(Status)
}

// JoinRequest carries the coordinates for one meeting join.
type JoinRequest struct {
	MeetingID   string
	Password    string
	DisplayName string
	AuthToken   string
}

// Client is one concrete provider implementation, selected by configuration.
type Client interface {
	// Name identifies the provider in logs and doctor output.
	Name() string
	// Initialize prepares the provider; failure drops the adapter into
	// fallback mode.
	Initialize(ctx context.Context) error
	// Join enters the meeting. The caller owns retries.
	Join(ctx context.Context, req JoinRequest) error
	// Leave exits the meeting; safe to call when not joined.
	Leave(ctx context.Context) error
	// Joined reports whether the provider believes it is in the meeting.
	Joined() bool
	// Close releases provider resources; safe to call repeatedly.
	Close() error
}
