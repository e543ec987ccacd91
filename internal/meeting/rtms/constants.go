package rtms

import "time"

const (
	// dialTimeout bounds the websocket handshake.
	dialTimeout = 10 * time.Second

	// joinTimeout bounds the wait for the gateway's join acknowledgement.
	joinTimeout = 15 * time.Second

	// leaveTimeout bounds the goodbye frame on teardown.
	leaveTimeout = 2 * time.Second

	// readLimit caps a single gateway frame, media included.
	readLimit = 1 << 20

	// ringCapacity holds a few seconds of 16kHz mono between gateway
	// bursts and re-framing.
	ringCapacity = 64 * 1024
)

// Gateway control events
const (
	eventSessionJoined     = "session.joined"
	eventSessionEnded      = "session.ended"
	eventParticipantJoined = "participant.joined"
	eventParticipantLeft   = "participant.left"
	eventSpeakerActive     = "speaker.active"
)

// Client actions
const (
	actionJoin  = "join"
	actionLeave = "leave"
)
