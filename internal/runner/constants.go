package runner

// Bot lifecycle states as reported to the parent process.
const (
	StatusInitializing = "initializing"
	StatusJoining      = "joining"
	StatusRecording    = "recording"
	StatusDisconnected = "disconnected"
)

// Lifecycle transition names
const (
	eventBeginJoin = "begin_join"
	eventConnected = "connected"
	eventDrop      = "drop"
	eventTerminate = "terminate"
)

const (
	// queueCapacity bounds buffered adapter events. At 100ms frames this
	// is most of a minute of audio headroom.
	queueCapacity = 512

	// dropWarnEvery spaces out shed warnings so a stalled loop does not
	// also flood the log.
	dropWarnEvery = 100
)
