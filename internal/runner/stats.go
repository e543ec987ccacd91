package runner

import "sync/atomic"

// Stats tracks run counters. Safe for concurrent use.
type Stats struct {
	framesProcessed   atomic.Int64
	chunksEmitted     atomic.Int64
	bytesEmitted      atomic.Int64
	joinAttempts      atomic.Int64
	reconnects        atomic.Int64
	errorsEmitted     atomic.Int64
	participantJoins  atomic.Int64
	participantLeaves atomic.Int64
}

// Snapshot returns the counters keyed for status and health payloads.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"framesProcessed":   s.framesProcessed.Load(),
		"chunksEmitted":     s.chunksEmitted.Load(),
		"bytesEmitted":      s.bytesEmitted.Load(),
		"joinAttempts":      s.joinAttempts.Load(),
		"reconnects":        s.reconnects.Load(),
		"errors":            s.errorsEmitted.Load(),
		"participantJoins":  s.participantJoins.Load(),
		"participantLeaves": s.participantLeaves.Load(),
	}
}
