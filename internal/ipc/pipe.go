package ipc

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/saleskit-io/meetbot/internal/logging"
)

// Sink carries outbound messages to the parent process. Delivery is
// fire-and-forget: there is no acknowledgment and no resend.
type Sink interface {
	Send(Message) error
}

// Pipe writes one JSON object per line to w. Sends are serialized under one
// lock, so wire order matches enqueue order and sequence numbers are strictly
// increasing.
type Pipe struct {
	mu  sync.Mutex
	enc *json.Encoder
	seq uint64
}

// NewPipe wraps w (stdout in production) as a message sink.
func NewPipe(w io.Writer) *Pipe {
	return &Pipe{enc: json.NewEncoder(w)}
}

func (p *Pipe) Send(m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	h := m.header()
	h.Type = m.Kind()
	h.Seq = p.seq
	return p.enc.Encode(m)
}

// LogPipe is the sink used when no parent channel exists: every message
// degrades to a structured debug log line instead of being dropped silently.
type LogPipe struct {
	mu  sync.Mutex
	log *logging.Logger
	seq uint64
}

// NewLogPipe builds the degraded sink.
func NewLogPipe(log *logging.Logger) *LogPipe {
	return &LogPipe{log: log}
}

func (p *LogPipe) Send(m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	h := m.header()
	h.Type = m.Kind()
	h.Seq = p.seq

	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if data, ok := payload["data"].(string); ok && len(data) > dataPreviewLimit {
		payload["data"] = fmt.Sprintf("(%d base64 bytes)", len(data))
	}
	p.log.Debug("outbound message (no parent channel)", logging.Fields{"message": payload})
	return nil
}
