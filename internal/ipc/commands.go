package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/saleskit-io/meetbot/internal/logging"
)

// CommandType is an inbound control verb from the parent.
type CommandType string

const (
	CommandLeave  CommandType = "leave"
	CommandStatus CommandType = "status"
	CommandFlush  CommandType = "flush"
)

// Command is one inbound control message; no commands carry a payload.
type Command struct {
	Type CommandType `json:"type"`
}

// ReadCommands decodes newline-delimited commands from r (stdin in
// production) until EOF, delivering them on the returned channel. Malformed
// lines and unknown commands are logged and skipped; the channel closes when
// r is exhausted.
func ReadCommands(r io.Reader, log *logging.Logger) <-chan Command {
	ch := make(chan Command, commandBuffer)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			var cmd Command
			if err := json.Unmarshal(line, &cmd); err != nil {
				log.Warn("discarding malformed control line", logging.Fields{"error": err.Error()})
				continue
			}
			switch cmd.Type {
			case CommandLeave, CommandStatus, CommandFlush:
				ch <- cmd
			default:
				log.Warn("unknown control command", logging.Fields{"commandType": string(cmd.Type)})
			}
		}
		if err := sc.Err(); err != nil {
			log.Debug("control channel closed", logging.Fields{"error": err.Error()})
		}
	}()
	return ch
}
