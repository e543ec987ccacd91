// Package runner drives one meeting session end to end: join with
// retries, pump provider events into audio chunks and IPC messages,
// reconcile health, and leave cleanly.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/saleskit-io/meetbot/internal/audio"
	"github.com/saleskit-io/meetbot/internal/config"
	apperrors "github.com/saleskit-io/meetbot/internal/errors"
	"github.com/saleskit-io/meetbot/internal/ipc"
	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
	"github.com/saleskit-io/meetbot/internal/resilience"
)

// Bot owns one meeting session.
type Bot struct {
	cfg     *config.Config
	adapter *meeting.Adapter
	queue   *Queue
	pipe    ipc.Sink
	log     *logging.Logger

	states *fsm.FSM
	proc   *audio.Processor
	stats  *Stats
	roster *Roster

	// lastSpeakerID dedupes active-speaker events. Loop-local.
	lastSpeakerID string

	stopOnce  sync.Once
	startedAt time.Time
}

// New wires a bot. The queue must be the same sink the adapter and its
// client publish to.
func New(cfg *config.Config, adapter *meeting.Adapter, queue *Queue, pipe ipc.Sink, log *logging.Logger) *Bot {
	b := &Bot{
		cfg:     cfg,
		adapter: adapter,
		queue:   queue,
		pipe:    pipe,
		log:     log,
		stats:   &Stats{},
		roster:  NewRoster(),
	}

	b.proc = audio.NewProcessor(audio.Config{
		SampleRate:   cfg.SampleRate,
		ChunkMs:      cfg.ChunkMs,
		MaxSilenceMs: cfg.MaxSilenceMs,
		VADThreshold: cfg.VADThreshold,
	}, b.emitChunk, log)

	b.states = fsm.NewFSM(
		StatusInitializing,
		fsm.Events{
			{Name: eventBeginJoin, Src: []string{StatusInitializing}, Dst: StatusJoining},
			{Name: eventConnected, Src: []string{StatusJoining}, Dst: StatusRecording},
			{Name: eventDrop, Src: []string{StatusRecording}, Dst: StatusJoining},
			{Name: eventTerminate, Src: []string{StatusInitializing, StatusJoining, StatusRecording}, Dst: StatusDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) { b.announceStatus(e.Dst) },
		},
	)

	return b
}

// Status reports the current lifecycle state.
func (b *Bot) Status() string { return b.states.Current() }

// Run drives the session until the meeting ends, a leave command
// arrives, or the context is canceled. It returns nil on a clean stop
// and an error when the meeting could not be joined at all.
func (b *Bot) Run(ctx context.Context, commands <-chan ipc.Command) error {
	b.startedAt = time.Now()
	stopCtx := context.WithoutCancel(ctx)
	defer b.stop(stopCtx)
	defer func() {
		// A panic anywhere on the loop must not leave the process hung
		// or silent: report it, then let the deferred stop run.
		if r := recover(); r != nil {
			b.log.Error("panic in run loop", logging.Fields{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			b.emitError(apperrors.Newf(apperrors.CodeInternal, "internal failure: %v", r))
		}
	}()

	b.announceStatus(StatusInitializing)
	_ = b.adapter.Initialize(ctx)

	b.transition(ctx, eventBeginJoin)
	if err := b.joinWithRetry(ctx); err != nil {
		b.emitError(err)
		return err
	}

	health := time.NewTicker(b.cfg.HealthInterval())
	defer health.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("context canceled, leaving meeting")
			return nil
		case ev := <-b.queue.Events():
			if b.handleEvent(ctx, ev) {
				return nil
			}
		case cmd, ok := <-commands:
			if !ok {
				b.log.Info("parent channel closed, leaving meeting")
				return nil
			}
			if b.handleCommand(ctx, cmd) {
				return nil
			}
		case <-health.C:
			if b.checkHealth(ctx) {
				return nil
			}
		}
	}
}

// joinWithRetry attempts the join up to MaxJoinRetries times with a
// fixed delay. Every failure is retried; the cap is the only limit.
func (b *Bot) joinWithRetry(ctx context.Context) error {
	req := meeting.JoinRequest{
		MeetingID:   b.cfg.MeetingID,
		Password:    b.cfg.MeetingPassword,
		DisplayName: b.cfg.BotName,
		AuthToken:   b.cfg.SDKJWT,
	}

	retry := resilience.RetryConfig{
		MaxAttempts: b.cfg.MaxJoinRetries,
		Delay:       b.cfg.JoinRetryDelay(),
		Retryable:   func(error) bool { return true },
		OnRetry: func(attempt int, err error, delay time.Duration) {
			b.log.Warn("join attempt failed", logging.Fields{
				"attempt":     attempt,
				"maxAttempts": b.cfg.MaxJoinRetries,
				"retryIn":     delay.String(),
				"error":       err.Error(),
			})
		},
	}

	err := resilience.Retry(ctx, retry, func() error {
		b.stats.joinAttempts.Add(1)
		return b.adapter.Join(ctx, req)
	})
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeJoinFailed,
			"unable to join meeting after %d attempts", b.cfg.MaxJoinRetries)
	}
	return nil
}

// handleEvent processes one queued provider event. It reports whether
// the run loop should stop.
func (b *Bot) handleEvent(ctx context.Context, ev Event) bool {
	switch ev.Kind {
	case EventAudio:
		b.stats.framesProcessed.Add(1)
		b.proc.AddFrame(ev.Frame)
	case EventParticipant:
		b.handleParticipant(ev.Participant)
	case EventSpeaker:
		b.handleSpeaker(ev.SpeakerID, ev.SpeakerName)
	case EventStatus:
		return b.handleProviderStatus(ctx, ev.Status)
	}
	return false
}

func (b *Bot) handleProviderStatus(ctx context.Context, st meeting.Status) bool {
	switch st {
	case meeting.StatusConnected:
		b.transition(ctx, eventConnected)
	case meeting.StatusDisconnected:
		return b.handleDrop(ctx, apperrors.New(apperrors.CodeGateway, "meeting connection lost"))
	}
	return false
}

// handleDrop reacts to a lost session: reconnect when configured to,
// otherwise stop cleanly. It reports whether the run loop should stop.
func (b *Bot) handleDrop(ctx context.Context, cause error) bool {
	if b.states.Current() != StatusRecording {
		b.log.Debug("ignoring drop outside recording", logging.Fields{
			"status": b.states.Current(),
		})
		return false
	}

	b.proc.Flush()
	b.emitError(cause)

	if !b.cfg.ReconnectOnError {
		b.log.Warn("connection lost and reconnect is disabled, stopping")
		return true
	}

	b.transition(ctx, eventDrop)
	b.stats.reconnects.Add(1)
	if err := b.joinWithRetry(ctx); err != nil {
		b.emitError(err)
		return true
	}
	return false
}

// checkHealth reconciles the reported lifecycle state against the
// provider's own view of the session. The health ping goes out only
// while the session is up; a dead session takes the drop path instead.
func (b *Bot) checkHealth(ctx context.Context) bool {
	joined := b.adapter.Joined()
	status := b.states.Current()
	b.log.Debug("health check", logging.Fields{"status": status, "joined": joined})

	if status == StatusRecording && !joined {
		return b.handleDrop(ctx, apperrors.New(apperrors.CodeGateway, "health check found the session gone"))
	}
	if status == StatusJoining && joined {
		// The session is up but the connected event never landed.
		b.transition(ctx, eventConnected)
	}

	if b.adapter.Joined() {
		if err := b.pipe.Send(ipc.NewHealth(b.statsSnapshot(), b.uptimeMs(), b.roster.Count())); err != nil {
			b.log.Warn("failed to publish health", logging.Fields{"error": err.Error()})
		}
	}
	return false
}

// handleCommand executes one parent command. It reports whether the
// run loop should stop.
func (b *Bot) handleCommand(ctx context.Context, cmd ipc.Command) bool {
	b.log.Info("command received", logging.Fields{"command": string(cmd.Type)})

	switch cmd.Type {
	case ipc.CommandLeave:
		return true
	case ipc.CommandFlush:
		b.proc.Flush()
	case ipc.CommandStatus:
		msg := ipc.NewStatusSnapshot(b.states.Current(), b.statsSnapshot(), b.uptimeMs(), b.roster.Count())
		if err := b.pipe.Send(msg); err != nil {
			b.log.Warn("failed to publish status snapshot", logging.Fields{"error": err.Error()})
		}
	}
	return false
}

func (b *Bot) handleParticipant(ev meeting.ParticipantEvent) {
	switch ev.Action {
	case meeting.ActionJoined:
		b.stats.participantJoins.Add(1)
		b.roster.Add(ev.Participant)
	case meeting.ActionLeft:
		b.stats.participantLeaves.Add(1)
		if !b.roster.Remove(ev.Participant.ID) {
			b.log.Debug("departure for unknown participant", logging.Fields{
				"participantId": ev.Participant.ID,
			})
		}
	}

	b.log.Info("roster update", logging.Fields{
		"action":       string(ev.Action),
		"name":         ev.Participant.Name,
		"participants": b.roster.Count(),
	})

	msg := ipc.NewParticipant(string(ev.Action), ipc.ParticipantInfo{
		ID:     ev.Participant.ID,
		Name:   ev.Participant.Name,
		Email:  ev.Participant.Email,
		IsHost: ev.Participant.IsHost,
	})
	if err := b.pipe.Send(msg); err != nil {
		b.log.Warn("failed to publish roster update", logging.Fields{"error": err.Error()})
	}
}

// handleSpeaker forwards active-speaker changes, suppressing repeats of
// the same speaker.
func (b *Bot) handleSpeaker(id, name string) {
	if id == b.lastSpeakerID {
		return
	}
	b.lastSpeakerID = id

	b.log.Debug("active speaker", logging.Fields{"speakerId": id, "speakerName": name})
	if err := b.pipe.Send(ipc.NewSpeaker(id, name)); err != nil {
		b.log.Warn("failed to publish speaker change", logging.Fields{"error": err.Error()})
	}
}

// emitChunk publishes a finished audio chunk and optionally dumps it
// to disk as a WAV file.
func (b *Bot) emitChunk(c audio.Chunk) {
	b.stats.chunksEmitted.Add(1)
	b.stats.bytesEmitted.Add(int64(len(c.Data)))

	msg := ipc.NewAudio(c.Data, c.Timestamp, int(c.DurationMs), c.SampleRate, 1)
	if err := b.pipe.Send(msg); err != nil {
		b.log.Warn("failed to publish audio chunk", logging.Fields{"error": err.Error()})
	}

	b.log.Debug("audio chunk emitted", logging.Fields{
		"durationMs": int(c.DurationMs),
		"bytes":      len(c.Data),
	})

	if b.cfg.ChunkDumpDir != "" {
		b.dumpChunk(c)
	}
}

func (b *Bot) dumpChunk(c audio.Chunk) {
	name := fmt.Sprintf("chunk-%d.wav", c.Timestamp.UnixMilli())
	path := filepath.Join(b.cfg.ChunkDumpDir, name)
	if err := os.WriteFile(path, audio.EncodeWAV(c.Data, c.SampleRate, 1), 0o644); err != nil {
		b.log.Warn("failed to dump chunk", logging.Fields{"path": path, "error": err.Error()})
	}
}

func (b *Bot) emitError(err error) {
	b.stats.errorsEmitted.Add(1)
	b.log.Error("bot error", logging.Fields{
		"code":  string(apperrors.CodeOf(err)),
		"error": err.Error(),
	})
	if senderr := b.pipe.Send(ipc.NewError(apperrors.Message(err))); senderr != nil {
		b.log.Warn("failed to publish error", logging.Fields{"error": senderr.Error()})
	}
}

func (b *Bot) announceStatus(status string) {
	b.log.Info("status changed", logging.Fields{"status": status})
	if err := b.pipe.Send(ipc.NewStatus(status)); err != nil {
		b.log.Warn("failed to publish status", logging.Fields{"error": err.Error()})
	}
}

// transition fires a lifecycle event. Transitions that are invalid for
// the current state are logged and otherwise ignored.
func (b *Bot) transition(ctx context.Context, event string) {
	if err := b.states.Event(ctx, event); err != nil {
		b.log.Debug("state event ignored", logging.Fields{
			"event":  event,
			"status": b.states.Current(),
			"error":  err.Error(),
		})
	}
}

// stop runs the teardown exactly once: flush buffered audio, release
// the provider, report the final status, and log the session totals.
func (b *Bot) stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.log.Info("stopping bot")

		b.proc.ForceFlush()
		b.adapter.Cleanup(ctx)
		b.transition(ctx, eventTerminate)

		b.log.Info("session complete", logging.Fields{
			"uptime":          time.Since(b.startedAt).Round(time.Second).String(),
			"framesProcessed": b.stats.framesProcessed.Load(),
			"chunksEmitted":   b.stats.chunksEmitted.Load(),
			"bytesEmitted":    b.stats.bytesEmitted.Load(),
			"joinAttempts":    b.stats.joinAttempts.Load(),
			"reconnects":      b.stats.reconnects.Load(),
			"droppedEvents":   b.queue.Dropped(),
			"participants":    b.roster.Count(),
		})
	})
}

func (b *Bot) uptimeMs() int64 {
	return time.Since(b.startedAt).Milliseconds()
}

// statsSnapshot is the wire form of the run counters, including events
// shed by the queue.
func (b *Bot) statsSnapshot() map[string]int64 {
	snap := b.stats.Snapshot()
	snap["droppedEvents"] = b.queue.Dropped()
	return snap
}
