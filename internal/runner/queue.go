package runner

import (
	"sync/atomic"

	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
)

// EventKind discriminates queued adapter events.
type EventKind int

const (
	EventAudio EventKind = iota
	EventParticipant
	EventSpeaker
	EventStatus
)

// Event is one adapter callback, queued for the run loop.
type Event struct {
	Kind        EventKind
	Frame       meeting.Frame
	Participant meeting.ParticipantEvent
	SpeakerID   string
	SpeakerName string
	Status      meeting.Status
}

// Queue buffers adapter events for the run loop. Providers push from
// their own goroutines; when the queue is full the oldest event is
// shed so live audio keeps flowing instead of backing up the provider.
type Queue struct {
	ch      chan Event
	log     *logging.Logger
	dropped atomic.Int64
}

// NewQueue creates a queue. A non-positive capacity falls back to the
// default.
func NewQueue(capacity int, log *logging.Logger) *Queue {
	if capacity <= 0 {
		capacity = queueCapacity
	}
	return &Queue{ch: make(chan Event, capacity), log: log}
}

// Events exposes the consumer side for the run loop.
func (q *Queue) Events() <-chan Event { return q.ch }

// Dropped reports how many events have been shed so far.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

func (q *Queue) OnAudio(f meeting.Frame) {
	q.push(Event{Kind: EventAudio, Frame: f})
}

func (q *Queue) OnParticipant(ev meeting.ParticipantEvent) {
	q.push(Event{Kind: EventParticipant, Participant: ev})
}

func (q *Queue) OnActiveSpeaker(id, name string) {
	q.push(Event{Kind: EventSpeaker, SpeakerID: id, SpeakerName: name})
}

func (q *Queue) OnStatus(st meeting.Status) {
	q.push(Event{Kind: EventStatus, Status: st})
}

func (q *Queue) push(ev Event) {
	select {
	case q.ch <- ev:
		return
	default:
	}

	// Full. Shed the oldest event so the newest wins.
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- ev:
	default:
		// Racing producers refilled the queue; the newcomer loses.
	}

	if n := q.dropped.Add(1); n == 1 || n%dropWarnEvery == 0 {
		q.log.Warn("event queue full, shedding oldest events", logging.Fields{
			"dropped": n,
		})
	}
}
