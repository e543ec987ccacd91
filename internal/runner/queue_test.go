package runner

import (
	"testing"
	"time"

	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
)

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(8, logging.NewNop())

	q.OnStatus(meeting.StatusConnected)
	q.OnAudio(meeting.Frame{Data: []byte{1, 2}, SampleRate: 16000, Channels: 1, Timestamp: time.Now()})
	q.OnParticipant(meeting.ParticipantEvent{
		Action:      meeting.ActionJoined,
		Participant: meeting.Participant{ID: "p1", Name: "Dana"},
	})
	q.OnActiveSpeaker("p1", "Dana")

	want := []EventKind{EventStatus, EventAudio, EventParticipant, EventSpeaker}
	for i, kind := range want {
		ev := <-q.Events()
		if ev.Kind != kind {
			t.Fatalf("event %d kind = %d, want %d", i, ev.Kind, kind)
		}
	}
	if got := q.Dropped(); got != 0 {
		t.Fatalf("dropped = %d, want 0", got)
	}
}

func TestQueueShedsOldestWhenFull(t *testing.T) {
	q := NewQueue(2, logging.NewNop())

	q.OnActiveSpeaker("s1", "first")
	q.OnActiveSpeaker("s2", "second")
	q.OnActiveSpeaker("s3", "third")

	if got := q.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}

	first := <-q.Events()
	second := <-q.Events()
	if first.SpeakerID != "s2" || second.SpeakerID != "s3" {
		t.Fatalf("kept %s and %s, want s2 and s3", first.SpeakerID, second.SpeakerID)
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0, logging.NewNop())

	q.OnStatus(meeting.StatusDisconnected)

	ev := <-q.Events()
	if ev.Status != meeting.StatusDisconnected {
		t.Fatalf("status = %s, want %s", ev.Status, meeting.StatusDisconnected)
	}
}
