package meeting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saleskit-io/meetbot/internal/logging"
)

type fakeClient struct {
	initErr  error
	joinErr  error
	leaveErr error
	closeErr error

	initCalls  int
	joinCalls  int
	leaveCalls int
	closeCalls int
	joined     bool
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Initialize(ctx context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeClient) Join(ctx context.Context, req JoinRequest) error {
	f.joinCalls++
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = true
	return nil
}

func (f *fakeClient) Leave(ctx context.Context) error {
	f.leaveCalls++
	f.joined = false
	return f.leaveErr
}

func (f *fakeClient) Joined() bool { return f.joined }

func (f *fakeClient) Close() error {
	f.closeCalls++
	return f.closeErr
}

type recordingSink struct {
	statuses chan Status
}

func newRecordingSink() *recordingSink {
	return &recordingSink{statuses: make(chan Status, 8)}
}

func (s *recordingSink) OnAudio(Frame) {}

func (s *recordingSink) OnParticipant(ParticipantEvent) {}

func (s *recordingSink) OnActiveSpeaker(id, name string) {}

func (s *recordingSink) OnStatus(st Status) { s.statuses <- st }

func TestInitializeFailureEntersFallback(t *testing.T) {
	client := &fakeClient{initErr: errors.New("no native binding")}
	sink := newRecordingSink()
	a := NewAdapter(client, sink, logging.NewNop())
	a.connectDelay = 10 * time.Millisecond

	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v, want nil even on provider failure", err)
	}
	if !a.Fallback() {
		t.Fatal("adapter should be in fallback mode")
	}

	if err := a.Join(context.Background(), JoinRequest{MeetingID: "123"}); err != nil {
		t.Fatalf("fallback Join() = %v, want nil", err)
	}
	if !a.Joined() {
		t.Error("fallback Join should mark the adapter joined")
	}
	if client.joinCalls != 0 {
		t.Errorf("fallback Join reached the client %d times, want 0", client.joinCalls)
	}

	select {
	case st := <-sink.statuses:
		if st != StatusConnected {
			t.Errorf("simulated status = %q, want connected", st)
		}
	case <-time.After(time.Second):
		t.Error("no simulated connected status arrived")
	}
}

func TestNilClientEntersFallback(t *testing.T) {
	a := NewAdapter(nil, newRecordingSink(), logging.NewNop())

	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	if !a.Fallback() {
		t.Error("nil client should force fallback mode")
	}
}

func TestNativeJoinPropagatesError(t *testing.T) {
	client := &fakeClient{joinErr: errors.New("meeting not started")}
	a := NewAdapter(client, newRecordingSink(), logging.NewNop())

	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if a.Fallback() {
		t.Fatal("healthy client should not trigger fallback")
	}

	err := a.Join(context.Background(), JoinRequest{MeetingID: "123"})
	if err == nil {
		t.Fatal("Join() = nil, want the client's error")
	}
	if a.Joined() {
		t.Error("failed join must not mark the adapter joined")
	}
}

func TestNativeJoinAndLeave(t *testing.T) {
	client := &fakeClient{}
	a := NewAdapter(client, newRecordingSink(), logging.NewNop())
	ctx := context.Background()

	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if err := a.Join(ctx, JoinRequest{MeetingID: "123"}); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if !a.Joined() {
		t.Fatal("adapter should report joined")
	}

	if err := a.Leave(ctx); err != nil {
		t.Fatalf("Leave() error: %v", err)
	}
	if a.Joined() {
		t.Error("adapter should report not joined after Leave")
	}

	// Leaving again is a no-op.
	if err := a.Leave(ctx); err != nil {
		t.Fatalf("second Leave() error: %v", err)
	}
	if client.leaveCalls != 1 {
		t.Errorf("client.Leave called %d times, want 1", client.leaveCalls)
	}
}

func TestFallbackDoubleJoinIsNoop(t *testing.T) {
	a := NewAdapter(nil, newRecordingSink(), logging.NewNop())
	a.connectDelay = 10 * time.Millisecond
	ctx := context.Background()

	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if err := a.Join(ctx, JoinRequest{}); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if err := a.Join(ctx, JoinRequest{}); err != nil {
		t.Fatalf("second Join() = %v, want nil no-op", err)
	}
}

func TestFallbackLeaveCancelsSimulatedConnect(t *testing.T) {
	sink := newRecordingSink()
	a := NewAdapter(nil, sink, logging.NewNop())
	a.connectDelay = 50 * time.Millisecond
	ctx := context.Background()

	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if err := a.Join(ctx, JoinRequest{}); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if err := a.Leave(ctx); err != nil {
		t.Fatalf("Leave() error: %v", err)
	}
	if a.Joined() {
		t.Error("adapter should report not joined after fallback Leave")
	}

	select {
	case st := <-sink.statuses:
		t.Errorf("got status %q after leave, want none", st)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCleanupSwallowsTeardownErrors(t *testing.T) {
	client := &fakeClient{leaveErr: errors.New("leave rpc failed"), closeErr: errors.New("teardown failed")}
	client.joined = true
	a := NewAdapter(client, newRecordingSink(), logging.NewNop())
	ctx := context.Background()

	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	a.Cleanup(ctx)
	if client.closeCalls != 1 {
		t.Errorf("client.Close called %d times, want 1", client.closeCalls)
	}

	// Cleanup must stay safe when repeated.
	a.Cleanup(ctx)
	if client.closeCalls != 2 {
		t.Errorf("client.Close called %d times after second cleanup, want 2", client.closeCalls)
	}
}
