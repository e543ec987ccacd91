package meeting

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saleskit-io/meetbot/internal/logging"
)

// Adapter presents a uniform surface over the configured Client and keeps the
// process useful when no provider exists: in fallback mode joins are
// simulated and the meeting's own audio never arrives through this path
// (a cloud-recording or webhook pipeline delivers it out of band).
type Adapter struct {
	client Client // nil forces fallback
	sink   EventSink
	log    *logging.Logger

	fallback atomic.Bool
	joined   atomic.Bool

	connectDelay time.Duration
	timerMu      sync.Mutex
	connectTimer *time.Timer
}

// NewAdapter wires the configured client (nil for none) to the event sink.
func NewAdapter(client Client, sink EventSink, log *logging.Logger) *Adapter {
	return &Adapter{client: client, sink: sink, log: log, connectDelay: fallbackConnectDelay}
}

// Initialize never fails: a missing or broken provider drops the adapter into
// fallback mode so the run loop proceeds uniformly.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.client == nil {
		a.enterFallback("no provider configured", nil)
		return nil
	}
	if err := a.client.Initialize(ctx); err != nil {
		a.enterFallback("provider initialization failed", err)
		return nil
	}
	a.log.Info("meeting provider ready", logging.Fields{"provider": a.client.Name()})
	return nil
}

func (a *Adapter) enterFallback(reason string, err error) {
	a.fallback.Store(true)
	fields := logging.Fields{"reason": reason}
	if err != nil {
		fields["error"] = err.Error()
	}
	a.log.Warn("entering fallback mode, joins will be simulated", fields)
}

// Fallback reports whether the adapter is running in the degraded mode.
func (a *Adapter) Fallback() bool { return a.fallback.Load() }

// Join enters the meeting. Native failures propagate so the caller can
// retry; fallback joins succeed immediately and schedule a simulated
// connected signal shortly after.
func (a *Adapter) Join(ctx context.Context, req JoinRequest) error {
	if a.fallback.Load() {
		if !a.joined.CompareAndSwap(false, true) {
			return nil
		}
		a.log.Info("simulated join (fallback mode)", logging.Fields{"meetingId": req.MeetingID})
		a.timerMu.Lock()
		a.connectTimer = time.AfterFunc(a.connectDelay, func() {
			a.sink.OnStatus(StatusConnected)
		})
		a.timerMu.Unlock()
		return nil
	}
	if err := a.client.Join(ctx, req); err != nil {
		return err
	}
	a.joined.Store(true)
	return nil
}

// Leave is idempotent; leaving while not joined is a no-op.
func (a *Adapter) Leave(ctx context.Context) error {
	if a.fallback.Load() {
		if a.joined.CompareAndSwap(true, false) {
			a.stopConnectTimer()
			a.log.Info("simulated leave (fallback mode)")
		}
		return nil
	}
	if !a.joined.Swap(false) && !a.client.Joined() {
		return nil
	}
	return a.client.Leave(ctx)
}

// Joined is the ground truth the health check reconciles against: the
// provider's own view in native mode, the simulated state in fallback.
func (a *Adapter) Joined() bool {
	if a.fallback.Load() {
		return a.joined.Load()
	}
	return a.client.Joined()
}

// Cleanup leaves first, then tears the provider down. Teardown errors are
// logged and swallowed since the process is exiting regardless; safe to call
// repeatedly.
func (a *Adapter) Cleanup(ctx context.Context) {
	if err := a.Leave(ctx); err != nil {
		a.log.Warn("leave during cleanup failed", logging.Fields{"error": err.Error()})
	}
	a.stopConnectTimer()
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.log.Warn("provider teardown failed", logging.Fields{"error": err.Error()})
		}
	}
}

func (a *Adapter) stopConnectTimer() {
	a.timerMu.Lock()
	defer a.timerMu.Unlock()
	if a.connectTimer != nil {
		a.connectTimer.Stop()
		a.connectTimer = nil
	}
}
