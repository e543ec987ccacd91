// Package rtms streams meeting media from a realtime media gateway
// over a single websocket: JSON text frames carry session control and
// roster events, binary frames carry raw 16-bit PCM.
package rtms

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"

	apperrors "github.com/saleskit-io/meetbot/internal/errors"
	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
	"github.com/saleskit-io/meetbot/internal/syncx"
)

// Config carries gateway credentials and the media shape to request.
// Either JWT or the SDKKey/SDKSecret pair must be set.
type Config struct {
	GatewayURL string
	SDKKey     string
	SDKSecret  string
	JWT        string
	SampleRate int
	Channels   int
	FrameMs    int
}

// session is the per-connection state, swapped atomically as a unit so
// leave and disconnect paths cannot observe it half-torn-down.
type session struct {
	joined bool
	id     string
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// Client implements meeting.Client against a media gateway.
type Client struct {
	cfg      Config
	sink     meeting.EventSink
	log      *logging.Logger
	clientID string

	session *syncx.Guard[session]

	// ring re-frames gateway bursts into fixed frames. Only the read
	// loop touches it.
	ring     *ringbuffer.RingBuffer
	evictBuf []byte
}

// New creates a gateway client. Initialize must be called before Join.
func New(cfg Config, sink meeting.EventSink, log *logging.Logger) *Client {
	return &Client{
		cfg:      cfg,
		sink:     sink,
		log:      log,
		clientID: uuid.NewString(),
		session:  syncx.NewGuard(session{}),
		ring:     ringbuffer.New(ringCapacity).SetBlocking(false),
		evictBuf: make([]byte, frameBytes(cfg)),
	}
}

// Name identifies the provider in logs and health payloads.
func (c *Client) Name() string { return "rtms" }

// Initialize validates the configuration. The connection is dialed per
// join so a failed meeting can be retried from scratch.
func (c *Client) Initialize(ctx context.Context) error {
	if c.cfg.GatewayURL == "" {
		return apperrors.New(apperrors.CodeConfigMissing, "gateway URL is required")
	}
	if c.cfg.JWT == "" && (c.cfg.SDKKey == "" || c.cfg.SDKSecret == "") {
		return apperrors.New(apperrors.CodeConfigMissing, "gateway auth requires a JWT or an SDK key and secret")
	}
	if c.cfg.SampleRate <= 0 || c.cfg.Channels <= 0 || c.cfg.FrameMs <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "audio shape must be positive").
			WithMetadata("sampleRate", strconv.Itoa(c.cfg.SampleRate)).
			WithMetadata("channels", strconv.Itoa(c.cfg.Channels))
	}
	return nil
}

// Join dials the gateway, opens a media session and starts the read
// loop. It returns once the gateway acknowledges the join.
func (c *Client) Join(ctx context.Context, req meeting.JoinRequest) error {
	if c.Joined() {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.cfg.GatewayURL, nil)
	cancel()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeGateway, "gateway dial failed").
			WithMetadata("url", c.cfg.GatewayURL)
	}
	conn.SetReadLimit(readLimit)

	token := req.AuthToken
	if token == "" {
		token = signToken(c.cfg.SDKKey, c.cfg.SDKSecret, req.MeetingID, time.Now())
	}

	join := joinFrame{
		Action:      actionJoin,
		MeetingID:   req.MeetingID,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Token:       token,
		ClientID:    c.clientID,
		Audio: audioParams{
			SampleRate: c.cfg.SampleRate,
			Channels:   c.cfg.Channels,
		},
	}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		conn.CloseNow()
		return apperrors.Wrap(err, apperrors.CodeGateway, "sending join frame failed")
	}

	sessionID, err := c.awaitJoinAck(ctx, conn)
	if err != nil {
		conn.CloseNow()
		return err
	}

	readCtx, readCancel := context.WithCancel(context.Background())
	c.ring.Reset()
	c.session.Set(session{joined: true, id: sessionID, conn: conn, cancel: readCancel})

	c.log.Info("media session established", logging.Fields{
		"sessionId": sessionID,
		"meetingId": req.MeetingID,
	})

	go c.readLoop(readCtx, conn)
	c.sink.OnStatus(meeting.StatusConnected)
	return nil
}

// awaitJoinAck consumes frames until the gateway accepts or rejects
// the join. Media and roster events arriving early are discarded.
func (c *Client) awaitJoinAck(ctx context.Context, conn *websocket.Conn) (string, error) {
	ackCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	for {
		typ, data, err := conn.Read(ackCtx)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeJoinFailed, "no join acknowledgement from gateway")
		}
		if typ != websocket.MessageText {
			continue
		}

		var evt gatewayEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		switch evt.Event {
		case eventSessionJoined:
			if evt.Code != 0 {
				return "", apperrors.New(apperrors.CodeJoinFailed, "gateway rejected join: "+evt.Message).
					WithMetadata("code", strconv.Itoa(evt.Code))
			}
			return evt.SessionID, nil
		case eventSessionEnded:
			return "", apperrors.New(apperrors.CodeJoinFailed, "meeting ended before join completed")
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		switch typ {
		case websocket.MessageBinary:
			c.ingest(data)
		case websocket.MessageText:
			c.handleEvent(data)
		}
	}
}

// ingest buffers a media burst and cuts it into fixed frames. When the
// ring cannot absorb the burst, the oldest audio is shed first.
func (c *Client) ingest(data []byte) {
	if len(data) > c.ring.Capacity() {
		data = data[len(data)-c.ring.Capacity():]
	}

	shed := 0
	for c.ring.Free() < len(data) {
		if c.ring.IsEmpty() {
			break
		}
		n, err := c.ring.Read(c.evictBuf)
		if err != nil {
			c.ring.Reset()
			break
		}
		shed += n
	}
	if shed > 0 {
		c.log.Warn("media ring full, shed oldest audio", logging.Fields{
			"bytes": shed,
		})
	}

	if _, err := c.ring.Write(data); err != nil {
		c.log.Warn("dropping media burst", logging.Fields{
			"bytes": len(data),
			"error": err.Error(),
		})
		return
	}

	size := frameBytes(c.cfg)
	for c.ring.Length() >= size {
		frame := make([]byte, size)
		if _, err := c.ring.Read(frame); err != nil {
			return
		}
		c.sink.OnAudio(meeting.Frame{
			Data:       frame,
			SampleRate: c.cfg.SampleRate,
			Channels:   c.cfg.Channels,
			Timestamp:  time.Now(),
		})
	}
}

func (c *Client) handleEvent(data []byte) {
	var evt gatewayEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		c.log.Debug("unparseable gateway event", logging.Fields{"error": err.Error()})
		return
	}

	switch evt.Event {
	case eventParticipantJoined:
		if evt.Participant == nil {
			return
		}
		c.sink.OnParticipant(meeting.ParticipantEvent{
			Action:      meeting.ActionJoined,
			Participant: participantFromWire(evt.Participant),
		})
	case eventParticipantLeft:
		if evt.Participant == nil {
			return
		}
		c.sink.OnParticipant(meeting.ParticipantEvent{
			Action:      meeting.ActionLeft,
			Participant: participantFromWire(evt.Participant),
		})
	case eventSpeakerActive:
		if evt.Speaker == nil {
			return
		}
		c.sink.OnActiveSpeaker(evt.Speaker.ID, evt.Speaker.Name)
	case eventSessionEnded:
		c.log.Info("gateway ended the session", logging.Fields{"reason": evt.Message})
		prev := c.session.Swap(session{})
		if prev.cancel != nil {
			prev.cancel()
		}
		if prev.conn != nil {
			prev.conn.CloseNow()
		}
		if prev.joined {
			c.sink.OnStatus(meeting.StatusDisconnected)
		}
	default:
		c.log.Debug("ignoring gateway event", logging.Fields{"event": evt.Event})
	}
}

// handleDisconnect runs when the read loop dies. A deliberate leave
// empties the session first, so only unexpected drops reach the sink.
func (c *Client) handleDisconnect(err error) {
	prev := c.session.Swap(session{})
	if prev.cancel != nil {
		prev.cancel()
	}
	if !prev.joined {
		return
	}
	if prev.conn != nil {
		prev.conn.CloseNow()
	}

	c.log.Warn("gateway connection lost", logging.Fields{
		"sessionId": prev.id,
		"error":     err.Error(),
	})
	c.sink.OnStatus(meeting.StatusDisconnected)
}

// Leave sends a goodbye and tears the session down. Safe to call when
// not joined.
func (c *Client) Leave(ctx context.Context) error {
	prev := c.session.Swap(session{})
	if !prev.joined {
		return nil
	}
	if prev.conn != nil {
		// The goodbye goes out before the read loop is canceled:
		// canceling a pending Read tears the whole connection down.
		// Shutdown often arrives with an already-canceled context, so
		// the write gets its own deadline.
		writeCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		_ = wsjson.Write(writeCtx, prev.conn, leaveFrame{Action: actionLeave})
		cancel()
		_ = prev.conn.Close(websocket.StatusNormalClosure, "leaving")
	}
	if prev.cancel != nil {
		prev.cancel()
	}
	return nil
}

// Joined reports whether a media session is up.
func (c *Client) Joined() bool {
	return c.session.Get().joined
}

// Close tears down any live session without the goodbye handshake.
func (c *Client) Close() error {
	prev := c.session.Swap(session{})
	var err error
	if prev.conn != nil {
		err = prev.conn.Close(websocket.StatusNormalClosure, "shutting down")
	}
	if prev.cancel != nil {
		prev.cancel()
	}
	return err
}

func participantFromWire(p *wireParticipant) meeting.Participant {
	return meeting.Participant{ID: p.ID, Name: p.Name, Email: p.Email, IsHost: p.IsHost}
}

// signToken derives a gateway token from the SDK credentials: the key
// and a unix timestamp in the clear, then an HMAC-SHA256 of
// "meetingID.timestamp" under the secret.
func signToken(key, secret, meetingID string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(meetingID + "." + ts))
	return key + "." + ts + "." + hex.EncodeToString(mac.Sum(nil))
}

func frameBytes(cfg Config) int {
	n := cfg.SampleRate * cfg.Channels * 2 * cfg.FrameMs / 1000
	if n <= 0 {
		n = 2
	}
	return n
}
