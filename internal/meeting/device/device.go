// Package device captures meeting audio from a local input device.
//
// It backs MEETING_PROVIDER=device, where the bot sits in the room
// instead of on the wire: audio comes from a microphone or a loopback
// device rather than from a meeting gateway. There is no roster, so
// the client never emits participant or speaker events.
package device

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/saleskit-io/meetbot/internal/errors"
	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
)

// Config selects and shapes the capture stream.
type Config struct {
	SampleRate int
	Channels   int
	FrameMs    int
	// DeviceHint narrows device selection to names containing the hint.
	// Empty means pick the best available microphone.
	DeviceHint string
}

// Client implements meeting.Client over a portaudio input stream.
type Client struct {
	cfg  Config
	sink meeting.EventSink
	log  *logging.Logger

	mu          sync.Mutex
	stream      *portaudio.Stream
	cancel      context.CancelFunc
	joined      bool
	initialized bool
}

// New creates a device capture client. Initialize must be called
// before Join.
func New(cfg Config, sink meeting.EventSink, log *logging.Logger) *Client {
	return &Client{cfg: cfg, sink: sink, log: log}
}

// Name identifies the provider in logs and health payloads.
func (c *Client) Name() string { return "device" }

// Initialize brings up the portaudio host API.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeProviderUnavailable, "portaudio initialization failed")
	}
	c.initialized = true
	return nil
}

// Join opens the capture stream and starts pumping frames to the sink.
// The JoinRequest is accepted for interface symmetry; device capture
// has no meeting to dial into.
func (c *Client) Join(ctx context.Context, req meeting.JoinRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined {
		return nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeProviderUnavailable, "device enumeration failed")
	}

	dev := pickDevice(devices, c.cfg.DeviceHint, c.cfg.Channels)
	if dev == nil {
		return apperrors.New(apperrors.CodeProviderUnavailable, "no usable capture device").
			WithMetadata("hint", c.cfg.DeviceHint)
	}

	framesPerBuf := c.cfg.SampleRate * c.cfg.FrameMs / 1000
	buf := make([]float32, framesPerBuf*c.cfg.Channels)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: c.cfg.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: framesPerBuf,
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeJoinFailed, "opening capture stream failed").
			WithMetadata("device", dev.Name)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return apperrors.Wrap(err, apperrors.CodeJoinFailed, "starting capture stream failed").
			WithMetadata("device", dev.Name)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c.stream = stream
	c.cancel = cancel
	c.joined = true

	c.log.Info("capture device opened", logging.Fields{
		"device":     dev.Name,
		"sampleRate": c.cfg.SampleRate,
		"channels":   c.cfg.Channels,
	})

	go c.readLoop(readCtx, stream, buf, dev.Name)
	c.sink.OnStatus(meeting.StatusConnected)
	return nil
}

func (c *Client) readLoop(ctx context.Context, stream *portaudio.Stream, buf []float32, deviceName string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			c.mu.Lock()
			stillJoined := c.joined
			c.mu.Unlock()
			if stillJoined {
				c.log.Warn("capture stream read failed", logging.Fields{
					"device": deviceName,
					"error":  err.Error(),
				})
				c.sink.OnStatus(meeting.StatusDisconnected)
			}
			return
		}

		c.sink.OnAudio(meeting.Frame{
			Data:       samplesToPCM(buf),
			SampleRate: c.cfg.SampleRate,
			Channels:   c.cfg.Channels,
			Timestamp:  time.Now(),
		})
	}
}

// Leave stops the capture stream. Safe to call when not joined.
func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.joined {
		return nil
	}
	c.joined = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			c.log.Warn("stopping capture stream failed", logging.Fields{"error": err.Error()})
		}
		if err := c.stream.Close(); err != nil {
			c.log.Warn("closing capture stream failed", logging.Fields{"error": err.Error()})
		}
		c.stream = nil
	}
	return nil
}

// Joined reports whether the capture stream is running.
func (c *Client) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// Close tears down the portaudio host API.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil
	}
	c.initialized = false
	return portaudio.Terminate()
}

func pickDevice(devices []*portaudio.DeviceInfo, hint string, channels int) *portaudio.DeviceInfo {
	var fallback *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < channels {
			continue
		}
		if hint != "" {
			if containsFold(dev.Name, hint) {
				return dev
			}
			continue
		}
		switch classifyDevice(dev.Name) {
		case sourceMicrophone:
			return dev
		case sourceLoopback:
			// Loopbacks only as a last resort; they usually carry
			// playback, not the room.
			if fallback == nil {
				fallback = dev
			}
		}
	}
	return fallback
}

const (
	sourceMicrophone = "microphone"
	sourceLoopback   = "loopback"
	sourceUnknown    = ""
)

// classifyDevice buckets a device by name. Loopback devices
// (BlackHole, VB-Cable and friends) replay system output and are
// deprioritized unless explicitly hinted.
func classifyDevice(name string) string {
	loopbackKeywords := []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"}
	for _, kw := range loopbackKeywords {
		if containsFold(name, kw) {
			return sourceLoopback
		}
	}

	micKeywords := []string{"microphone", "input", "mic", "built-in"}
	for _, kw := range micKeywords {
		if containsFold(name, kw) {
			return sourceMicrophone
		}
	}

	return sourceUnknown
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// samplesToPCM converts float32 samples in [-1, 1] to little-endian
// 16-bit PCM, clamping out-of-range values.
func samplesToPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}
