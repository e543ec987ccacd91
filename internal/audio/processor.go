package audio

import (
	"sync"
	"time"

	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
)

// Chunk is a finished stretch of meeting audio, mono 16-bit PCM at the
// processor's target rate.
type Chunk struct {
	Data       []byte
	SampleRate int
	DurationMs float64
	Timestamp  time.Time
}

// EmitFunc receives finished chunks on the caller's goroutine.
type EmitFunc func(Chunk)

// Config shapes processing. Zero durations and rates fall back to
// defaults; a zero VADThreshold is kept as configured and counts any
// nonzero signal as voice.
type Config struct {
	SampleRate   int
	ChunkMs      int
	MaxSilenceMs int
	VADThreshold int
}

// Processor accumulates frames and cuts chunks on two triggers: the
// buffer reaching ChunkMs, or MaxSilenceMs of trailing silence once
// enough audio is buffered. Frames are normalized to mono at the
// target rate on the way in.
type Processor struct {
	cfg  Config
	emit EmitFunc
	log  *logging.Logger

	mu         sync.Mutex
	buffers    [][]byte
	bufferedMs float64
	silenceMs  float64
}

// NewProcessor creates a processor delivering chunks to emit.
func NewProcessor(cfg Config, emit EmitFunc, log *logging.Logger) *Processor {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.ChunkMs == 0 {
		cfg.ChunkMs = DefaultChunkMs
	}
	if cfg.MaxSilenceMs == 0 {
		cfg.MaxSilenceMs = DefaultMaxSilenceMs
	}
	return &Processor{cfg: cfg, emit: emit, log: log}
}

// AddFrame normalizes and buffers one frame, cutting a chunk when a
// flush trigger fires.
func (p *Processor) AddFrame(frame meeting.Frame) {
	data := frame.Data
	if frame.Channels > 1 {
		data = DownmixMono(data, frame.Channels)
	}
	if frame.SampleRate > 0 && frame.SampleRate != p.cfg.SampleRate {
		data = Resample(data, frame.SampleRate, p.cfg.SampleRate)
	}
	if len(data) == 0 {
		return
	}

	p.mu.Lock()
	frameMs := DurationMs(len(data), p.cfg.SampleRate)
	if DetectVoice(data, p.cfg.VADThreshold) {
		p.silenceMs = 0
	} else {
		p.silenceMs += frameMs
	}

	p.buffers = append(p.buffers, data)
	p.bufferedMs += frameMs

	var chunk *Chunk
	full := p.bufferedMs >= float64(p.cfg.ChunkMs)
	silent := p.silenceMs >= float64(p.cfg.MaxSilenceMs) && p.bufferedMs > minSilenceFlushMs
	if full || silent {
		chunk = p.cutLocked()
	}
	p.mu.Unlock()

	if chunk != nil {
		p.emit(*chunk)
	}
}

// Flush cuts whatever is buffered. Residue under the emit floor is
// discarded; the buffer resets either way. No-op when empty.
func (p *Processor) Flush() {
	p.mu.Lock()
	chunk := p.cutLocked()
	p.mu.Unlock()

	if chunk != nil {
		p.emit(*chunk)
	}
}

// ForceFlush drains the buffer at end of session. The emit floor still
// applies, so sub-half-second residue is dropped rather than emitted.
func (p *Processor) ForceFlush() { p.Flush() }

// BufferedMs reports how much audio is waiting for the next cut.
func (p *Processor) BufferedMs() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufferedMs
}

// cutLocked concatenates and resets the buffer. Returns nil when the
// buffer is empty or the result falls under the emit floor.
func (p *Processor) cutLocked() *Chunk {
	if len(p.buffers) == 0 {
		return nil
	}

	total := 0
	for _, b := range p.buffers {
		total += len(b)
	}
	data := make([]byte, 0, total)
	for _, b := range p.buffers {
		data = append(data, b...)
	}

	p.buffers = nil
	p.bufferedMs = 0
	p.silenceMs = 0

	if total < p.minChunkBytes() {
		p.log.Debug("discarding audio residue under emit floor", logging.Fields{
			"bytes": total,
		})
		return nil
	}

	return &Chunk{
		Data:       data,
		SampleRate: p.cfg.SampleRate,
		DurationMs: DurationMs(total, p.cfg.SampleRate),
		Timestamp:  time.Now(),
	}
}

func (p *Processor) minChunkBytes() int {
	return p.cfg.SampleRate * bytesPerSample * minChunkDurationMs / 1000
}
