package audio

import (
	"testing"
	"time"

	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
)

const testRate = 16000

func voicedFrame(ms int) meeting.Frame {
	return meeting.Frame{
		Data:       pcmConst(4000, testRate*ms/1000),
		SampleRate: testRate,
		Channels:   1,
		Timestamp:  time.Now(),
	}
}

func silentFrame(ms int) meeting.Frame {
	return meeting.Frame{
		Data:       pcmConst(0, testRate*ms/1000),
		SampleRate: testRate,
		Channels:   1,
		Timestamp:  time.Now(),
	}
}

func newTestProcessor(cfg Config) (*Processor, *[]Chunk) {
	chunks := &[]Chunk{}
	p := NewProcessor(cfg, func(c Chunk) { *chunks = append(*chunks, c) }, logging.NewNop())
	return p, chunks
}

func TestNewProcessorDefaults(t *testing.T) {
	p, _ := newTestProcessor(Config{})

	if p.cfg.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", p.cfg.SampleRate, DefaultSampleRate)
	}
	if p.cfg.ChunkMs != DefaultChunkMs {
		t.Errorf("ChunkMs = %d, want %d", p.cfg.ChunkMs, DefaultChunkMs)
	}
	if p.cfg.MaxSilenceMs != DefaultMaxSilenceMs {
		t.Errorf("MaxSilenceMs = %d, want %d", p.cfg.MaxSilenceMs, DefaultMaxSilenceMs)
	}
	if p.cfg.VADThreshold != 0 {
		t.Errorf("VADThreshold = %d, want 0 kept as configured", p.cfg.VADThreshold)
	}
}

func TestChunkCutAtTargetDuration(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, ChunkMs: 5000, MaxSilenceMs: 2000, VADThreshold: 500})

	for i := 0; i < 50; i++ {
		p.AddFrame(voicedFrame(100))
	}

	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	c := (*chunks)[0]
	if c.DurationMs != 5000 {
		t.Errorf("duration = %v, want 5000", c.DurationMs)
	}
	if len(c.Data) != 160000 {
		t.Errorf("data bytes = %d, want 160000", len(c.Data))
	}
	if c.SampleRate != testRate {
		t.Errorf("sample rate = %d, want %d", c.SampleRate, testRate)
	}
	if c.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
	if got := p.BufferedMs(); got != 0 {
		t.Errorf("buffered after cut = %v, want 0", got)
	}
}

func TestTrailingSilenceCutsEarly(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, ChunkMs: 5000, MaxSilenceMs: 2000, VADThreshold: 500})

	for i := 0; i < 15; i++ {
		p.AddFrame(voicedFrame(100))
	}
	for i := 0; i < 20; i++ {
		p.AddFrame(silentFrame(100))
	}

	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	if got := (*chunks)[0].DurationMs; got != 3500 {
		t.Errorf("duration = %v, want 3500 (speech plus trailing silence)", got)
	}
}

func TestVoiceResetsSilenceRun(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, ChunkMs: 5000, MaxSilenceMs: 2000, VADThreshold: 500})

	for i := 0; i < 19; i++ {
		p.AddFrame(silentFrame(100))
	}
	p.AddFrame(voicedFrame(100))
	for i := 0; i < 20; i++ {
		p.AddFrame(silentFrame(100))
	}

	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	if got := (*chunks)[0].DurationMs; got != 4000 {
		t.Errorf("duration = %v, want 4000", got)
	}
}

func TestSilenceCutWaitsForMinimumBuffer(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, ChunkMs: 5000, MaxSilenceMs: 500, VADThreshold: 500})

	// Silence passes MaxSilenceMs at 500ms buffered, but a cut needs
	// more than a second in the buffer.
	for i := 0; i < 10; i++ {
		p.AddFrame(silentFrame(100))
	}
	if len(*chunks) != 0 {
		t.Fatalf("chunks = %d before minimum buffer, want 0", len(*chunks))
	}

	p.AddFrame(silentFrame(100))
	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	if got := (*chunks)[0].DurationMs; got != 1100 {
		t.Errorf("duration = %v, want 1100", got)
	}
}

func TestFlushEmitsRemainder(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, VADThreshold: 500})

	for i := 0; i < 7; i++ {
		p.AddFrame(voicedFrame(100))
	}
	p.Flush()

	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	if got := (*chunks)[0].DurationMs; got != 700 {
		t.Errorf("duration = %v, want 700", got)
	}
}

func TestFlushDropsResidueUnderFloor(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, VADThreshold: 500})

	for i := 0; i < 3; i++ {
		p.AddFrame(voicedFrame(100))
	}
	p.Flush()

	if len(*chunks) != 0 {
		t.Fatalf("chunks = %d, want 0 for 300ms residue", len(*chunks))
	}
	if got := p.BufferedMs(); got != 0 {
		t.Errorf("buffered after flush = %v, want 0 even when residue is dropped", got)
	}
}

func TestFlushOnEmptyBufferIsNoop(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, VADThreshold: 500})

	p.Flush()
	p.Flush()

	if len(*chunks) != 0 {
		t.Errorf("chunks = %d, want 0", len(*chunks))
	}
}

func TestStereoFramesDownmixedOnIngest(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, ChunkMs: 5000, MaxSilenceMs: 2000, VADThreshold: 500})

	for i := 0; i < 50; i++ {
		perChannel := testRate / 10
		p.AddFrame(meeting.Frame{
			Data:       pcmConst(4000, perChannel*2),
			SampleRate: testRate,
			Channels:   2,
			Timestamp:  time.Now(),
		})
	}

	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	c := (*chunks)[0]
	if c.DurationMs != 5000 {
		t.Errorf("duration = %v, want 5000", c.DurationMs)
	}
	if len(c.Data) != 160000 {
		t.Errorf("data bytes = %d, want 160000 mono bytes", len(c.Data))
	}
}

func TestHighRateFramesResampledOnIngest(t *testing.T) {
	p, chunks := newTestProcessor(Config{SampleRate: testRate, ChunkMs: 5000, MaxSilenceMs: 2000, VADThreshold: 500})

	for i := 0; i < 50; i++ {
		p.AddFrame(meeting.Frame{
			Data:       pcmConst(4000, 4800),
			SampleRate: 48000,
			Channels:   1,
			Timestamp:  time.Now(),
		})
	}

	if len(*chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(*chunks))
	}
	if got := (*chunks)[0].DurationMs; got != 5000 {
		t.Errorf("duration = %v, want 5000 after resample to 16kHz", got)
	}
}

func TestBufferedMsTracksIngest(t *testing.T) {
	p, _ := newTestProcessor(Config{SampleRate: testRate, VADThreshold: 500})

	for i := 0; i < 3; i++ {
		p.AddFrame(voicedFrame(100))
	}

	if got := p.BufferedMs(); got != 300 {
		t.Errorf("buffered = %v, want 300", got)
	}
}
