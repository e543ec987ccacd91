// Package audio buffers meeting frames into voice chunks.
package audio

// Processing defaults and floors
const (
	// DefaultSampleRate is the target rate chunks are emitted at.
	DefaultSampleRate = 16000

	// DefaultChunkMs is how much audio accumulates before a chunk is cut.
	DefaultChunkMs = 5000

	// DefaultMaxSilenceMs is how much trailing silence ends a chunk early.
	DefaultMaxSilenceMs = 2000

	// DefaultVADThreshold is the mean absolute amplitude above which a
	// frame counts as voiced.
	DefaultVADThreshold = 500

	// minSilenceFlushMs is the least buffered audio a silence run may
	// cut; shorter runs keep accumulating.
	minSilenceFlushMs = 1000

	// minChunkDurationMs is the emit floor. Residue shorter than this is
	// discarded at flush time.
	minChunkDurationMs = 500

	// bytesPerSample matches 16-bit PCM.
	bytesPerSample = 2
)
