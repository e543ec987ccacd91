package audio

import "encoding/binary"

// DurationMs reports the playback duration of mono 16-bit PCM.
func DurationMs(byteLen, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(byteLen) / float64(sampleRate*bytesPerSample) * 1000
}

// DetectVoice reports whether the mean absolute sample amplitude
// exceeds the threshold. Input too short for a full sample is silence.
func DetectVoice(pcm []byte, threshold int) bool {
	n := len(pcm) / bytesPerSample
	if n == 0 {
		return false
	}

	var sum int64
	for i := 0; i < n; i++ {
		s := int64(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
		if s < 0 {
			s = -s
		}
		sum += s
	}

	return float64(sum)/float64(n) > float64(threshold)
}

// Resample converts 16-bit PCM between rates by nearest-neighbor
// sample picking. Equal or non-positive rates return the input
// unchanged. Interleaved multi-channel input must be downmixed first.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return pcm
	}

	inSamples := len(pcm) / bytesPerSample
	outSamples := inSamples * toRate / fromRate
	out := make([]byte, outSamples*bytesPerSample)

	for i := 0; i < outSamples; i++ {
		src := i * fromRate / toRate
		if src >= inSamples {
			src = inSamples - 1
		}
		copy(out[i*bytesPerSample:(i+1)*bytesPerSample], pcm[src*bytesPerSample:])
	}

	return out
}

// DownmixMono averages interleaved channels into mono 16-bit PCM.
// Mono input passes through. Trailing bytes short of a full sample
// group are dropped.
func DownmixMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}

	groupBytes := channels * bytesPerSample
	groups := len(pcm) / groupBytes
	out := make([]byte, groups*bytesPerSample)

	for g := 0; g < groups; g++ {
		base := g * groupBytes
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += int(int16(binary.LittleEndian.Uint16(pcm[base+ch*bytesPerSample:])))
		}
		binary.LittleEndian.PutUint16(out[g*bytesPerSample:], uint16(int16(sum/channels)))
	}

	return out
}
