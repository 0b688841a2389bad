package wavesynth

import "math"

// DefaultBlockSize matches a typical device period.
const DefaultBlockSize = 512

// RenderSamples pulls frames samples from s in blocks of blockSize, the way
// an audio device would.
func RenderSamples(s *Synth, frames, blockSize int) []int16 {
	if frames <= 0 {
		return nil
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	out := make([]int16, frames)
	for off := 0; off < frames; off += blockSize {
		s.Render(out[off:min(off+blockSize, frames)])
	}
	return out
}

// Peak returns the largest sample magnitude.
func Peak(samples []int16) int {
	peak := 0
	for _, v := range samples {
		peak = max(peak, int(math.Abs(float64(v))))
	}
	return peak
}

// EstimateFrequency counts rising zero crossings. It is only meaningful for
// simple periodic signals.
func EstimateFrequency(samples []int16, sampleRate int) float64 {
	if len(samples) < 2 || sampleRate <= 0 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if samples[i-1] < 0 && samples[i] >= 0 {
			crossings++
		}
	}
	return float64(crossings) * float64(sampleRate) / float64(len(samples))
}
