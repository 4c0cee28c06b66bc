package audio

import "math"

// maxSampleValue is the maximum representable amplitude for 16-bit signed audio.
const maxSampleValue = 32767.0

// Band classifies a normalized level for meter coloring.
type Band string

const (
	BandLow    Band = "low"    // [0.0, 0.5)
	BandMedium Band = "medium" // [0.5, 0.8)
	BandHigh   Band = "high"   // [0.8, 1.0]
)

// LevelReading is the normalized loudness of a single FrameBlock.
// Peak and RMS are both in [0.0, 1.0]; Band is derived from Peak.
type LevelReading struct {
	Peak float64 `json:"peak"`
	RMS  float64 `json:"rms"`
	Band Band    `json:"band"`
}

// ComputeLevel measures peak and RMS amplitude for one block. It is a pure
// function with no shared state and is safe to call concurrently.
func ComputeLevel(block FrameBlock) LevelReading {
	if len(block.Samples) == 0 {
		return LevelReading{Band: BandLow}
	}

	var peak, sumSquares float64
	for _, s := range block.Samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(len(block.Samples)))

	reading := LevelReading{
		Peak: clampUnit(peak / maxSampleValue),
		RMS:  clampUnit(rms / maxSampleValue),
	}
	reading.Band = bandFor(reading.Peak)
	return reading
}

func bandFor(level float64) Band {
	switch {
	case level < 0.5:
		return BandLow
	case level < 0.8:
		return BandMedium
	default:
		return BandHigh
	}
}

// clampUnit clamps to [0, 1]. A full-scale negative sample (-32768) would
// otherwise normalize slightly above 1.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
