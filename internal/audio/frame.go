package audio

import "time"

// FrameBlock is one fixed-size chunk of consecutively captured mono samples.
// Blocks are produced by the capture engine with strictly increasing,
// gapless sequence numbers while a stream is open. Consumers must treat
// the sample slice as read-only.
type FrameBlock struct {
	Seq     uint64
	Time    time.Time
	Samples []int16
}

// Duration returns the wall-clock length of the block at the given sample rate.
func (b FrameBlock) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(sampleRate)
}
