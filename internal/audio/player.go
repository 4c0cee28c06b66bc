package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// PlayFile plays a recorded WAV take through the default output device,
// blocking until playback completes. Expects the host to be initialized.
func PlayFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open take: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return fmt.Errorf("empty WAV file: %s", path)
	}

	out := make([]int16, DefaultFramesPerBlock*buf.Format.NumChannels)
	stream, err := portaudio.OpenDefaultStream(
		0, buf.Format.NumChannels, float64(buf.Format.SampleRate), DefaultFramesPerBlock, &out)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	for offset := 0; offset < len(buf.Data); offset += len(out) {
		n := copy(out, int16Chunk(buf.Data[offset:min(offset+len(out), len(buf.Data))]))
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("playback write failed: %w", err)
		}
	}
	return nil
}

func int16Chunk(data []int) []int16 {
	chunk := make([]int16, len(data))
	for i, v := range data {
		chunk[i] = int16(v)
	}
	return chunk
}
