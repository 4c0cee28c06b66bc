// Package wavfile serializes captured PCM sample buffers into WAV containers.
package wavfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrWriteFailed indicates the take could not be durably written. The
// target path is untouched; callers may retry with the same path.
var ErrWriteFailed = errors.New("wav write failed")

// Format is the PCM layout of the samples being written.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// Write serializes samples as a canonical RIFF/WAVE file at path. The write
// is atomic from the consumer's point of view: the encoder targets a
// temporary file in the same directory which is fsynced and renamed into
// place, so a crash mid-write never leaves a truncated file at path.
func Write(path string, samples []int16, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: creating output directory: %v", ErrWriteFailed, err)
	}

	tmp := path + ".tmp"
	if err := writeFile(tmp, samples, format); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: finalizing %s: %v", ErrWriteFailed, path, err)
	}
	// The rename itself must also survive a crash, which needs the parent
	// directory synced. The file is already on disk, so a failure here is
	// reported and the caller retries onto the same path.
	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: syncing directory for %s: %v", ErrWriteFailed, path, err)
	}

	slog.Debug("take written", "path", path, "samples", len(samples),
		"sample_rate", format.SampleRate)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func writeFile(path string, samples []int16, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrWriteFailed, path, err)
	}

	enc := wav.NewEncoder(f, format.SampleRate, format.BitsPerSample, format.Channels, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: format.BitsPerSample,
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("%w: encoding samples: %v", ErrWriteFailed, err)
	}
	// Close patches the RIFF and data chunk sizes in the header.
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("%w: finalizing header: %v", ErrWriteFailed, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: syncing %s: %v", ErrWriteFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrWriteFailed, path, err)
	}
	return nil
}
