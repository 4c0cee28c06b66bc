package wavfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWrite_ReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.wav")

	samples := []int16{0, 100, -100, 32767, -32768, 7}
	format := Format{SampleRate: 48000, BitsPerSample: 16, Channels: 1}

	if err := Write(path, samples, format); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open written file: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("Written file is not a valid WAV")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(buf.Data))
	}
	for i, want := range samples {
		if int16(buf.Data[i]) != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, buf.Data[i])
		}
	}
	if int(dec.SampleRate) != format.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", format.SampleRate, dec.SampleRate)
	}
	if int(dec.BitDepth) != format.BitsPerSample {
		t.Errorf("Expected bit depth %d, got %d", format.BitsPerSample, dec.BitDepth)
	}
	if int(dec.NumChans) != format.Channels {
		t.Errorf("Expected %d channel(s), got %d", format.Channels, dec.NumChans)
	}
}

func TestWrite_CreatesCategoryDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "OK", "sample_1.wav")

	if err := Write(path, []int16{1, 2, 3}, Format{SampleRate: 48000, BitsPerSample: 16, Channels: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected file at %s: %v", path, err)
	}
}

func TestWrite_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.wav")

	if err := Write(path, []int16{42}, Format{SampleRate: 48000, BitsPerSample: 16, Channels: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be renamed away")
	}
}

func TestWrite_FailureLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()

	// Occupy the parent path with a regular file so MkdirAll fails.
	blocker := filepath.Join(dir, "OK")
	if err := os.WriteFile(blocker, []byte("in the way"), 0644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(blocker, "sample_1.wav")
	err := Write(path, []int16{1}, Format{SampleRate: 48000, BitsPerSample: 16, Channels: 1})
	if err == nil {
		t.Fatal("Expected write to fail")
	}
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Expected ErrWriteFailed, got %v", err)
	}
	// Stat through a file-as-directory yields ENOTDIR on Linux rather than
	// ENOENT, so only assert that nothing exists at the target path.
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("Expected no file at the target path after failure")
	}
}
