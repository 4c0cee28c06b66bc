package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// fakeHost drives the engine without audio hardware. Its stream delivers no
// callbacks, so the watchdog sees a silent device.
type fakeHost struct {
	mu     sync.Mutex
	stream *fakeStream
}

func (h *fakeHost) inputDevice(id int) (*portaudio.DeviceInfo, error) {
	return &portaudio.DeviceInfo{Name: "fake mic", MaxInputChannels: 1, DefaultSampleRate: 48000}, nil
}

func (h *fakeHost) supportsFormat(params portaudio.StreamParameters, args ...interface{}) error {
	return nil
}

func (h *fakeHost) openStream(params portaudio.StreamParameters, callback func([]int16)) (inputStream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stream = &fakeStream{}
	return h.stream, nil
}

func (h *fakeHost) lastStream() *fakeStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream
}

type fakeStream struct {
	mu      sync.Mutex
	started bool
	stopped bool
	aborted bool
	closed  bool
}

func (s *fakeStream) Start() error { s.mu.Lock(); defer s.mu.Unlock(); s.started = true; return nil }
func (s *fakeStream) Stop() error  { s.mu.Lock(); defer s.mu.Unlock(); s.stopped = true; return nil }
func (s *fakeStream) Abort() error { s.mu.Lock(); defer s.mu.Unlock(); s.aborted = true; return nil }
func (s *fakeStream) Close() error { s.mu.Lock(); defer s.mu.Unlock(); s.closed = true; return nil }

type streamCalls struct {
	started, stopped, aborted, closed bool
}

func (s *fakeStream) calls() streamCalls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return streamCalls{started: s.started, stopped: s.stopped, aborted: s.aborted, closed: s.closed}
}

// State transition guards are checked before any driver call, so they are
// testable without audio hardware.

func TestEngine_StartRequiresOpen(t *testing.T) {
	e := NewEngine()
	if err := e.Start(func(FrameBlock) {}, nil); err == nil {
		t.Error("Expected error starting a closed engine")
	}
	if e.StateNow() != StateClosed {
		t.Errorf("Expected engine to stay CLOSED, got %s", e.StateNow())
	}
}

func TestEngine_StopRequiresStreaming(t *testing.T) {
	e := NewEngine()
	if err := e.Stop(); err == nil {
		t.Error("Expected error stopping a non-streaming engine")
	}
}

func TestEngine_OpenRejectsNonMono(t *testing.T) {
	e := NewEngine()
	err := e.Open(-1, Format{SampleRate: 48000, BitsPerSample: 16, Channels: 2})
	if err == nil {
		t.Fatal("Expected error for stereo format")
	}
	if e.StateNow() != StateClosed {
		t.Errorf("Expected engine to stay CLOSED after rejected open, got %s", e.StateNow())
	}
}

func TestEngine_OpenRejectsNon16Bit(t *testing.T) {
	e := NewEngine()
	if err := e.Open(-1, Format{SampleRate: 48000, BitsPerSample: 24, Channels: 1}); err == nil {
		t.Error("Expected error for 24-bit format")
	}
}

func TestEngine_CloseFromClosedIsNoop(t *testing.T) {
	e := NewEngine()
	if err := e.Close(); err != nil {
		t.Errorf("Expected nil closing a closed engine, got %v", err)
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	h := &fakeHost{}
	e := newEngine(h)

	if err := e.Open(-1, DefaultFormat()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if e.StateNow() != StateOpen {
		t.Fatalf("Expected OPEN after Open, got %s", e.StateNow())
	}

	if err := e.Start(func(FrameBlock) {}, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if e.StateNow() != StateStreaming {
		t.Fatalf("Expected STREAMING after Start, got %s", e.StateNow())
	}
	if !h.lastStream().calls().started {
		t.Error("Expected driver stream to be started")
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if e.StateNow() != StateOpen {
		t.Errorf("Expected OPEN after Stop, got %s", e.StateNow())
	}
	calls := h.lastStream().calls()
	if !calls.stopped || !calls.closed {
		t.Errorf("Expected driver stream stopped and closed, got %+v", calls)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if e.StateNow() != StateClosed {
		t.Errorf("Expected CLOSED after Close, got %s", e.StateNow())
	}
}

func TestEngine_WatchdogReportsDeviceLost(t *testing.T) {
	h := &fakeHost{}
	e := newEngine(h)
	e.watchdogTimeout = 40 * time.Millisecond

	if err := e.Open(-1, DefaultFormat()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	errCh := make(chan error, 1)
	if err := e.Start(func(FrameBlock) {}, func(err error) { errCh <- err }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The fake stream never delivers a callback, so the watchdog must
	// declare the device lost.
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrDeviceLost) {
			t.Errorf("Expected ErrDeviceLost, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for device-lost report")
	}

	if e.StateNow() != StateClosed {
		t.Errorf("Expected CLOSED after device loss, got %s", e.StateNow())
	}
	calls := h.lastStream().calls()
	if !calls.aborted || !calls.closed {
		t.Errorf("Expected driver stream aborted and closed, got %+v", calls)
	}
}

func TestEngine_StopBeatsWatchdog(t *testing.T) {
	h := &fakeHost{}
	e := newEngine(h)
	e.watchdogTimeout = 100 * time.Millisecond

	if err := e.Open(-1, DefaultFormat()); err != nil {
		t.Fatal(err)
	}
	errCh := make(chan error, 1)
	if err := e.Start(func(FrameBlock) {}, func(err error) { errCh <- err }); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// A normal Stop must not be reported as a device loss afterwards.
	select {
	case err := <-errCh:
		t.Errorf("Unexpected error after normal stop: %v", err)
	case <-time.After(300 * time.Millisecond):
	}
	if e.StateNow() != StateOpen {
		t.Errorf("Expected OPEN after Stop, got %s", e.StateNow())
	}
}

func TestFrameBlockDuration(t *testing.T) {
	b := FrameBlock{Samples: make([]int16, 48000)}
	if d := b.Duration(48000); d != time.Second {
		t.Errorf("Expected 1s for 48000 samples at 48kHz, got %s", d)
	}
	if d := b.Duration(0); d != 0 {
		t.Errorf("Expected 0 for invalid rate, got %s", d)
	}
}
