// Package service wires the capture engine, frame buffer, recording
// controller and dataset indexer into the single facade consumed by the
// CLI commands and the control server.
package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundset/datacap/internal/audio"
	"github.com/soundset/datacap/internal/config"
	"github.com/soundset/datacap/internal/recorder"
)

// Status is a point-in-time snapshot for diagnostics and the shell.
type Status struct {
	Engine     audio.State    `json:"engine"`
	Controller recorder.State `json:"controller"`
	Overruns   uint64         `json:"overruns"`
}

// Service owns the audio pipeline lifecycle.
type Service struct {
	cfg *config.Config

	mu     sync.Mutex
	opened bool
	engine *audio.Engine
	buf    *audio.FrameBuffer
	ctrl   *recorder.Controller
}

// New creates a service around cfg. Call Open before any capture operation.
func New(cfg *config.Config) *Service {
	return &Service{cfg: cfg}
}

// Devices lists input-capable devices, freshly queried. Works whether or
// not the pipeline is open; PortAudio reference-counts initialization.
func (s *Service) Devices() ([]audio.Device, error) {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()

	if !opened {
		if err := audio.Init(); err != nil {
			return nil, err
		}
		defer audio.Terminate()
	}
	return audio.InputDevices()
}

// Open initializes the audio host, opens the configured device and starts
// the producer stream feeding the frame buffer. The stream keeps running
// until Close so test mode and recordings attach instantly.
func (s *Service) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return fmt.Errorf("service already open")
	}

	if err := audio.Init(); err != nil {
		return err
	}

	engine := audio.NewEngine()
	engine.SetFramesPerBlock(s.cfg.Audio.FramesPerBlock)

	format := audio.Format{
		SampleRate:    s.cfg.Audio.SampleRate,
		BitsPerSample: s.cfg.Audio.BitsPerSample,
		Channels:      s.cfg.Audio.Channels,
	}
	if err := engine.Open(s.cfg.Audio.DeviceID, format); err != nil {
		audio.Terminate()
		return err
	}

	buf := audio.NewFrameBuffer(s.cfg.BufferBlocks())
	ctrl := recorder.New(buf, format, s.cfg.Output.Directory)

	if err := engine.Start(buf.Push, func(err error) {
		// Device lost mid-stream: abort the active session without
		// advancing the index and let the shell notify the user.
		slog.Error("capture stream failed", "error", err)
		ctrl.Abort(err)
	}); err != nil {
		engine.Close()
		audio.Terminate()
		return err
	}

	s.engine = engine
	s.buf = buf
	s.ctrl = ctrl
	s.opened = true
	return nil
}

// StartTest begins level monitoring without recording.
func (s *Service) StartTest() error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	return ctrl.StartTest()
}

// StopTest ends level monitoring. Idempotent.
func (s *Service) StopTest() error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	return ctrl.StopTest()
}

// Record starts a recording session with the given parameters.
func (s *Service) Record(p recorder.Params) error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	return ctrl.StartRecording(p)
}

// StopRecording ends the active recording early; the partial take is still
// written.
func (s *Service) StopRecording() error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	return ctrl.StopRecording()
}

// Events exposes the controller's event stream.
func (s *Service) Events() (<-chan recorder.Event, error) {
	ctrl, err := s.controller()
	if err != nil {
		return nil, err
	}
	return ctrl.Events(), nil
}

// Status reports the pipeline state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return Status{Engine: audio.StateClosed, Controller: recorder.StateIdle}
	}
	return Status{
		Engine:     s.engine.StateNow(),
		Controller: s.ctrl.StateNow(),
		Overruns:   s.buf.Overruns(),
	}
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Close tears the pipeline down: stops any session, drains the stream and
// releases the device.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}

	s.ctrl.StopTest()
	if s.ctrl.StateNow() == recorder.StateRecording {
		s.ctrl.StopRecording()
	}

	var firstErr error
	if s.engine.StateNow() == audio.StateStreaming {
		if err := s.engine.Stop(); err != nil {
			firstErr = err
		}
	}
	s.buf.Close()
	if err := s.engine.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := audio.Terminate(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.opened = false
	return firstErr
}

func (s *Service) controller() (*recorder.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil, fmt.Errorf("service not open")
	}
	return s.ctrl, nil
}
