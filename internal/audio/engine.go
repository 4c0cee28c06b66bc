package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// State represents the capture engine lifecycle.
type State string

const (
	StateClosed    State = "CLOSED"
	StateOpen      State = "OPEN"
	StateStreaming State = "STREAMING"
)

// Format describes the fixed capture format. Only mono 16-bit PCM is
// supported; the sample rate defaults to 48 kHz.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// DefaultFormat returns the standard dataset capture format.
func DefaultFormat() Format {
	return Format{SampleRate: 48000, BitsPerSample: 16, Channels: 1}
}

// DefaultFramesPerBlock is the capture block size in frames. At 48 kHz this
// is roughly 21 ms of audio per block.
const DefaultFramesPerBlock = 1024

// defaultWatchdogTimeout is how long the stream may go without delivering a
// block before the device is considered lost.
const defaultWatchdogTimeout = 2 * time.Second

// host is the narrow driver surface the engine touches, so the state
// machine and its failure paths are testable without audio hardware.
type host interface {
	inputDevice(id int) (*portaudio.DeviceInfo, error)
	supportsFormat(params portaudio.StreamParameters, args ...interface{}) error
	openStream(params portaudio.StreamParameters, callback func([]int16)) (inputStream, error)
}

// inputStream is the subset of the driver stream the engine drives.
type inputStream interface {
	Start() error
	Stop() error
	Abort() error
	Close() error
}

// portHost is the production host backed by PortAudio.
type portHost struct{}

func (portHost) inputDevice(id int) (*portaudio.DeviceInfo, error) {
	return deviceInfo(id)
}

func (portHost) supportsFormat(params portaudio.StreamParameters, args ...interface{}) error {
	return portaudio.IsFormatSupported(params, args...)
}

func (portHost) openStream(params portaudio.StreamParameters, callback func([]int16)) (inputStream, error) {
	s, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Engine owns the driver-level input stream and runs the real-time producer
// loop. State machine: CLOSED -> OPEN -> STREAMING -> OPEN -> CLOSED.
// The capture callback only stamps and forwards blocks; it performs no disk
// I/O and takes no locks shared with slow paths.
type Engine struct {
	mu     sync.Mutex
	state  State
	host   host
	device *portaudio.DeviceInfo
	format Format
	frames int

	stream  inputStream
	seq     uint64
	onFrame func(FrameBlock)
	onError func(error)

	lastFrame       atomic.Int64 // unix nanos of the most recent callback
	watchdogTimeout time.Duration
	watchdogStop    chan struct{}
	watchdogDone    chan struct{}
}

// NewEngine creates an engine in the CLOSED state.
func NewEngine() *Engine {
	return newEngine(portHost{})
}

func newEngine(h host) *Engine {
	return &Engine{
		state:           StateClosed,
		host:            h,
		frames:          DefaultFramesPerBlock,
		watchdogTimeout: defaultWatchdogTimeout,
	}
}

// SetFramesPerBlock overrides the capture block size. Must be called before Open.
func (e *Engine) SetFramesPerBlock(frames int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if frames > 0 {
		e.frames = frames
	}
}

// Open validates that the device supports the requested format and
// transitions to OPEN. A negative deviceID selects the default input.
func (e *Engine) Open(deviceID int, format Format) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateClosed {
		return fmt.Errorf("can only open from closed state, current: %s", e.state)
	}
	if format.BitsPerSample != 16 || format.Channels != 1 {
		return fmt.Errorf("%w: only mono 16-bit capture is supported, got %d-bit %d-channel",
			ErrUnsupportedFormat, format.BitsPerSample, format.Channels)
	}

	info, err := e.host.inputDevice(deviceID)
	if err != nil {
		return err
	}
	if info.MaxInputChannels < format.Channels {
		return fmt.Errorf("%w: device %q has no input channels", ErrUnsupportedFormat, info.Name)
	}

	params := e.streamParameters(info, format)
	if err := e.host.supportsFormat(params, make([]int16, e.frames)); err != nil {
		return fmt.Errorf("%w: device %q rejected %d Hz mono 16-bit: %v",
			ErrUnsupportedFormat, info.Name, format.SampleRate, err)
	}

	e.device = info
	e.format = format
	e.state = StateOpen

	slog.Debug("capture engine opened", "device", info.Name, "sample_rate", format.SampleRate)
	return nil
}

// Start transitions to STREAMING and begins producing FrameBlocks. onFrame
// is invoked from the real-time callback for every block; it must only hand
// the block off (typically FrameBuffer.Push). onError reports asynchronous
// failures such as device loss and may be nil.
func (e *Engine) Start(onFrame func(FrameBlock), onError func(error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateOpen {
		return fmt.Errorf("can only start streaming from open state, current: %s", e.state)
	}
	if onFrame == nil {
		return fmt.Errorf("frame callback is required")
	}

	e.onFrame = onFrame
	e.onError = onError
	e.seq = 0
	e.lastFrame.Store(time.Now().UnixNano())

	stream, err := e.host.openStream(e.streamParameters(e.device, e.format), e.capture)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	e.stream = stream
	e.state = StateStreaming
	e.startWatchdog()

	slog.Info("capture started", "device", e.device.Name,
		"sample_rate", e.format.SampleRate, "frames_per_block", e.frames)
	return nil
}

// capture is the real-time producer callback. It copies the driver buffer,
// stamps a gapless sequence number and forwards the block.
func (e *Engine) capture(in []int16) {
	samples := make([]int16, len(in))
	copy(samples, in)

	e.seq++
	e.lastFrame.Store(time.Now().UnixNano())
	e.onFrame(FrameBlock{Seq: e.seq, Time: time.Now(), Samples: samples})
}

// Stop drains the stream and returns to OPEN.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateStreaming {
		return fmt.Errorf("no stream in progress, current: %s", e.state)
	}

	e.stopWatchdog()

	if err := e.stream.Stop(); err != nil {
		e.stream.Close()
		e.stream = nil
		e.state = StateClosed
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := e.stream.Close(); err != nil {
		e.stream = nil
		e.state = StateClosed
		return fmt.Errorf("failed to close input stream: %w", err)
	}

	e.stream = nil
	e.state = StateOpen
	slog.Info("capture stopped", "blocks_produced", e.seq)
	return nil
}

// Close releases the device and returns to CLOSED from any state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStreaming {
		e.stopWatchdog()
		e.stream.Stop()
		e.stream.Close()
		e.stream = nil
	}
	e.device = nil
	e.state = StateClosed
	return nil
}

// StateNow reports the current engine state.
func (e *Engine) StateNow() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Format returns the negotiated capture format. Only valid after Open.
func (e *Engine) Format() Format {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

func (e *Engine) streamParameters(info *portaudio.DeviceInfo, format Format) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: format.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: e.frames,
	}
}

// startWatchdog monitors callback liveness. PortAudio does not reliably
// report the disappearance of a capture device, so a silent stream past the
// timeout is treated as a lost device: the engine closes and the failure is
// reported upward instead of crashing the process.
func (e *Engine) startWatchdog() {
	e.watchdogStop = make(chan struct{})
	e.watchdogDone = make(chan struct{})

	go func() {
		defer close(e.watchdogDone)

		ticker := time.NewTicker(e.watchdogTimeout / 4)
		defer ticker.Stop()

		for {
			select {
			case <-e.watchdogStop:
				return
			case <-ticker.C:
				last := time.Unix(0, e.lastFrame.Load())
				if time.Since(last) < e.watchdogTimeout {
					continue
				}

				slog.Error("no frames from capture device, treating as lost",
					"silent_for", time.Since(last))

				// Teardown runs outside this goroutine so a concurrent
				// Stop waiting on watchdogDone cannot deadlock; it
				// re-checks state under the lock and no-ops if the
				// stream was stopped normally in the meantime.
				go e.handleDeviceLost()
				return
			}
		}
	}()
}

func (e *Engine) handleDeviceLost() {
	e.mu.Lock()
	if e.state != StateStreaming {
		e.mu.Unlock()
		return
	}
	onError := e.onError
	e.stream.Abort()
	e.stream.Close()
	e.stream = nil
	e.device = nil
	e.state = StateClosed
	e.mu.Unlock()

	if onError != nil {
		onError(fmt.Errorf("%w: stream silent for %s", ErrDeviceLost, e.watchdogTimeout))
	}
}

func (e *Engine) stopWatchdog() {
	if e.watchdogStop != nil {
		close(e.watchdogStop)
		<-e.watchdogDone
		e.watchdogStop = nil
		e.watchdogDone = nil
	}
}
