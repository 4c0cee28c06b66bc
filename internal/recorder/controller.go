// Package recorder coordinates test and recording sessions over the shared
// frame buffer and dispatches completed takes to the WAV writer.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundset/datacap/internal/audio"
	"github.com/soundset/datacap/internal/dataset"
	"github.com/soundset/datacap/internal/wavfile"
)

// ErrSessionConflict indicates a test or recording is already active.
var ErrSessionConflict = errors.New("another session is active")

// State represents the controller state machine:
// IDLE <-> TESTING and IDLE <-> RECORDING, mutually exclusive.
type State string

const (
	StateIdle      State = "IDLE"
	StateTesting   State = "TESTING"
	StateRecording State = "RECORDING"
)

// session tracks one in-flight recording.
type session struct {
	params  Params
	start   time.Time
	target  int // sample count at which the recording completes
	samples []int16

	discard    bool // set when the device was lost mid-session
	failReason string
}

// Controller is the recording state machine. All frame consumption happens
// on a single worker goroutine per session, never in the capture callback;
// the only blocking I/O is the WAV write at completion.
type Controller struct {
	mu      sync.Mutex
	state   State
	format  audio.Format
	buf     *audio.FrameBuffer
	outDir  string
	indexer *dataset.Indexer
	// parameters the current indexer was seeded with
	idxPrefix string
	idxStart  int
	current   *session

	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}

	events        chan Event
	droppedEvents atomic.Uint64
}

// New creates an idle controller reading from buf and writing takes under
// outDir/<category>/.
func New(buf *audio.FrameBuffer, format audio.Format, outDir string) *Controller {
	return &Controller{
		state:  StateIdle,
		format: format,
		buf:    buf,
		outDir: outDir,
		events: make(chan Event, 256),
	}
}

// Events returns the controller's event stream. Delivery is best-effort;
// see DroppedEvents.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// DroppedEvents reports how many events were discarded because the event
// channel was full.
func (c *Controller) DroppedEvents() uint64 {
	return c.droppedEvents.Load()
}

// Overruns reports the frame buffer's total overrun count.
func (c *Controller) Overruns() uint64 {
	return c.buf.Overruns()
}

// StateNow reports the current controller state.
func (c *Controller) StateNow() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartTest subscribes to the frame buffer for level display only; no
// samples are accumulated and no file is created.
func (c *Controller) StartTest() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: cannot start test while %s", ErrSessionConflict, c.state)
	}

	cursor := c.buf.Subscribe()
	c.stop = make(chan struct{})
	c.stopOnce = &sync.Once{}
	c.done = make(chan struct{})
	c.state = StateTesting

	go c.testLoop(cursor, c.stop, c.done)

	slog.Debug("test mode started")
	return nil
}

// StopTest ends test mode. Idempotent: stopping when no test is active is
// a no-op.
func (c *Controller) StopTest() error {
	c.mu.Lock()
	if c.state != StateTesting {
		c.mu.Unlock()
		return nil
	}
	stopOnce, stop, done := c.stopOnce, c.stop, c.done
	c.mu.Unlock()

	stopOnce.Do(func() { close(stop) })
	<-done

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()

	slog.Debug("test mode stopped")
	return nil
}

func (c *Controller) testLoop(cursor *audio.Cursor, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer cursor.Unsubscribe()

	for {
		block, ok := cursor.Next(stop)
		if !ok {
			return
		}
		level := audio.ComputeLevel(block)
		c.emit(Event{Type: EventLevel, Level: &level})
	}
}

// StartRecording validates p, creates a session and begins accumulating
// frames until DurationSeconds of audio is captured or StopRecording is
// called. Completion hands the samples to the WAV writer at the next path
// for p.Category; the category index only advances after a durable write.
func (c *Controller) StartRecording(p Params) error {
	if err := ValidateParams(p); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: cannot start recording while %s", ErrSessionConflict, c.state)
	}

	// The per-category counters survive for the process lifetime as long as
	// the prefix and starting index are unchanged. A new prefix re-seeds
	// from the directory scan, which keeps the no-overwrite guarantee.
	if c.indexer == nil || c.idxParamsChanged(p) {
		c.indexer = dataset.NewIndexer(c.outDir, p.Prefix, p.StartIndex)
		c.idxPrefix, c.idxStart = p.Prefix, p.StartIndex
	}

	sess := &session{
		params:  p,
		start:   time.Now(),
		target:  p.DurationSeconds * c.format.SampleRate,
		samples: make([]int16, 0, p.DurationSeconds*c.format.SampleRate),
	}

	cursor := c.buf.Subscribe()
	c.stop = make(chan struct{})
	c.stopOnce = &sync.Once{}
	c.done = make(chan struct{})
	c.current = sess
	c.state = StateRecording

	go c.recordLoop(cursor, c.stop, c.done, sess)

	c.emit(Event{Type: EventStarted, Category: p.Category, DurationSeconds: p.DurationSeconds})
	slog.Info("recording started", "category", p.Category,
		"duration_s", p.DurationSeconds, "prefix", p.Prefix)
	return nil
}

func (c *Controller) idxParamsChanged(p Params) bool {
	return c.idxPrefix != p.Prefix || c.idxStart != p.StartIndex
}

// StopRecording ends the active recording early. The partial take is still
// written as a valid, shorter file. Blocks until the write completes.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return fmt.Errorf("%w: no recording in progress, current: %s", ErrSessionConflict, c.state)
	}
	stopOnce, stop, done := c.stopOnce, c.stop, c.done
	c.mu.Unlock()

	stopOnce.Do(func() { close(stop) })
	<-done
	return nil
}

// Abort discards the active session without writing a file or advancing the
// index, reporting reason to the presentation layer. Used on device loss.
// A test session is simply stopped.
func (c *Controller) Abort(reason error) {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return
	case StateRecording:
		c.current.discard = true
		c.current.failReason = reason.Error()
	}
	stopOnce, stop, done := c.stopOnce, c.stop, c.done
	state := c.state
	c.mu.Unlock()

	stopOnce.Do(func() { close(stop) })
	<-done

	if state == StateTesting {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		c.emit(Event{Type: EventFailed, Reason: reason.Error()})
	}

	slog.Warn("session aborted", "reason", reason)
}

func (c *Controller) recordLoop(cursor *audio.Cursor, stop <-chan struct{}, done chan struct{}, sess *session) {
	defer close(done)
	defer cursor.Unsubscribe()

	lastProgress := 0
	for len(sess.samples) < sess.target {
		block, ok := cursor.Next(stop)
		if !ok {
			break
		}

		level := audio.ComputeLevel(block)
		c.emit(Event{Type: EventLevel, Level: &level})

		// Accumulation happens here on the consumer side; blocks arrive in
		// capture order. Overruns mean discontinuities in the take but do
		// not abort it.
		sess.samples = append(sess.samples, block.Samples...)

		if elapsed := len(sess.samples) / c.format.SampleRate; elapsed > lastProgress {
			lastProgress = elapsed
			c.emit(Event{Type: EventProgress, Category: sess.params.Category, ElapsedSeconds: elapsed})
		}
	}

	c.finish(sess)
}

// finish writes the accumulated take and returns the controller to IDLE.
// The state transition happens after the write so a racing StartRecording
// cannot claim the same index while the file is in flight.
func (c *Controller) finish(sess *session) {
	// The discard flag is written by Abort under c.mu, so it must be read
	// under the same lock: a device loss can land just as the session
	// reaches its target.
	c.mu.Lock()
	indexer := c.indexer
	discard, failReason := sess.discard, sess.failReason
	c.mu.Unlock()

	var (
		path string
		err  error
	)
	switch {
	case discard:
		err = errors.New(failReason)
	case len(sess.samples) == 0:
		err = errors.New("no audio captured")
	default:
		path, err = c.writeTake(indexer, sess)
	}

	c.mu.Lock()
	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()

	if err != nil {
		c.emit(Event{Type: EventFailed, Category: sess.params.Category, Reason: err.Error()})
		slog.Error("recording failed", "category", sess.params.Category, "error", err)
		return
	}

	c.emit(Event{Type: EventCompleted, Category: sess.params.Category, Path: path})
	if overruns := c.buf.Overruns(); overruns > 0 {
		slog.Warn("take written with buffer overruns", "path", path, "overruns", overruns)
	}
	slog.Info("recording complete", "path", path,
		"samples", len(sess.samples), "elapsed", time.Since(sess.start).Round(time.Millisecond))
}

func (c *Controller) writeTake(indexer *dataset.Indexer, sess *session) (string, error) {
	path, err := indexer.NextPath(sess.params.Category)
	if err != nil {
		return "", err
	}

	format := wavfile.Format{
		SampleRate:    c.format.SampleRate,
		BitsPerSample: c.format.BitsPerSample,
		Channels:      c.format.Channels,
	}
	if err := wavfile.Write(path, sess.samples, format); err != nil {
		// Index not advanced: a retry reuses the same target filename.
		return "", err
	}

	indexer.Advance(sess.params.Category)
	return path, nil
}

// emit delivers an event without ever blocking the consumer loop.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.droppedEvents.Add(1)
	}
}
