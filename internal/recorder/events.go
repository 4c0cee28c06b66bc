package recorder

import (
	"github.com/soundset/datacap/internal/audio"
	"github.com/soundset/datacap/internal/dataset"
)

// EventType identifies a controller event.
type EventType string

const (
	// EventLevel carries one normalized loudness reading per consumed block.
	EventLevel EventType = "level"
	// EventStarted signals a recording session has begun.
	EventStarted EventType = "started"
	// EventProgress reports elapsed whole seconds of an active recording.
	EventProgress EventType = "progress"
	// EventCompleted reports the path of a durably written take.
	EventCompleted EventType = "completed"
	// EventFailed reports an aborted or failed session.
	EventFailed EventType = "failed"
)

// Event is a controller notification for the presentation layer. Events are
// delivered best-effort: if the consumer lags, events are dropped and
// counted rather than stalling the frame consumer loop.
type Event struct {
	Type            EventType           `json:"type"`
	Level           *audio.LevelReading `json:"level,omitempty"`
	Category        dataset.Category    `json:"category,omitempty"`
	DurationSeconds int                 `json:"duration_seconds,omitempty"`
	ElapsedSeconds  int                 `json:"elapsed_seconds,omitempty"`
	Path            string              `json:"path,omitempty"`
	Reason          string              `json:"reason,omitempty"`
}
