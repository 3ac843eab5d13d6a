package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrKeepalive marks channel payloads without a file id or progress value.
	ErrKeepalive = errors.New("keepalive payload")
	// ErrMalformedEvent marks payloads that cannot be applied to any record.
	ErrMalformedEvent = errors.New("malformed progress event")
)

// Event is one progress notification from the job server.
type Event struct {
	FileID   string
	Progress int
	Message  string
}

type wireEvent struct {
	FileID   *string  `json:"fileId"`
	Progress *float64 `json:"progress"`
	Message  *string  `json:"message"`
}

// ParseEvent decodes a channel payload of the form
// {"fileId": string, "progress": number, "message"?: string}.
func ParseEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if w.FileID == nil || w.Progress == nil || strings.TrimSpace(*w.FileID) == "" {
		return Event{}, ErrKeepalive
	}

	p := *w.Progress
	if p != math.Trunc(p) {
		return Event{}, fmt.Errorf("%w: non-integral progress %v", ErrMalformedEvent, p)
	}

	ev := Event{FileID: *w.FileID, Progress: int(p)}
	if w.Message != nil {
		ev.Message = *w.Message
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks the progress value is -1, 100 or within 0..99.
func (e Event) Validate() error {
	if e.FileID == "" {
		return fmt.Errorf("%w: missing file id", ErrMalformedEvent)
	}
	if e.Progress == ProgressFailed || (e.Progress >= 0 && e.Progress <= ProgressDone) {
		return nil
	}
	return fmt.Errorf("%w: progress %d out of range", ErrMalformedEvent, e.Progress)
}

// Target returns the phase the event drives a record toward.
func (e Event) Target() Phase {
	switch {
	case e.Progress == ProgressDone:
		return PhaseCompleted
	case e.Progress == ProgressFailed:
		return PhaseFailed
	default:
		return PhaseInProgress
	}
}
