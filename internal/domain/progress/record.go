// Package progress defines the job progress state machine used to reconcile
// summarization requests with events pushed by the job server.
package progress

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase is the lifecycle phase of a summarization job as seen by the dashboard.
type Phase string

const (
	// PhaseIdle means no job is tracked or a submission was rolled back.
	PhaseIdle Phase = "idle"
	// PhaseRequested means a start request was issued and no event has arrived yet.
	PhaseRequested Phase = "requested"
	// PhaseInProgress means the job server reported a percentage below 100.
	PhaseInProgress Phase = "in_progress"
	// PhaseCompleted means the job server reported 100.
	PhaseCompleted Phase = "completed"
	// PhaseFailed means the job server reported -1.
	PhaseFailed Phase = "failed"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseRequested, PhaseInProgress, PhaseCompleted, PhaseFailed:
		return true
	}
	return false
}

// Terminal reports whether no further event may move a record out of p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// InFlight reports whether a job in phase p is still waiting on the job server.
func (p Phase) InFlight() bool {
	return p == PhaseRequested || p == PhaseInProgress
}

// Progress values with special meaning on the progress channel.
const (
	ProgressFailed = -1
	ProgressDone   = 100
)

// GenericFailureReason is used when a failure event carries no message.
const GenericFailureReason = "Unknown error"

// ErrJobInFlight is returned when processing is requested for a file whose job
// is already requested or running.
var ErrJobInFlight = errors.New("summarization already in progress")

// JobRecord is the locally tracked state of one file's summarization job.
type JobRecord struct {
	FileID    string    `json:"file_id"`
	FolderID  string    `json:"folder_id,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Phase     Phase     `json:"phase"`
	Percent   int       `json:"percent"`
	Reason    string    `json:"reason,omitempty"`
	Seq       int64     `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stalled reports whether a non-terminal record has not changed for longer than threshold.
// A zero threshold disables stall detection.
func (r JobRecord) Stalled(now time.Time, threshold time.Duration) bool {
	if threshold <= 0 || !r.Phase.InFlight() || r.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(r.UpdatedAt) > threshold
}

// DisplayName returns the filename when known, otherwise the file id.
func (r JobRecord) DisplayName() string {
	if name := strings.TrimSpace(r.Filename); name != "" {
		return name
	}
	return r.FileID
}

// StatusMessage renders the user-facing notice for a terminal record.
func (r JobRecord) StatusMessage() string {
	switch r.Phase {
	case PhaseCompleted:
		return fmt.Sprintf("Summarization complete for file: %s", r.DisplayName())
	case PhaseFailed:
		reason := r.Reason
		if reason == "" {
			reason = GenericFailureReason
		}
		return fmt.Sprintf("Summarization failed for file: %s - %s", r.DisplayName(), reason)
	case PhaseIdle, PhaseRequested, PhaseInProgress:
	}
	return ""
}

// ChannelState is the state of the progress channel connection.
type ChannelState string

const (
	ChannelConnecting ChannelState = "connecting"
	ChannelOpen       ChannelState = "open"
	ChannelClosed     ChannelState = "closed"
)
