package progress

import (
	"sort"

	"github.com/target/drive-notes/internal/domain/drive"
	jobs "github.com/target/drive-notes/internal/domain/progress"
)

// UpdateKind tells subscribers which field of an Update is set.
type UpdateKind string

const (
	UpdateRecord  UpdateKind = "record"
	UpdateChannel UpdateKind = "channel"
	UpdateNotice  UpdateKind = "notice"
	UpdateListing UpdateKind = "listing"
)

// NoticeLevel grades a transient user-facing message.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message for the user. Notices are not part of the
// snapshot; a subscriber that was not listening misses them.
type Notice struct {
	Level  NoticeLevel `json:"level"`
	FileID string      `json:"file_id,omitempty"`
	Text   string      `json:"text"`
}

// Listing is a refreshed folder listing pushed after a job completes.
type Listing struct {
	FolderID string       `json:"folder_id"`
	Files    []drive.File `json:"files"`
}

// Update is one change published by a Reconciler. Seq increases by one for
// every update of a reconciler and starts above any seq of an earlier mount.
type Update struct {
	Seq     int64             `json:"seq"`
	Kind    UpdateKind        `json:"kind"`
	Record  *jobs.JobRecord   `json:"record,omitempty"`
	Channel jobs.ChannelState `json:"channel,omitempty"`
	Notice  *Notice           `json:"notice,omitempty"`
	Listing *Listing          `json:"listing,omitempty"`
}

// Snapshot is the reconciler state at Seq.
type Snapshot struct {
	Seq     int64             `json:"seq"`
	Channel jobs.ChannelState `json:"channel"`
	Records []jobs.JobRecord  `json:"records"`
	// Stalled lists in-flight files with no change for longer than the stall threshold.
	Stalled []string `json:"stalled,omitempty"`
}

// Record returns the snapshot record for fileID.
func (s Snapshot) Record(fileID string) (jobs.JobRecord, bool) {
	for _, rec := range s.Records {
		if rec.FileID == fileID {
			return rec, true
		}
	}
	return jobs.JobRecord{}, false
}

func sortRecords(recs []jobs.JobRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].FileID < recs[j].FileID })
}

// Subscription is a live feed of updates following Snapshot. Updates is
// closed when the subscription is canceled, the reconciler unmounts, or the
// subscriber falls too far behind; resubscribe with the last seen Seq to
// resume.
type Subscription struct {
	Snapshot Snapshot
	Updates  <-chan Update
	cancel   func()
}

// Cancel stops the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}
