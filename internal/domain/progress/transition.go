package progress

// Outcome describes what applying an event did to a record.
type Outcome int

const (
	// OutcomeApplied means the record changed.
	OutcomeApplied Outcome = iota
	// OutcomeDuplicate means the event restated the current state.
	OutcomeDuplicate
	// OutcomeStale means the event was older than the current state and was ignored.
	OutcomeStale
	// OutcomeMalformed means the event could not be applied.
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeStale:
		return "stale"
	case OutcomeMalformed:
		return "malformed"
	}
	return "unknown"
}

// Apply folds a channel event into rec. exists is false when no record is
// tracked for the event's file yet; a fresh idle record is used in that case.
// Seq and UpdatedAt are left to the caller.
func Apply(rec JobRecord, exists bool, ev Event) (JobRecord, Outcome) {
	if ev.Validate() != nil {
		return rec, OutcomeMalformed
	}
	if !exists {
		rec = JobRecord{FileID: ev.FileID, Phase: PhaseIdle}
	}

	target := ev.Target()
	if rec.Phase.Terminal() {
		if rec.Phase == target {
			return rec, OutcomeDuplicate
		}
		return rec, OutcomeStale
	}

	next := rec
	switch target {
	case PhaseInProgress:
		if rec.Phase == PhaseInProgress {
			if ev.Progress == rec.Percent {
				return rec, OutcomeDuplicate
			}
			if ev.Progress < rec.Percent {
				return rec, OutcomeStale
			}
		}
		next.Phase = PhaseInProgress
		next.Percent = ev.Progress
		next.Reason = ""
	case PhaseCompleted:
		next.Phase = PhaseCompleted
		next.Percent = ProgressDone
		next.Reason = ""
	case PhaseFailed:
		next.Phase = PhaseFailed
		next.Reason = ev.Message
		if next.Reason == "" {
			next.Reason = GenericFailureReason
		}
	case PhaseIdle, PhaseRequested:
		return rec, OutcomeMalformed
	}
	return next, OutcomeApplied
}

// StartMeta carries the metadata of a local processing request.
type StartMeta struct {
	FileID   string
	FolderID string
	Filename string
}

// Begin moves a record to Requested for a new local submission. Records that
// are already requested or running are rejected with ErrJobInFlight. Terminal
// records may be restarted.
func Begin(rec JobRecord, exists bool, meta StartMeta) (JobRecord, error) {
	if exists && rec.Phase.InFlight() {
		return rec, ErrJobInFlight
	}
	return JobRecord{
		FileID:   meta.FileID,
		FolderID: meta.FolderID,
		Filename: meta.Filename,
		Phase:    PhaseRequested,
	}, nil
}

// Revert rolls a failed submission back to Idle. It only applies when the
// record is still the Requested state produced by the submission at seq.
func Revert(rec JobRecord, seq int64) (JobRecord, bool) {
	if rec.Phase != PhaseRequested || rec.Seq != seq {
		return rec, false
	}
	rec.Phase = PhaseIdle
	rec.Percent = 0
	return rec, true
}
