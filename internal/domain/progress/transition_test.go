package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyAll(t *testing.T, events ...Event) (JobRecord, []Outcome) {
	t.Helper()
	var (
		rec      JobRecord
		exists   bool
		outcomes []Outcome
	)
	for _, ev := range events {
		var out Outcome
		rec, out = Apply(rec, exists, ev)
		if out == OutcomeApplied {
			exists = true
		}
		outcomes = append(outcomes, out)
	}
	return rec, outcomes
}

func TestApply_ProgressMovesToInProgress(t *testing.T) {
	rec := JobRecord{FileID: "f1", Phase: PhaseRequested, Filename: "notes.pdf"}

	next, out := Apply(rec, true, Event{FileID: "f1", Progress: 45})

	assert.Equal(t, OutcomeApplied, out)
	assert.Equal(t, PhaseInProgress, next.Phase)
	assert.Equal(t, 45, next.Percent)
	assert.Equal(t, "notes.pdf", next.Filename)
}

func TestApply_CompletedIsSticky(t *testing.T) {
	rec, outcomes := applyAll(t,
		Event{FileID: "f1", Progress: 10},
		Event{FileID: "f1", Progress: 100},
		Event{FileID: "f1", Progress: 100},
		Event{FileID: "f1", Progress: 100},
		Event{FileID: "f1", Progress: 50},
		Event{FileID: "f1", Progress: -1, Message: "late failure"},
	)

	assert.Equal(t, PhaseCompleted, rec.Phase)
	assert.Equal(t, 100, rec.Percent)
	assert.Empty(t, rec.Reason)
	assert.Equal(t, []Outcome{
		OutcomeApplied, OutcomeApplied,
		OutcomeDuplicate, OutcomeDuplicate,
		OutcomeStale, OutcomeStale,
	}, outcomes)
}

func TestApply_FailureForUnknownFileCreatesRecord(t *testing.T) {
	rec, out := Apply(JobRecord{}, false, Event{FileID: "f2", Progress: -1, Message: "OCR failed"})

	require.Equal(t, OutcomeApplied, out)
	assert.Equal(t, "f2", rec.FileID)
	assert.Equal(t, PhaseFailed, rec.Phase)
	assert.Equal(t, "OCR failed", rec.Reason)
}

func TestApply_FailureWithoutMessageUsesGenericReason(t *testing.T) {
	rec, out := Apply(JobRecord{}, false, Event{FileID: "f2", Progress: -1})

	require.Equal(t, OutcomeApplied, out)
	assert.Equal(t, GenericFailureReason, rec.Reason)
}

func TestApply_LowerPercentIsStale(t *testing.T) {
	rec, outcomes := applyAll(t,
		Event{FileID: "f1", Progress: 60},
		Event{FileID: "f1", Progress: 30},
	)

	assert.Equal(t, 60, rec.Percent)
	assert.Equal(t, []Outcome{OutcomeApplied, OutcomeStale}, outcomes)
}

func TestApply_Idempotent(t *testing.T) {
	events := []Event{
		{FileID: "f1", Progress: 0},
		{FileID: "f1", Progress: 45},
		{FileID: "f1", Progress: 100},
		{FileID: "f1", Progress: -1, Message: "boom"},
	}
	for _, ev := range events {
		t.Run(string(ev.Target()), func(t *testing.T) {
			once, _ := Apply(JobRecord{}, false, ev)
			twice, out := Apply(once, true, ev)

			assert.Equal(t, once, twice)
			assert.Equal(t, OutcomeDuplicate, out)
		})
	}
}

func TestApply_OutOfRangeIsMalformed(t *testing.T) {
	rec := JobRecord{FileID: "f1", Phase: PhaseInProgress, Percent: 20}

	for _, p := range []int{-2, 101, 250} {
		next, out := Apply(rec, true, Event{FileID: "f1", Progress: p})
		assert.Equal(t, OutcomeMalformed, out, "progress %d", p)
		assert.Equal(t, rec, next)
	}
}

func TestBegin(t *testing.T) {
	t.Run("untracked file", func(t *testing.T) {
		rec, err := Begin(JobRecord{}, false, StartMeta{FileID: "f1", FolderID: "d1", Filename: "a.txt"})
		require.NoError(t, err)
		assert.Equal(t, PhaseRequested, rec.Phase)
		assert.Equal(t, "d1", rec.FolderID)
	})

	t.Run("in flight is rejected", func(t *testing.T) {
		for _, phase := range []Phase{PhaseRequested, PhaseInProgress} {
			current := JobRecord{FileID: "f1", Phase: phase, Percent: 30, Seq: 4}
			rec, err := Begin(current, true, StartMeta{FileID: "f1"})
			require.ErrorIs(t, err, ErrJobInFlight)
			assert.Equal(t, current, rec)
		}
	})

	t.Run("terminal can restart", func(t *testing.T) {
		current := JobRecord{FileID: "f1", Phase: PhaseFailed, Reason: "boom", Seq: 9}
		rec, err := Begin(current, true, StartMeta{FileID: "f1", Filename: "a.txt"})
		require.NoError(t, err)
		assert.Equal(t, PhaseRequested, rec.Phase)
		assert.Empty(t, rec.Reason)
	})
}

func TestRevert(t *testing.T) {
	rec := JobRecord{FileID: "f1", Phase: PhaseRequested, Seq: 3}

	reverted, ok := Revert(rec, 3)
	assert.True(t, ok)
	assert.Equal(t, PhaseIdle, reverted.Phase)

	_, ok = Revert(rec, 2)
	assert.False(t, ok, "a newer change must not be reverted")

	_, ok = Revert(JobRecord{FileID: "f1", Phase: PhaseInProgress, Seq: 3}, 3)
	assert.False(t, ok, "records that saw an event stay put")
}

func TestJobRecordStalled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := JobRecord{Phase: PhaseInProgress, UpdatedAt: now.Add(-10 * time.Minute)}

	assert.True(t, rec.Stalled(now, 5*time.Minute))
	assert.False(t, rec.Stalled(now, 15*time.Minute))
	assert.False(t, rec.Stalled(now, 0))

	rec.Phase = PhaseCompleted
	assert.False(t, rec.Stalled(now, time.Minute))
}

func TestJobRecordStatusMessage(t *testing.T) {
	assert.Equal(t, "Summarization complete for file: notes.pdf",
		JobRecord{FileID: "f1", Filename: "notes.pdf", Phase: PhaseCompleted}.StatusMessage())
	assert.Equal(t, "Summarization failed for file: f2 - OCR failed",
		JobRecord{FileID: "f2", Phase: PhaseFailed, Reason: "OCR failed"}.StatusMessage())
	assert.Empty(t, JobRecord{Phase: PhaseInProgress}.StatusMessage())
}
