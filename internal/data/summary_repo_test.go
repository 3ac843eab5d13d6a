package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/drive-notes/internal/domain/progress"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/testutil"
)

func TestSummaryRepo_RecordAndForFiles(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := NewSummaryRepo(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, progress.Summary{
		UserID: "u1", FileID: "f1", FolderID: "d1", Filename: "a.pdf",
		Phase: progress.PhaseCompleted, UpdatedAt: at,
	}))
	require.NoError(t, repo.Record(ctx, progress.Summary{
		UserID: "u1", FileID: "f2", Phase: progress.PhaseFailed, Reason: "OCR failed", UpdatedAt: at,
	}))
	require.NoError(t, repo.Record(ctx, progress.Summary{
		UserID: "u2", FileID: "f1", Phase: progress.PhaseFailed, UpdatedAt: at,
	}))

	got, err := repo.ForFiles(ctx, "u1", []string{"f1", "f2", "f3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, progress.PhaseCompleted, got["f1"].Phase)
	assert.Equal(t, "a.pdf", got["f1"].Filename)
	assert.Equal(t, "OCR failed", got["f2"].Reason)
	assert.True(t, got["f1"].UpdatedAt.Equal(at))
}

func TestSummaryRepo_RecordKeepsMetadataAndNewest(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := NewSummaryRepo(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, progress.Summary{
		UserID: "u1", FileID: "f1", FolderID: "d1", Filename: "a.pdf",
		Phase: progress.PhaseFailed, Reason: "boom", UpdatedAt: at,
	}))
	// Foreign completion without metadata replaces the outcome but keeps the name.
	require.NoError(t, repo.Record(ctx, progress.Summary{
		UserID: "u1", FileID: "f1", Phase: progress.PhaseCompleted, UpdatedAt: at.Add(time.Minute),
	}))
	// An older outcome arriving late is ignored.
	require.NoError(t, repo.Record(ctx, progress.Summary{
		UserID: "u1", FileID: "f1", Phase: progress.PhaseFailed, Reason: "stale", UpdatedAt: at,
	}))

	got, err := repo.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, progress.PhaseCompleted, got.Phase)
	assert.Equal(t, "a.pdf", got.Filename)
	assert.Equal(t, "d1", got.FolderID)
	assert.Empty(t, got.Reason)
}

func TestSummaryRepo_Forget(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := &SummaryRepo{DB: db, Now: testutil.TestTime}
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, progress.Summary{UserID: "u1", FileID: "f1", Phase: progress.PhaseCompleted}))
	require.NoError(t, repo.Forget(ctx, "u1", "f1"))

	_, err := repo.Get(ctx, "u1", "f1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSummaryRepo_ListForUser(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := NewSummaryRepo(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, progress.Summary{UserID: "u1", FileID: "old", Phase: progress.PhaseCompleted, UpdatedAt: at}))
	require.NoError(t, repo.Record(ctx, progress.Summary{UserID: "u1", FileID: "new", Phase: progress.PhaseFailed, UpdatedAt: at.Add(time.Hour)}))
	require.NoError(t, repo.Record(ctx, progress.Summary{UserID: "u2", FileID: "other", Phase: progress.PhaseCompleted, UpdatedAt: at}))

	got, err := repo.ListForUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].FileID)
	assert.Equal(t, "old", got[1].FileID)

	got, err = repo.ListForUser(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSummaryRepo_Validation(t *testing.T) {
	repo := NewSummaryRepo(nil)
	ctx := context.Background()

	err := repo.Record(ctx, progress.Summary{FileID: "f1", Phase: progress.PhaseCompleted})
	assert.True(t, apperrors.IsValidation(err))

	err = repo.Record(ctx, progress.Summary{UserID: "u1", FileID: "f1", Phase: progress.PhaseInProgress})
	require.ErrorIs(t, err, ErrSummaryNotTerminal)

	got, err := repo.ForFiles(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repo.ListForUser(ctx, " ", 10)
	assert.True(t, apperrors.IsValidation(err))
}
