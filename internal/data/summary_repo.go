package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/drive-notes/internal/data/pgxutil"
	"github.com/target/drive-notes/internal/domain/progress"
	apperrors "github.com/target/drive-notes/internal/errors"
)

// ErrSummaryNotTerminal is returned when a non-terminal outcome is recorded.
var ErrSummaryNotTerminal = errors.New("only completed or failed outcomes are recorded")

// SummaryRepo stores the latest terminal outcome per user and file in PostgreSQL.
type SummaryRepo struct {
	DB *sql.DB
	// Now stamps outcomes recorded without an UpdatedAt.
	Now func() time.Time
}

// NewSummaryRepo creates a new SummaryRepo with the given database connection.
func NewSummaryRepo(db *sql.DB) *SummaryRepo {
	return &SummaryRepo{DB: db, Now: time.Now}
}

const summaryColumns = `user_id, file_id, folder_id, filename, phase, reason, updated_at`

// Record upserts the outcome. A later outcome for the same file replaces the earlier one.
func (r *SummaryRepo) Record(ctx context.Context, s progress.Summary) error {
	if strings.TrimSpace(s.UserID) == "" || strings.TrimSpace(s.FileID) == "" {
		return apperrors.Validation("user_id and file_id are required")
	}
	if !s.Phase.Terminal() {
		return apperrors.Wrap(ErrSummaryNotTerminal, apperrors.ErrCodeValidation, "invalid summary phase")
	}
	at := s.UpdatedAt
	if at.IsZero() {
		at = r.Now().UTC()
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO summaries (`+summaryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, file_id) DO UPDATE SET
				folder_id  = CASE WHEN EXCLUDED.folder_id <> '' THEN EXCLUDED.folder_id ELSE summaries.folder_id END,
				filename   = CASE WHEN EXCLUDED.filename <> '' THEN EXCLUDED.filename ELSE summaries.filename END,
				phase      = EXCLUDED.phase,
				reason     = EXCLUDED.reason,
				updated_at = EXCLUDED.updated_at
			WHERE summaries.updated_at <= EXCLUDED.updated_at
		`, s.UserID, s.FileID, s.FolderID, s.Filename, string(s.Phase), s.Reason, at.UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("record summary: %w", apperrors.MapDBError(err))
	}
	return nil
}

// ForFiles returns stored outcomes for fileIDs keyed by file id. Files without history are absent.
func (r *SummaryRepo) ForFiles(
	ctx context.Context,
	userID string,
	fileIDs []string,
) (map[string]progress.Summary, error) {
	out := make(map[string]progress.Summary, len(fileIDs))
	if len(fileIDs) == 0 {
		return out, nil
	}

	var rows []progress.Summary
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx,
			`SELECT `+summaryColumns+` FROM summaries WHERE user_id = $1 AND file_id = ANY($2)`,
			userID, fileIDs,
		)
		if err != nil {
			return err
		}
		defer res.Close()
		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[progress.Summary])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", apperrors.MapDBError(err))
	}
	for _, s := range rows {
		out[s.FileID] = s
	}
	return out, nil
}

// ListForUser returns a user's stored outcomes, newest first.
func (r *SummaryRepo) ListForUser(ctx context.Context, userID string, limit int) ([]progress.Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []progress.Summary
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx,
			`SELECT `+summaryColumns+` FROM summaries WHERE user_id = $1 ORDER BY updated_at DESC, file_id LIMIT $2`,
			userID, limit,
		)
		if err != nil {
			return err
		}
		defer res.Close()
		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[progress.Summary])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list user summaries: %w", apperrors.MapDBError(err))
	}
	return rows, nil
}

// Get returns a single stored outcome.
func (r *SummaryRepo) Get(ctx context.Context, userID, fileID string) (*progress.Summary, error) {
	var out progress.Summary
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx,
			`SELECT `+summaryColumns+` FROM summaries WHERE user_id = $1 AND file_id = $2`,
			userID, fileID,
		)
		if err != nil {
			return err
		}
		defer res.Close()
		out, err = pgx.CollectOneRow(res, pgx.RowToStructByName[progress.Summary])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Forget removes the stored outcome for a deleted file.
func (r *SummaryRepo) Forget(ctx context.Context, userID, fileID string) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `DELETE FROM summaries WHERE user_id = $1 AND file_id = $2`, userID, fileID)
		return err
	})
	if err != nil {
		return fmt.Errorf("forget summary: %w", apperrors.MapDBError(err))
	}
	return nil
}
