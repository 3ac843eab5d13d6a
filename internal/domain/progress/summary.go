package progress

import "time"

// Summary is the persisted terminal outcome of a file's most recent job.
type Summary struct {
	UserID    string    `json:"-"                   db:"user_id"`
	FileID    string    `json:"file_id"             db:"file_id"`
	FolderID  string    `json:"folder_id,omitempty" db:"folder_id"`
	Filename  string    `json:"filename,omitempty"  db:"filename"`
	Phase     Phase     `json:"phase"               db:"phase"`
	Reason    string    `json:"reason,omitempty"    db:"reason"`
	UpdatedAt time.Time `json:"updated_at"          db:"updated_at"`
}

// SummaryFromRecord builds the history row for a terminal record.
// ok is false for non-terminal records, which are never persisted.
func SummaryFromRecord(userID string, rec JobRecord) (Summary, bool) {
	if !rec.Phase.Terminal() {
		return Summary{}, false
	}
	return Summary{
		UserID:    userID,
		FileID:    rec.FileID,
		FolderID:  rec.FolderID,
		Filename:  rec.Filename,
		Phase:     rec.Phase,
		Reason:    rec.Reason,
		UpdatedAt: rec.UpdatedAt,
	}, true
}
