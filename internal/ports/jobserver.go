package ports

import (
	"context"
	"io"
)

// StartJobRequest is the body of a summarization start call.
type StartJobRequest struct {
	UID         string `json:"uid"`
	FolderID    string `json:"folderId"`
	Filename    string `json:"filename"`
	FileID      string `json:"fileId"`
	AccessToken string `json:"accessToken"`
}

// StartJobResult carries the optional acknowledgment text from the job server.
type StartJobResult struct {
	Message string `json:"message,omitempty"`
}

// DeleteNotification tells the job server a file left Drive.
type DeleteNotification struct {
	UID      string `json:"uid"`
	FolderID string `json:"folderId"`
	FileID   string `json:"fileId"`
}

// FolderSync tells the job server about a newly created folder.
type FolderSync struct {
	FolderName string `json:"folderName"`
	UID        string `json:"uid"`
	FolderID   string `json:"folderId"`
}

// UploadMirror forwards an uploaded file to the job server.
type UploadMirror struct {
	UID      string
	FolderID string
	Filename string
	MimeType string
	Body     io.Reader
}

// JobStarter submits summarization jobs.
type JobStarter interface {
	StartJob(ctx context.Context, req StartJobRequest) (StartJobResult, error)
}

// JobGateway is the full HTTP surface of the remote job server.
type JobGateway interface {
	JobStarter
	NotifyDelete(ctx context.Context, n DeleteNotification) error
	SyncFolder(ctx context.Context, f FolderSync) error
	MirrorUpload(ctx context.Context, u UploadMirror) error
}
