package ports

import (
	"context"
	"io"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/domain/drive"
)

// UploadInput describes a file to store in Drive.
type UploadInput struct {
	Name     string
	FolderID string // optional parent folder
	MimeType string
	Body     io.Reader
}

// DriveClient is a stateless wrapper over the user's Drive. Every call carries
// the caller's bearer credential; implementations neither retry nor cache.
type DriveClient interface {
	ListFolders(ctx context.Context, cred domainauth.Credential) ([]drive.Folder, error)
	CreateFolder(ctx context.Context, cred domainauth.Credential, name string) (drive.Folder, error)
	ListFiles(ctx context.Context, cred domainauth.Credential, folderID string) ([]drive.File, error)
	Upload(ctx context.Context, cred domainauth.Credential, in UploadInput) (drive.File, error)
	// Content streams the file body; callers must close Content.Body.
	Content(ctx context.Context, cred domainauth.Credential, fileID string) (drive.Content, error)
	Delete(ctx context.Context, cred domainauth.Credential, fileID string) error
}
