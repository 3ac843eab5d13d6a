// Package drive adapts the Google Drive v3 API to ports.DriveClient.
package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/domain/drive"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/ports"
)

const (
	folderQuery  = "mimeType='" + drive.FolderMimeType + "' and trashed=false"
	folderFields = "nextPageToken, files(id, name)"
	fileFields   = "nextPageToken, files(id, name, mimeType)"
)

// exportFormats maps Google-native document types to a downloadable format.
var exportFormats = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "application/pdf",
	"application/vnd.google-apps.drawing":      "image/png",
}

// Config configures the Drive client.
type Config struct {
	// Endpoint overrides the Drive API base URL; empty uses Google's.
	Endpoint string
	// Transport is the base round tripper under the bearer token transport.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client builds a Drive service per call from the caller's bearer credential.
// It holds no per-user state.
type Client struct {
	endpoint  string
	transport http.RoundTripper
	logger    *slog.Logger
}

var _ ports.DriveClient = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		transport: transport,
		logger:    logger.With("component", "drive_client"),
	}
}

func (c *Client) service(ctx context.Context, cred domainauth.Credential) (*gdrive.Service, error) {
	if cred.AccessToken == "" {
		return nil, apperrors.Unauthorized("drive credential is missing")
	}
	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	hc := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken, TokenType: tokenType}),
			Base:   c.transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// ListFolders returns the user's folders that are not in the trash.
func (c *Client) ListFolders(ctx context.Context, cred domainauth.Credential) ([]drive.Folder, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	var folders []drive.Folder
	err = svc.Files.List().Q(folderQuery).Fields(folderFields).Pages(ctx, func(page *gdrive.FileList) error {
		for _, f := range page.Files {
			folders = append(folders, drive.Folder{ID: f.Id, Name: f.Name})
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "list folders")
	}
	return folders, nil
}

// CreateFolder creates a top-level folder.
func (c *Client) CreateFolder(ctx context.Context, cred domainauth.Credential, name string) (drive.Folder, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return drive.Folder{}, err
	}
	f, err := svc.Files.Create(&gdrive.File{Name: name, MimeType: drive.FolderMimeType}).
		Fields("id, name").
		Context(ctx).
		Do()
	if err != nil {
		return drive.Folder{}, mapError(err, "create folder")
	}
	return drive.Folder{ID: f.Id, Name: f.Name}, nil
}

// ListFiles returns the direct children of folderID.
func (c *Client) ListFiles(ctx context.Context, cred domainauth.Credential, folderID string) ([]drive.File, error) {
	if folderID == "" {
		return nil, apperrors.ValidationField("folder_id", "folder id is required")
	}
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))
	var files []drive.File
	err = svc.Files.List().Q(q).Fields(fileFields).Pages(ctx, func(page *gdrive.FileList) error {
		for _, f := range page.Files {
			files = append(files, drive.File{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "list files")
	}
	return files, nil
}

// Upload stores a file, inside FolderID when set.
func (c *Client) Upload(ctx context.Context, cred domainauth.Credential, in ports.UploadInput) (drive.File, error) {
	if in.Body == nil {
		return drive.File{}, apperrors.ValidationField("file", "file body is required")
	}
	svc, err := c.service(ctx, cred)
	if err != nil {
		return drive.File{}, err
	}

	meta := &gdrive.File{Name: in.Name, MimeType: in.MimeType}
	if in.FolderID != "" {
		meta.Parents = []string{in.FolderID}
	}
	var mediaOpts []googleapi.MediaOption
	if in.MimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(in.MimeType))
	}

	f, err := svc.Files.Create(meta).
		Media(in.Body, mediaOpts...).
		Fields("id, name, mimeType").
		Context(ctx).
		Do()
	if err != nil {
		return drive.File{}, mapError(err, "upload file")
	}
	return drive.File{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// Content streams a file. Google-native documents are exported to a
// portable format first.
func (c *Client) Content(ctx context.Context, cred domainauth.Credential, fileID string) (drive.Content, error) {
	if fileID == "" {
		return drive.Content{}, apperrors.ValidationField("file_id", "file id is required")
	}
	svc, err := c.service(ctx, cred)
	if err != nil {
		return drive.Content{}, err
	}

	meta, err := svc.Files.Get(fileID).Fields("id, name, mimeType, size").Context(ctx).Do()
	if err != nil {
		return drive.Content{}, mapError(err, "get file")
	}

	var (
		resp     *http.Response
		mimeType = meta.MimeType
		size     = meta.Size
	)
	if export, ok := exportFormats[meta.MimeType]; ok {
		resp, err = svc.Files.Export(fileID, export).Context(ctx).Download()
		mimeType = export
		size = -1
	} else if strings.HasPrefix(meta.MimeType, "application/vnd.google-apps.") {
		return drive.Content{}, apperrors.Validation(fmt.Sprintf("files of type %s cannot be downloaded", meta.MimeType))
	} else {
		resp, err = svc.Files.Get(fileID).Context(ctx).Download()
	}
	if err != nil {
		return drive.Content{}, mapError(err, "download file")
	}

	if ct := resp.Header.Get("Content-Type"); mimeType == "" && ct != "" {
		mimeType = ct
	}
	return drive.Content{Name: meta.Name, MimeType: mimeType, Size: size, Body: resp.Body}, nil
}

// Delete removes a file permanently.
func (c *Client) Delete(ctx context.Context, cred domainauth.Credential, fileID string) error {
	if fileID == "" {
		return apperrors.ValidationField("file_id", "file id is required")
	}
	svc, err := c.service(ctx, cred)
	if err != nil {
		return err
	}
	if err := svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return mapError(err, "delete file")
	}
	return nil
}

func escapeQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

// mapError converts Drive API failures into application errors.
func mapError(err error, op string) error {
	if ctxErr := apperrors.FromContext(err); ctxErr != nil {
		return ctxErr
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return apperrors.Wrap(err, apperrors.ErrCodeNotFound, op+": not found in Drive")
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, op+": Drive rejected the credential")
		}
	}
	return apperrors.Upstream(err, op)
}
