package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/domain/drive"
	jobs "github.com/target/drive-notes/internal/domain/progress"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/ports"
	"github.com/target/drive-notes/internal/service/progress"
)

// DashboardServiceOptions groups dependencies for DashboardService.
type DashboardServiceOptions struct {
	Drive    ports.DriveClient
	Gateway  ports.JobGateway
	Registry *progress.Registry
	// History is optional; without it files carry live job state only.
	History ports.SummaryHistory
	Logger  *slog.Logger
}

// DashboardService backs the dashboard API: Drive browsing and editing,
// mirrored to the job server, plus summarization through the user's reconciler.
type DashboardService struct {
	drive    ports.DriveClient
	gateway  ports.JobGateway
	registry *progress.Registry
	history  ports.SummaryHistory
	logger   *slog.Logger
}

// Caller is the signed-in user a dashboard call acts for.
type Caller struct {
	UserID     string
	Credential domainauth.Credential
}

func (c Caller) credentials() progress.Credentials {
	return progress.Credentials{UID: c.UserID, AccessToken: c.Credential.AccessToken}
}

// FileView is a Drive file annotated with its summarization state.
type FileView struct {
	drive.File
	Phase   jobs.Phase `json:"phase"`
	Percent int        `json:"percent,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	// Summarized is true when a summary exists from this or an earlier session.
	Summarized bool `json:"summarized"`
	Stalled    bool `json:"stalled,omitempty"`
}

// FolderListing is the annotated content of one folder.
type FolderListing struct {
	FolderID string     `json:"folder_id"`
	Files    []FileView `json:"files"`
	Seq      int64      `json:"seq"`
}

// UploadResult reports the stored file and whether the job server copy succeeded.
type UploadResult struct {
	File     drive.File `json:"file"`
	Mirrored bool       `json:"mirrored"`
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(opts DashboardServiceOptions) (*DashboardService, error) {
	if opts.Drive == nil {
		return nil, errors.New("drive client is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("job gateway is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("reconciler registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		drive:    opts.Drive,
		gateway:  opts.Gateway,
		registry: opts.Registry,
		history:  opts.History,
		logger:   logger.With("component", "dashboard_service"),
	}, nil
}

// ListFolders returns the user's Drive folders.
func (s *DashboardService) ListFolders(ctx context.Context, caller Caller) ([]drive.Folder, error) {
	return s.drive.ListFolders(ctx, caller.Credential)
}

// CreateFolder creates a Drive folder and registers it with the job server.
// A failed registration is logged; the Drive folder stands.
func (s *DashboardService) CreateFolder(ctx context.Context, caller Caller, name string) (drive.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return drive.Folder{}, apperrors.ValidationField("name", "folder name is required")
	}

	folder, err := s.drive.CreateFolder(ctx, caller.Credential, name)
	if err != nil {
		return drive.Folder{}, err
	}

	if err := s.gateway.SyncFolder(ctx, ports.FolderSync{
		FolderName: folder.Name,
		UID:        caller.UserID,
		FolderID:   folder.ID,
	}); err != nil {
		s.logger.WarnContext(ctx, "folder sync to job server failed", "folder_id", folder.ID, "error", err)
	}
	return folder, nil
}

// ListFiles lists a folder, merges live job state and stored summaries, and
// marks the folder as the one the user has open.
func (s *DashboardService) ListFiles(ctx context.Context, caller Caller, folderID string) (*FolderListing, error) {
	if folderID == "" {
		return nil, apperrors.ValidationField("folder_id", "folder id is required")
	}

	rec, release, err := s.registry.Acquire(caller.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		files []drive.File
		snap  progress.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = s.drive.ListFiles(gctx, caller.Credential, folderID)
		return err
	})
	g.Go(func() error {
		if err := rec.SetExpandedFolder(folderID, caller.credentials()); err != nil {
			return err
		}
		var err error
		snap, err = rec.Snapshot()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := s.summariesFor(ctx, caller.UserID, files)
	return &FolderListing{
		FolderID: folderID,
		Files:    annotate(files, snap, summaries),
		Seq:      snap.Seq,
	}, nil
}

func (s *DashboardService) summariesFor(ctx context.Context, userID string, files []drive.File) map[string]jobs.Summary {
	if s.history == nil || len(files) == 0 {
		return nil
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	summaries, err := s.history.ForFiles(ctx, userID, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "summary history unavailable", "error", err)
		return nil
	}
	return summaries
}

func annotate(files []drive.File, snap progress.Snapshot, summaries map[string]jobs.Summary) []FileView {
	stalled := make(map[string]bool, len(snap.Stalled))
	for _, id := range snap.Stalled {
		stalled[id] = true
	}

	views := make([]FileView, 0, len(files))
	for _, f := range files {
		v := FileView{File: f, Phase: jobs.PhaseIdle}
		if sum, ok := summaries[f.ID]; ok {
			v.Phase = sum.Phase
			v.Reason = sum.Reason
			v.Summarized = sum.Phase == jobs.PhaseCompleted
			if v.Summarized {
				v.Percent = jobs.ProgressDone
			}
		}
		// Live state wins over history.
		if rec, ok := snap.Record(f.ID); ok && rec.Phase != jobs.PhaseIdle {
			v.Phase = rec.Phase
			v.Percent = rec.Percent
			v.Reason = rec.Reason
			v.Summarized = v.Summarized || rec.Phase == jobs.PhaseCompleted
			v.Stalled = stalled[f.ID]
		}
		views = append(views, v)
	}
	return views
}

// Upload stores a file in Drive and mirrors it to the job server. body is
// rewound between the two writes.
func (s *DashboardService) Upload(ctx context.Context, caller Caller, folderID, filename, mimeType string, body io.ReadSeeker) (*UploadResult, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apperrors.ValidationField("file", "file name is required")
	}
	if body == nil {
		return nil, apperrors.ValidationField("file", "file is required")
	}

	file, err := s.drive.Upload(ctx, caller.Credential, ports.UploadInput{
		Name:     filename,
		FolderID: folderID,
		MimeType: mimeType,
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	res := &UploadResult{File: file}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		s.logger.WarnContext(ctx, "cannot rewind upload for mirroring", "file_id", file.ID, "error", err)
		return res, nil
	}
	if err := s.gateway.MirrorUpload(ctx, ports.UploadMirror{
		UID:      caller.UserID,
		FolderID: folderID,
		Filename: filename,
		MimeType: mimeType,
		Body:     body,
	}); err != nil {
		s.logger.WarnContext(ctx, "upload mirror to job server failed", "file_id", file.ID, "error", err)
		return res, nil
	}
	res.Mirrored = true
	return res, nil
}

// Delete removes a file from Drive. The job server notification and summary
// cleanup are best-effort: Drive is the source of truth.
func (s *DashboardService) Delete(ctx context.Context, caller Caller, folderID, fileID string) error {
	if fileID == "" {
		return apperrors.ValidationField("file_id", "file id is required")
	}
	if err := s.drive.Delete(ctx, caller.Credential, fileID); err != nil {
		return err
	}

	if err := s.gateway.NotifyDelete(ctx, ports.DeleteNotification{
		UID:      caller.UserID,
		FolderID: folderID,
		FileID:   fileID,
	}); err != nil {
		s.logger.WarnContext(ctx, "delete notification failed", "file_id", fileID, "error", err)
	}
	if s.history != nil {
		if err := s.history.Forget(ctx, caller.UserID, fileID); err != nil {
			s.logger.WarnContext(ctx, "failed to forget summary", "file_id", fileID, "error", err)
		}
	}
	return nil
}

// Content streams a file body. The caller closes Body.
func (s *DashboardService) Content(ctx context.Context, caller Caller, fileID string) (drive.Content, error) {
	return s.drive.Content(ctx, caller.Credential, fileID)
}

// Process starts summarization of a file through the user's reconciler.
func (s *DashboardService) Process(ctx context.Context, caller Caller, folderID, fileID, filename string) (string, error) {
	rec, release, err := s.registry.Acquire(caller.UserID)
	if err != nil {
		return "", err
	}
	defer release()

	return rec.RequestProcessing(ctx, progress.StartRequest{
		FileID:   fileID,
		FolderID: folderID,
		Filename: filename,
	}, caller.credentials())
}

// Jobs returns the user's current job records.
func (s *DashboardService) Jobs(_ context.Context, caller Caller) (progress.Snapshot, error) {
	rec, release, err := s.registry.Acquire(caller.UserID)
	if err != nil {
		return progress.Snapshot{}, err
	}
	defer release()
	return rec.Snapshot()
}

// Subscribe opens a live update feed for the user. release must be called
// once the subscriber goes away.
func (s *DashboardService) Subscribe(caller Caller, sinceSeq int64) (*progress.Subscription, func(), error) {
	rec, release, err := s.registry.Acquire(caller.UserID)
	if err != nil {
		return nil, nil, err
	}
	if caller.Credential.AccessToken != "" {
		_ = rec.UpdateCredentials(caller.credentials())
	}
	sub, err := rec.Subscribe(sinceSeq)
	if err != nil {
		release()
		return nil, nil, err
	}
	return sub, func() {
		sub.Cancel()
		release()
	}, nil
}

// ListingRefresher re-lists folders through dc after a job completes.
func ListingRefresher(dc ports.DriveClient) progress.RefreshFunc {
	return func(ctx context.Context, cred progress.Credentials, folderID string) (*progress.Listing, error) {
		files, err := dc.ListFiles(ctx, domainauth.Credential{AccessToken: cred.AccessToken}, folderID)
		if err != nil {
			return nil, fmt.Errorf("refresh folder %s: %w", folderID, err)
		}
		return &progress.Listing{FolderID: folderID, Files: files}, nil
	}
}
