package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/target/drive-notes/internal/domain/drive"
	"github.com/target/drive-notes/internal/service"
	"github.com/target/drive-notes/internal/service/progress"
)

const (
	defaultMaxUploadBytes = 50 << 20
	multipartMemory       = 8 << 20
)

// DashboardAPI is the dashboard surface the HTTP layer drives.
type DashboardAPI interface {
	ListFolders(ctx context.Context, caller service.Caller) ([]drive.Folder, error)
	CreateFolder(ctx context.Context, caller service.Caller, name string) (drive.Folder, error)
	ListFiles(ctx context.Context, caller service.Caller, folderID string) (*service.FolderListing, error)
	Upload(ctx context.Context, caller service.Caller, folderID, filename, mimeType string, body io.ReadSeeker) (*service.UploadResult, error)
	Delete(ctx context.Context, caller service.Caller, folderID, fileID string) error
	Content(ctx context.Context, caller service.Caller, fileID string) (drive.Content, error)
	Process(ctx context.Context, caller service.Caller, folderID, fileID, filename string) (string, error)
	Jobs(ctx context.Context, caller service.Caller) (progress.Snapshot, error)
	Subscribe(caller service.Caller, sinceSeq int64) (*progress.Subscription, func(), error)
}

var _ DashboardAPI = (*service.DashboardService)(nil)

// DriveHandlers serves folder and file endpoints.
type DriveHandlers struct {
	Svc            DashboardAPI
	MaxUploadBytes int64
	Logger         *slog.Logger
}

func (h *DriveHandlers) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *DriveHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteAppError(w, r, h.log(), err)
}

// caller is set by RequireUser; its absence is a routing mistake.
func mustCaller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	c, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
	}
	return c, ok
}

// ListFolders handles GET /api/folders.
func (h *DriveHandlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	folders, err := h.Svc.ListFolders(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if folders == nil {
		folders = []drive.Folder{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

type createFolderRequest struct {
	Name string `json:"name"`
}

// CreateFolder handles POST /api/folders.
func (h *DriveHandlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var req createFolderRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	folder, err := h.Svc.CreateFolder(r.Context(), caller, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, folder)
}

// ListFiles handles GET /api/folders/{folderID}/files.
func (h *DriveHandlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	listing, err := h.Svc.ListFiles(r.Context(), caller, r.PathValue("folderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, listing)
}

// Upload handles POST /api/folders/{folderID}/files with a multipart "file" part.
func (h *DriveHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "too_large", Err: errors.New("file exceeds the upload limit")})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: errors.New("expected a multipart form")})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: errors.New("file is required")})
		return
	}
	defer file.Close()

	filename := header.Filename
	if override := r.FormValue("filename"); override != "" {
		filename = override
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
			mimeType = byExt
		}
	}

	res, err := h.Svc.Upload(r.Context(), caller, r.PathValue("folderID"), filepath.Base(filename), mimeType, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, res)
}

// Delete handles DELETE /api/folders/{folderID}/files/{fileID}.
func (h *DriveHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), caller, r.PathValue("folderID"), r.PathValue("fileID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Content handles GET /api/files/{fileID}/content. Plain text is served
// inline; markup and binaries are offered as a download. The sandbox policy
// keeps anything a browser does render from running script on this origin.
func (h *DriveHandlers) Content(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	content, err := h.Svc.Content(r.Context(), caller, r.PathValue("fileID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer content.Body.Close()

	mimeType := content.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	disposition := "attachment"
	if drive.Inline(mimeType) {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": content.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "sandbox")
	if content.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Body); err != nil {
		h.log().DebugContext(r.Context(), "content stream interrupted", "file_id", r.PathValue("fileID"), "error", err)
	}
}

type processRequest struct {
	Filename string `json:"filename"`
}

// Process handles POST /api/folders/{folderID}/files/{fileID}/process.
func (h *DriveHandlers) Process(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var req processRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	fileID := r.PathValue("fileID")
	msg, err := h.Svc.Process(r.Context(), caller, r.PathValue("folderID"), fileID, req.Filename)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"file_id": fileID, "message": msg})
}
