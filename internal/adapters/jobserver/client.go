// Package jobserver is the HTTP client for the remote summarization server.
package jobserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/target/drive-notes/internal/ports"
)

// Endpoint paths on the job server.
const (
	PathProcessFile  = "/process-file"
	PathDeleteFile   = "/delete-file"
	PathCreateFolder = "/create-folder"
	PathUpload       = "/upload"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// Config configures the job server client.
type Config struct {
	BaseURL string
	// Timeout bounds each request when Client is nil.
	Timeout time.Duration
	Client  *http.Client
	Logger  *slog.Logger
}

// Client talks to the job server. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.JobGateway = (*Client)(nil)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("job server %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("job server %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("job server url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse job server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("job server url must be http or https, got %q", u.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: u,
		client:  hc,
		logger:  logger.With("component", "jobserver_client"),
	}, nil
}

// StartJob asks the job server to summarize a file.
func (c *Client) StartJob(ctx context.Context, req ports.StartJobRequest) (ports.StartJobResult, error) {
	var res ports.StartJobResult
	body, err := c.postJSON(ctx, PathProcessFile, req)
	if err != nil {
		return res, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(body, &res); err != nil {
		// The acknowledgment text is optional; a non-JSON 2xx body still means accepted.
		c.logger.DebugContext(ctx, "ignoring undecodable start response", "error", err)
		return ports.StartJobResult{}, nil
	}
	return res, nil
}

// NotifyDelete tells the job server a file was removed from Drive.
func (c *Client) NotifyDelete(ctx context.Context, n ports.DeleteNotification) error {
	_, err := c.postJSON(ctx, PathDeleteFile, n)
	return err
}

// SyncFolder registers a newly created folder with the job server.
func (c *Client) SyncFolder(ctx context.Context, f ports.FolderSync) error {
	_, err := c.postJSON(ctx, PathCreateFolder, f)
	return err
}

// MirrorUpload forwards an uploaded file as multipart form data.
func (c *Client) MirrorUpload(ctx context.Context, u ports.UploadMirror) error {
	if u.Body == nil {
		return errors.New("upload body is required")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, u))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathUpload), pr)
	if err != nil {
		_ = pr.Close()
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = c.do(req, PathUpload)
	_ = pr.Close()
	return err
}

func writeUploadForm(mw *multipart.Writer, u ports.UploadMirror) error {
	if err := mw.WriteField("uid", u.UID); err != nil {
		return err
	}
	if err := mw.WriteField("folderId", u.FolderID); err != nil {
		return err
	}
	contentType := u.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": u.Filename,
	}))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, u.Body); err != nil {
		return fmt.Errorf("copy upload body: %w", err)
	}
	return mw.Close()
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job server %s: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close job server response", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return body, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}
