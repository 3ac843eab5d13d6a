package jobserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/drive-notes/internal/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://jobs.local"})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://localhost:8050"})
	require.NoError(t, err)
}

func TestStartJob_PostsCamelCaseBody(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathProcessFile, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"Processing started"}`))
	})

	res, err := c.StartJob(context.Background(), ports.StartJobRequest{
		UID:         "u1",
		FolderID:    "d1",
		Filename:    "notes.pdf",
		FileID:      "f1",
		AccessToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "Processing started", res.Message)
	assert.Equal(t, map[string]string{
		"uid":         "u1",
		"folderId":    "d1",
		"filename":    "notes.pdf",
		"fileId":      "f1",
		"accessToken": "tok",
	}, got)
}

func TestStartJob_EmptyOrPlainBodyIsAccepted(t *testing.T) {
	for _, body := range []string{"", "ok"} {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		res, err := c.StartJob(context.Background(), ports.StartJobRequest{FileID: "f1"})
		require.NoError(t, err)
		assert.Empty(t, res.Message)
	}
}

func TestStartJob_Non2xxIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	})

	_, err := c.StartJob(context.Background(), ports.StartJobRequest{FileID: "f1"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "queue full", statusErr.Body)
}

func TestStartJob_HonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.StartJob(ctx, ports.StartJobRequest{FileID: "f1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotifyDeleteAndSyncFolder(t *testing.T) {
	bodies := map[string]map[string]string{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies[r.URL.Path] = body
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.NotifyDelete(context.Background(), ports.DeleteNotification{UID: "u1", FolderID: "d1", FileID: "f1"}))
	require.NoError(t, c.SyncFolder(context.Background(), ports.FolderSync{FolderName: "Reports", UID: "u1", FolderID: "d9"}))

	assert.Equal(t, map[string]string{"uid": "u1", "folderId": "d1", "fileId": "f1"}, bodies[PathDeleteFile])
	assert.Equal(t, map[string]string{"folderName": "Reports", "uid": "u1", "folderId": "d9"}, bodies[PathCreateFolder])
}

func TestMirrorUpload_SendsMultipartForm(t *testing.T) {
	type received struct {
		uid, folderID, filename, contentType, content string
	}
	got := make(chan received, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathUpload, r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		got <- received{
			uid:         r.FormValue("uid"),
			folderID:    r.FormValue("folderId"),
			filename:    hdr.Filename,
			contentType: hdr.Header.Get("Content-Type"),
			content:     string(data),
		}
	})

	err := c.MirrorUpload(context.Background(), ports.UploadMirror{
		UID:      "u1",
		FolderID: "d1",
		Filename: "notes.txt",
		MimeType: "text/plain",
		Body:     strings.NewReader("hello"),
	})
	require.NoError(t, err)

	r := <-got
	assert.Equal(t, received{uid: "u1", folderID: "d1", filename: "notes.txt", contentType: "text/plain", content: "hello"}, r)
}

func TestMirrorUpload_RequiresBody(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)
	require.Error(t, c.MirrorUpload(context.Background(), ports.UploadMirror{Filename: "a"}))
}
