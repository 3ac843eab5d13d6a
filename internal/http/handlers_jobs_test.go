package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobs "github.com/target/drive-notes/internal/domain/progress"
	"github.com/target/drive-notes/internal/service/progress"
)

func dialStream(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/stream" + query
	hdr := http.Header{}
	hdr.Set("Cookie", sessionCookieName+"=user-session")
	return websocket.DefaultDialer.Dial(u, hdr)
}

func TestJobsSnapshot(t *testing.T) {
	dash := &fakeDashboard{snapshot: progress.Snapshot{
		Seq:     7,
		Channel: jobs.ChannelOpen,
		Records: []jobs.JobRecord{{FileID: "f1", Phase: jobs.PhaseInProgress, Percent: 30, Seq: 7}},
	}}
	rec := serve(t, newTestRouter(newMockAuth(), dash), authed(http.MethodGet, "/api/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"seq":7`)
	assert.Contains(t, rec.Body.String(), `"file_id":"f1"`)
}

func TestJobsStreamSendsSnapshotThenUpdates(t *testing.T) {
	updates := make(chan progress.Update, 1)
	gotSince := make(chan int64, 1)
	released := make(chan struct{})
	dash := &fakeDashboard{subscribe: func(since int64) (*progress.Subscription, func(), error) {
		gotSince <- since
		sub := &progress.Subscription{
			Snapshot: progress.Snapshot{Seq: 3, Records: []jobs.JobRecord{{FileID: "f1", Phase: jobs.PhaseRequested, Seq: 3}}},
			Updates:  updates,
		}
		return sub, func() { close(released) }, nil
	}}
	srv := httptest.NewServer(newTestRouter(newMockAuth(), dash))
	defer srv.Close()

	conn, _, err := dialStream(t, srv, "?since=2")
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first streamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, streamSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, int64(3), first.Snapshot.Seq)
	assert.Equal(t, int64(2), <-gotSince)

	updates <- progress.Update{Seq: 4, Kind: progress.UpdateRecord, Record: &jobs.JobRecord{FileID: "f1", Phase: jobs.PhaseInProgress, Percent: 10, Seq: 4}}

	var second streamMessage
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, streamUpdate, second.Type)
	require.NotNil(t, second.Update)
	assert.Equal(t, int64(4), second.Update.Seq)
	assert.Equal(t, 10, second.Update.Record.Percent)

	close(updates)
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was not released")
	}
}

func openStreamWithDraining(t *testing.T, updates chan progress.Update) (*httptest.Server, *Draining, *websocket.Conn) {
	t.Helper()
	dash := &fakeDashboard{subscribe: func(int64) (*progress.Subscription, func(), error) {
		return &progress.Subscription{Snapshot: progress.Snapshot{Seq: 1}, Updates: updates}, func() {}, nil
	}}
	draining := NewDraining()
	srv := httptest.NewServer(NewRouter(RouterServices{
		Auth:      newMockAuth(),
		Dashboard: dash,
		Draining:  draining,
		Logger:    discardLogger,
	}))
	t.Cleanup(srv.Close)

	conn, _, err := dialStream(t, srv, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first streamMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, streamSnapshot, first.Type)
	return srv, draining, conn
}

func TestJobsStreamClosesGoingAwayOnServerShutdown(t *testing.T) {
	srv, draining, conn := openStreamWithDraining(t, make(chan progress.Update))
	srv.Config.RegisterOnShutdown(draining.Start)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Config.Shutdown(ctx))

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}

func TestJobsStreamEndedByDrainingIsGoingAway(t *testing.T) {
	updates := make(chan progress.Update)
	_, draining, conn := openStreamWithDraining(t, updates)

	// Unmounting reconcilers during shutdown closes the updates channel too.
	draining.Start()
	close(updates)

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}

func TestDrainingNilNeverFires(t *testing.T) {
	var d *Draining
	d.Start()
	assert.Nil(t, d.Done())
	assert.False(t, d.Active())

	d = NewDraining()
	assert.False(t, d.Active())
	d.Start()
	d.Start()
	assert.True(t, d.Active())
}

func TestJobsStreamRejectsBadSince(t *testing.T) {
	dash := &fakeDashboard{subscribe: func(int64) (*progress.Subscription, func(), error) {
		t.Fatal("subscribe should not be called")
		return nil, nil, nil
	}}
	rec := serve(t, newTestRouter(newMockAuth(), dash), authed(http.MethodGet, "/api/jobs/stream?since=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsStreamRejectsForeignOrigin(t *testing.T) {
	dash := &fakeDashboard{subscribe: func(int64) (*progress.Subscription, func(), error) {
		return &progress.Subscription{Updates: make(chan progress.Update)}, func() {}, nil
	}}
	srv := httptest.NewServer(newTestRouter(newMockAuth(), dash))
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/stream"
	hdr := http.Header{}
	hdr.Set("Cookie", sessionCookieName+"=user-session")
	hdr.Set("Origin", "https://evil.example.com")
	_, res, err := websocket.DefaultDialer.Dial(u, hdr)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestCheckOriginAllowsConfiguredOrigins(t *testing.T) {
	h := NewJobHandlers(&fakeDashboard{}, []string{"https://app.example.com/"}, discardLogger)

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/jobs/stream", nil)
	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "http://api.example.com")
	assert.True(t, h.checkOrigin(req), "same host")

	req.Header.Set("Origin", "https://other.example.com")
	assert.False(t, h.checkOrigin(req))
}
