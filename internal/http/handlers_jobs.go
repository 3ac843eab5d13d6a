package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/target/drive-notes/internal/service/progress"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamReadLimit  = 512
)

// Stream message types sent to the browser.
const (
	streamSnapshot = "snapshot"
	streamUpdate   = "update"
)

type streamMessage struct {
	Type     string             `json:"type"`
	Snapshot *progress.Snapshot `json:"snapshot,omitempty"`
	Update   *progress.Update   `json:"update,omitempty"`
}

// JobHandlers serves the job snapshot and the live update stream.
type JobHandlers struct {
	Svc DashboardAPI
	// AllowedOrigins are accepted on the stream in addition to same-origin requests.
	AllowedOrigins []string
	// Draining, when fired, closes open streams with 1001.
	Draining *Draining
	Logger   *slog.Logger

	upgrader websocket.Upgrader
}

// NewJobHandlers builds JobHandlers with a configured upgrader.
func NewJobHandlers(svc DashboardAPI, allowedOrigins []string, logger *slog.Logger) *JobHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &JobHandlers{Svc: svc, AllowedOrigins: allowedOrigins, Logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *JobHandlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Snapshot handles GET /api/jobs.
func (h *JobHandlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	snap, err := h.Svc.Jobs(r.Context(), caller)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}

// Stream handles GET /api/jobs/stream?since=<seq>. It upgrades to a
// WebSocket, sends a snapshot of records changed after since, then every
// update as it happens. The server closes with 1013 when the client falls
// behind, so the client reconnects with the last seq it saw, and with 1001
// when the server shuts down.
func (h *JobHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: errors.New("since must be a non-negative integer")})
			return
		}
		since = v
	}

	sub, release, err := h.Svc.Subscribe(caller, since)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Logger.DebugContext(r.Context(), "jobs stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go h.drain(conn, gone)

	snap := sub.Snapshot
	if err := h.send(conn, streamMessage{Type: streamSnapshot, Snapshot: &snap}); err != nil {
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-h.Draining.Done():
			h.closeGoingAway(conn)
			return
		case <-r.Context().Done():
			h.closeGoingAway(conn)
			return
		case u, open := <-sub.Updates:
			if !open {
				// Shutdown unmounts reconcilers, which also ends subscriptions.
				if h.Draining.Active() {
					h.closeGoingAway(conn)
				} else {
					h.closeWith(conn, websocket.CloseTryAgainLater, "resubscribe")
				}
				return
			}
			if err := h.send(conn, streamMessage{Type: streamUpdate, Update: &u}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// drain reads (and discards) client frames so control frames are processed,
// closing gone when the client disconnects.
func (h *JobHandlers) drain(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *JobHandlers) send(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}

func (h *JobHandlers) closeGoingAway(conn *websocket.Conn) {
	h.closeWith(conn, websocket.CloseGoingAway, "server shutting down")
}

func (h *JobHandlers) closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(streamWriteWait))
}
