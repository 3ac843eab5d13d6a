// Package progresschannel connects to the job server's progress WebSocket and
// keeps the connection alive across drops.
package progresschannel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/target/drive-notes/internal/ports"
)

const (
	defaultBaseDelay = 3 * time.Second
	defaultMaxDelay  = time.Minute
	writeWait        = 5 * time.Second
	closeWait        = 2 * time.Second
)

// Config configures a Channel.
type Config struct {
	URL string
	// UserID is sent as the uid query parameter so the server can scope events.
	UserID string
	Header http.Header

	// BaseDelay is the first reconnect delay; it doubles per failed attempt up
	// to MaxDelay and resets once a connection opens.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// PingInterval enables client pings; the read deadline is twice the interval.
	PingInterval     time.Duration
	HandshakeTimeout time.Duration

	Dialer *websocket.Dialer
	Logger *slog.Logger
}

// Channel is a reconnecting progress stream. One Channel serves one Run at a time.
type Channel struct {
	url       string
	header    http.Header
	baseDelay time.Duration
	maxDelay  time.Duration
	ping      time.Duration
	dialer    *websocket.Dialer
	logger    *slog.Logger
}

var _ ports.ProgressChannel = (*Channel)(nil)

// New validates cfg and builds a Channel.
func New(cfg Config) (*Channel, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("progress channel url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse progress channel url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("progress channel url must be ws or wss, got %q", u.Scheme)
	}
	if cfg.UserID != "" {
		q := u.Query()
		q.Set("uid", cfg.UserID)
		u.RawQuery = q.Encode()
	}

	base := cfg.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay < base {
		maxDelay = max(base, defaultMaxDelay)
	}

	dialer := cfg.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		if cfg.HandshakeTimeout > 0 {
			d.HandshakeTimeout = cfg.HandshakeTimeout
		}
		dialer = &d
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		url:       u.String(),
		header:    cfg.Header.Clone(),
		baseDelay: base,
		maxDelay:  maxDelay,
		ping:      cfg.PingInterval,
		dialer:    dialer,
		logger:    logger.With("component", "progress_channel"),
	}, nil
}

// Run dials, delivers messages to h and redials after drops until ctx is
// canceled. On cancel the open connection is closed with a normal closure
// frame and h.OnClose is called with a zero reconnect delay.
func (c *Channel) Run(ctx context.Context, h ports.ChannelHandler) error {
	delay := c.baseDelay
	for attempt := 1; ; attempt++ {
		h.OnConnecting(attempt)
		opened, code, err := c.session(ctx, h)
		if ctx.Err() != nil {
			h.OnClose(websocket.CloseNormalClosure, 0)
			return ctx.Err()
		}
		if err != nil {
			h.OnError(err)
		}

		if opened {
			delay = c.baseDelay
		}
		wait := delay
		delay = min(delay*2, c.maxDelay)

		h.OnClose(code, wait)
		c.logger.Debug("progress channel reconnect scheduled", "attempt", attempt, "code", code, "delay", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// session runs one connection until it drops. opened reports whether the
// dial succeeded.
func (c *Channel) session(ctx context.Context, h ports.ChannelHandler) (opened bool, code int, err error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, websocket.CloseAbnormalClosure, fmt.Errorf("dial progress channel: %w", err)
	}
	defer conn.Close()
	h.OnOpen()

	if c.ping > 0 {
		extend := func() error { return conn.SetReadDeadline(time.Now().Add(2 * c.ping)) }
		_ = extend()
		conn.SetPongHandler(func(string) error { return extend() })
	}

	stop := make(chan struct{})
	defer close(stop)
	go c.watch(ctx, conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				return true, closeErr.Code, nil
			case ctx.Err() != nil:
				return true, websocket.CloseNormalClosure, nil
			default:
				return true, websocket.CloseAbnormalClosure, err
			}
		}
		if c.ping > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * c.ping))
		}
		h.OnMessage(data)
	}
}

// watch sends pings and performs the closing handshake when ctx ends.
func (c *Channel) watch(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	var tick <-chan time.Time
	if c.ping > 0 {
		ticker := time.NewTicker(c.ping)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
				_ = conn.Close()
				return
			}
			// Wait for the peer's close frame, but not forever.
			_ = conn.SetReadDeadline(time.Now().Add(closeWait))
			return
		case <-tick:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("progress channel ping failed", "error", err)
				return
			}
		}
	}
}
