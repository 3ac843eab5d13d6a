package ports

import (
	"context"
	"time"

	"github.com/target/drive-notes/internal/domain/progress"
)

// ChannelHandler receives lifecycle callbacks from a ProgressChannel. Calls are
// made from the channel's goroutine, one at a time.
type ChannelHandler interface {
	// OnConnecting is called before each dial; attempt starts at 1.
	OnConnecting(attempt int)
	OnOpen()
	OnMessage(data []byte)
	OnError(err error)
	// OnClose reports the close code. reconnectIn is zero when the channel is
	// shutting down and will not redial.
	OnClose(code int, reconnectIn time.Duration)
}

// ProgressChannel is a long-lived duplex connection to the job server's
// progress stream. Run blocks, reconnecting on drops, until ctx is canceled.
type ProgressChannel interface {
	Run(ctx context.Context, h ChannelHandler) error
}

// SummaryHistory persists terminal job outcomes per user.
type SummaryHistory interface {
	Record(ctx context.Context, s progress.Summary) error
	// ForFiles returns the stored outcomes for the given files, keyed by file id.
	ForFiles(ctx context.Context, userID string, fileIDs []string) (map[string]progress.Summary, error)
	Forget(ctx context.Context, userID, fileID string) error
}
