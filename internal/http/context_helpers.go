package httpx

import (
	"context"

	"github.com/target/drive-notes/internal/service"
)

type ctxKey int

const (
	callerKey ctxKey = iota
	requestKey
)

// requestInfo is shared by the middleware chain for one request. Logging
// creates it; RequireUser fills in the user once known.
type requestInfo struct {
	id     string
	userID string
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, requestKey, info)
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestKey).(*requestInfo)
	return info
}

// RequestID returns the ID assigned to the current request, or "".
func RequestID(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

func withCaller(ctx context.Context, caller service.Caller) context.Context {
	if info := requestInfoFrom(ctx); info != nil {
		info.userID = caller.UserID
	}
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the caller stored by RequireUser.
func CallerFromContext(ctx context.Context) (service.Caller, bool) {
	c, ok := ctx.Value(callerKey).(service.Caller)
	return c, ok && c.UserID != ""
}
