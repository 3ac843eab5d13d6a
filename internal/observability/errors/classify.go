// Package errors reduces errors to short, low-cardinality class names for
// metric tags.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	apperrors "github.com/target/drive-notes/internal/errors"
)

const unknownClass = "unknown"

// Classify names the class of err, or "" for nil. Checks run from most to
// least specific: context, application code, websocket close, network, and
// finally the innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return string(apperrors.ErrCodeTimeout)
	}
	if goerrors.Is(err, context.Canceled) {
		return string(apperrors.ErrCodeCanceled)
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	var closeErr *websocket.CloseError
	if goerrors.As(err, &closeErr) {
		return "ws_close_" + strconv.Itoa(closeErr.Code)
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) && netErr.Timeout() {
		return string(apperrors.ErrCodeTimeout)
	}
	var opErr *net.OpError
	if goerrors.As(err, &opErr) {
		return "network_" + opErr.Op
	}

	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return unknownClass
	}
	return strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
}
