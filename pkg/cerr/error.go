package cerr

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/kazz187/tasktracker/pkg/clog"
)

type Error struct {
	Code  Code
	Msg   string // message shown to the user together with Code
	Err   error  // underlying error kept for logs
	Stack string
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code.Level() == clog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code carried by err, Canceled for context
// cancellation and Unknown for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}
	return Unknown
}

// Message is the text shown to the user for err.
func Message(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Msg
	}
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	return err.Error()
}

// Extract records err on the context logger and returns the code the
// caller should act on.
func Extract(ctx context.Context, err error) Code {
	if err == nil {
		return OK
	}
	clog.AddError(ctx, err)
	return CodeOf(err)
}

// StackOf returns the stack captured when err was created, if any.
func StackOf(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Stack
	}
	return ""
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

// IsPersistence reports whether err is a failure of the backing file.
func IsPersistence(err error) bool {
	return IsCode(err, DataLoss) || IsCode(err, Internal) || IsCode(err, Unavailable)
}
