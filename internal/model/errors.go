// internal/model/errors.go
package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers
type ErrorKind string

const (
	KindUnsupportedCapability ErrorKind = "UNSUPPORTED_CAPABILITY"
	KindBusy                  ErrorKind = "BUSY"
	KindAccessDenied          ErrorKind = "ACCESS_DENIED"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindConnectFailed         ErrorKind = "CONNECT_FAILED"
	KindWriteFailed           ErrorKind = "WRITE_FAILED"
	KindCompileError          ErrorKind = "COMPILE_ERROR"
	KindNotConnected          ErrorKind = "NOT_CONNECTED"
	KindInternal              ErrorKind = "INTERNAL"
)

// Error carries a kind and the operation that failed
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind and message so wrapped copies compare equal
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newSentinel(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrNoRadioSupport    = newSentinel(KindUnsupportedCapability, "no radio support")
	ErrRadioDisabled     = newSentinel(KindUnsupportedCapability, "radio disabled")
	ErrAlreadyInProgress = newSentinel(KindBusy, "already in progress")
	ErrAccessDenied      = newSentinel(KindAccessDenied, "access denied")
	ErrDeviceNotFound    = newSentinel(KindNotFound, "device not found")
	ErrNoDeviceFound     = newSentinel(KindNotFound, "no device found")
	ErrRequestNotFound   = newSentinel(KindNotFound, "access request not found")
	ErrConnectFailed     = newSentinel(KindConnectFailed, "connect failed")
	ErrWriteFailed       = newSentinel(KindWriteFailed, "write failed")
	ErrCompile           = newSentinel(KindCompileError, "compile error")
	ErrNotConnected      = newSentinel(KindNotConnected, "not connected")
)

// Wrap attaches an operation name and cause to a sentinel
func Wrap(sentinel *Error, op string, err error) error {
	return &Error{Kind: sentinel.Kind, Op: op, Message: sentinel.Message, Err: err}
}

// Errorf builds a wrapped sentinel with a formatted cause
func Errorf(sentinel *Error, op, format string, args ...interface{}) error {
	return Wrap(sentinel, op, fmt.Errorf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
