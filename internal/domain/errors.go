package domain

import (
	"fmt"
	"time"
)

type ErrorCode string

const (
	CodeSessionCreate   ErrorCode = "SESSION_CREATE_ERROR"
	CodeSessionJoin     ErrorCode = "SESSION_JOIN_ERROR"
	CodeSessionLeave    ErrorCode = "SESSION_LEAVE_ERROR"
	CodeSessionDestroy  ErrorCode = "SESSION_DESTROY_ERROR"
	CodeSessionBusy     ErrorCode = "SESSION_BUSY_ERROR"
	CodeKeyRotation     ErrorCode = "KEY_ROTATION_ERROR"
	CodeKeyDistribution ErrorCode = "KEY_DISTRIBUTION_ERROR"
	CodeFocusResolution ErrorCode = "FOCUS_RESOLUTION_ERROR"
)

// RTCError is the error shape surfaced to the UI layer and stored on
// session state as lastError.
type RTCError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func NewRTCError(code ErrorCode, msg string, cause error) *RTCError {
	return &RTCError{Code: code, Message: msg, Timestamp: time.Now(), cause: cause}
}

func Errorf(code ErrorCode, format string, args ...any) *RTCError {
	return NewRTCError(code, fmt.Sprintf(format, args...), nil)
}

func (e *RTCError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RTCError) Unwrap() error { return e.cause }

// Is matches on code so callers can test errors.Is(err, &RTCError{Code: ...}).
func (e *RTCError) Is(target error) bool {
	t, ok := target.(*RTCError)
	return ok && t.Code == e.Code
}
