package giga

import "fmt"

// ErrorCode is a stable identifier for an error kind, suitable for
// comparison in tests and for mapping to HTTP status codes.
type ErrorCode string

const (
	NotFound       ErrorCode = "not-found"
	AlreadyExists  ErrorCode = "already-exists"
	InvalidState   ErrorCode = "invalid-state"
	InvalidAmount  ErrorCode = "invalid-amount"
	DBConflict     ErrorCode = "db-conflict"
	NotAvailable   ErrorCode = "not-available"
	BadRequest     ErrorCode = "bad-request"
	Unauthorized   ErrorCode = "unauthorized"
	UnknownToken   ErrorCode = "unknown-token"
)

// ErrorInfo is the concrete error type returned by giga packages.
// Code is meant to be inspected by callers (IsNotFound, IsDBConflict
// etc); Err optionally wraps the underlying cause for logging.
type ErrorInfo struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e ErrorInfo) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e ErrorInfo) Unwrap() error {
	return e.Err
}

// NewErr constructs an ErrorInfo with a formatted message.
func NewErr(code ErrorCode, format string, args ...any) ErrorInfo {
	return ErrorInfo{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapErr constructs an ErrorInfo that wraps an underlying error.
func WrapErr(code ErrorCode, err error, format string, args ...any) ErrorInfo {
	return ErrorInfo{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

func codeOf(err error) ErrorCode {
	if info, ok := err.(ErrorInfo); ok {
		return info.Code
	}
	return ""
}

func IsNotFound(err error) bool      { return codeOf(err) == NotFound }
func IsAlreadyExists(err error) bool { return codeOf(err) == AlreadyExists }
func IsInvalidState(err error) bool  { return codeOf(err) == InvalidState }
func IsDBConflict(err error) bool    { return codeOf(err) == DBConflict }
func IsNotAvailable(err error) bool  { return codeOf(err) == NotAvailable }
func IsBadRequest(err error) bool    { return codeOf(err) == BadRequest }
