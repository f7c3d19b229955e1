package session

import (
	"fmt"
	"strconv"
)

// Error codes
const (
	ErrCodeAlreadyExists         = "ALREADY_EXISTS"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeNotReadable           = "NOT_READABLE"
	ErrCodeNotWritable           = "NOT_WRITABLE"
	ErrCodeIsDirectory           = "IS_DIRECTORY"
	ErrCodeWrite                 = "WRITE_ERROR"
	ErrCodeInvalidDirectory      = "INVALID_DIRECTORY"
	ErrCodeDirectoryCreateFailed = "DIRECTORY_CREATE_FAILED"
	ErrCodeInvalidArgument       = "INVALID_ARGUMENT"
	ErrCodeExecution             = "EXECUTION_ERROR"
)

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrAlreadyExists         = &Error{Code: ErrCodeAlreadyExists}
	ErrNotFound              = &Error{Code: ErrCodeNotFound}
	ErrNotReadable           = &Error{Code: ErrCodeNotReadable}
	ErrNotWritable           = &Error{Code: ErrCodeNotWritable}
	ErrIsDirectory           = &Error{Code: ErrCodeIsDirectory}
	ErrWrite                 = &Error{Code: ErrCodeWrite}
	ErrInvalidDirectory      = &Error{Code: ErrCodeInvalidDirectory}
	ErrDirectoryCreateFailed = &Error{Code: ErrCodeDirectoryCreateFailed}
	ErrInvalidArgument       = &Error{Code: ErrCodeInvalidArgument}
	ErrExecution             = &Error{Code: ErrCodeExecution}
)

// Error is returned by every Store operation. Path is the resolved session
// file (or directory) the operation was working on.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	quoted := strconv.Quote(e.Path)

	var msg string
	switch e.Code {
	case ErrCodeAlreadyExists:
		msg = fmt.Sprintf("File %s already exists", quoted)
	case ErrCodeNotFound:
		msg = fmt.Sprintf("File %s does not exist", quoted)
	case ErrCodeNotReadable:
		msg = fmt.Sprintf("Can't open file %s for reading", quoted)
	case ErrCodeNotWritable:
		msg = fmt.Sprintf("Can't open file %s for writing", quoted)
	case ErrCodeIsDirectory:
		msg = fmt.Sprintf("%s is a directory", quoted)
	case ErrCodeWrite:
		msg = fmt.Sprintf("Failed to write %s", quoted)
	case ErrCodeInvalidDirectory:
		msg = fmt.Sprintf("%s is not a directory", quoted)
	case ErrCodeDirectoryCreateFailed:
		msg = fmt.Sprintf("Failed to create directory %s", quoted)
	case ErrCodeInvalidArgument:
		msg = "Argument required"
	case ErrCodeExecution:
		msg = fmt.Sprintf("Failed to load session %s", quoted)
	default:
		msg = fmt.Sprintf("session error %s on %s", e.Code, quoted)
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a session error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code, path string, err error) *Error {
	return &Error{Code: code, Path: path, Err: err}
}
