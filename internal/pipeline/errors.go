package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Transports map kinds to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindForbiddenPath
	KindFileNotFound
	KindTooManyFiles
	KindProcessingFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "Invalid input"
	case KindForbiddenPath:
		return "Forbidden path"
	case KindFileNotFound:
		return "File not found"
	case KindTooManyFiles:
		return "Too many files"
	case KindProcessingFailed:
		return "Processing failed"
	}
	return "Internal server error"
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrForbiddenPath    = &Error{Kind: KindForbiddenPath}
	ErrFileNotFound     = &Error{Kind: KindFileNotFound}
	ErrTooManyFiles     = &Error{Kind: KindTooManyFiles}
	ErrProcessingFailed = &Error{Kind: KindProcessingFailed}
	ErrInternal         = &Error{Kind: KindInternal}
)

// Error is a classified failure carrying a caller-facing message and hint.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	// ExpectedFormat, when set, describes the input shape the caller should send.
	ExpectedFormat any
	Err            error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindInternal
}

// Describe returns the caller-facing fields of err. Unclassified errors are
// reduced to a generic message so internal detail never leaks.
func Describe(err error) (title, message, hint string, expected any) {
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind == KindInternal {
		return KindInternal.String(), "An unexpected error occurred", "Retry the request or check the server logs", nil
	}
	return perr.Kind.String(), perr.Message, perr.Hint, perr.ExpectedFormat
}

func invalidInput(err error, expected any) *Error {
	return &Error{
		Kind:           KindInvalidInput,
		Message:        err.Error(),
		Hint:           "Check the request against the tool's input schema",
		ExpectedFormat: expected,
		Err:            err,
	}
}

func forbiddenPath(path string, err error) *Error {
	return &Error{
		Kind:    KindForbiddenPath,
		Message: fmt.Sprintf("Access to %q is not allowed", path),
		Hint:    "Use a path relative to the project root without '..' segments",
		Err:     err,
	}
}

func fileNotFound(path string, err error) *Error {
	return &Error{
		Kind:    KindFileNotFound,
		Message: fmt.Sprintf("File %q does not exist", path),
		Hint:    "Check the path; it is resolved relative to the project root",
		Err:     err,
	}
}

func tooManyFiles(pattern string, limit int) *Error {
	return &Error{
		Kind:    KindTooManyFiles,
		Message: fmt.Sprintf("Pattern %q matched more than %d files", pattern, limit),
		Hint:    "Narrow the pattern, for example to a subdirectory or a file extension",
	}
}

func processingFailed(path string, err error) *Error {
	return &Error{
		Kind:    KindProcessingFailed,
		Message: fmt.Sprintf("Failed to format %q", path),
		Hint:    "Check that the file is a readable text file and its .editorconfig is valid",
		Err:     err,
	}
}
