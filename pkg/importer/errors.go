package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass classifies an import failure.
type ErrorClass string

const (
	// ErrorClassNotFound indicates the requested file exists on no search path.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassLoad indicates the file could not be read or evaluated.
	ErrorClassLoad ErrorClass = "load"

	// ErrorClassTransform indicates the loaded data could not be resolved,
	// merged or serialized.
	ErrorClassTransform ErrorClass = "transform"
)

// Error codes.
const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeLoadFailed      = "LOAD_FAILED"
	ErrCodeResolveFailed   = "RESOLVE_FAILED"
	ErrCodeMergeFailed     = "MERGE_FAILED"
	ErrCodeSerializeFailed = "SERIALIZE_FAILED"
)

// Error is a classified import failure. Message is the text reported to
// the stylesheet compiler.
type Error struct {
	Class   ErrorClass `json:"class"`
	Code    string     `json:"code"`
	Message string     `json:"message"`

	// Path is the data file, or the requested URL when it was not found.
	Path string `json:"path,omitempty"`

	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same class and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NotFoundError reports a URL missing from every search directory.
func NotFoundError(url string, dirs []string) *Error {
	return &Error{
		Class: ErrorClassNotFound,
		Code:  ErrCodeNotFound,
		Message: fmt.Sprintf("Unable to find %q from the following path(s): %s. Check includePaths.",
			url, strings.Join(dirs, ", ")),
		Path: url,
	}
}

// LoadError reports a data file that failed to load.
func LoadError(path string, err error) *Error {
	return transformFailure(ErrorClassLoad, ErrCodeLoadFailed, path, err)
}

// TransformError reports loaded data that failed to become declarations.
func TransformError(code, path string, err error) *Error {
	return transformFailure(ErrorClassTransform, code, path, err)
}

func transformFailure(class ErrorClass, code, path string, err error) *Error {
	return &Error{
		Class: class,
		Code:  code,
		Message: fmt.Sprintf("sassdata: Error transforming %s to Sass. Check if the data file parses correctly. %v",
			path, err),
		Path: path,
		Err:  err,
	}
}

// IsNotFound reports whether err is a not-found import failure.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassNotFound
	}
	return false
}

// Class returns the class of an import failure, or "" for other errors.
func Class(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}
