package importer

// Status is the outcome of an import request.
type Status int

const (
	// StatusDeclined means the URL is not a data file; other importers
	// should handle it.
	StatusDeclined Status = iota

	// StatusFailed means the request was for a data file but failed.
	StatusFailed

	// StatusOK means Contents holds the declaration document.
	StatusOK
)

// String returns the status name used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusDeclined:
		return "declined"
	case StatusFailed:
		return "failed"
	case StatusOK:
		return "ok"
	default:
		return "unknown"
	}
}

// Result is the outcome of an import request. Failures are returned as
// data, never as panics or Go errors.
type Result struct {
	Status   Status
	Contents string

	// Path is the resolved data file, when resolution succeeded.
	Path string

	Err *Error
}

func declined() Result {
	return Result{Status: StatusDeclined}
}

func failed(path string, err *Error) Result {
	return Result{Status: StatusFailed, Path: path, Err: err}
}

func succeeded(path, contents string) Result {
	return Result{Status: StatusOK, Path: path, Contents: contents}
}
