package cleaner

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrorReason categorizes why a deletion failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorInvalidPath
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "permission denied"
	case ErrorFileInUse:
		return "file is in use"
	case ErrorFileNotFound:
		return "file not found"
	case ErrorIsDirectory:
		return "is a directory"
	case ErrorInvalidPath:
		return "invalid path"
	case ErrorUnknown:
		return "unknown error"
	default:
		return "unspecified error"
	}
}

// DeletionError records why a single item could not be removed. Per-item
// failures accumulate in the batch result; they never abort siblings.
type DeletionError struct {
	Path      string
	Reason    ErrorReason
	Original  error
	Retryable bool
}

// Error implements the error interface
func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Reason, e.Original)
}

func (e *DeletionError) Unwrap() error {
	return e.Original
}

// CategorizeError analyzes an error and returns a categorized DeletionError
func CategorizeError(path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	delErr := &DeletionError{
		Path:     path,
		Original: err,
		Reason:   ErrorUnknown,
	}

	if os.IsNotExist(err) {
		delErr.Reason = ErrorFileNotFound
		return delErr
	}

	if os.IsPermission(err) {
		delErr.Reason = ErrorPermissionDenied
		return delErr
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			delErr.Reason = ErrorPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			delErr.Reason = ErrorFileInUse
			delErr.Retryable = true
		case syscall.ENOENT:
			delErr.Reason = ErrorFileNotFound
		case syscall.EISDIR:
			delErr.Reason = ErrorIsDirectory
		}
		return delErr
	}

	return delErr
}

// GroupErrors groups a batch's item errors by failure reason. Errors
// recorded without a reason fall under the unknown bucket.
func GroupErrors(errs []ItemError) map[string][]ItemError {
	grouped := make(map[string][]ItemError)
	for _, e := range errs {
		reason := e.Reason
		if reason == "" {
			reason = ErrorUnknown.String()
		}
		grouped[reason] = append(grouped[reason], e)
	}
	return grouped
}
