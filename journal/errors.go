package journal

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for storage failure classification.
var (
	// ErrPermissionDenied indicates a permission/access failure (EACCES, 403).
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound indicates the target path/resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDiskFull indicates storage is out of space (ENOSPC).
	ErrDiskFull = errors.New("no space left on device")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
	// ErrAuth indicates missing or expired credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork indicates a network-level failure.
	ErrNetwork = errors.New("network error")
	// ErrStorage is any failure not matched above.
	ErrStorage = errors.New("storage error")
)

// StorageError wraps a journal storage failure with its classification.
type StorageError struct {
	// Kind is the sentinel for classification (e.g., ErrPermissionDenied).
	Kind error
	// Op is the operation that failed: init, write, or read.
	Op string
	// Path is the dataset or snapshot involved, if any.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("journal %s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("journal %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// WrapWriteError classifies a write error. Returns nil if err is nil.
func WrapWriteError(err error, path string) error {
	return wrap(err, "write", path)
}

// WrapReadError classifies a read error. Returns nil if err is nil.
func WrapReadError(err error, path string) error {
	return wrap(err, "read", path)
}

// WrapInitError classifies a dataset initialization error. Returns nil if
// err is nil.
func WrapInitError(err error, dataset string) error {
	return wrap(err, "init", dataset)
}

func wrap(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: op, Path: path, Err: err}
}

func classifyError(err error) error {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "permission denied", "EACCES", "AccessDenied", "Forbidden", "403"):
		return ErrPermissionDenied
	case containsAny(msg, "no such file", "does not exist", "ENOENT", "NoSuchKey", "NoSuchBucket", "404"):
		return ErrNotFound
	case containsAny(msg, "no space left", "ENOSPC"):
		return ErrDiskFull
	case containsAny(msg, "NoCredentialProviders", "ExpiredToken", "InvalidAccessKeyId", "failed to retrieve credentials"):
		return ErrAuth
	case containsAny(msg, "connection refused", "no such host", "connection reset", "network is unreachable"):
		return ErrNetwork
	default:
		return ErrStorage
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
