package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	apperrors "github.com/kbukum/scribegate/errors"
)

// ErrNotFound is returned by backends when no object exists under a key.
var ErrNotFound = errors.New("storage: object not found")

// Object is a stored object. The caller must close Body.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	Body        io.ReadCloser
}

// Storage defines the object storage operations used by the gateway.
type Storage interface {
	// Put writes size bytes from r under key. A negative size means unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens the object under key. Missing objects yield ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)

	// Delete removes the object under key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object exists under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// AudioKey returns the object key for a job's audio.
func AudioKey(userID, requestID string) string {
	return path.Join("audio", sanitize(userID), sanitize(requestID))
}

// sanitize keeps a key segment from escaping its directory.
func sanitize(segment string) string {
	segment = strings.ReplaceAll(segment, "/", "_")
	segment = strings.ReplaceAll(segment, "\\", "_")
	if segment == "" || segment == "." || segment == ".." {
		return "_"
	}
	return segment
}

// FromStorage converts a backend error to an AppError. Missing objects
// become NOT_FOUND; everything else marks storage unavailable.
func FromStorage(err error, key string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, ErrNotFound) {
		return apperrors.NotFound("object", key).WithCause(err)
	}
	return apperrors.ServiceUnavailable("storage").WithCause(err)
}
