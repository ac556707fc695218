package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Package storage persists raw document bytes keyed by a generated path.
// It holds no business logic: callers decide what to store and when to delete it.

var (
	// ErrObjectNotFound is returned by Get when no object exists under the key.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrObjectExists is returned by Put when the key is already taken. Objects are never overwritten.
	ErrObjectExists = errors.New("storage: object already exists")
	// ErrInvalidKey is returned for empty keys or keys escaping the storage root.
	ErrInvalidKey = errors.New("storage: invalid key")
)

const (
	maxNameLen = 100
	maxExtLen  = 10
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the blob backend used by the document registry.
// Implementations are safe for concurrent use.
type Storage interface {
	// Put stores the reader's content under key. It fails with ErrObjectExists instead of overwriting.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns the object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey builds a collision-free object key: <prefix>/<uuid>-<sanitized name>.
func NewKey(prefix, suggestedName string) string {
	return path.Join(prefix, uuid.NewString()+"-"+SanitizeName(suggestedName))
}

// SanitizeName reduces a client-supplied file name to a safe, ASCII-only base name,
// transliterating the stem into a slug and keeping a lower-cased extension.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	ext := path.Ext(name)
	stem := slug.Make(strings.TrimSuffix(name, ext))
	ext = slug.Make(strings.TrimPrefix(ext, "."))
	if len(ext) > maxExtLen {
		ext = ext[:maxExtLen]
	}
	if stem == "" {
		stem = "file"
	}
	if ext == "" {
		if len(stem) > maxNameLen {
			stem = strings.TrimRight(stem[:maxNameLen], "-")
		}
		return stem
	}
	if limit := maxNameLen - len(ext) - 1; len(stem) > limit {
		stem = strings.TrimRight(stem[:limit], "-")
	}
	return stem + "." + ext
}
