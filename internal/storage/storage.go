package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains the blob store contract used by the document core and its
// S3-compatible and in-memory implementations. Keys are opaque handles chosen by the caller.

// ErrObjectNotFound is returned by Get when the key has no object.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
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

// PresignOptions shape the response served through a presigned URL.
type PresignOptions struct {
	Expiry time.Duration
	// FileName is sent back in Content-Disposition when set.
	FileName    string
	ContentType string
	Inline      bool
}

// Storage is the blob store used by the document core.
// Methods use context and streaming readers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that serves the object without credentials.
	PresignGet(ctx context.Context, key string, opt PresignOptions) (string, error)
	// Provider names the backend for version provenance (e.g. "s3", "memory").
	Provider() string
}
