package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/sha256-simd"
	"go.uber.org/zap"

	"docvault/internal/storage"
)

// sniffLen is how much of an upload is buffered for MIME detection.
const sniffLen = 3072

// FileInput is an upload stream with the metadata the caller declared for it.
type FileInput struct {
	Name        string
	ContentType string
	// Size is the exact byte count, or -1 when unknown.
	Size    int64
	Content io.Reader
}

func (f FileInput) validate() error {
	if f.Content == nil {
		return fmt.Errorf("%w: file content is required", ErrValidation)
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if f.Size == 0 || f.Size < -1 {
		return fmt.Errorf("%w: file is empty", ErrValidation)
	}
	return nil
}

type storedBlob struct {
	key      string
	hash     string
	mimeType string
	fileType string
	size     int64
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// putBlob streams f into the blob store under a fresh key while hashing it.
// The declared content type is kept unless it is missing or generic, in
// which case it is sniffed from the leading bytes.
func putBlob(ctx context.Context, store storage.Storage, f FileInput) (*storedBlob, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mimeType := f.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(head).String()
	}

	hasher := sha256.New()
	body := &countingReader{r: io.TeeReader(io.MultiReader(bytes.NewReader(head), f.Content), hasher)}

	ext := strings.ToLower(filepath.Ext(f.Name))
	key := path.Join("documents", uuid.NewString()+ext)

	info, err := store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        f.Size,
		ContentType: mimeType,
		Metadata:    map[string]string{"original-filename": f.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upload to storage: %v", ErrStorage, err)
	}
	if info.Key != "" {
		key = info.Key
	}

	b := &storedBlob{
		key:      key,
		hash:     hex.EncodeToString(hasher.Sum(nil)),
		mimeType: mimeType,
		fileType: strings.TrimPrefix(ext, "."),
		size:     body.n,
	}
	if b.size == 0 {
		return b, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if f.Size > 0 && b.size != f.Size {
		return b, fmt.Errorf("%w: declared size %d but received %d bytes", ErrValidation, f.Size, b.size)
	}
	return b, nil
}

// discardBlob deletes an orphaned blob after a failed write and folds any
// cleanup failure into the returned error.
func (s *documentService) discardBlob(ctx context.Context, key string, cause error) error {
	cctx, cancel := s.bounded(context.WithoutCancel(ctx))
	defer cancel()

	if err := s.store.Delete(cctx, key); err != nil {
		s.log.Error("blob_compensation_failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w; rollback delete failed: %v", cause, err)
	}
	return cause
}
