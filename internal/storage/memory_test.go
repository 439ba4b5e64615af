package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	info, err := s.Put(ctx, "documents/a.txt", strings.NewReader("hello"), PutObjectOptions{Size: 5, ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "documents/a.txt", info.Key)
	assert.NotEmpty(t, info.ETag)

	ok, err := s.Exists(ctx, "documents/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, got, err := s.Get(ctx, "documents/a.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "text/plain", got.ContentType)

	url, err := s.PresignGet(ctx, "documents/a.txt", PresignOptions{Expiry: time.Minute, FileName: "a.txt", Inline: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://documents/a.txt?"))
	assert.Contains(t, url, "response-content-disposition=inline%3B+filename%3Da.txt")

	require.NoError(t, s.Delete(ctx, "documents/a.txt"))
	require.NoError(t, s.Delete(ctx, "documents/a.txt"))

	ok, _ = s.Exists(ctx, "documents/a.txt")
	assert.False(t, ok)
	_, _, err = s.Get(ctx, "documents/a.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStorage_CancelledPut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemory()
	_, err := s.Put(ctx, "k", strings.NewReader("x"), PutObjectOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len())
}
