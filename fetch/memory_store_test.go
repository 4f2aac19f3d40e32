package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readObject(t *testing.T, obj *Object) string {
	t.Helper()
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	return string(data)
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	meta := make(http.Header)
	meta.Set("Content-Disposition", "attachment")

	etag := store.Put("docs/readme.txt", []byte("hello world"), "text/plain", meta)
	assert.Equal(t, `"5eb63bbbe01eeed093cb22bb8f5acdc3"`, etag)

	// Изменение исходных заголовков не влияет на сохраненный объект
	meta.Set("Content-Disposition", "inline")

	obj, err := store.GetObject(context.Background(), "docs/readme.txt", "")
	require.NoError(t, err)

	assert.Equal(t, etag, obj.Metadata.ETag)
	assert.Equal(t, "text/plain", obj.Metadata.ContentType)
	assert.Equal(t, int64(11), obj.Metadata.Size)
	assert.False(t, obj.Metadata.IsRange)
	assert.Equal(t, "attachment", obj.Metadata.HTTPMetadata.Get("Content-Disposition"))
	assert.Equal(t, "hello world", readObject(t, obj))
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetObject(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	store.Put("a", []byte("a"), "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetObject(ctx, "a", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Range(t *testing.T) {
	store := NewMemoryStore()
	store.Put("digits", []byte("0123456789"), "", nil)

	testCases := []struct {
		name         string
		rangeSpec    string
		body         string
		isRange      bool
		contentRange string
	}{
		{"Explicit", "bytes=2-4", "234", true, "bytes 2-4/10"},
		{"Open ended", "bytes=7-", "789", true, "bytes 7-9/10"},
		{"Suffix", "bytes=-2", "89", true, "bytes 8-9/10"},
		{"End clamped", "bytes=8-100", "89", true, "bytes 8-9/10"},
		{"Multi-range ignored", "bytes=0-1,4-5", "0123456789", false, ""},
		{"Bad unit ignored", "items=0-1", "0123456789", false, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := store.GetObject(context.Background(), "digits", tc.rangeSpec)
			require.NoError(t, err)

			assert.Equal(t, tc.isRange, obj.Metadata.IsRange)
			assert.Equal(t, int64(10), obj.Metadata.Size)
			assert.Equal(t, tc.contentRange, obj.Metadata.HTTPMetadata.Get("Content-Range"))
			assert.Equal(t, tc.body, readObject(t, obj))
		})
	}
}

func TestMemoryStore_RangeNotSatisfiable(t *testing.T) {
	store := NewMemoryStore()
	store.Put("digits", []byte("0123456789"), "", nil)

	_, err := store.GetObject(context.Background(), "digits", "bytes=50-60")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRangeNotSatisfiable))
	assert.False(t, errors.Is(err, ErrObjectNotFound))
}

func TestMemoryStore_RangeDoesNotLeakIntoNextRequest(t *testing.T) {
	store := NewMemoryStore()
	store.Put("digits", []byte("0123456789"), "", nil)

	_, err := store.GetObject(context.Background(), "digits", "bytes=0-1")
	require.NoError(t, err)

	obj, err := store.GetObject(context.Background(), "digits", "")
	require.NoError(t, err)
	assert.Empty(t, obj.Metadata.HTTPMetadata.Get("Content-Range"))
}

func TestMemoryStore_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "photo.jpg"), []byte("jpeg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))

	store := NewMemoryStore()
	loaded, err := store.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, store.Len())

	obj, err := store.GetObject(context.Background(), "img/photo.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.Metadata.ContentType)
	assert.NotEmpty(t, obj.Metadata.HTTPMetadata.Get("Last-Modified"))
	assert.Equal(t, "jpeg", readObject(t, obj))
}

func TestMemoryStore_LoadDirMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.LoadDir(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
