package fetch

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"objgate/logger"
)

// MemoryStore - хранилище объектов в памяти. Используется в режиме mock и в тестах.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*memoryObject
}

type memoryObject struct {
	data         []byte
	etag         string
	contentType  string
	httpMetadata http.Header
}

// NewMemoryStore создает пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*memoryObject),
	}
}

// Put сохраняет объект. ETag вычисляется как md5 содержимого, как это делает S3
// для объектов, загруженных одним запросом.
func (s *MemoryStore) Put(key string, data []byte, contentType string, httpMetadata http.Header) string {
	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	meta := make(http.Header)
	if httpMetadata != nil {
		meta = httpMetadata.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &memoryObject{
		data:         append([]byte(nil), data...),
		etag:         etag,
		contentType:  contentType,
		httpMetadata: meta,
	}
	return etag
}

// Len возвращает количество объектов
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// LoadDir загружает все файлы каталога. Ключ - относительный путь через "/".
func (s *MemoryStore) LoadDir(dir string) (int, error) {
	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		meta := make(http.Header)
		meta.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

		key := filepath.ToSlash(rel)
		s.Put(key, data, mime.TypeByExtension(filepath.Ext(path)), meta)
		logger.Debug("Mock store: loaded object %q (%d bytes)", key, len(data))
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("failed to load objects from %s: %w", dir, err)
	}
	return loaded, nil
}

// GetObject возвращает объект или его диапазон.
// Поддерживается один диапазон; некорректный или составной заголовок Range
// игнорируется, и отдается объект целиком.
func (s *MemoryStore) GetObject(ctx context.Context, key, rangeSpec string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}

	size := int64(len(obj.data))
	meta := Metadata{
		ETag:         obj.etag,
		ContentType:  obj.contentType,
		Size:         size,
		HTTPMetadata: obj.httpMetadata.Clone(),
	}
	body := obj.data

	if rangeSpec != "" {
		start, end, err := parseRange(rangeSpec, size)
		switch {
		case err == nil:
			meta.IsRange = true
			meta.HTTPMetadata.Set("Content-Range", contentRange(start, end, size))
			body = obj.data[start : end+1]
		case errors.Is(err, ErrRangeNotSatisfiable):
			return nil, fmt.Errorf("object %q, range %q: %w", key, rangeSpec, err)
		default:
			logger.Debug("Mock store: ignoring unsupported range %q for %q", rangeSpec, key)
		}
	}

	return &Object{
		Metadata: meta,
		Body:     io.NopCloser(bytes.NewReader(body)),
	}, nil
}
