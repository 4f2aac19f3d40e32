package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"objgate/background"
	"objgate/logger"
)

// Writer сохраняет полные ответы в кэш в фоне, не задерживая клиента.
// Задачи выполняются в background.Group, которую процесс дожидается при остановке.
type Writer struct {
	cache         EdgeCache
	group         *background.Group
	maxObjectSize int64
	metrics       *Metrics
}

// NewWriter создает Writer. maxObjectSize <= 0 снимает ограничение. metrics может быть nil.
func NewWriter(c EdgeCache, group *background.Group, maxObjectSize int64, metrics *Metrics) *Writer {
	return &Writer{
		cache:         c,
		group:         group,
		maxObjectSize: maxObjectSize,
		metrics:       metrics,
	}
}

// Schedule ставит запись ответа в очередь фоновых задач
func (w *Writer) Schedule(key string, resp *StoredResponse) bool {
	return w.group.Go("cache-put "+key, func(ctx context.Context) error {
		return w.put(ctx, key, resp)
	})
}

func (w *Writer) put(ctx context.Context, key string, resp *StoredResponse) error {
	if err := w.cache.Put(ctx, key, resp); err != nil {
		if errors.Is(err, ErrEntryTooLarge) || errors.Is(err, ErrNotStorable) {
			logger.Debug("Cache entry %s skipped: %v", key, err)
			return nil
		}
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	logger.Debug("Cache entry %s stored (%d bytes)", key, len(resp.Body))
	return nil
}

// Tee возвращает тело, которое при чтении копируется в буфер.
// Когда тело прочитано до конца, копия ответа уходит в кэш через Schedule.
// Если клиент закрыл тело раньше, остаток дочитывается из источника в фоне.
// Слишком большое тело или тело с ошибкой чтения не кэшируется.
func (w *Writer) Tee(key string, statusCode int, header http.Header, body io.ReadCloser) io.ReadCloser {
	if cl := header.Get("Content-Length"); cl != "" && w.maxObjectSize > 0 {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > w.maxObjectSize {
			logger.Debug("Response for %s is %d bytes, larger than cache limit %d", key, n, w.maxObjectSize)
			w.skipped()
			return body
		}
	}

	t := &teeBody{
		src:    body,
		writer: w,
		key:    key,
		resp: &StoredResponse{
			StatusCode: statusCode,
			Header:     header.Clone(),
		},
	}
	if body == nil {
		t.finish()
		return nil
	}
	return t
}

func (w *Writer) skipped() {
	if w.metrics != nil {
		w.metrics.WritesTotal.WithLabelValues("skipped").Inc()
	}
}

// teeBody копирует прочитанные байты в буфер для кэша
type teeBody struct {
	src      io.ReadCloser
	writer   *Writer
	key      string
	resp     *StoredResponse
	buf      bytes.Buffer
	overflow bool
	failed   bool // ошибка чтения источника, кроме io.EOF
	eof      bool
	closed   bool
	once     sync.Once
}

func (t *teeBody) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	t.capture(p[:n])
	switch {
	case err == io.EOF:
		t.eof = true
		if !t.overflow {
			t.finish()
		}
	case err != nil:
		t.failed = true
	}
	return n, err
}

func (t *teeBody) capture(p []byte) {
	if len(p) == 0 || t.overflow {
		return
	}
	if t.writer.maxObjectSize > 0 && int64(t.buf.Len()+len(p)) > t.writer.maxObjectSize {
		t.overflow = true
		t.buf = bytes.Buffer{}
		t.writer.skipped()
		return
	}
	t.buf.Write(p)
}

// Close закрывает источник. Если тело не дочитано клиентом, источник
// передается фоновой задаче, которая дочитывает его и сохраняет ответ.
func (t *teeBody) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.eof || t.overflow || t.failed {
		return t.src.Close()
	}

	accepted := t.writer.group.Go("cache-fill "+t.key, t.fill)
	if !accepted {
		return t.src.Close()
	}
	return nil
}

// fill дочитывает источник в буфер и сохраняет ответ
func (t *teeBody) fill(ctx context.Context) error {
	// Отмена контекста группы прерывает блокирующее чтение
	stop := context.AfterFunc(ctx, func() { t.src.Close() })
	defer stop()
	defer t.src.Close()

	chunk := make([]byte, 32*1024)
	for {
		n, err := t.src.Read(chunk)
		t.capture(chunk[:n])
		if t.overflow {
			return nil
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("cache fill %s: %w", t.key, err)
		}
	}

	t.resp.Body = t.buf.Bytes()
	t.resp.StoredAt = time.Now()
	return t.writer.put(ctx, t.key, t.resp)
}

// finish отправляет накопленный ответ в кэш ровно один раз
func (t *teeBody) finish() {
	t.once.Do(func() {
		t.resp.Body = t.buf.Bytes()
		t.resp.StoredAt = time.Now()
		t.writer.Schedule(t.key, t.resp)
	})
}
