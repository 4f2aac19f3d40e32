package cache

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ErrEntryTooLarge возвращается, если ответ не помещается в кэш
var ErrEntryTooLarge = errors.New("cache entry too large")

// ErrNotStorable возвращается для ответов с Cache-Control: no-store или private
var ErrNotStorable = errors.New("response is not storable")

// StoredResponse - полный ответ, сохраненный в edge-кэше.
// Тело хранится целиком, так как в кэш попадают только полные 200-ответы.
type StoredResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// Clone возвращает копию с независимыми заголовками.
// Тело не копируется: после сохранения оно только читается.
func (r *StoredResponse) Clone() *StoredResponse {
	return &StoredResponse{
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
		Body:       r.Body,
		StoredAt:   r.StoredAt,
	}
}

// size - приблизительный размер записи в байтах
func (r *StoredResponse) size() int64 {
	n := int64(len(r.Body))
	for k, vv := range r.Header {
		for _, v := range vv {
			n += int64(len(k) + len(v))
		}
	}
	return n
}

// EdgeCache - хранилище полных ответов, ключом служит нормализованный URL запроса.
// Реализации должны быть потокобезопасными; повторная запись по тому же ключу
// перезаписывает значение.
type EdgeCache interface {
	// Match ищет ответ по ключу. Истекшие записи считаются отсутствующими.
	Match(ctx context.Context, key string) (*StoredResponse, bool, error)

	// Put сохраняет ответ по ключу
	Put(ctx context.Context, key string, resp *StoredResponse) error

	// Close освобождает ресурсы кэша
	Close() error
}

// Key строит ключ кэша из абсолютного URL запроса.
// Метод всегда нормализуется к GET, поэтому HEAD и GET делят одну запись.
func Key(u *url.URL) string {
	return http.MethodGet + " " + u.String()
}
