package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// ErrObjectNotFound возвращается, если объекта с таким ключом нет в хранилище
var ErrObjectNotFound = errors.New("object not found")

// Metadata - метаданные объекта, полученные из хранилища
type Metadata struct {
	ETag        string // Непрозрачный валидатор, сравнивается как строка
	ContentType string // Может быть пустым
	Size        int64  // -1, если размер неизвестен
	IsRange     bool   // Тело содержит только часть объекта

	// HTTPMetadata - заголовки, сохраненные вместе с объектом
	// (Content-Disposition, Content-Encoding, Content-Language, Cache-Control,
	// Expires, Last-Modified, Content-Range)
	HTTPMetadata http.Header
}

// Object - найденный объект. Вызывающий обязан закрыть Body.
type Object struct {
	Metadata Metadata
	Body     io.ReadCloser
}

// WriteHTTPMetadata копирует сохраненные заголовки объекта в h
func (m *Metadata) WriteHTTPMetadata(h http.Header) {
	for name, values := range m.HTTPMetadata {
		for _, v := range values {
			h.Add(name, v)
		}
	}
}

// ObjectStore - хранилище-источник объектов.
// rangeSpec - значение заголовка Range как есть; пустая строка означает весь объект.
type ObjectStore interface {
	GetObject(ctx context.Context, key, rangeSpec string) (*Object, error)
}
