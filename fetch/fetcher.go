package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"objgate/backend"
	"objgate/logger"
)

// S3Store реализует ObjectStore поверх S3-совместимого бэкенда
type S3Store struct {
	backendProvider backend.BackendProvider
}

// NewS3Store создает новый экземпляр S3Store
func NewS3Store(provider backend.BackendProvider) *S3Store {
	return &S3Store{
		backendProvider: provider,
	}
}

// GetObject запрашивает объект (или его диапазон) у источника.
// Отсутствие объекта возвращается как ErrObjectNotFound, остальные ошибки оборачиваются.
func (s *S3Store) GetObject(ctx context.Context, key, rangeSpec string) (*Object, error) {
	b := s.backendProvider.GetOrigin()
	if b == nil {
		return nil, fmt.Errorf("no origin backend configured")
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.Config.Bucket),
		Key:    aws.String(key),
	}
	if rangeSpec != "" {
		input.Range = aws.String(rangeSpec)
	}

	start := time.Now()
	result, err := b.S3Client.GetObject(ctx, input)
	latency := time.Since(start)

	if err != nil {
		s.backendProvider.ReportFailure(&backend.BackendResult{
			BackendID:  b.ID,
			Method:     "GET",
			StatusCode: statusCodeOf(err),
			Err:        err,
			Duration:   latency,
		})

		if isNotFound(err) {
			logger.Debug("Object %q not found on backend '%s'", key, b.ID)
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object %q from backend '%s': %w", key, b.ID, err)
	}

	meta := metadataFromOutput(result)

	statusCode := http.StatusOK
	if meta.IsRange {
		statusCode = http.StatusPartialContent
	}
	s.backendProvider.ReportSuccess(&backend.BackendResult{
		BackendID:  b.ID,
		Method:     "GET",
		StatusCode: statusCode,
		Duration:   latency,
	})

	// Оборачиваем тело ответа в счетчик байт
	body := &bytesCountingReader{
		reader:    result.Body,
		backendID: b.ID,
		provider:  s.backendProvider,
	}

	return &Object{Metadata: meta, Body: body}, nil
}

// metadataFromOutput переводит ответ GetObject в метаданные объекта
func metadataFromOutput(result *s3.GetObjectOutput) Metadata {
	meta := Metadata{
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
		Size:         -1,
		HTTPMetadata: make(http.Header),
	}

	setIfPresent := func(name string, value *string) {
		if v := aws.ToString(value); v != "" {
			meta.HTTPMetadata.Set(name, v)
		}
	}
	setIfPresent("Content-Disposition", result.ContentDisposition)
	setIfPresent("Content-Encoding", result.ContentEncoding)
	setIfPresent("Content-Language", result.ContentLanguage)
	setIfPresent("Cache-Control", result.CacheControl)
	setIfPresent("Expires", result.ExpiresString)
	setIfPresent("Content-Range", result.ContentRange)
	if result.LastModified != nil {
		meta.HTTPMetadata.Set("Last-Modified", result.LastModified.UTC().Format(http.TimeFormat))
	}

	if contentRange := aws.ToString(result.ContentRange); contentRange != "" {
		meta.IsRange = true
		meta.Size = totalFromContentRange(contentRange)
	} else if result.ContentLength != nil {
		meta.Size = *result.ContentLength
	}

	return meta
}

// totalFromContentRange извлекает полный размер из "bytes 0-99/1000"; -1, если он неизвестен
func totalFromContentRange(value string) int64 {
	idx := strings.LastIndexByte(value, '/')
	if idx < 0 {
		return -1
	}
	total, err := strconv.ParseInt(value[idx+1:], 10, 64)
	if err != nil || total < 0 {
		return -1
	}
	return total
}

// isNotFound определяет, означает ли ошибка отсутствие объекта
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	return statusCodeOf(err) == http.StatusNotFound
}

// statusCodeOf возвращает HTTP статус ответа бэкенда, если он известен
func statusCodeOf(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

// bytesCountingReader оборачивает io.ReadCloser для подсчета прочитанных байт
type bytesCountingReader struct {
	reader    io.ReadCloser
	backendID string
	provider  backend.BackendProvider
	totalRead int64
	closed    bool
}

func (b *bytesCountingReader) Read(p []byte) (n int, err error) {
	n, err = b.reader.Read(p)
	b.totalRead += int64(n)
	return n, err
}

func (b *bytesCountingReader) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	// Записываем метрику при закрытии
	b.provider.AddBytesRead(b.backendID, b.totalRead)
	return b.reader.Close()
}
