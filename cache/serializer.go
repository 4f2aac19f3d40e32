package cache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Encode сериализует ответ в формат HTTP/1.1 (статус, заголовки, тело)
func Encode(resp *StoredResponse) ([]byte, error) {
	r := &http.Response{
		StatusCode:    resp.StatusCode,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
	}
	if r.Header == nil {
		r.Header = make(http.Header)
	}

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode восстанавливает ответ из байт, записанных Encode
func Decode(data []byte) (*StoredResponse, error) {
	r, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored body: %w", err)
	}

	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return &StoredResponse{
		StatusCode: r.StatusCode,
		Header:     r.Header,
		Body:       body,
	}, nil
}
