package fetch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrRangeNotSatisfiable - диапазон синтаксически верен, но лежит за пределами объекта
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")

	errInvalidRange = errors.New("invalid range")
)

// parseRange разбирает одиночный байтовый диапазон и возвращает включительные [start,end].
// Несколько диапазонов через запятую считаются неподдерживаемыми (errInvalidRange).
func parseRange(value string, size int64) (int64, int64, error) {
	if !strings.HasPrefix(value, "bytes=") {
		return 0, 0, errInvalidRange
	}

	spec := strings.TrimPrefix(value, "bytes=")
	if strings.Contains(spec, ",") {
		return 0, 0, errInvalidRange
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, errInvalidRange
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	if startStr == "" {
		suffixLen, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffixLen < 0 {
			return 0, 0, errInvalidRange
		}
		if suffixLen == 0 || size == 0 {
			return 0, 0, ErrRangeNotSatisfiable
		}
		if suffixLen >= size {
			return 0, size - 1, nil
		}
		return size - suffixLen, size - 1, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, errInvalidRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, errInvalidRange
		}
	}

	if start >= size {
		return 0, 0, ErrRangeNotSatisfiable
	}
	if end >= size {
		end = size - 1
	}

	return start, end, nil
}

func contentRange(start, end, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, end, size)
}
