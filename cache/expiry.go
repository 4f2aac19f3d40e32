package cache

import (
	"net/http"
	"time"

	"github.com/pquerna/cachecontrol/cacheobject"
)

// Expiry вычисляет время истечения записи по Cache-Control сохраняемого ответа.
// s-maxage важнее max-age; без них используется defaultTTL.
// Возвращает false, если ответ нельзя хранить (no-store, private).
func Expiry(header http.Header, now time.Time, defaultTTL time.Duration) (time.Time, bool) {
	value := header.Get("Cache-Control")
	if value == "" {
		return now.Add(defaultTTL), true
	}

	directives, err := cacheobject.ParseResponseCacheControl(value)
	if err != nil {
		return now.Add(defaultTTL), true
	}

	if directives.NoStore || directives.PrivatePresent {
		return time.Time{}, false
	}

	switch {
	case directives.SMaxAge > 0:
		return now.Add(time.Duration(directives.SMaxAge) * time.Second), true
	case directives.MaxAge > 0:
		return now.Add(time.Duration(directives.MaxAge) * time.Second), true
	default:
		return now.Add(defaultTTL), true
	}
}
