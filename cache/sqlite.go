package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"objgate/logger"
)

// SQLiteCache - персистентный edge-кэш в файле SQLite.
// Ответы хранятся в сериализованном виде (см. Encode).
type SQLiteCache struct {
	db         *sql.DB
	writeMutex sync.Mutex
	defaultTTL time.Duration
	now        func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSQLiteCache открывает (или создает) базу по указанному пути
func NewSQLiteCache(path string, defaultTTL time.Duration) (*SQLiteCache, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache %s: %w", path, err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			expires INTEGER,
			stored_at INTEGER,
			bytes BLOB
		)`,
		"CREATE INDEX IF NOT EXISTS responses_expires_idx ON responses (expires)",
		"PRAGMA journal_mode=WAL",
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize sqlite cache: %w", err)
		}
	}

	logger.Info("SQLite edge cache opened at %s", path)
	return &SQLiteCache{
		db:         db,
		defaultTTL: defaultTTL,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}, nil
}

// Match читает ответ по ключу. Истекшая запись удаляется.
func (s *SQLiteCache) Match(ctx context.Context, key string) (*StoredResponse, bool, error) {
	var expires, storedAt int64
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT expires, stored_at, bytes FROM responses WHERE key = ?", key,
	).Scan(&expires, &storedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite cache lookup failed: %w", err)
	}

	if s.now().After(time.Unix(expires, 0)) {
		s.delete(ctx, key)
		return nil, false, nil
	}

	resp, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	resp.StoredAt = time.Unix(storedAt, 0)
	return resp, true, nil
}

// Put сохраняет ответ; существующая запись перезаписывается
func (s *SQLiteCache) Put(ctx context.Context, key string, resp *StoredResponse) error {
	now := s.now()
	expires, ok := Expiry(resp.Header, now, s.defaultTTL)
	if !ok {
		return ErrNotStorable
	}

	data, err := Encode(resp)
	if err != nil {
		return err
	}

	storedAt := resp.StoredAt
	if storedAt.IsZero() {
		storedAt = now
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO responses (key, expires, stored_at, bytes) VALUES (?, ?, ?, ?)",
		key, expires.Unix(), storedAt.Unix(), data)
	if err != nil {
		return fmt.Errorf("sqlite cache write failed: %w", err)
	}
	return nil
}

// DeleteExpired удаляет все истекшие записи и возвращает их количество
func (s *SQLiteCache) DeleteExpired(ctx context.Context) (int64, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE expires < ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite cache cleanup failed: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanup запускает периодическое удаление истекших записей.
// Останавливается в Close.
func (s *SQLiteCache) StartCleanup(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed, err := s.DeleteExpired(context.Background())
				if err != nil {
					logger.Warn("%v", err)
					continue
				}
				if removed > 0 {
					logger.Debug("SQLite cache cleanup removed %d expired entries", removed)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Close останавливает очистку и закрывает базу
func (s *SQLiteCache) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLiteCache) delete(ctx context.Context, key string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", key); err != nil {
		logger.Warn("Failed to delete expired cache entry %s: %v", key, err)
	}
}
