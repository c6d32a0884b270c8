package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/scribe/db"
	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/logger"
	"github.com/teranos/scribe/pulse/generate"
	"github.com/teranos/scribe/sym"
)

// CacheStore is a generate.Cache kept in generation_cache, so results
// survive across runs. Database errors never fail an item: a failed lookup
// is a miss and a failed store is dropped, both with a warning. A closed
// database is expected while a cancelled run drains and is logged at debug.
type CacheStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewCacheStore creates a persistent cache. logger may be nil.
func NewCacheStore(conn *sql.DB, log *zap.SugaredLogger) *CacheStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CacheStore{db: conn, logger: log.Named("cache")}
}

// Lookup implements generate.Cache
func (c *CacheStore) Lookup(fingerprint string) (generate.Result, bool) {
	var payload string
	err := c.db.QueryRowContext(context.Background(),
		`SELECT result FROM generation_cache WHERE fingerprint = ?`, fingerprint).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.logFailure("Cache lookup failed, treating as miss", fingerprint, err)
		return nil, false
	}

	var result generate.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		c.logger.Warnw(sym.DB+" Cached result is corrupt, treating as miss",
			logger.FieldFingerprint, fingerprint,
			logger.FieldError, err)
		return nil, false
	}
	return result, true
}

// Store implements generate.Cache
func (c *CacheStore) Store(fingerprint string, result generate.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warnw(sym.DB+" Result not cacheable",
			logger.FieldFingerprint, fingerprint,
			logger.FieldError, err)
		return
	}

	_, err = c.db.ExecContext(context.Background(), `
		INSERT INTO generation_cache (fingerprint, result, created_at) VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET result = excluded.result, created_at = excluded.created_at
	`, fingerprint, string(payload), time.Now().UTC())
	if err != nil {
		c.logFailure("Cache store failed", fingerprint, err)
	}
}

func (c *CacheStore) logFailure(msg, fingerprint string, err error) {
	if db.IsDatabaseClosed(err) {
		c.logger.Debugw(sym.DB+" "+msg+" (database closed)",
			logger.FieldFingerprint, fingerprint)
		return
	}
	c.logger.Warnw(sym.DB+" "+msg,
		logger.FieldFingerprint, fingerprint,
		logger.FieldError, err)
}

// Len returns the number of cached results
func (c *CacheStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_cache`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count cache entries")
	}
	return n, nil
}

// Clear removes every cached result and reports how many were removed
func (c *CacheStore) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM generation_cache`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count cleared cache entries")
	}
	return n, nil
}
