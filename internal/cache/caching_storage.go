// Package cache кеширует чтение свечей в Redis поверх основного хранилища
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

const scanCount = 200

// CachingStorage оборачивает storage.Storage и кеширует GetCandles в Redis.
// Остальные методы уходят в основное хранилище без изменений.
type CachingStorage struct {
	storage.Storage
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingStorage создает кеширующую обертку.
// Если ttl не задан, используется минута; пустой namespace заменяется на "candles".
// При rdb == nil кеш не используется.
func NewCachingStorage(rdb *redis.Client, ttl time.Duration, inner storage.Storage, namespace string) *CachingStorage {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CachingStorage{
		Storage:   inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// SaveCandles сохраняет свечи и сбрасывает кеш затронутых рядов
func (c *CachingStorage) SaveCandles(ctx context.Context, candles []*models.Candle) error {
	if err := c.Storage.SaveCandles(ctx, candles); err != nil {
		return err
	}
	if c.rdb == nil || len(candles) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	for _, cd := range candles {
		if cd == nil {
			continue
		}
		prefix := c.cacheKeyPrefix(cd.Symbol, cd.Interval)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		if err := c.deleteByPattern(ctx, prefix+"*"); err != nil {
			logger.Warn("Не удалось сбросить кеш свечей",
				zap.String("prefix", prefix),
				zap.Error(err))
		}
	}
	return nil
}

// GetCandles сначала ищет свечи в Redis, затем в основном хранилище
func (c *CachingStorage) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	if c.rdb == nil {
		return c.Storage.GetCandles(ctx, symbol, interval, limit)
	}

	key := c.cacheKey(symbol, interval, limit)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []*models.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// битая запись
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.Storage.GetCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			logger.Debug("Не удалось записать свечи в кеш", zap.String("key", key), zap.Error(err))
		}
	}

	return out, nil
}

func (c *CachingStorage) cacheKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safe(symbol), safe(interval), limit)
}

func (c *CachingStorage) cacheKeyPrefix(symbol, interval string) string {
	return fmt.Sprintf("%s:%s:%s:", c.namespace, safe(symbol), safe(interval))
}

// deleteByPattern удаляет ключи по шаблону через SCAN
func (c *CachingStorage) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			return nil
		}
	}
}

// safe убирает из части ключа пробелы и двоеточия
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, ":", "_")
}
