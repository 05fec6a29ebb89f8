package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/logger"
)

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", cfg.Addr, err)
	}

	logger.Info("Подключение к Redis установлено", zap.String("addr", cfg.Addr))
	return rdb, nil
}
