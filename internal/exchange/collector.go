package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

// DataCollector фоновый сборщик рыночных данных
type DataCollector interface {
	Start(ctx context.Context) error
	Stop()
}

var _ DataCollector = (*CandleCollector)(nil)

// KlineFetcher источник свечей
type KlineFetcher interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
}

// CandleCollector периодически загружает свечи по всем символам и сохраняет их
type CandleCollector struct {
	client   KlineFetcher
	storage  storage.Storage
	symbols  []string
	interval string
	history  int
	period   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCandleCollector создает сборщик свечей.
// При старте загружается history свечей, затем каждые period догружаются последние две:
// текущая незакрытая и только что закрытая.
func NewCandleCollector(client KlineFetcher, store storage.Storage, symbols []string, interval string, history int, period time.Duration) *CandleCollector {
	if period <= 0 {
		period = time.Minute
	}
	return &CandleCollector{
		client:   client,
		storage:  store,
		symbols:  symbols,
		interval: interval,
		history:  history,
		period:   period,
		stopCh:   make(chan struct{}),
	}
}

// Start загружает историю и запускает опрос. Блокируется до отмены контекста или Stop.
func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.collect(ctx, c.history); err != nil {
		return fmt.Errorf("ошибка начальной загрузки свечей: %w", err)
	}

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.collect(ctx, 2); err != nil {
				logger.Warn("Ошибка обновления свечей", zap.Error(err))
			}
		case <-c.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop останавливает сборщик
func (c *CandleCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// collect загружает limit свечей по каждому символу.
// Ошибка одного символа не прерывает остальные; возвращается, только если не удалось ни одного.
func (c *CandleCollector) collect(ctx context.Context, limit int) error {
	var failed int
	var lastErr error

	for _, symbol := range c.symbols {
		candles, err := c.client.GetKlines(ctx, symbol, c.interval, limit)
		if err != nil {
			failed++
			lastErr = err
			logger.Warn("Не удалось получить свечи", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		if err := c.storage.SaveCandles(ctx, candles); err != nil {
			failed++
			lastErr = err
			logger.Warn("Не удалось сохранить свечи", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		logger.Debug("Свечи обновлены",
			zap.String("symbol", symbol),
			zap.String("interval", c.interval),
			zap.Int("count", len(candles)))
	}

	if len(c.symbols) > 0 && failed == len(c.symbols) {
		return lastErr
	}
	return nil
}
