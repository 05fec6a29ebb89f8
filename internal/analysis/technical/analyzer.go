package technical

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

// Analyzer считает сигналы по свечам из хранилища
type Analyzer struct {
	config config.SignalConfig
}

// NewAnalyzer создает новый анализатор технических сигналов
func NewAnalyzer(cfg config.SignalConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Config возвращает параметры движка
func (a *Analyzer) Config() config.SignalConfig {
	return a.config
}

// Analyze загружает последние limit свечей символа и рассчитывает по ним сигналы
func (a *Analyzer) Analyze(ctx context.Context, store storage.Storage, symbol, interval string, limit int) ([]models.SignalRecord, error) {
	candles, err := store.GetCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	records, err := ComputeSignals(candles, a.config)
	if err != nil {
		return nil, fmt.Errorf("ошибка расчета сигналов %s: %w", symbol, err)
	}

	if len(records) == 0 {
		logger.Debug("Недостаточно данных для сигналов",
			zap.String("symbol", symbol),
			zap.Int("candles_available", len(candles)),
			zap.Int("candles_required", a.config.WarmupBars()+1))
		return records, nil
	}

	last := records[len(records)-1]
	logger.Debug("Технический анализ завершен",
		zap.String("symbol", symbol),
		zap.Int("records", len(records)),
		zap.Bool("buy", last.BuySignal),
		zap.Bool("sell", last.SellSignal),
		zap.Int("confidence", last.Confidence))

	return records, nil
}
