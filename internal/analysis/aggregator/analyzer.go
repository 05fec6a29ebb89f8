package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/analysis/technical"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

// Analyzer рассчитывает сигналы по всем отслеживаемым символам
type Analyzer struct {
	storage       storage.Storage
	technicalAnal *technical.Analyzer
	symbols       []string
	interval      string
	history       int
	now           func() time.Time
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(cfg config.AnalysisConfig, trading config.TradingConfig, store storage.Storage) *Analyzer {
	return &Analyzer{
		storage:       store,
		technicalAnal: technical.NewAnalyzer(cfg.Signal),
		symbols:       trading.Symbols,
		interval:      trading.Interval,
		history:       trading.History,
		now:           time.Now,
	}
}

// Symbols возвращает отслеживаемые символы
func (a *Analyzer) Symbols() []string {
	return a.symbols
}

// StoredSymbols возвращает символы, по которым в хранилище уже есть свечи
func (a *Analyzer) StoredSymbols(ctx context.Context) ([]string, error) {
	return a.storage.GetSymbols(ctx)
}

// Signals рассчитывает полный ряд сигналов символа без сохранения
func (a *Analyzer) Signals(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
	return a.technicalAnal.Analyze(ctx, a.storage, symbol, interval, limit)
}

// GenerateSignals генерирует сигналы для всех отслеживаемых символов.
// Символы без достаточной истории пропускаются.
func (a *Analyzer) GenerateSignals(ctx context.Context) (map[string]*models.SignalResult, error) {
	runID := uuid.NewString()

	results := make(map[string]*models.SignalResult)
	var wg sync.WaitGroup
	var mutex sync.Mutex

	for _, symbol := range a.symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			signal, err := a.generateSignalForSymbol(ctx, runID, sym)
			if err != nil {
				// Логируем ошибку, но продолжаем для других символов
				logger.Error("Ошибка генерации сигнала", zap.String("symbol", sym), zap.Error(err))
				return
			}
			if signal == nil {
				return
			}

			mutex.Lock()
			results[sym] = signal
			mutex.Unlock()
		}(symbol)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("генерация сигналов прервана: %w", err)
	}
	return results, nil
}

// generateSignalForSymbol считает сигналы символа и сохраняет последний
func (a *Analyzer) generateSignalForSymbol(ctx context.Context, runID, symbol string) (*models.SignalResult, error) {
	records, err := a.technicalAnal.Analyze(ctx, a.storage, symbol, a.interval, a.history)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		logger.Debug("AGGREGATOR: недостаточно свечей, символ пропущен", zap.String("symbol", symbol))
		return nil, nil
	}

	last := records[len(records)-1]
	result := &models.SignalResult{
		Symbol:         symbol,
		Interval:       a.interval,
		RunID:          runID,
		Timestamp:      a.now(),
		Recommendation: Recommendation(last),
		Confidence:     last.Confidence,
		CurrentPrice:   last.Close,
		Record:         last,
	}

	logger.Debug("AGGREGATOR: сигнал рассчитан",
		zap.String("symbol", symbol),
		zap.String("recommendation", result.Recommendation),
		zap.Int("confidence", result.Confidence))

	// Сохраняем сигнал в хранилище
	if err := a.storage.SaveSignal(ctx, result); err != nil {
		logger.Warn("Не удалось сохранить сигнал", zap.String("symbol", symbol), zap.Error(err))
	}

	return result, nil
}

// Recommendation переводит флаги записи в рекомендацию
func Recommendation(r models.SignalRecord) string {
	switch {
	case r.BuySignal:
		return models.RecommendationBuy
	case r.SellSignal:
		return models.RecommendationSell
	default:
		return models.RecommendationNeutral
	}
}

// GetSignalHistory возвращает историю сигналов для символа
func (a *Analyzer) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	return a.storage.GetSignalHistory(ctx, symbol, limit)
}
