// Package conditions вычисляет условия фильтров для одного бара.
package conditions

import (
	"github.com/skalibog/bfsignal/internal/analysis/indicators"
	"github.com/skalibog/bfsignal/internal/analysis/trend"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/models"
)

// TrueRangeLag сдвиг True Range относительно остальных индикаторов в фильтре волатильности.
// Сохраняется ради совпадения с историческими сигналами.
const TrueRangeLag = 1

// Set набор условий для одного бара
type Set struct {
	BullishTrend   bool
	BearishTrend   bool
	HighVolatility bool
	MomentumBuy    bool
	MomentumSell   bool
	StrongTrend    bool
	Chop           bool
}

// Evaluate вычисляет все условия бара i.
// Если нужного значения индикатора нет, зависящее от него условие ложно.
func Evaluate(frame *indicators.Frame, bias []trend.Bias, candles []*models.Candle, i int, cfg config.SignalConfig) Set {
	var set Set
	closePrice := candles[i].Close

	if ema, ok := frame.EMAFilter.At(i); ok {
		set.BullishTrend = closePrice > ema && bias[i].CloseOpen > 0
		set.BearishTrend = closePrice < ema && bias[i].OpenClose > 0
	}

	set.HighVolatility = highVolatility(frame, i, cfg.VolatilityFactor)
	set.MomentumBuy, set.MomentumSell = momentum(frame.MACD, i)

	if adx, ok := frame.ADX.At(i); ok {
		set.StrongTrend = adx >= cfg.ADXThreshold
		set.Chop = adx < cfg.ADXThreshold
	}
	return set
}

// highVolatility сравнивает True Range предыдущего бара с ATR текущего
func highVolatility(frame *indicators.Frame, i int, factor float64) bool {
	tr, ok := frame.TrueRange.At(i - TrueRangeLag)
	if !ok {
		return false
	}
	atr, ok := frame.ATR.At(i)
	if !ok {
		return false
	}
	return tr > atr*factor
}

// momentum ищет свежее пересечение MACD и сигнальной линии на баре i
func momentum(m indicators.MACDSeries, i int) (buy, sell bool) {
	hist, ok := m.Histogram.At(i)
	if !ok {
		return false, false
	}
	line, okLine := m.Line.At(i)
	signal, okSignal := m.Signal.At(i)
	prevLine, okPrevLine := m.Line.At(i - 1)
	prevSignal, okPrevSignal := m.Signal.At(i - 1)
	if !okLine || !okSignal || !okPrevLine || !okPrevSignal {
		return false, false
	}

	buy = hist > 0 && line > signal && prevLine <= prevSignal
	sell = hist < 0 && line < signal && prevLine >= prevSignal
	return buy, sell
}
