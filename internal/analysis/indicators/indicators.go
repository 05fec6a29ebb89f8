package indicators

import (
	"errors"

	"github.com/markcheno/go-talib"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/models"
)

// ErrInsufficientData ряд короче максимального окна индикаторов
var ErrInsufficientData = errors.New("недостаточно данных для расчета индикаторов")

// MACDSeries линия MACD, сигнальная линия и гистограмма
type MACDSeries struct {
	Line      Series
	Signal    Series
	Histogram Series
}

// Frame набор индикаторов, рассчитанных по одному ряду свечей
type Frame struct {
	EMAFilter Series
	TrueRange Series
	ATR       Series
	ADX       Series
	MACD      MACDSeries
}

// Columns раскладывает свечи на ряды цен
func Columns(candles []*models.Candle) (opens, highs, lows, closes []float64) {
	opens = make([]float64, len(candles))
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))

	for i, c := range candles {
		opens[i] = c.Open
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return opens, highs, lows, closes
}

// MaxWindow максимальное окно среди индикаторов конфигурации
func MaxWindow(cfg config.SignalConfig) int {
	return max(cfg.EMAFilterLength, cfg.ATRLength, cfg.MACDSlow, cfg.ADXLength)
}

// Compute рассчитывает все индикаторы движка за один проход.
// Если свечей меньше максимального окна, возвращает ErrInsufficientData.
func Compute(candles []*models.Candle, cfg config.SignalConfig) (*Frame, error) {
	if len(candles) == 0 || len(candles) < MaxWindow(cfg) {
		return nil, ErrInsufficientData
	}

	_, highs, lows, closes := Columns(candles)

	return &Frame{
		EMAFilter: EMA(closes, cfg.EMAFilterLength),
		TrueRange: TrueRange(highs, lows, closes),
		ATR:       ATR(highs, lows, closes, cfg.ATRLength),
		ADX:       ADX(highs, lows, closes, cfg.ADXLength),
		MACD:      MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
	}, nil
}

// EMA экспоненциальная средняя: затравка - простая средняя первых period значений,
// множитель 2 / (period + 1)
func EMA(values []float64, period int) Series {
	if period <= 0 || len(values) < period {
		return unavailable(len(values))
	}
	return Series{Values: talib.Ema(values, period), Start: period - 1}
}

// TrueRange истинный диапазон. Для первого бара не определен.
func TrueRange(highs, lows, closes []float64) Series {
	if len(closes) < 2 {
		return unavailable(len(closes))
	}
	return Series{Values: talib.TRange(highs, lows, closes), Start: 1}
}

// ATR средний истинный диапазон со сглаживанием Уайлдера.
// Затравка - среднее TR[1..period], первое значение на баре period.
func ATR(highs, lows, closes []float64, period int) Series {
	if period <= 0 || len(closes) <= period {
		return unavailable(len(closes))
	}
	return Series{Values: talib.Atr(highs, lows, closes, period), Start: period}
}

// ADX индекс направленного движения Уайлдера, первое значение на баре 2*period-1
func ADX(highs, lows, closes []float64, period int) Series {
	if period <= 0 || len(closes) < 2*period {
		return unavailable(len(closes))
	}
	return Series{Values: talib.Adx(highs, lows, closes, period), Start: 2*period - 1}
}

// MACD разница быстрой и медленной EMA, сигнальная линия - EMA от ряда MACD,
// начиная с его первого доступного значения
func MACD(values []float64, fast, slow, signal int) MACDSeries {
	n := len(values)
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	lineStart := max(fastEMA.Start, slowEMA.Start)
	line := lineOrEmpty(fastEMA, slowEMA, lineStart)

	tail := EMA(line.Available(), signal)
	if tail.Start >= tail.Len() {
		return MACDSeries{Line: line, Signal: unavailable(n), Histogram: unavailable(n)}
	}

	signalStart := lineStart + tail.Start
	signalValues := make([]float64, n)
	copy(signalValues[lineStart:], tail.Values)

	histValues := make([]float64, n)
	for i := signalStart; i < n; i++ {
		histValues[i] = line.Values[i] - signalValues[i]
	}

	return MACDSeries{
		Line:      line,
		Signal:    Series{Values: signalValues, Start: signalStart},
		Histogram: Series{Values: histValues, Start: signalStart},
	}
}

// lineOrEmpty строит линию MACD начиная с бара start
func lineOrEmpty(fastEMA, slowEMA Series, start int) Series {
	n := fastEMA.Len()
	if start >= n {
		return unavailable(n)
	}
	values := make([]float64, n)
	for i := start; i < n; i++ {
		values[i] = fastEMA.Values[i] - slowEMA.Values[i]
	}
	return Series{Values: values, Start: start}
}
