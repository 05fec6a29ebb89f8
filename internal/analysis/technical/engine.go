package technical

import (
	"errors"
	"fmt"
	"math"

	"github.com/skalibog/bfsignal/internal/analysis/conditions"
	"github.com/skalibog/bfsignal/internal/analysis/indicators"
	"github.com/skalibog/bfsignal/internal/analysis/trend"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/models"
)

// MaxConfidence число фильтров, участвующих в оценке уверенности
const MaxConfidence = 4

// MalformedCandleError свеча с нечисловыми полями или нарушенным диапазоном
type MalformedCandleError struct {
	Index  int
	Reason string
}

func (e *MalformedCandleError) Error() string {
	return fmt.Sprintf("некорректная свеча #%d: %s", e.Index, e.Reason)
}

// ValidateCandles проверяет, что поля конечны и low <= {open, close} <= high.
// Порядок по времени не проверяется: за него отвечает вызывающий код.
func ValidateCandles(candles []*models.Candle) error {
	for i, c := range candles {
		if c == nil {
			return &MalformedCandleError{Index: i, Reason: "пустая свеча"}
		}
		for _, f := range []struct {
			name  string
			value float64
		}{
			{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}, {"volume", c.Volume},
		} {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				return &MalformedCandleError{Index: i, Reason: fmt.Sprintf("поле %s не является конечным числом", f.name)}
			}
		}
		if c.Low > math.Min(c.Open, c.Close) || c.High < math.Max(c.Open, c.Close) {
			return &MalformedCandleError{
				Index:  i,
				Reason: fmt.Sprintf("нарушено low <= open, close <= high (o=%v h=%v l=%v c=%v)", c.Open, c.High, c.Low, c.Close),
			}
		}
	}
	return nil
}

// ComputeSignals рассчитывает сигналы для каждого бара после прогрева индикаторов.
//
// Функция чистая: не хранит состояние между вызовами и не пишет логи, поэтому
// ее можно вызывать параллельно для разных символов. Если свечей меньше
// максимального окна индикаторов, возвращается пустой срез без ошибки.
func ComputeSignals(candles []*models.Candle, cfg config.SignalConfig) ([]models.SignalRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateCandles(candles); err != nil {
		return nil, err
	}

	frame, err := indicators.Compute(candles, cfg)
	if errors.Is(err, indicators.ErrInsufficientData) {
		return []models.SignalRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка расчета индикаторов: %w", err)
	}

	bias := trend.RollingMeanDiff(candles, cfg.TrendLength)
	warmup := cfg.WarmupBars()

	records := make([]models.SignalRecord, 0, len(candles)-warmup)
	for i := warmup; i < len(candles); i++ {
		set := conditions.Evaluate(frame, bias, candles, i, cfg)
		records = append(records, buildRecord(candles[i], frame, i, set))
	}
	return records, nil
}

// buildRecord собирает запись сигнала из условий бара
func buildRecord(candle *models.Candle, frame *indicators.Frame, i int, set conditions.Set) models.SignalRecord {
	ema, _ := frame.EMAFilter.At(i)

	return models.SignalRecord{
		Timestamp:      candle.OpenTime,
		Close:          candle.Close,
		BuySignal:      set.BullishTrend && set.MomentumBuy && set.HighVolatility && set.StrongTrend,
		SellSignal:     set.BearishTrend && set.MomentumSell && set.HighVolatility && set.StrongTrend,
		Confidence:     Confidence(set),
		EMAFilter:      ema,
		ADX:            optional(frame.ADX, i),
		ATR:            optional(frame.ATR, i),
		Chop:           set.Chop,
		StrongTrend:    set.StrongTrend,
		BullishTrend:   set.BullishTrend,
		BearishTrend:   set.BearishTrend,
		HighVolatility: set.HighVolatility,
		MomentumBuy:    set.MomentumBuy,
		MomentumSell:   set.MomentumSell,
	}
}

// Confidence количество выполненных фильтров: тренд, волатильность, сила тренда, импульс
func Confidence(set conditions.Set) int {
	count := 0
	for _, ok := range []bool{
		set.BullishTrend || set.BearishTrend,
		set.HighVolatility,
		set.StrongTrend,
		set.MomentumBuy || set.MomentumSell,
	} {
		if ok {
			count++
		}
	}
	return count
}

func optional(s indicators.Series, i int) *float64 {
	v, ok := s.At(i)
	if !ok {
		return nil
	}
	return &v
}
