// Package trend оценивает направленный перекос тела свечей.
package trend

import (
	"github.com/markcheno/go-talib"

	"github.com/skalibog/bfsignal/pkg/models"
)

// Bias скользящие средние разниц тела свечи для одного бара
type Bias struct {
	CloseOpen float64 // среднее (close - open)
	OpenClose float64 // среднее (open - close)
}

// RollingMeanDiff считает простую скользящую среднюю (close - open) и (open - close)
// по окну из length баров, заканчивающемуся перед баром i (сам бар i не входит).
// Для i < length обе величины равны нулю: ранние бары не дают перекоса.
//
// Обе средние считаются отдельно, а не как отрицание друг друга.
func RollingMeanDiff(candles []*models.Candle, length int) []Bias {
	out := make([]Bias, len(candles))
	if length <= 0 || len(candles) <= length {
		return out
	}

	closeOpen := make([]float64, len(candles))
	openClose := make([]float64, len(candles))
	for i, c := range candles {
		closeOpen[i] = c.Close - c.Open
		openClose[i] = c.Open - c.Close
	}

	// sma[k] - среднее по [k-length+1, k], для бара i берем k = i-1
	closeOpenSMA := talib.Sma(closeOpen, length)
	openCloseSMA := talib.Sma(openClose, length)

	for i := length; i < len(candles); i++ {
		out[i] = Bias{
			CloseOpen: closeOpenSMA[i-1],
			OpenClose: openCloseSMA[i-1],
		}
	}
	return out
}
