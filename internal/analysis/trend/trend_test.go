package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/bfsignal/pkg/models"
)

func bodies(diffs ...float64) []*models.Candle {
	candles := make([]*models.Candle, len(diffs))
	for i, d := range diffs {
		candles[i] = &models.Candle{Open: 100, Close: 100 + d, High: 110, Low: 90}
	}
	return candles
}

func TestRollingMeanDiff_ExclusiveWindow(t *testing.T) {
	candles := bodies(1, 2, 3, -4, 10)

	got := RollingMeanDiff(candles, 3)
	require.Len(t, got, 5)

	// до прогрева окна перекос нулевой
	for i := 0; i < 3; i++ {
		assert.Equal(t, Bias{}, got[i], "bar %d", i)
	}

	// бар 3: окно [0,3) = 1,2,3; сам бар (-4) не учитывается
	assert.InDelta(t, 2.0, got[3].CloseOpen, 1e-12)
	assert.InDelta(t, -2.0, got[3].OpenClose, 1e-12)

	// бар 4: окно [1,4) = 2,3,-4; значение 10 не учитывается
	assert.InDelta(t, 1.0/3, got[4].CloseOpen, 1e-12)
	assert.InDelta(t, -1.0/3, got[4].OpenClose, 1e-12)
}

func TestRollingMeanDiff_ShortInput(t *testing.T) {
	got := RollingMeanDiff(bodies(1, 2, 3), 3)
	assert.Equal(t, []Bias{{}, {}, {}}, got)

	assert.Empty(t, RollingMeanDiff(nil, 21))
}

func TestRollingMeanDiff_FlatBodies(t *testing.T) {
	got := RollingMeanDiff(bodies(0, 0, 0, 0, 0, 0), 2)
	for i, b := range got {
		assert.Zero(t, b.CloseOpen, "bar %d", i)
		assert.Zero(t, b.OpenClose, "bar %d", i)
	}
}
