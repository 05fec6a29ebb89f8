// Package indicators рассчитывает индикаторы по ряду свечей.
//
// Все ряды выровнены по индексам входных баров: значение бара i лежит в Values[i].
// Бары до окончания прогрева индикатора недоступны, At возвращает ok == false.
package indicators

// Series ряд значений индикатора, выровненный по барам
type Series struct {
	Values []float64
	// Start индекс первого доступного значения. Start >= len(Values) - ряд пуст.
	Start int
}

// unavailable возвращает ряд длины n без доступных значений
func unavailable(n int) Series {
	return Series{Values: make([]float64, n), Start: n}
}

// At возвращает значение бара i и признак его доступности
func (s Series) At(i int) (float64, bool) {
	if i < s.Start || i < 0 || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i], true
}

// Len количество баров во входном ряду
func (s Series) Len() int {
	return len(s.Values)
}

// Available возвращает только доступные значения: N - P + 1 значений,
// выровненных по концу окна
func (s Series) Available() []float64 {
	if s.Start >= len(s.Values) {
		return nil
	}
	return s.Values[s.Start:]
}
