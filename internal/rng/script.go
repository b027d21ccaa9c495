// Package rng — script.go содержит детерминированную реализацию Provider
// для тестов. Порядок случайных решений в играх фиксирован, поэтому
// заранее заданная последовательность значений позволяет воспроизвести
// любой сценарий спина.
package rng

// Script проигрывает заранее заданные последовательности значений.
// Когда последовательность исчерпана, возвращается нижняя граница
// диапазона — так тесты остаются детерминированными при любом числе
// обращений.
type Script struct {
	Ints   []int
	Floats []float64

	intPos   int
	floatPos int
}

// Int возвращает следующее значение из Ints, обрезанное до [lo, hi].
func (s *Script) Int(lo, hi int) int {
	if s.intPos >= len(s.Ints) {
		return lo
	}
	v := s.Ints[s.intPos]
	s.intPos++
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Float возвращает следующее значение из Floats, обрезанное до [lo, hi].
func (s *Script) Float(lo, hi float64) float64 {
	if s.floatPos >= len(s.Floats) {
		return lo
	}
	v := s.Floats[s.floatPos]
	s.floatPos++
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
