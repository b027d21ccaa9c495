// Package games реализует игровые движки казино: шесть слот-машин,
// реестр игр и общие примитивы (символы, линии выплат, бонусы, джекпоты).
// symbols.go описывает символы и генерацию сетки.
package games

import (
	"serotonyl.ru/casino-engine/internal/rng"
)

// Symbol представляет символ слот-машины.
// Идентичность символа — его эмодзи: два символа равны,
// если совпадают их глифы.
type Symbol struct {
	Glyph  string // Эмодзи символа (🐉, 💎, 7️⃣ и т.д.)
	Name   string // Название для логов и правил
	Weight int    // Вес (вероятность появления), строго положительный
}

// Empty сообщает, что ячейка пуста (используется в каскадах).
func (s Symbol) Empty() bool {
	return s.Glyph == ""
}

func (s Symbol) String() string {
	return s.Glyph
}

// Cell — координата ячейки сетки (строка, колонка).
type Cell struct {
	Row int
	Col int
}

// Grid — сетка слотов: Grid[row][col] — символ на конкретной позиции.
// Число строк от 3 до 5 (Cosmic Fortune расширяет сетку), колонок всегда 5,
// кроме базовых слотов с одной линией из трёх барабанов.
type Grid [][]Symbol

// Rows возвращает число строк сетки.
func (g Grid) Rows() int {
	return len(g)
}

// Cols возвращает число колонок сетки.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Snapshot возвращает сериализуемую копию сетки для game_data.
func (g Grid) Snapshot() [][]string {
	out := make([][]string, len(g))
	for r, row := range g {
		out[r] = make([]string, len(row))
		for c, s := range row {
			out[r][c] = s.Glyph
		}
	}
	return out
}

// NewGrid генерирует сетку rows×cols. Каждая ячейка заполняется независимо,
// выбор символа ОБЯЗАТЕЛЬНО взвешенный: чем больше Weight, тем чаще символ.
// Порядок розыгрыша фиксирован — по строкам слева направо, один вызов
// rng.Int на ячейку.
func NewGrid(r rng.Provider, rows, cols int, symbols []Symbol) Grid {
	grid := make(Grid, rows)
	for row := 0; row < rows; row++ {
		grid[row] = make([]Symbol, cols)
		for col := 0; col < cols; col++ {
			grid[row][col] = PickWeighted(r, symbols)
		}
	}
	return grid
}

// PickWeighted выбирает символ пропорционально весам (кумулятивный розыгрыш).
// Паникует на пустом наборе или неположительных весах — это ошибка
// конфигурации игры, а не рантайма.
func PickWeighted(r rng.Provider, symbols []Symbol) Symbol {
	total := 0
	for _, s := range symbols {
		if s.Weight <= 0 {
			panic("games: вес символа должен быть положительным: " + s.Name)
		}
		total += s.Weight
	}
	if total == 0 {
		panic("games: пустой набор символов")
	}

	roll := r.Int(1, total)
	for _, s := range symbols {
		roll -= s.Weight
		if roll <= 0 {
			return s
		}
	}
	// Недостижимо при корректных весах
	return symbols[len(symbols)-1]
}

// CountGlyph считает вхождения глифа в сетке.
// Используется для коллекций символов и квестов.
func (g Grid) CountGlyph(glyph string) int {
	n := 0
	for _, row := range g {
		for _, s := range row {
			if s.Glyph == glyph {
				n++
			}
		}
	}
	return n
}
