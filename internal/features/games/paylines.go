// Package games — paylines.go описывает линии выплат и проверку выигрышей.
package games

import "fmt"

// PaylinePattern — линия выплат: упорядоченный список координат,
// название для сообщений и базовый множитель линии.
// Паттерны статичны, создаются один раз на игру.
type PaylinePattern struct {
	Name       string
	Positions  []Cell
	Multiplier int64
}

// CheckWin проверяет линию на сетке: выигрыш, когда ВСЕ ячейки линии
// содержат одинаковые символы. Вайлд сравнивается только сам с собой —
// подстановка «вайлд вместо любого» делается в играх явно (наложением
// вайлдов на сетку до проверки), а не через общее равенство.
// Координаты вне сетки — ошибка конфигурации, паттерны проверяются
// при создании игры (см. MustFit).
func (p PaylinePattern) CheckWin(grid Grid) (bool, []Symbol) {
	symbols := make([]Symbol, 0, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.Row >= grid.Rows() {
			// Линия определена для большей сетки, чем текущая
			// (Cosmic Fortune сжимает сетку до 3 строк) — не выигрыш
			return false, nil
		}
		symbols = append(symbols, grid[pos.Row][pos.Col])
	}

	first := symbols[0]
	if first.Empty() {
		return false, nil
	}
	for _, s := range symbols[1:] {
		if s.Glyph != first.Glyph {
			return false, nil
		}
	}
	return true, symbols
}

// MustFit паникует, если паттерн адресует ячейки вне сетки rows×cols.
// Вызывается при инициализации игры: кривой паттерн — баг конфигурации,
// который должен уронить процесс на старте, а не молчать в рантайме.
func (p PaylinePattern) MustFit(rows, cols int) {
	for _, pos := range p.Positions {
		if pos.Row < 0 || pos.Row >= rows || pos.Col < 0 || pos.Col >= cols {
			panic(fmt.Sprintf(
				"games: линия %q адресует (%d,%d) вне сетки %dx%d",
				p.Name, pos.Row, pos.Col, rows, cols,
			))
		}
	}
}

// LineWin — одна выигрышная линия на сетке.
type LineWin struct {
	Pattern PaylinePattern
	Symbols []Symbol
}

// DefaultPaylines возвращает стандартный набор линий для сеток 5 колонок
// и минимум 3 строк: горизонтали, диагонали и зигзаг.
// Все линии валидируются против сетки 3x5.
func DefaultPaylines() []PaylinePattern {
	patterns := []PaylinePattern{
		{Name: "Верхний ряд", Positions: rowLine(0, 5), Multiplier: 1},
		{Name: "Средний ряд", Positions: rowLine(1, 5), Multiplier: 1},
		{Name: "Нижний ряд", Positions: rowLine(2, 5), Multiplier: 1},
		{Name: "Диагональ вниз", Positions: []Cell{{0, 0}, {1, 1}, {2, 2}}, Multiplier: 2},
		{Name: "Диагональ вверх", Positions: []Cell{{2, 0}, {1, 1}, {0, 2}}, Multiplier: 2},
		{Name: "Зигзаг", Positions: []Cell{{1, 0}, {0, 1}, {1, 2}, {2, 3}, {1, 4}}, Multiplier: 3},
	}
	for _, p := range patterns {
		p.MustFit(3, 5)
	}
	return patterns
}

func rowLine(row, cols int) []Cell {
	cells := make([]Cell, cols)
	for c := 0; c < cols; c++ {
		cells[c] = Cell{Row: row, Col: c}
	}
	return cells
}

// CheckPaylines прогоняет все паттерны по сетке и возвращает выигрышные
// линии в порядке объявления паттернов. Функция чистая: сетка не
// модифицируется, повторный вызов даёт тот же результат.
func CheckPaylines(grid Grid, patterns []PaylinePattern) []LineWin {
	var wins []LineWin
	for _, p := range patterns {
		if ok, symbols := p.CheckWin(grid); ok {
			wins = append(wins, LineWin{Pattern: p, Symbols: symbols})
		}
	}
	return wins
}
