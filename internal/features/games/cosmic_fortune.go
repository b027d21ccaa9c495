// Package games — cosmic_fortune.go: космический слот с растущей сеткой
// и каскадными выигрышами. Высота сетки — часть состояния игрока (3–5 строк):
// растёт после трёх выигрышных спинов подряд, сжимается после проигрыша.
package games

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/common"
	"serotonyl.ru/casino-engine/internal/rng"
)

// cosmicPayouts — множители по длине линии для каждого размера сетки.
var cosmicPayouts = map[string]map[int]int64{
	"normal":   {3: 3, 4: 8, 5: 15},  // 5x3
	"expanded": {3: 5, 4: 12, 5: 25}, // 5x4
	"mega":     {3: 8, 4: 18, 5: 40}, // 5x5
}

// Пределы каскадной механики.
const (
	cosmicMaxCascades = 5
	cosmicMinRows     = 3
	cosmicMaxRows     = 5
)

type cosmicState struct {
	rows            int
	consecutiveWins int
	totalWin        decimal.Decimal
	lastGrid        Grid
}

// CosmicFortune — слот с каскадами и расширяющейся сеткой.
type CosmicFortune struct {
	limits
	rng      rng.Provider
	symbols  []Symbol
	paylines []PaylinePattern

	mu     sync.Mutex
	states map[int64]*cosmicState
}

// NewCosmicFortune создаёт игру Cosmic Fortune.
func NewCosmicFortune(r rng.Provider) *CosmicFortune {
	return &CosmicFortune{
		limits: newLimits("1.00", "200.00"),
		rng:    r,
		symbols: []Symbol{
			{Glyph: "🪐", Name: "Planet", Weight: 3},
			{Glyph: "⭐", Name: "Star", Weight: 4},
			{Glyph: "🚀", Name: "Rocket", Weight: 2},
			{Glyph: "👾", Name: "Alien", Weight: 2},
			{Glyph: "🛸", Name: "Satellite", Weight: 5},
			{Glyph: "☄️", Name: "Comet", Weight: 4},
			{Glyph: "🌌", Name: "Black Hole", Weight: 1}, // Вайлд
			{Glyph: "🌠", Name: "Galaxy", Weight: 1},     // Скаттер
		},
		paylines: DefaultPaylines(),
		states:   make(map[int64]*cosmicState),
	}
}

// Type возвращает тип игры.
func (g *CosmicFortune) Type() string { return TypeCosmicFortune }

func (g *CosmicFortune) state(playerID int64) *cosmicState {
	st, ok := g.states[playerID]
	if !ok {
		st = &cosmicState{rows: cosmicMinRows, totalWin: decimal.Zero}
		g.states[playerID] = st
	}
	return st
}

func (g *CosmicFortune) sizeClass(rows int) string {
	switch rows {
	case 3:
		return "normal"
	case 4:
		return "expanded"
	default:
		return "mega"
	}
}

// Play разыгрывает спин с каскадами. Порядок розыгрышей:
//  1. генерация сетки rows×5 (по строкам);
//  2. на каждом каскаде — дозаполнение пустых ячеек (по строкам).
//
// Каскад: выигравшие ячейки очищаются, оставшиеся символы падают вниз
// (поколоночная гравитация), пустоты заполняются заново, проверка
// повторяется с растущим множителем 1.0, 1.5, 2.0, … — максимум 5 каскадов.
func (g *CosmicFortune) Play(_ context.Context, req Request) (*Result, error) {
	if err := g.validateBet(req.Bet); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(req.PlayerID)
	grid := NewGrid(g.rng, st.rows, 5, g.symbols)

	totalWin, outcomeParts, finalGrid := g.runCascades(grid, req.Bet, st)

	outcome := "Нет выигрышных комбинаций"
	if len(outcomeParts) > 0 {
		outcome = strings.Join(outcomeParts, "\n")
	}

	// Рост и сжатие сетки
	if totalWin.IsPositive() {
		st.consecutiveWins++
		if st.consecutiveWins >= 3 && st.rows < cosmicMaxRows {
			st.rows++
			st.consecutiveWins = 0
			outcome += fmt.Sprintf("\n🚀 Сетка расширена до %d строк!", st.rows)
		}
	} else {
		st.consecutiveWins = 0
		if st.rows > cosmicMinRows {
			st.rows--
		}
	}

	st.lastGrid = finalGrid
	st.totalWin = st.totalWin.Add(totalWin)

	return newResult(req.PlayerID, g.Type(), req.Bet, totalWin, outcome, map[string]any{
		"grid":             finalGrid.Snapshot(),
		"grid_size":        st.rows,
		"consecutive_wins": st.consecutiveWins,
		"total_win":        st.totalWin.String(),
	}), nil
}

// runCascades гоняет цикл каскадов до отсутствия выигрыша
// или до предела в cosmicMaxCascades итераций.
func (g *CosmicFortune) runCascades(grid Grid, bet decimal.Decimal, st *cosmicState) (decimal.Decimal, []string, Grid) {
	total := decimal.Zero
	var parts []string
	payouts := cosmicPayouts[g.sizeClass(st.rows)]

	for cascade := 0; cascade < cosmicMaxCascades; cascade++ {
		wins := CheckPaylines(grid, g.paylines)
		if len(wins) == 0 {
			break
		}

		// Множитель каскада растёт на 0.5 за проход: 1.0, 1.5, 2.0, ...
		mult := decimal.NewFromInt(1).Add(
			decimal.NewFromFloat(0.5).Mul(decimal.NewFromInt(int64(cascade))))

		cascadeWin := decimal.Zero
		for _, lw := range wins {
			payout, ok := payouts[len(lw.Symbols)]
			if !ok {
				continue
			}
			win := bet.
				Mul(decimal.NewFromInt(payout)).
				Mul(decimal.NewFromInt(lw.Pattern.Multiplier)).
				Mul(mult)
			cascadeWin = cascadeWin.Add(win)
		}
		total = total.Add(cascadeWin)
		parts = append(parts, fmt.Sprintf("Каскад %d: %s (множитель %s)",
			cascade+1, cascadeWin.StringFixed(2), common.FormatMultiplier(mult)))

		grid = g.clearWinningCells(grid, wins)
		grid = applyGravity(grid)
		g.refill(grid)
	}

	return total, parts, grid
}

// clearWinningCells очищает все ячейки выигравших линий.
func (g *CosmicFortune) clearWinningCells(grid Grid, wins []LineWin) Grid {
	for _, lw := range wins {
		for _, pos := range lw.Pattern.Positions {
			grid[pos.Row][pos.Col] = Symbol{}
		}
	}
	return grid
}

// applyGravity сдвигает символы каждой колонки вниз, пустоты всплывают вверх.
func applyGravity(grid Grid) Grid {
	rows, cols := grid.Rows(), grid.Cols()
	out := make(Grid, rows)
	for r := range out {
		out[r] = make([]Symbol, cols)
	}

	for col := 0; col < cols; col++ {
		write := rows - 1
		for row := rows - 1; row >= 0; row-- {
			if !grid[row][col].Empty() {
				out[write][col] = grid[row][col]
				write--
			}
		}
	}
	return out
}

// refill заполняет пустые ячейки новыми случайными символами
// (по строкам слева направо, взвешенный выбор).
func (g *CosmicFortune) refill(grid Grid) {
	for row := range grid {
		for col := range grid[row] {
			if grid[row][col].Empty() {
				grid[row][col] = PickWeighted(g.rng, g.symbols)
			}
		}
	}
}

// Rules возвращает правила игры.
func (g *CosmicFortune) Rules() string {
	return "🚀 Cosmic Fortune\n\n" +
		"Символы:\n" +
		"🪐 Планета — высокая ценность\n" +
		"⭐ Звезда — высокая ценность\n" +
		"🚀 Ракета — средняя ценность\n" +
		"👾 Пришелец — средняя ценность\n" +
		"🛸 Тарелка — низкая ценность\n" +
		"☄️ Комета — низкая ценность\n" +
		"🌌 Чёрная дыра — вайлд\n" +
		"🌠 Галактика — скаттер\n\n" +
		"Особенности:\n" +
		"- Каскадные выигрыши (до 5 за спин)\n" +
		"- Расширяющаяся сетка (до 5x5)\n" +
		"- Растущие множители каскадов\n\n" +
		fmt.Sprintf("Мин. ставка: %s\nМакс. ставка: %s", g.minBet, g.maxBet)
}

// State возвращает снимок состояния игрока.
func (g *CosmicFortune) State(playerID int64) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(playerID)
	var lastGrid [][]string
	if st.lastGrid != nil {
		lastGrid = st.lastGrid.Snapshot()
	}
	return map[string]any{
		"last_grid":        lastGrid,
		"grid_size":        st.rows,
		"consecutive_wins": st.consecutiveWins,
		"total_win":        st.totalWin.String(),
		"min_bet":          g.minBet.String(),
		"max_bet":          g.maxBet.String(),
	}
}
