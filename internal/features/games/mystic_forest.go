// Package games — mystic_forest.go: лесной слот с превращениями символов
// и растущими вайлдами, которые расползаются по сетке между спинами.
package games

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/rng"
)

// mysticPayouts — множители по длине линии.
var mysticPayouts = map[int]int64{3: 4, 4: 10, 5: 25}

const mysticWildGlyph = "💎"

// mysticTransforms — цепочка превращений. Каждая ячейка превращается
// не более одного раза за спин: результат превращения в этом же спине
// повторно не проверяется.
var mysticTransforms = map[string]string{
	"🍃": "🌸",
	"🌸": "🌳",
	"🍄": "💎",
}

// Направления роста вайлда.
const (
	growVertical = iota
	growHorizontal
	growBoth
)

const mysticMaxExtent = 3

// growingWild — растущий вайлд: покрывает ячейки вокруг точки появления
// и каждый спин может разрастись на одну ячейку в своём направлении.
type growingWild struct {
	origin    Cell
	direction int
	extent    int
}

// coverage возвращает ячейки, покрытые вайлдом, в границах сетки.
func (w *growingWild) coverage(rows, cols int) []Cell {
	cells := []Cell{w.origin}
	for d := 1; d <= w.extent; d++ {
		if w.direction == growVertical || w.direction == growBoth {
			cells = append(cells,
				Cell{Row: w.origin.Row - d, Col: w.origin.Col},
				Cell{Row: w.origin.Row + d, Col: w.origin.Col})
		}
		if w.direction == growHorizontal || w.direction == growBoth {
			cells = append(cells,
				Cell{Row: w.origin.Row, Col: w.origin.Col - d},
				Cell{Row: w.origin.Row, Col: w.origin.Col + d})
		}
	}
	out := cells[:0]
	for _, c := range cells {
		if c.Row >= 0 && c.Row < rows && c.Col >= 0 && c.Col < cols {
			out = append(out, c)
		}
	}
	return out
}

type mysticState struct {
	growingWilds []*growingWild
	// Счётчик превращений за всё время игры, для отображения
	transformations int64
	reskinSpins     int
	totalWin        decimal.Decimal
	lastGrid        Grid
}

// MysticForest — слот с превращениями и растущими вайлдами.
type MysticForest struct {
	limits
	rng      rng.Provider
	symbols  []Symbol
	paylines []PaylinePattern

	multiplyBonus MultiplyBonus
	reskinBonus   ReskinBonus

	mu     sync.Mutex
	states map[int64]*mysticState
}

// NewMysticForest создаёт игру Mystic Forest.
func NewMysticForest(r rng.Provider) *MysticForest {
	return &MysticForest{
		limits: newLimits("1.00", "150.00"),
		rng:    r,
		symbols: []Symbol{
			{Glyph: "🌳", Name: "Ancient Tree", Weight: 3},
			{Glyph: "🌸", Name: "Magic Flower", Weight: 4},
			{Glyph: "🍄", Name: "Mushroom", Weight: 2},
			{Glyph: "🍃", Name: "Leaf", Weight: 5},
			{Glyph: "🦋", Name: "Butterfly", Weight: 4},
			{Glyph: "🦌", Name: "Deer", Weight: 3},
			{Glyph: "💎", Name: "Crystal", Weight: 1}, // Вайлд
			{Glyph: "🌕", Name: "Moon", Weight: 1},    // Скаттер
		},
		paylines:      DefaultPaylines(),
		multiplyBonus: MultiplyBonus{Prob: 0.15, MinMult: 2, MaxMult: 6},
		reskinBonus:   ReskinBonus{Prob: 0.1, Duration: 4},
		states:        make(map[int64]*mysticState),
	}
}

// Type возвращает тип игры.
func (g *MysticForest) Type() string { return TypeMysticForest }

func (g *MysticForest) state(playerID int64) *mysticState {
	st, ok := g.states[playerID]
	if !ok {
		st = &mysticState{totalWin: decimal.Zero}
		g.states[playerID] = st
	}
	return st
}

// Play разыгрывает спин. Порядок розыгрышей:
//  1. генерация сетки 5x3 (15 розыгрышей);
//  2. рост живых вайлдов (1 float на вайлд с extent < 3);
//  3. превращения (1 float на каждую подходящую ячейку, по строкам);
//  4. спавн новых вайлдов (1 float на каждый кристалл вне покрытия,
//     при срабатывании 1 int направления);
//  5. проверка линий (без RNG);
//  6. бонусный множитель (1 float, при срабатывании 1 int);
//  7. бонус смены темы (1 float);
//  8. отмирание вайлдов (1 float на каждый вайлд).
func (g *MysticForest) Play(_ context.Context, req Request) (*Result, error) {
	if err := g.validateBet(req.Bet); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(req.PlayerID)
	grid := NewGrid(g.rng, 3, 5, g.symbols)

	var messages []string

	// Живые вайлды растут и накрывают сетку
	for _, w := range st.growingWilds {
		if w.extent < mysticMaxExtent && g.rng.Float(0, 1) < 0.4 {
			w.extent++
			messages = append(messages, fmt.Sprintf(
				"🌿 Вайлд (%d, %d) разросся до %d!", w.origin.Row+1, w.origin.Col+1, w.extent))
		}
	}
	g.applyWildCoverage(grid, st)

	messages = append(messages, g.applyTransforms(grid, st)...)
	messages = append(messages, g.spawnWilds(grid, st)...)

	wins := CheckPaylines(grid, g.paylines)
	totalWin, winParts := g.calculateWin(wins, req.Bet)
	messages = append(messages, winParts...)

	if g.multiplyBonus.ShouldTrigger(g.rng) {
		bonusWin, msg := g.multiplyBonus.Apply(g.rng, totalWin)
		totalWin = bonusWin
		messages = append(messages, msg)
	}
	if g.reskinBonus.ShouldTrigger(g.rng) {
		st.reskinSpins = g.reskinBonus.Duration
		messages = append(messages, fmt.Sprintf(
			"🎨 Лес меняет облик на %d спинов!", g.reskinBonus.Duration))
	} else if st.reskinSpins > 0 {
		st.reskinSpins--
	}

	// Отмирание: вайлд переживает спин с вероятностью 75%
	survivors := st.growingWilds[:0]
	for _, w := range st.growingWilds {
		if g.rng.Float(0, 1) > 0.25 {
			survivors = append(survivors, w)
		}
	}
	st.growingWilds = survivors

	st.lastGrid = grid
	st.totalWin = st.totalWin.Add(totalWin)

	outcome := "Нет выигрышных комбинаций"
	if len(messages) > 0 {
		outcome = strings.Join(messages, "\n")
	}

	return newResult(req.PlayerID, g.Type(), req.Bet, totalWin, outcome, map[string]any{
		"grid":            grid.Snapshot(),
		"growing_wilds":   len(st.growingWilds),
		"transformations": st.transformations,
		"reskin_spins":    st.reskinSpins,
		"total_win":       st.totalWin.String(),
	}), nil
}

// applyWildCoverage накрывает кристаллами все ячейки живых вайлдов.
func (g *MysticForest) applyWildCoverage(grid Grid, st *mysticState) {
	crystal := Symbol{Glyph: mysticWildGlyph, Name: "Crystal", Weight: 1}
	for _, w := range st.growingWilds {
		for _, c := range w.coverage(grid.Rows(), grid.Cols()) {
			grid[c.Row][c.Col] = crystal
		}
	}
}

// applyTransforms превращает подходящие символы с шансом 20% каждый.
// Обход по строкам; ячейка, превращённая в этом спине, не превращается
// повторно.
func (g *MysticForest) applyTransforms(grid Grid, st *mysticState) []string {
	var messages []string
	transformed := make(map[Cell]bool)

	for row := range grid {
		for col := range grid[row] {
			pos := Cell{Row: row, Col: col}
			if transformed[pos] {
				continue
			}
			to, ok := mysticTransforms[grid[row][col].Glyph]
			if !ok {
				continue
			}
			if g.rng.Float(0, 1) < 0.2 {
				from := grid[row][col].Glyph
				grid[row][col] = Symbol{Glyph: to, Name: grid[row][col].Name, Weight: 1}
				transformed[pos] = true
				st.transformations++
				messages = append(messages, fmt.Sprintf("✨ %s превратился в %s!", from, to))
			}
		}
	}
	return messages
}

// spawnWilds проверяет появление растущих вайлдов на кристаллах,
// ещё не покрытых живыми вайлдами.
func (g *MysticForest) spawnWilds(grid Grid, st *mysticState) []string {
	var messages []string
	for row := range grid {
		for col := range grid[row] {
			if grid[row][col].Glyph != mysticWildGlyph || g.covered(st, grid, row, col) {
				continue
			}
			if g.rng.Float(0, 1) < 0.3 {
				dir := g.rng.Int(growVertical, growBoth)
				st.growingWilds = append(st.growingWilds, &growingWild{
					origin:    Cell{Row: row, Col: col},
					direction: dir,
				})
				messages = append(messages, fmt.Sprintf(
					"🌱 Кристалл (%d, %d) пустил корни!", row+1, col+1))
			}
		}
	}
	return messages
}

func (g *MysticForest) covered(st *mysticState, grid Grid, row, col int) bool {
	for _, w := range st.growingWilds {
		for _, c := range w.coverage(grid.Rows(), grid.Cols()) {
			if c.Row == row && c.Col == col {
				return true
			}
		}
	}
	return false
}

// calculateWin суммирует выигрыши по линиям.
func (g *MysticForest) calculateWin(wins []LineWin, bet decimal.Decimal) (decimal.Decimal, []string) {
	total := decimal.Zero
	var parts []string

	for _, lw := range wins {
		payout, ok := mysticPayouts[len(lw.Symbols)]
		if !ok {
			continue
		}
		win := bet.
			Mul(decimal.NewFromInt(payout)).
			Mul(decimal.NewFromInt(lw.Pattern.Multiplier))
		total = total.Add(win)

		glyphs := make([]string, len(lw.Symbols))
		for i, s := range lw.Symbols {
			glyphs[i] = s.Glyph
		}
		parts = append(parts, fmt.Sprintf("%s: %s — %s",
			lw.Pattern.Name, strings.Join(glyphs, " "), win.StringFixed(2)))
	}
	return total, parts
}

// Rules возвращает правила игры.
func (g *MysticForest) Rules() string {
	return "🌲 Mystic Forest\n\n" +
		"Символы:\n" +
		"🌳 Древнее дерево — высокая ценность\n" +
		"🌸 Волшебный цветок — высокая ценность\n" +
		"🍄 Гриб — средняя ценность\n" +
		"🍃 Лист — низкая ценность\n" +
		"🦋 Бабочка — средняя ценность\n" +
		"🦌 Олень — средняя ценность\n" +
		"💎 Кристалл — вайлд\n" +
		"🌕 Луна — скаттер\n\n" +
		"Особенности:\n" +
		"- Превращения символов (🍃→🌸→🌳, 🍄→💎)\n" +
		"- Растущие вайлды\n" +
		"- Бонусный множитель (2x-6x)\n" +
		"- Смена облика леса\n\n" +
		fmt.Sprintf("Мин. ставка: %s\nМакс. ставка: %s", g.minBet, g.maxBet)
}

// State возвращает снимок состояния игрока.
func (g *MysticForest) State(playerID int64) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(playerID)
	var lastGrid [][]string
	if st.lastGrid != nil {
		lastGrid = st.lastGrid.Snapshot()
	}
	return map[string]any{
		"last_grid":       lastGrid,
		"growing_wilds":   len(st.growingWilds),
		"transformations": st.transformations,
		"reskin_spins":    st.reskinSpins,
		"total_win":       st.totalWin.String(),
		"min_bet":         g.minBet.String(),
		"max_bet":         g.maxBet.String(),
	}
}
