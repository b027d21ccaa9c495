// Package games — dragons_hoard.go: азиатский слот с липкими вайлдами,
// коллекциями символов и четырьмя прогрессивными джекпотами.
// Пул джекпотов один на процесс и общий для всех игроков (см. jackpot.go).
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

// dragonsPayouts — множители по длине линии.
var dragonsPayouts = map[int]int64{3: 5, 4: 15, 5: 40}

const dragonsWildGlyph = "🔮"

// dragonsCollections — сколько символов нужно собрать для каждого джекпота.
var dragonsCollections = []struct {
	Glyph    string
	Required int
	Tier     string
}{
	{"🐉", 5, JackpotMini},
	{"🦅", 4, JackpotMinor},
	{"🐯", 3, JackpotMajor},
	{"🔮", 3, JackpotGrand},
}

// stickyWild — липкий вайлд: занимает свою ячейку каждый спин,
// пока не истечёт срок, и может наращивать множитель.
type stickyWild struct {
	pos            Cell
	remainingSpins int
	multiplier     int64
}

// update продвигает вайлд на один спин. Возвращает false, когда вайлд
// истёк. Пока вайлд жив и множитель меньше 5, есть 20% шанс нарастить
// множитель (один розыгрыш float).
func (w *stickyWild) update(r rng.Provider) bool {
	w.remainingSpins--
	if w.remainingSpins > 0 && w.multiplier < 5 {
		if r.Float(0, 1) < 0.2 {
			w.multiplier++
		}
	}
	return w.remainingSpins > 0
}

type dragonsState struct {
	stickyWilds []*stickyWild
	// Прогресс коллекций по глифам, накапливается между спинами
	collections map[string]int
	totalWin    decimal.Decimal
	lastGrid    Grid
}

// DragonsHoard — слот с прогрессивными джекпотами.
type DragonsHoard struct {
	limits
	rng      rng.Provider
	pool     *JackpotPool
	symbols  []Symbol
	paylines []PaylinePattern

	mu     sync.Mutex
	states map[int64]*dragonsState
}

// NewDragonsHoard создаёт игру Dragon's Hoard.
// Пул джекпотов передаётся снаружи: он ОБЩИЙ для всех экземпляров игры.
func NewDragonsHoard(r rng.Provider, pool *JackpotPool) *DragonsHoard {
	return &DragonsHoard{
		limits: newLimits("1.00", "200.00"),
		rng:    r,
		pool:   pool,
		symbols: []Symbol{
			{Glyph: "🐉", Name: "Dragon", Weight: 2},
			{Glyph: "🦅", Name: "Phoenix", Weight: 3},
			{Glyph: "🐯", Name: "Tiger", Weight: 4},
			{Glyph: "🐠", Name: "Koi Fish", Weight: 5},
			{Glyph: "🏮", Name: "Lantern", Weight: 4},
			{Glyph: "🪙", Name: "Lucky Coin", Weight: 3},
			{Glyph: "🔮", Name: "Dragon Pearl", Weight: 1}, // Вайлд
			{Glyph: "☯️", Name: "Yin Yang", Weight: 1},      // Скаттер
		},
		paylines: DefaultPaylines(),
		states:   make(map[int64]*dragonsState),
	}
}

// Type возвращает тип игры.
func (g *DragonsHoard) Type() string { return TypeDragonsHoard }

func (g *DragonsHoard) state(playerID int64) *dragonsState {
	st, ok := g.states[playerID]
	if !ok {
		st = &dragonsState{
			collections: make(map[string]int),
			totalWin:    decimal.Zero,
		}
		for _, c := range dragonsCollections {
			st.collections[c.Glyph] = 0
		}
		g.states[playerID] = st
	}
	return st
}

// Play разыгрывает спин. Порядок розыгрышей:
//  1. пополнение джекпотов (без RNG); остановленный пул — отказ в игре;
//  2. генерация сетки 5x3 (15 розыгрышей);
//  3. обновление живых липких вайлдов (по одному float на живой вайлд
//     с множителем < 5);
//  4. спавн новых липких вайлдов (float на каждую жемчужину, при
//     срабатывании int длительности), обход по строкам;
//  5. коллекции и джекпоты (без RNG);
//  6. проверка линий и расчёт выигрыша (без RNG).
func (g *DragonsHoard) Play(_ context.Context, req Request) (*Result, error) {
	if err := g.validateBet(req.Bet); err != nil {
		return nil, err
	}

	// Каждая ставка пополняет каждый уровень, выиграл спин или нет
	if err := g.pool.Contribute(req.Bet); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(req.PlayerID)
	grid := NewGrid(g.rng, 3, 5, g.symbols)

	wildMessages := g.applyStickyWilds(grid, st)
	jackpotWin, collectionMessages, err := g.updateCollections(grid, st)
	if err != nil {
		return nil, err
	}

	wins := CheckPaylines(grid, g.paylines)
	lineWin, winMessages := g.calculateWin(wins, req.Bet, st)

	totalWin := lineWin.Add(jackpotWin)
	st.lastGrid = grid
	st.totalWin = st.totalWin.Add(totalWin)

	all := append(append(wildMessages, collectionMessages...), winMessages...)
	outcome := "Нет выигрышных комбинаций"
	if len(all) > 0 {
		outcome = strings.Join(all, "\n")
	}

	return newResult(req.PlayerID, g.Type(), req.Bet, totalWin, outcome, map[string]any{
		"grid":         grid.Snapshot(),
		"sticky_wilds": len(st.stickyWilds),
		"collections":  copyCollections(st.collections),
		"jackpots":     g.pool.Amounts(),
		"total_win":    st.totalWin.String(),
	}), nil
}

// applyStickyWilds обновляет живые вайлды, ставит их на свои ячейки
// и проверяет появление новых.
func (g *DragonsHoard) applyStickyWilds(grid Grid, st *dragonsState) []string {
	var messages []string
	pearl := Symbol{Glyph: dragonsWildGlyph, Name: "Dragon Pearl", Weight: 1}

	// Живые вайлды занимают свои ячейки каждый следующий спин
	active := st.stickyWilds[:0]
	for _, w := range st.stickyWilds {
		if w.update(g.rng) {
			active = append(active, w)
			grid[w.pos.Row][w.pos.Col] = pearl
			if w.multiplier > 1 {
				messages = append(messages, fmt.Sprintf(
					"💫 Липкий вайлд (%d, %d) с множителем x%d!",
					w.pos.Row+1, w.pos.Col+1, w.multiplier))
			}
		}
	}
	st.stickyWilds = active

	// Новые жемчужины могут прилипнуть (15%), длительность 2-5 спинов
	for row := range grid {
		for col := range grid[row] {
			if grid[row][col].Glyph != dragonsWildGlyph || g.coveredBySticky(st, row, col) {
				continue
			}
			if g.rng.Float(0, 1) < 0.15 {
				duration := g.rng.Int(2, 5)
				st.stickyWilds = append(st.stickyWilds, &stickyWild{
					pos:            Cell{Row: row, Col: col},
					remainingSpins: duration,
					multiplier:     1,
				})
				messages = append(messages, fmt.Sprintf(
					"✨ Новый липкий вайлд (%d, %d) на %d спинов!",
					row+1, col+1, duration))
			}
		}
	}
	return messages
}

func (g *DragonsHoard) coveredBySticky(st *dragonsState, row, col int) bool {
	for _, w := range st.stickyWilds {
		if w.pos.Row == row && w.pos.Col == col {
			return true
		}
	}
	return false
}

// updateCollections накапливает коллекции по сетке и выдаёт джекпоты.
// Счётчик коллекции сбрасывается только при выдаче её джекпота.
func (g *DragonsHoard) updateCollections(grid Grid, st *dragonsState) (decimal.Decimal, []string, error) {
	var messages []string
	totalJackpot := decimal.Zero

	for _, c := range dragonsCollections {
		st.collections[c.Glyph] += grid.CountGlyph(c.Glyph)
	}

	for _, c := range dragonsCollections {
		if st.collections[c.Glyph] < c.Required {
			continue
		}
		amount, err := g.pool.Award(c.Tier)
		if err != nil {
			return decimal.Zero, nil, err
		}
		st.collections[c.Glyph] = 0
		totalJackpot = totalJackpot.Add(amount)

		tier, _ := g.pool.Tier(c.Tier)
		messages = append(messages, fmt.Sprintf(
			"🎊 ДЖЕКПОТ! Собрано %d × %s!\nВыигран %s джекпот: %s!",
			c.Required, c.Glyph, tier.Name, common.FormatAmount(amount, 2)))
	}
	return totalJackpot, messages, nil
}

// calculateWin суммирует выигрыши по линиям. Множители липких вайлдов
// применяются к линиям, проходящим через их ячейки.
func (g *DragonsHoard) calculateWin(wins []LineWin, bet decimal.Decimal, st *dragonsState) (decimal.Decimal, []string) {
	total := decimal.Zero
	var parts []string

	for _, lw := range wins {
		payout, ok := dragonsPayouts[len(lw.Symbols)]
		if !ok {
			continue
		}
		win := bet.
			Mul(decimal.NewFromInt(payout)).
			Mul(decimal.NewFromInt(lw.Pattern.Multiplier)).
			Mul(decimal.NewFromInt(g.lineWildMultiplier(lw, st)))
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

// lineWildMultiplier возвращает максимальный множитель липкого вайлда
// на ячейках линии (1, если вайлдов на линии нет).
func (g *DragonsHoard) lineWildMultiplier(lw LineWin, st *dragonsState) int64 {
	best := int64(1)
	for _, pos := range lw.Pattern.Positions {
		for _, w := range st.stickyWilds {
			if w.pos == pos && w.multiplier > best {
				best = w.multiplier
			}
		}
	}
	return best
}

func copyCollections(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Rules возвращает правила игры.
func (g *DragonsHoard) Rules() string {
	return "🐉 Dragon's Hoard\n\n" +
		"Символы:\n" +
		"🐉 Дракон — максимальная ценность\n" +
		"🦅 Феникс — высокая ценность\n" +
		"🐯 Тигр — высокая ценность\n" +
		"🐠 Карп — средняя ценность\n" +
		"🏮 Фонарь — средняя ценность\n" +
		"🪙 Монета — низкая ценность\n" +
		"🔮 Жемчужина дракона — вайлд\n" +
		"☯️ Инь-Ян — скаттер\n\n" +
		"Особенности:\n" +
		"- Липкие вайлды с множителями\n" +
		"- Коллекции символов\n" +
		"- 4 прогрессивных джекпота\n\n" +
		"Джекпоты:\n" +
		"Mini (5 драконов): 50.00+\n" +
		"Minor (4 феникса): 200.00+\n" +
		"Major (3 тигра): 1 000.00+\n" +
		"Grand (3 жемчужины): 5 000.00+\n\n" +
		fmt.Sprintf("Мин. ставка: %s\nМакс. ставка: %s", g.minBet, g.maxBet)
}

// State возвращает снимок состояния игрока.
func (g *DragonsHoard) State(playerID int64) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(playerID)
	var lastGrid [][]string
	if st.lastGrid != nil {
		lastGrid = st.lastGrid.Snapshot()
	}
	// Время последних выигрышей джекпотов — для витрины игры
	lastWon := make(map[string]string, len(dragonsCollections))
	for _, c := range dragonsCollections {
		if tier, ok := g.pool.Tier(c.Tier); ok && tier.LastWon != nil {
			lastWon[c.Tier] = common.FormatDateTime(*tier.LastWon)
		}
	}

	return map[string]any{
		"last_grid":        lastGrid,
		"sticky_wilds":     len(st.stickyWilds),
		"collections":      copyCollections(st.collections),
		"jackpots":         g.pool.Amounts(),
		"jackpot_last_won": lastWon,
		"total_win":        st.totalWin.String(),
		"min_bet":          g.minBet.String(),
		"max_bet":          g.maxBet.String(),
	}
}
