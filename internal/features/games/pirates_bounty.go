// Package games — pirates_bounty.go: пиратский слот со штормами,
// картой сокровищ и системой квестов. Карта исследуется ходами игрока
// из запаса в три хода, запас пополняется только при полном открытии
// карты; шторм временно умножает выигрыши.
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

// piratesPayouts — множители по длине линии.
var piratesPayouts = map[int]int64{3: 5, 4: 12, 5: 30}

const (
	piratesMapSize          = 5
	piratesExplorationMoves = 3
)

// treasureMap — карта сокровищ 5x5. Игрок начинает в (0, 0),
// сокровища лежат в случайных клетках и забираются при открытии.
type treasureMap struct {
	pos        Cell
	discovered map[Cell]bool
	treasures  map[Cell]int
}

// newTreasureMap раскладывает сокровища тем же RNG, что и барабаны:
// каждая клетка кроме стартовой с шансом 40% получает сокровище 5-50
// (обход по строкам, по одному float на клетку, int при срабатывании).
func newTreasureMap(r rng.Provider) *treasureMap {
	m := &treasureMap{
		discovered: map[Cell]bool{{}: true},
		treasures:  make(map[Cell]int),
	}
	for row := 0; row < piratesMapSize; row++ {
		for col := 0; col < piratesMapSize; col++ {
			if row == 0 && col == 0 {
				continue
			}
			if r.Float(0, 1) < 0.4 {
				m.treasures[Cell{Row: row, Col: col}] = r.Int(5, 50)
			}
		}
	}
	return m
}

// move делает шаг по карте. Ход за границу или с неизвестным
// направлением не выполняется (ok=false) и запас ходов не тратит.
// Возвращает найденное сокровище, был ли открыт новый сектор
// и состоялся ли ход.
func (m *treasureMap) move(dir string) (value int, fresh, ok bool) {
	next := m.pos
	switch strings.ToUpper(dir) {
	case "N":
		next.Row--
	case "S":
		next.Row++
	case "W":
		next.Col--
	case "E":
		next.Col++
	default:
		return 0, false, false
	}
	if next.Row < 0 || next.Row >= piratesMapSize || next.Col < 0 || next.Col >= piratesMapSize {
		return 0, false, false
	}

	m.pos = next
	fresh = !m.discovered[next]
	m.discovered[next] = true

	value = m.treasures[next]
	delete(m.treasures, next)
	return value, fresh, true
}

func (m *treasureMap) fullyDiscovered() bool {
	return len(m.discovered) == piratesMapSize*piratesMapSize
}

// pirateQuest — долгоживущий квест игрока. Прогресс накапливается
// между спинами, при выполнении выплачивается бонус и прогресс
// начинается заново.
type pirateQuest struct {
	Name       string
	Target     int
	Multiplier decimal.Decimal
	Progress   int
	Completed  int
}

func newPirateQuests() map[string]*pirateQuest {
	return map[string]*pirateQuest{
		"collector": {Name: "Treasure Hunter", Target: 50, Multiplier: decimal.RequireFromString("2.0")},
		"explorer":  {Name: "Map Master", Target: 25, Multiplier: decimal.RequireFromString("3.0")},
		"warrior":   {Name: "Storm Chaser", Target: 30, Multiplier: decimal.RequireFromString("2.5")},
		"captain":   {Name: "Fleet Admiral", Target: 100, Multiplier: decimal.RequireFromString("5.0")},
	}
}

type piratesState struct {
	stormSpins      int
	stormMultiplier decimal.Decimal
	treasureMap     *treasureMap
	// movesRemaining — запас ходов по карте. Живёт между спинами,
	// тратится на состоявшиеся ходы, пополняется при полном открытии карты.
	movesRemaining int
	quests         map[string]*pirateQuest
	totalWin       decimal.Decimal
	lastGrid       Grid
}

// PiratesBounty — пиратский слот с картой сокровищ.
type PiratesBounty struct {
	limits
	rng      rng.Provider
	symbols  []Symbol
	paylines []PaylinePattern

	multiplyBonus MultiplyBonus

	mu     sync.Mutex
	states map[int64]*piratesState
}

// NewPiratesBounty создаёт игру Pirate's Bounty.
func NewPiratesBounty(r rng.Provider) *PiratesBounty {
	return &PiratesBounty{
		limits: newLimits("1.00", "150.00"),
		rng:    r,
		symbols: []Symbol{
			{Glyph: "🏴‍☠️", Name: "Jolly Roger", Weight: 2},
			{Glyph: "💎", Name: "Treasure", Weight: 3},
			{Glyph: "🗺️", Name: "Map", Weight: 4},
			{Glyph: "🧭", Name: "Compass", Weight: 5},
			{Glyph: "🦜", Name: "Parrot", Weight: 4},
			{Glyph: "⚔️", Name: "Crossed Swords", Weight: 3},
			{Glyph: "🎡", Name: "Wheel", Weight: 1}, // Вайлд
			{Glyph: "💀", Name: "Skull", Weight: 1}, // Скаттер
		},
		paylines:      DefaultPaylines(),
		multiplyBonus: MultiplyBonus{Prob: 0.2, MinMult: 2, MaxMult: 10},
		states:        make(map[int64]*piratesState),
	}
}

// Type возвращает тип игры.
func (g *PiratesBounty) Type() string { return TypePiratesBounty }

// state лениво создаёт состояние игрока. Раскладка первой карты —
// единственные розыгрыши при инициализации.
func (g *PiratesBounty) state(playerID int64) *piratesState {
	st, ok := g.states[playerID]
	if !ok {
		st = &piratesState{
			stormMultiplier: decimal.NewFromInt(1),
			treasureMap:     newTreasureMap(g.rng),
			movesRemaining:  piratesExplorationMoves,
			quests:          newPirateQuests(),
			totalWin:        decimal.Zero,
		}
		g.states[playerID] = st
	}
	return st
}

// Play разыгрывает спин. Порядок розыгрышей:
//  1. проверка шторма (1 float, при срабатывании 1 int длительности
//     и 1 float силы);
//  2. генерация сетки 5x3 (15 розыгрышей);
//  3. проверка линий и множитель шторма (без RNG);
//  4. бонусный множитель (1 float, при срабатывании 1 int);
//  5. исследование карты ходами из запроса, пока есть запас ходов
//     (без RNG; новая карта при полном открытии — 24 float и int
//     на сокровище);
//  6. квесты (без RNG).
//
// Спин активации шторма уже идёт под штормовым множителем.
func (g *PiratesBounty) Play(_ context.Context, req Request) (*Result, error) {
	if err := g.validateBet(req.Bet); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(req.PlayerID)
	var messages []string

	if st.stormSpins <= 0 && g.rng.Float(0, 1) < 0.15 {
		st.stormSpins = g.rng.Int(3, 7)
		st.stormMultiplier = decimal.NewFromInt(1).
			Add(decimal.NewFromFloat(g.rng.Float(0, 4))).Round(1)
		messages = append(messages, fmt.Sprintf(
			"⛈️ Шторм! Множитель %s на %d спинов!",
			common.FormatMultiplier(st.stormMultiplier), st.stormSpins))
	}
	stormActive := st.stormSpins > 0

	grid := NewGrid(g.rng, 3, 5, g.symbols)
	st.lastGrid = grid

	wins := CheckPaylines(grid, g.paylines)
	totalWin, winParts := g.calculateWin(wins, req.Bet, st)
	messages = append(messages, winParts...)

	if g.multiplyBonus.ShouldTrigger(g.rng) {
		bonusWin, msg := g.multiplyBonus.Apply(g.rng, totalWin)
		totalWin = bonusWin
		messages = append(messages, msg)
	}

	treasureWin, discoveries, mapMessages := g.explore(st, req.Moves)
	totalWin = totalWin.Add(treasureWin)
	messages = append(messages, mapMessages...)

	questBonus, questMessages := g.updateQuests(st, grid, discoveries, stormActive, totalWin)
	totalWin = totalWin.Add(questBonus)
	messages = append(messages, questMessages...)

	// Шторм утихает после спина, включая спин активации
	if stormActive {
		st.stormSpins--
		if st.stormSpins == 0 {
			st.stormMultiplier = decimal.NewFromInt(1)
			messages = append(messages, "🌤️ Шторм утих")
		}
	}

	st.totalWin = st.totalWin.Add(totalWin)

	outcome := "Нет выигрышных комбинаций"
	if len(messages) > 0 {
		outcome = strings.Join(messages, "\n")
	}

	return newResult(req.PlayerID, g.Type(), req.Bet, totalWin, outcome, map[string]any{
		"grid":             grid.Snapshot(),
		"storm_spins":      st.stormSpins,
		"storm_multiplier": st.stormMultiplier.String(),
		"map_discovered":   len(st.treasureMap.discovered),
		"map_position":     []int{st.treasureMap.pos.Row, st.treasureMap.pos.Col},
		"moves_remaining":  st.movesRemaining,
		"quests":           questSnapshot(st.quests),
		"total_win":        st.totalWin.String(),
	}), nil
}

// calculateWin суммирует выигрыши по линиям с учётом шторма.
func (g *PiratesBounty) calculateWin(wins []LineWin, bet decimal.Decimal, st *piratesState) (decimal.Decimal, []string) {
	total := decimal.Zero
	var parts []string

	for _, lw := range wins {
		payout, ok := piratesPayouts[len(lw.Symbols)]
		if !ok {
			continue
		}
		win := bet.
			Mul(decimal.NewFromInt(payout)).
			Mul(decimal.NewFromInt(lw.Pattern.Multiplier))
		if st.stormSpins > 0 {
			win = win.Mul(st.stormMultiplier)
		}
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

// explore тратит запас ходов на исследование карты. Найденные сокровища
// зачисляются как есть. При полном открытии карта раскладывается заново,
// запас ходов пополняется.
func (g *PiratesBounty) explore(st *piratesState, moves []string) (decimal.Decimal, int, []string) {
	total := decimal.Zero
	discoveries := 0
	var messages []string

	for _, dir := range moves {
		if st.movesRemaining <= 0 {
			break
		}
		value, fresh, ok := st.treasureMap.move(dir)
		if !ok {
			continue
		}
		st.movesRemaining--
		if fresh {
			discoveries++
		}
		if value > 0 {
			total = total.Add(decimal.NewFromInt(int64(value)))
			messages = append(messages, fmt.Sprintf("🗺️ Найдено сокровище: %d!", value))
		}
	}

	// Пополнение после всех ходов спина: свежий запас
	// достаётся следующему спину
	if st.treasureMap.fullyDiscovered() {
		st.treasureMap = newTreasureMap(g.rng)
		st.movesRemaining = piratesExplorationMoves
		messages = append(messages, "🏆 Карта открыта полностью! Новая карта и новые ходы!")
	}
	return total, discoveries, messages
}

// updateQuests продвигает квесты по итогам спина и выплачивает бонусы.
// Бонус выполненного квеста — выигрыш спина, умноженный на множитель
// квеста; прогресс начинается заново.
func (g *PiratesBounty) updateQuests(st *piratesState, grid Grid, discoveries int, stormActive bool, spinWin decimal.Decimal) (decimal.Decimal, []string) {
	st.quests["collector"].Progress += grid.CountGlyph("💎")
	st.quests["explorer"].Progress += discoveries
	if stormActive {
		st.quests["warrior"].Progress++
	}
	if spinWin.IsPositive() {
		st.quests["captain"].Progress++
	}

	total := decimal.Zero
	var messages []string
	for _, key := range []string{"collector", "explorer", "warrior", "captain"} {
		q := st.quests[key]
		if q.Progress < q.Target {
			continue
		}
		bonus := spinWin.Mul(q.Multiplier)
		total = total.Add(bonus)
		q.Progress = 0
		q.Completed++
		messages = append(messages, fmt.Sprintf(
			"🏅 Квест «%s» выполнен! Бонус: %s", q.Name, bonus.StringFixed(2)))
	}
	return total, messages
}

func questSnapshot(quests map[string]*pirateQuest) map[string]map[string]any {
	out := make(map[string]map[string]any, len(quests))
	for key, q := range quests {
		out[key] = map[string]any{
			"name":      q.Name,
			"progress":  q.Progress,
			"target":    q.Target,
			"completed": q.Completed,
		}
	}
	return out
}

// Rules возвращает правила игры.
func (g *PiratesBounty) Rules() string {
	return "🏴‍☠️ Pirate's Bounty\n\n" +
		"Символы:\n" +
		"🏴‍☠️ Весёлый Роджер — максимальная ценность\n" +
		"💎 Сокровище — высокая ценность\n" +
		"🗺️ Карта — средняя ценность\n" +
		"🧭 Компас — низкая ценность\n" +
		"🦜 Попугай — средняя ценность\n" +
		"⚔️ Сабли — высокая ценность\n" +
		"🎡 Штурвал — вайлд\n" +
		"💀 Череп — скаттер\n\n" +
		"Особенности:\n" +
		"- Штормы с множителем до x5\n" +
		"- Карта сокровищ 5x5 (запас из 3 ходов N/S/E/W,\n" +
		"  пополняется при полном открытии карты)\n" +
		"- Квесты с бонусами до x5\n" +
		"- Бонусный множитель (2x-10x)\n\n" +
		fmt.Sprintf("Мин. ставка: %s\nМакс. ставка: %s", g.minBet, g.maxBet)
}

// State возвращает снимок состояния игрока.
func (g *PiratesBounty) State(playerID int64) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(playerID)
	var lastGrid [][]string
	if st.lastGrid != nil {
		lastGrid = st.lastGrid.Snapshot()
	}
	return map[string]any{
		"last_grid":        lastGrid,
		"storm_spins":      st.stormSpins,
		"storm_multiplier": st.stormMultiplier.String(),
		"map_discovered":   len(st.treasureMap.discovered),
		"map_position":     []int{st.treasureMap.pos.Row, st.treasureMap.pos.Col},
		"moves_remaining":  st.movesRemaining,
		"quests":           questSnapshot(st.quests),
		"total_win":        st.totalWin.String(),
		"min_bet":          g.minBet.String(),
		"max_bet":          g.maxBet.String(),
	}
}
