// Package games — ancient_treasures.go: слот 5x3 в египетской тематике.
// Несколько линий выплат, бонусный множитель и бесплатные спины.
package games

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/rng"
)

// ancientPayouts — множители по длине совпавшей линии.
var ancientPayouts = map[int]int64{3: 5, 4: 15, 5: 50}

// ancientState — состояние игрока в Ancient Treasures.
type ancientState struct {
	freeSpins int
	// Активный множитель игрока; применяется к каждой линии
	multiplier int64
	totalWin   decimal.Decimal
	lastGrid   Grid
}

// AncientTreasures — слот с линиями, бонусами и бесплатными спинами.
type AncientTreasures struct {
	limits
	rng      rng.Provider
	symbols  []Symbol
	paylines []PaylinePattern

	multiplyBonus  MultiplyBonus
	freeSpinsBonus FreeSpinsBonus

	mu     sync.Mutex
	states map[int64]*ancientState
}

// NewAncientTreasures создаёт игру Ancient Treasures.
func NewAncientTreasures(r rng.Provider) *AncientTreasures {
	return &AncientTreasures{
		limits: newLimits("1.00", "100.00"),
		rng:    r,
		symbols: []Symbol{
			{Glyph: "☥", Name: "Ankh", Weight: 3},
			{Glyph: "👁️", Name: "Eye of Horus", Weight: 4},
			{Glyph: "🏛️", Name: "Pyramid", Weight: 2},
			{Glyph: "🗿", Name: "Sphinx", Weight: 2},
			{Glyph: "🪲", Name: "Scarab", Weight: 5},
			{Glyph: "😺", Name: "Bastet", Weight: 4},
			{Glyph: "⭐", Name: "Wild", Weight: 1},
			{Glyph: "🌟", Name: "Scatter", Weight: 1},
		},
		paylines:       DefaultPaylines(),
		multiplyBonus:  MultiplyBonus{Prob: 0.10, MinMult: 2, MaxMult: 5},
		freeSpinsBonus: FreeSpinsBonus{Prob: 0.05, MinSpins: 3, MaxSpins: 10},
		states:         make(map[int64]*ancientState),
	}
}

// Type возвращает тип игры.
func (g *AncientTreasures) Type() string { return TypeAncientTreasures }

// state лениво инициализирует состояние игрока.
// Инициализация не делает ни одного обращения к RNG.
func (g *AncientTreasures) state(playerID int64) *ancientState {
	st, ok := g.states[playerID]
	if !ok {
		st = &ancientState{
			freeSpins:  0,
			multiplier: 1,
			totalWin:   decimal.Zero,
		}
		g.states[playerID] = st
	}
	return st
}

// Play разыгрывает спин. Порядок розыгрышей:
//  1. генерация сетки 5x3 (15 розыгрышей, по строкам);
//  2. проверка бонусного множителя (1 float, при срабатывании 1 int);
//  3. проверка бонуса бесплатных спинов (1 float, при срабатывании 1 int).
//
// На бесплатном спине ставка не списывается (Bet = 0 в результате),
// но выигрыш считается от номинала ставки.
func (g *AncientTreasures) Play(_ context.Context, req Request) (*Result, error) {
	if err := g.validateBet(req.Bet); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(req.PlayerID)
	isFreeSpin := st.freeSpins > 0

	grid := NewGrid(g.rng, 3, 5, g.symbols)
	st.lastGrid = grid

	wins := CheckPaylines(grid, g.paylines)
	totalWin, outcomeParts := g.calculateWin(wins, req.Bet, st)

	// Независимые бонусные проверки — каждая ровно один раз за спин
	if g.multiplyBonus.ShouldTrigger(g.rng) {
		bonusWin, msg := g.multiplyBonus.Apply(g.rng, totalWin)
		totalWin = bonusWin
		outcomeParts = append(outcomeParts, msg)
	}
	if g.freeSpinsBonus.ShouldTrigger(g.rng) {
		spins := g.freeSpinsBonus.Spins(g.rng)
		st.freeSpins += spins
		outcomeParts = append(outcomeParts, fmt.Sprintf("🎰 Выиграно %d бесплатных спинов!", spins))
	}

	outcome := "Нет выигрышных комбинаций"
	if len(outcomeParts) > 0 {
		outcome = strings.Join(outcomeParts, "\n")
	}

	charged := req.Bet
	if isFreeSpin {
		st.freeSpins--
		charged = decimal.Zero
		outcome = "🎰 Бесплатный спин! " + outcome
	}

	st.totalWin = st.totalWin.Add(totalWin)

	return newResult(req.PlayerID, g.Type(), charged, totalWin, outcome, map[string]any{
		"grid":                 grid.Snapshot(),
		"free_spins_remaining": st.freeSpins,
		"multiplier":           st.multiplier,
		"total_win":            st.totalWin.String(),
	}), nil
}

// calculateWin суммирует выигрыши по линиям:
// ставка × множитель-за-длину × множитель линии × множитель игрока.
func (g *AncientTreasures) calculateWin(wins []LineWin, bet decimal.Decimal, st *ancientState) (decimal.Decimal, []string) {
	total := decimal.Zero
	var parts []string

	for _, lw := range wins {
		payout, ok := ancientPayouts[len(lw.Symbols)]
		if !ok {
			continue
		}
		win := bet.
			Mul(decimal.NewFromInt(payout)).
			Mul(decimal.NewFromInt(lw.Pattern.Multiplier)).
			Mul(decimal.NewFromInt(st.multiplier))
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
func (g *AncientTreasures) Rules() string {
	return "🏛️ Ancient Treasures\n\n" +
		"Символы:\n" +
		"☥ Анкх — высокая ценность\n" +
		"👁️ Око Гора — высокая ценность\n" +
		"🏛️ Пирамида — средняя ценность\n" +
		"🗿 Сфинкс — средняя ценность\n" +
		"🪲 Скарабей — низкая ценность\n" +
		"😺 Бастет — низкая ценность\n" +
		"⭐ Вайлд\n" +
		"🌟 Скаттер\n\n" +
		"Особенности:\n" +
		"- Бонусный множитель (2x-5x)\n" +
		"- Бесплатные спины (3-10)\n" +
		"- Несколько линий выплат\n\n" +
		fmt.Sprintf("Мин. ставка: %s\nМакс. ставка: %s", g.minBet, g.maxBet)
}

// State возвращает снимок состояния игрока.
func (g *AncientTreasures) State(playerID int64) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(playerID)
	var lastGrid [][]string
	if st.lastGrid != nil {
		lastGrid = st.lastGrid.Snapshot()
	}
	return map[string]any{
		"last_grid":  lastGrid,
		"free_spins": st.freeSpins,
		"multiplier": st.multiplier,
		"total_win":  st.totalWin.String(),
		"min_bet":    g.minBet.String(),
		"max_bet":    g.maxBet.String(),
	}
}
