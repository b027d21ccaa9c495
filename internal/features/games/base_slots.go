// Package games — base_slots.go: классическая слот-машина с тремя
// барабанами и одной линией. Выплата только за точную тройку символов,
// частичные совпадения не оплачиваются.
package games

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/rng"
)

// baseSlotsPayouts — множители за точные тройки.
var baseSlotsPayouts = map[[3]string]int64{
	{"🍒", "🍒", "🍒"}: 3,
	{"🍊", "🍊", "🍊"}: 4,
	{"🍋", "🍋", "🍋"}: 5,
	{"🍇", "🍇", "🍇"}: 8,
	{"💎", "💎", "💎"}: 15,
	{"7️⃣", "7️⃣", "7️⃣"}: 25,
}

// BaseSlots — базовые слоты.
type BaseSlots struct {
	limits
	rng     rng.Provider
	symbols []Symbol

	mu sync.Mutex
	// Последний спин каждого игрока — для State
	lastSpins map[int64][]string
}

// NewBaseSlots создаёт базовую слот-машину.
func NewBaseSlots(r rng.Provider) *BaseSlots {
	return &BaseSlots{
		limits: newLimits("1.00", "100.00"),
		rng:    r,
		symbols: []Symbol{
			{Glyph: "🍒", Name: "Cherry", Weight: 1},
			{Glyph: "🍊", Name: "Orange", Weight: 1},
			{Glyph: "🍋", Name: "Lemon", Weight: 1},
			{Glyph: "🍇", Name: "Grape", Weight: 1},
			{Glyph: "💎", Name: "Diamond", Weight: 1},
			{Glyph: "7️⃣", Name: "Seven", Weight: 1},
		},
		lastSpins: make(map[int64][]string),
	}
}

// Type возвращает тип игры.
func (g *BaseSlots) Type() string { return TypeSlots }

// Play разыгрывает спин. Порядок розыгрышей: три символа слева направо.
func (g *BaseSlots) Play(_ context.Context, req Request) (*Result, error) {
	if err := g.validateBet(req.Bet); err != nil {
		return nil, err
	}

	var reels [3]string
	for i := range reels {
		reels[i] = PickWeighted(g.rng, g.symbols).Glyph
	}

	g.mu.Lock()
	g.lastSpins[req.PlayerID] = reels[:]
	g.mu.Unlock()

	mult := baseSlotsPayouts[reels]
	win := req.Bet.Mul(decimal.NewFromInt(mult))

	var outcome string
	if mult > 0 {
		outcome = fmt.Sprintf("Выигрыш! %s — множитель %dx", strings.Join(reels[:], " "), mult)
	} else {
		outcome = fmt.Sprintf("Без выигрыша. %s", strings.Join(reels[:], " "))
	}

	return newResult(req.PlayerID, g.Type(), req.Bet, win, outcome, map[string]any{
		"symbols": reels[:],
	}), nil
}

// Rules возвращает правила и таблицу выплат.
func (g *BaseSlots) Rules() string {
	return "🎰 Базовые слоты\n\n" +
		"Собери три одинаковых символа на линии:\n\n" +
		"Выплаты:\n" +
		"🍒🍒🍒 — 3x\n" +
		"🍊🍊🍊 — 4x\n" +
		"🍋🍋🍋 — 5x\n" +
		"🍇🍇🍇 — 8x\n" +
		"💎💎💎 — 15x\n" +
		"7️⃣7️⃣7️⃣ — 25x\n\n" +
		fmt.Sprintf("Мин. ставка: %s\nМакс. ставка: %s", g.minBet, g.maxBet)
}

// State возвращает последний спин игрока и границы ставок.
func (g *BaseSlots) State(playerID int64) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	last := g.lastSpins[playerID]
	if last == nil {
		last = []string{}
	}
	return map[string]any{
		"last_spin": last,
		"min_bet":   g.minBet.String(),
		"max_bet":   g.maxBet.String(),
	}
}
