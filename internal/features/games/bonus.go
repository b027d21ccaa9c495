// Package games — bonus.go содержит переиспользуемые бонусные примитивы.
// Каждый бонус — вероятность срабатывания плюс параметры эффекта.
// Срабатывания независимы между вызовами (без памяти); побочные эффекты
// (изменение баланса, состояния игрока) — ответственность вызывающей игры.
package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/rng"
)

// MultiplyBonus умножает выигрыш на случайный множитель.
type MultiplyBonus struct {
	Prob    float64 // Вероятность срабатывания (0..1)
	MinMult int
	MaxMult int
}

// ShouldTrigger делает один розыгрыш против вероятности бонуса.
func (b MultiplyBonus) ShouldTrigger(r rng.Provider) bool {
	return r.Float(0, 1) < b.Prob
}

// Apply применяет множитель к базовому выигрышу.
// Возвращает новый выигрыш и описание для игрока.
func (b MultiplyBonus) Apply(r rng.Provider, baseWin decimal.Decimal) (decimal.Decimal, string) {
	mult := r.Int(b.MinMult, b.MaxMult)
	win := baseWin.Mul(decimal.NewFromInt(int64(mult)))
	return win, fmt.Sprintf("🎉 Бонусный множитель x%d!", mult)
}

// FreeSpinsBonus начисляет бесплатные спины.
type FreeSpinsBonus struct {
	Prob     float64
	MinSpins int
	MaxSpins int
}

// ShouldTrigger делает один розыгрыш против вероятности бонуса.
func (b FreeSpinsBonus) ShouldTrigger(r rng.Provider) bool {
	return r.Float(0, 1) < b.Prob
}

// Spins возвращает число начисленных бесплатных спинов.
func (b FreeSpinsBonus) Spins(r rng.Provider) int {
	return r.Int(b.MinSpins, b.MaxSpins)
}

// ReskinBonus временно заменяет символы на более ценные.
type ReskinBonus struct {
	Prob     float64
	Duration int // Сколько спинов действует
}

// ShouldTrigger делает один розыгрыш против вероятности бонуса.
func (b ReskinBonus) ShouldTrigger(r rng.Provider) bool {
	return r.Float(0, 1) < b.Prob
}
