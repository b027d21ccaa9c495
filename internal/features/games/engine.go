// Package games — engine.go определяет общий контракт игровых движков.
// Вместо абстрактного базового класса — интерфейс Engine с отдельной
// реализацией на каждую игру; выбор движка делает реестр по типу игры.
package games

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/common"
)

// Request — параметры одного спина.
type Request struct {
	PlayerID int64
	Bet      decimal.Decimal
	// Moves — ходы исследования карты сокровищ (только Pirate's Bounty),
	// направления "N", "S", "E", "W". Остальные игры поле игнорируют.
	Moves []string
}

// Result — результат одного раунда. Неизменяемое значение, единственный
// канал информации от движка к внешнему слою.
type Result struct {
	RoundID   uuid.UUID
	PlayerID  int64
	GameType  string
	Bet       decimal.Decimal // Списанная ставка (0 на бесплатном спине)
	Win       decimal.Decimal
	Outcome   string // Человекочитаемое описание исхода
	GameData  map[string]any
	CreatedAt time.Time
}

// IsWin сообщает, был ли раунд выигрышным.
func (r *Result) IsWin() bool {
	return r.Win.IsPositive()
}

// Engine — контракт игрового движка.
// Движки предполагают, что баланс игрока уже проверен вызывающим слоем,
// но обязаны защитно перепроверять границы ставки.
// Порядок случайных розыгрышей внутри Play фиксирован и задокументирован
// в каждой игре: при подменённом RNG спин воспроизводим.
type Engine interface {
	// Type возвращает идентификатор типа игры.
	Type() string
	// MinBet и MaxBet — границы ставки.
	MinBet() decimal.Decimal
	MaxBet() decimal.Decimal
	// Play разыгрывает один раунд.
	Play(ctx context.Context, req Request) (*Result, error)
	// Rules возвращает статичный текст правил.
	Rules() string
	// State возвращает снимок состояния игрока,
	// лениво инициализируя его при первом обращении.
	State(playerID int64) map[string]any
}

// limits — общая для всех движков проверка границ ставки.
type limits struct {
	minBet decimal.Decimal
	maxBet decimal.Decimal
}

func newLimits(min, max string) limits {
	return limits{
		minBet: decimal.RequireFromString(min),
		maxBet: decimal.RequireFromString(max),
	}
}

func (l limits) MinBet() decimal.Decimal { return l.minBet }
func (l limits) MaxBet() decimal.Decimal { return l.maxBet }

// validateBet защитно перепроверяет границы ставки.
func (l limits) validateBet(bet decimal.Decimal) error {
	if bet.LessThan(l.minBet) {
		return fmt.Errorf("%w: %s меньше минимума %s", common.ErrInvalidBet, bet, l.minBet)
	}
	if bet.GreaterThan(l.maxBet) {
		return fmt.Errorf("%w: %s больше максимума %s", common.ErrInvalidBet, bet, l.maxBet)
	}
	return nil
}

// newResult собирает Result с новым идентификатором раунда.
func newResult(playerID int64, gameType string, bet, win decimal.Decimal, outcome string, data map[string]any) *Result {
	return &Result{
		RoundID:   uuid.New(),
		PlayerID:  playerID,
		GameType:  gameType,
		Bet:       bet,
		Win:       win,
		Outcome:   outcome,
		GameData:  data,
		CreatedAt: time.Now().UTC(),
	}
}
