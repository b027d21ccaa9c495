// Package wallet реализует криптовалютный кошелёк казино.
// models.go — структуры данных: транзакция-леджер, типы операций,
// статусы и поддерживаемые валюты.
//
// Баланс НЕ хранится как число — он выводится из журнала транзакций
// (знаковая сумма завершённых операций). Таблица wallet_balances —
// только кэш для сериализации конкурентных списаний.
package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/common"
)

// Type — тип операции кошелька.
type Type string

// Типы операций.
const (
	TypeBet      Type = "bet"      // Ставка в игре
	TypeWin      Type = "win"      // Выигрыш
	TypeDeposit  Type = "deposit"  // Пополнение
	TypeWithdraw Type = "withdraw" // Вывод средств
	TypeBonus    Type = "bonus"    // Бонус, возврат ставки
)

// Credit сообщает, зачисляет ли операция средства на счёт.
// Ставки и выводы — списания, остальное — зачисления.
func (t Type) Credit() bool {
	switch t {
	case TypeWin, TypeDeposit, TypeBonus:
		return true
	default:
		return false
	}
}

// Valid проверяет, что тип операции известен.
func (t Type) Valid() bool {
	switch t {
	case TypeBet, TypeWin, TypeDeposit, TypeWithdraw, TypeBonus:
		return true
	default:
		return false
	}
}

// Status — статус транзакции.
type Status string

// Статусы транзакций. Pending — начальный, остальные терминальные:
// переход разрешён только pending → completed или pending → failed.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal сообщает, финален ли статус.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Currency — поддерживаемая криптовалюта. Закрытый набор:
// операция в неизвестной валюте отклоняется, а не проходит
// с параметрами по умолчанию.
type Currency string

// Поддерживаемые валюты.
const (
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	USDT Currency = "USDT"
	BNB  Currency = "BNB"
	USDC Currency = "USDC"
)

// currencyInfo — параметры валюты: точность и границы одной операции.
type currencyInfo struct {
	decimals int32
	min      decimal.Decimal
	max      decimal.Decimal
}

var currencies = map[Currency]currencyInfo{
	BTC:  {decimals: 8, min: decimal.RequireFromString("0.0001"), max: decimal.RequireFromString("10")},
	ETH:  {decimals: 18, min: decimal.RequireFromString("0.001"), max: decimal.RequireFromString("100")},
	USDT: {decimals: 6, min: decimal.RequireFromString("1"), max: decimal.RequireFromString("100000")},
	BNB:  {decimals: 8, min: decimal.RequireFromString("0.01"), max: decimal.RequireFromString("1000")},
	USDC: {decimals: 6, min: decimal.RequireFromString("1"), max: decimal.RequireFromString("100000")},
}

// ParseCurrency проверяет код валюты.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(code)
	if _, ok := currencies[c]; !ok {
		return "", common.ErrInvalidCurrency
	}
	return c, nil
}

// Decimals возвращает число знаков после запятой.
func (c Currency) Decimals() int32 {
	return currencies[c].decimals
}

// MinAmount возвращает минимальную сумму одной операции.
func (c Currency) MinAmount() decimal.Decimal {
	return currencies[c].min
}

// MaxAmount возвращает максимальную сумму одной операции.
func (c Currency) MaxAmount() decimal.Decimal {
	return currencies[c].max
}

// Valid проверяет, что валюта поддерживается.
func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// Transaction — запись журнала кошелька. Amount всегда положительный,
// направление задаёт Type (см. Signed).
type Transaction struct {
	ID       int64
	PlayerID int64
	Type     Type
	Status   Status
	Currency Currency
	Amount   decimal.Decimal

	// GameType и RoundID заполняются для bet/win/bonus —
	// связь транзакции с игровым раундом
	GameType string
	RoundID  *uuid.UUID

	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Signed возвращает вклад транзакции в баланс: положительный для
// зачислений, отрицательный для списаний, ноль для незавершённых.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Status != StatusCompleted {
		return decimal.Zero
	}
	if t.Type.Credit() {
		return t.Amount
	}
	return t.Amount.Neg()
}
