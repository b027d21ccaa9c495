// Package common содержит общие утилиты, используемые во всём проекте.
// helpers.go — форматирование времени и денежных сумм.
package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FormatDateTime форматирует время в читабельный вид для истории транзакций.
// Пример: "02.01 15:04"
func FormatDateTime(t time.Time) string {
	return t.Format("02.01 15:04")
}

// FormatAmount форматирует сумму с заданным числом знаков после запятой.
// Используется для вывода балансов и выигрышей:
//
//	FormatAmount(decimal.NewFromFloat(1.5), 8) → "1.50000000"
func FormatAmount(amount decimal.Decimal, places int) string {
	return amount.StringFixed(int32(places))
}

// FormatMultiplier форматирует множитель вида "x2.5".
// Целые множители выводятся без дробной части: "x3".
func FormatMultiplier(m decimal.Decimal) string {
	if m.Equal(m.Truncate(0)) {
		return fmt.Sprintf("x%s", m.Truncate(0).String())
	}
	return fmt.Sprintf("x%s", m.String())
}
