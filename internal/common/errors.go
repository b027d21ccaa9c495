// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях движка.
// Эти ошибки позволяют внешнему слою (боту, API) различать типы проблем
// и отправлять игроку понятные сообщения.
package common

import "errors"

// Ошибки ставок и игр
var (
	// ErrInvalidBet — ставка меньше минимума или больше максимума игры
	ErrInvalidBet = errors.New("недопустимая ставка")
	// ErrUnknownGame — игра с таким типом не зарегистрирована
	ErrUnknownGame = errors.New("игра не найдена")
	// ErrJackpotHalted — пул джекпотов остановлен из-за нарушения инварианта
	ErrJackpotHalted = errors.New("джекпоты остановлены до ручной сверки")
)

// Ошибки кошелька (леджер, транзакции)
var (
	// ErrInsufficientBalance — недостаточно средств на счёте
	ErrInsufficientBalance = errors.New("недостаточно средств на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrInvalidCurrency — неподдерживаемая валюта
	ErrInvalidCurrency = errors.New("валюта не поддерживается")
	// ErrTransactionFinal — транзакция уже в терминальном статусе,
	// повторная смена статуса запрещена
	ErrTransactionFinal = errors.New("транзакция уже завершена")
	// ErrTransactionNotFound — транзакция не найдена
	ErrTransactionNotFound = errors.New("транзакция не найдена")
)
