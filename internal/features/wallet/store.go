// Package wallet — store.go определяет контракт хранилища журнала.
// Сервис зависит от интерфейса, конкретная реализация на PostgreSQL —
// в repository.go; тесты подставляют хранилище в памяти.
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store — хранилище журнала транзакций.
// Ошибки хранилища всегда возвращаются наверх: баланс «ноль из-за сбоя»
// неотличим от настоящего нуля, поэтому тихие нули запрещены.
type Store interface {
	// Append добавляет транзакцию в журнал и возвращает её с ID.
	// Завершённое зачисление атомарно обновляет кэш баланса.
	Append(ctx context.Context, tx *Transaction) (*Transaction, error)

	// DebitBet атомарно списывает ставку: проверка достаточности средств
	// и запись завершённой bet-транзакции под блокировкой строки баланса.
	// Недостаток средств — common.ErrInsufficientBalance, журнал не растёт.
	DebitBet(ctx context.Context, tx *Transaction) (*Transaction, error)

	// Balance возвращает знаковую сумму завершённых транзакций игрока
	// в валюте. Считается по журналу, не по кэшу.
	Balance(ctx context.Context, playerID int64, currency Currency) (decimal.Decimal, error)

	// Transactions возвращает последние limit транзакций игрока,
	// новые первыми.
	Transactions(ctx context.Context, playerID int64, limit int) ([]*Transaction, error)

	// SetStatus переводит pending-транзакцию в терминальный статус.
	// Повторный перевод — common.ErrTransactionFinal. Подтверждение
	// списания при недостатке средств — common.ErrInsufficientBalance,
	// транзакция остаётся pending.
	SetStatus(ctx context.Context, txID int64, status Status) error

	// ExpirePending помечает failed все pending-транзакции старше
	// порога. Возвращает число затронутых записей.
	ExpirePending(ctx context.Context, olderThan time.Duration) (int64, error)

	// Reconcile сверяет кэш балансов с журналом и чинит расхождения.
	Reconcile(ctx context.Context) error
}
