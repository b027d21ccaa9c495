// Package wallet — repository.go выполняет все операции с таблицами
// wallet_balances и wallet_transactions.
// Все денежные операции выполняются в транзакциях БД для целостности:
// кэш баланса и журнал меняются либо вместе, либо никак.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/casino-engine/internal/common"
)

// Repository — реализация Store на PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// Компилятор проверяет соответствие контракту.
var _ Store = (*Repository)(nil)

// NewRepository создаёт репозиторий кошелька.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Append добавляет транзакцию в журнал. Завершённая транзакция
// атомарно применяет знаковую сумму к кэшу баланса.
func (r *Repository) Append(ctx context.Context, t *Transaction) (*Transaction, error) {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer dbTx.Rollback(ctx)

	if t.Status == StatusCompleted {
		if err := r.applyToBalance(ctx, dbTx, t.PlayerID, t.Currency, t.Signed()); err != nil {
			return nil, err
		}
	}

	err = dbTx.QueryRow(ctx, `
		INSERT INTO wallet_transactions
			(player_id, tx_type, status, currency, amount, game_type, round_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, t.PlayerID, t.Type, t.Status, t.Currency, t.Amount, t.GameType, t.RoundID, t.Description).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return t, nil
}

// DebitBet атомарно списывает ставку. Строка кэша блокируется
// FOR UPDATE — конкурентные ставки одного игрока сериализуются,
// двойное списание с недостаточного баланса невозможно.
func (r *Repository) DebitBet(ctx context.Context, t *Transaction) (*Transaction, error) {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer dbTx.Rollback(ctx)

	// Строка кэша должна существовать до блокировки
	_, err = dbTx.Exec(ctx, `
		INSERT INTO wallet_balances (player_id, currency, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (player_id, currency) DO NOTHING
	`, t.PlayerID, t.Currency)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания баланса: %w", err)
	}

	var balance decimal.Decimal
	err = dbTx.QueryRow(ctx, `
		SELECT balance FROM wallet_balances
		WHERE player_id = $1 AND currency = $2
		FOR UPDATE
	`, t.PlayerID, t.Currency).Scan(&balance)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}

	if balance.LessThan(t.Amount) {
		return nil, fmt.Errorf("%w: нужно %s, есть %s",
			common.ErrInsufficientBalance, t.Amount, balance)
	}

	_, err = dbTx.Exec(ctx, `
		UPDATE wallet_balances
		SET balance = balance - $3, updated_at = NOW()
		WHERE player_id = $1 AND currency = $2
	`, t.PlayerID, t.Currency, t.Amount)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания: %w", err)
	}

	t.Type = TypeBet
	t.Status = StatusCompleted
	err = dbTx.QueryRow(ctx, `
		INSERT INTO wallet_transactions
			(player_id, tx_type, status, currency, amount, game_type, round_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, t.PlayerID, t.Type, t.Status, t.Currency, t.Amount, t.GameType, t.RoundID, t.Description).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return t, nil
}

// applyToBalance применяет знаковую сумму к кэшу под блокировкой строки.
func (r *Repository) applyToBalance(ctx context.Context, dbTx pgx.Tx, playerID int64, currency Currency, delta decimal.Decimal) error {
	_, err := dbTx.Exec(ctx, `
		INSERT INTO wallet_balances (player_id, currency, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, currency)
		DO UPDATE SET balance = wallet_balances.balance + $3, updated_at = NOW()
	`, playerID, currency, delta)
	if err != nil {
		return fmt.Errorf("ошибка обновления баланса: %w", err)
	}
	return nil
}

// Balance считает знаковую сумму завершённых транзакций по журналу.
// Кэш не используется: журнал — источник истины.
func (r *Repository) Balance(ctx context.Context, playerID int64, currency Currency) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(
			CASE WHEN tx_type IN ('win', 'deposit', 'bonus')
				THEN amount ELSE -amount END
		), 0)
		FROM wallet_transactions
		WHERE player_id = $1 AND currency = $2 AND status = 'completed'
	`, playerID, currency).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// Transactions возвращает последние транзакции игрока, новые первыми.
func (r *Repository) Transactions(ctx context.Context, playerID int64, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player_id, tx_type, status, currency, amount,
			game_type, round_id, description, created_at, updated_at
		FROM wallet_transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		err := rows.Scan(
			&t.ID, &t.PlayerID, &t.Type, &t.Status, &t.Currency, &t.Amount,
			&t.GameType, &t.RoundID, &t.Description, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// SetStatus переводит pending-транзакцию в терминальный статус.
// Переход выполняется ровно один раз: строка блокируется, терминальная
// транзакция не меняется. Завершение зачисления применяет сумму к кэшу.
// Завершение списания (вывод) перепроверяет достаточность средств под
// той же блокировкой строки баланса, что и DebitBet: две заявки,
// прошедшие проверку на момент создания, не уводят баланс в минус.
func (r *Repository) SetStatus(ctx context.Context, txID int64, status Status) error {
	if !status.Terminal() {
		return fmt.Errorf("недопустимый целевой статус: %s", status)
	}

	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var t Transaction
	err = dbTx.QueryRow(ctx, `
		SELECT id, player_id, tx_type, status, currency, amount
		FROM wallet_transactions
		WHERE id = $1
		FOR UPDATE
	`, txID).Scan(&t.ID, &t.PlayerID, &t.Type, &t.Status, &t.Currency, &t.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка получения транзакции: %w", err)
	}

	if t.Status.Terminal() {
		return fmt.Errorf("%w: статус %s", common.ErrTransactionFinal, t.Status)
	}

	_, err = dbTx.Exec(ctx, `
		UPDATE wallet_transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, txID, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса: %w", err)
	}

	// Завершённая транзакция начинает учитываться в балансе
	if status == StatusCompleted {
		t.Status = StatusCompleted
		if !t.Type.Credit() {
			if err := r.checkFundsLocked(ctx, dbTx, &t); err != nil {
				return err
			}
		}
		if err := r.applyToBalance(ctx, dbTx, t.PlayerID, t.Currency, t.Signed()); err != nil {
			return err
		}
	}

	return dbTx.Commit(ctx)
}

// checkFundsLocked блокирует строку кэша баланса и проверяет,
// что списание t.Amount не уведёт баланс в минус. При недостатке
// средств транзакция остаётся pending (откат всей БД-транзакции).
func (r *Repository) checkFundsLocked(ctx context.Context, dbTx pgx.Tx, t *Transaction) error {
	_, err := dbTx.Exec(ctx, `
		INSERT INTO wallet_balances (player_id, currency, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (player_id, currency) DO NOTHING
	`, t.PlayerID, t.Currency)
	if err != nil {
		return fmt.Errorf("ошибка создания баланса: %w", err)
	}

	var balance decimal.Decimal
	err = dbTx.QueryRow(ctx, `
		SELECT balance FROM wallet_balances
		WHERE player_id = $1 AND currency = $2
		FOR UPDATE
	`, t.PlayerID, t.Currency).Scan(&balance)
	if err != nil {
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}

	if balance.LessThan(t.Amount) {
		return fmt.Errorf("%w: нужно %s, есть %s",
			common.ErrInsufficientBalance, t.Amount, balance)
	}
	return nil
}

// ExpirePending помечает failed все pending-транзакции старше порога.
func (r *Repository) ExpirePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE wallet_transactions
		SET status = 'failed', updated_at = NOW()
		WHERE status = 'pending' AND created_at < NOW() - $1::interval
	`, olderThan.String())
	if err != nil {
		return 0, fmt.Errorf("ошибка истечения транзакций: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Reconcile пересчитывает кэш балансов по журналу.
// Расхождения чинятся в пользу журнала и попадают в лог.
func (r *Repository) Reconcile(ctx context.Context) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE wallet_balances b
		SET balance = j.actual, updated_at = NOW()
		FROM (
			SELECT player_id, currency, COALESCE(SUM(
				CASE WHEN tx_type IN ('win', 'deposit', 'bonus')
					THEN amount ELSE -amount END
			), 0) AS actual
			FROM wallet_transactions
			WHERE status = 'completed'
			GROUP BY player_id, currency
		) j
		WHERE b.player_id = j.player_id AND b.currency = j.currency
			AND b.balance <> j.actual
	`)
	if err != nil {
		return fmt.Errorf("ошибка сверки балансов: %w", err)
	}

	if n := tag.RowsAffected(); n > 0 {
		log.Warnf("Сверка кошелька: исправлено %d строк кэша балансов", n)
	}
	return nil
}
