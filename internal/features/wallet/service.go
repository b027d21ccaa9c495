// Package wallet — service.go содержит бизнес-логику кошелька:
// валидация сумм и валют, жизненный цикл депозитов и выводов,
// списание ставок и зачисление выигрышей.
package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/casino-engine/internal/common"
	"serotonyl.ru/casino-engine/internal/config"
)

// Service — сервис кошелька.
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт сервис кошелька.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// DefaultCurrency возвращает валюту по умолчанию из конфигурации.
func (s *Service) DefaultCurrency() Currency {
	c, err := ParseCurrency(s.cfg.WalletDefaultCurrency)
	if err != nil {
		// Конфигурация проверяется на старте, сюда попадать не должны
		log.Errorf("Неизвестная валюта по умолчанию %q, используется USDT",
			s.cfg.WalletDefaultCurrency)
		return USDT
	}
	return c
}

// validate проверяет валюту и сумму операции.
// Сумма округляется до точности валюты ДО проверки границ:
// пыль ниже минимального шага не проходит как операция.
func (s *Service) validate(currency Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	if !currency.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %s", common.ErrInvalidCurrency, currency)
	}

	amount = amount.Round(currency.Decimals())
	if !amount.IsPositive() {
		return decimal.Zero, common.ErrInvalidAmount
	}
	if amount.LessThan(currency.MinAmount()) || amount.GreaterThan(currency.MaxAmount()) {
		return decimal.Zero, fmt.Errorf("%w: %s вне границ [%s, %s] %s",
			common.ErrInvalidAmount, amount, currency.MinAmount(), currency.MaxAmount(), currency)
	}
	return amount, nil
}

// Balance возвращает баланс игрока в валюте.
func (s *Service) Balance(ctx context.Context, playerID int64, currency Currency) (decimal.Decimal, error) {
	if !currency.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %s", common.ErrInvalidCurrency, currency)
	}
	return s.store.Balance(ctx, playerID, currency)
}

// Deposit создаёт pending-депозит. Средства зачисляются на баланс
// только после подтверждения (Confirm) — например, по факту
// подтверждения в блокчейне. Брошенные депозиты истекают фоновой задачей.
func (s *Service) Deposit(ctx context.Context, playerID int64, currency Currency, amount decimal.Decimal) (*Transaction, error) {
	amount, err := s.validate(currency, amount)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.Append(ctx, &Transaction{
		PlayerID:    playerID,
		Type:        TypeDeposit,
		Status:      StatusPending,
		Currency:    currency,
		Amount:      amount,
		Description: fmt.Sprintf("Пополнение %s %s", common.FormatAmount(amount, int(currency.Decimals())), currency),
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player":   playerID,
		"currency": currency,
		"amount":   amount,
		"tx":       tx.ID,
	}).Info("Создан депозит")
	return tx, nil
}

// Withdraw создаёт pending-вывод. Достаточность средств проверяется
// на момент заявки и повторно при подтверждении — средства списываются
// только при Confirm.
func (s *Service) Withdraw(ctx context.Context, playerID int64, currency Currency, amount decimal.Decimal) (*Transaction, error) {
	amount, err := s.validate(currency, amount)
	if err != nil {
		return nil, err
	}

	balance, err := s.store.Balance(ctx, playerID, currency)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: нужно %s, есть %s",
			common.ErrInsufficientBalance, amount, balance)
	}

	tx, err := s.store.Append(ctx, &Transaction{
		PlayerID:    playerID,
		Type:        TypeWithdraw,
		Status:      StatusPending,
		Currency:    currency,
		Amount:      amount,
		Description: fmt.Sprintf("Вывод %s %s", common.FormatAmount(amount, int(currency.Decimals())), currency),
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"player":   playerID,
		"currency": currency,
		"amount":   amount,
		"tx":       tx.ID,
	}).Info("Создана заявка на вывод")
	return tx, nil
}

// Confirm завершает pending-транзакцию успехом.
func (s *Service) Confirm(ctx context.Context, txID int64) error {
	if err := s.store.SetStatus(ctx, txID, StatusCompleted); err != nil {
		return err
	}
	log.Infof("Транзакция %d подтверждена", txID)
	return nil
}

// Fail завершает pending-транзакцию отказом.
func (s *Service) Fail(ctx context.Context, txID int64) error {
	if err := s.store.SetStatus(ctx, txID, StatusFailed); err != nil {
		return err
	}
	log.Infof("Транзакция %d отклонена", txID)
	return nil
}

// DebitBet списывает ставку для игрового раунда.
// Атомарность обеспечивает хранилище; недостаток средств — ошибка.
func (s *Service) DebitBet(ctx context.Context, playerID int64, currency Currency, amount decimal.Decimal, gameType string, roundID uuid.UUID) (*Transaction, error) {
	amount, err := s.validate(currency, amount)
	if err != nil {
		return nil, err
	}

	return s.store.DebitBet(ctx, &Transaction{
		PlayerID:    playerID,
		Currency:    currency,
		Amount:      amount,
		GameType:    gameType,
		RoundID:     &roundID,
		Description: fmt.Sprintf("Ставка %s в %s", amount, gameType),
	})
}

// CreditWin зачисляет выигрыш раунда. Зачисление завершённое:
// выигрыш доступен сразу.
func (s *Service) CreditWin(ctx context.Context, playerID int64, currency Currency, amount decimal.Decimal, gameType string, roundID uuid.UUID) (*Transaction, error) {
	amount = amount.Round(currency.Decimals())
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	return s.store.Append(ctx, &Transaction{
		PlayerID:    playerID,
		Type:        TypeWin,
		Status:      StatusCompleted,
		Currency:    currency,
		Amount:      amount,
		GameType:    gameType,
		RoundID:     &roundID,
		Description: fmt.Sprintf("Выигрыш %s в %s", amount, gameType),
	})
}

// CreditBonus зачисляет бонус: возврат ставки бесплатного спина,
// возврат при сбое движка и другие компенсации.
func (s *Service) CreditBonus(ctx context.Context, playerID int64, currency Currency, amount decimal.Decimal, gameType, reason string, roundID uuid.UUID) (*Transaction, error) {
	amount = amount.Round(currency.Decimals())
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	return s.store.Append(ctx, &Transaction{
		PlayerID:    playerID,
		Type:        TypeBonus,
		Status:      StatusCompleted,
		Currency:    currency,
		Amount:      amount,
		GameType:    gameType,
		RoundID:     &roundID,
		Description: reason,
	})
}

// History возвращает последние транзакции игрока.
func (s *Service) History(ctx context.Context, playerID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.Transactions(ctx, playerID, limit)
}

// ExpirePending помечает брошенные pending-транзакции как failed.
// Вызывается планировщиком.
func (s *Service) ExpirePending(ctx context.Context) error {
	n, err := s.store.ExpirePending(ctx, s.cfg.WalletPendingTimeout)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Infof("Истекло pending-транзакций: %d", n)
	}
	return nil
}

// Reconcile сверяет кэш балансов с журналом. Вызывается планировщиком.
func (s *Service) Reconcile(ctx context.Context) error {
	return s.store.Reconcile(ctx)
}
