// Package casino — service.go координирует раунд от начала до конца.
//
// Деньги и игра связаны строго в одном порядке: списание ставки,
// розыгрыш, зачисление выигрыша. Сбой движка после списания — возврат
// ставки бонусной транзакцией; бесплатный спин тоже списывается и тут же
// возвращается, чтобы журнал кошелька показывал каждый раунд.
package casino

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/casino-engine/internal/common"
	"serotonyl.ru/casino-engine/internal/config"
	"serotonyl.ru/casino-engine/internal/features/games"
	"serotonyl.ru/casino-engine/internal/features/wallet"
)

// ErrCasinoDisabled — казино выключено фича-флагом.
var ErrCasinoDisabled = errors.New("казино временно отключено")

// Wallet — операции кошелька, нужные казино.
// Реализуется wallet.Service; тесты подставляют фальшивый кошелёк.
type Wallet interface {
	DebitBet(ctx context.Context, playerID int64, currency wallet.Currency, amount decimal.Decimal, gameType string, roundID uuid.UUID) (*wallet.Transaction, error)
	CreditWin(ctx context.Context, playerID int64, currency wallet.Currency, amount decimal.Decimal, gameType string, roundID uuid.UUID) (*wallet.Transaction, error)
	CreditBonus(ctx context.Context, playerID int64, currency wallet.Currency, amount decimal.Decimal, gameType, reason string, roundID uuid.UUID) (*wallet.Transaction, error)
}

// RoundStore — хранилище истории раундов.
type RoundStore interface {
	SaveRound(ctx context.Context, round *Round) error
	UpdateStats(ctx context.Context, playerID int64, bet, win decimal.Decimal) error
	Stats(ctx context.Context, playerID int64) (*Stats, error)
	RecentRounds(ctx context.Context, playerID int64, limit int) ([]*Round, error)
}

// Service управляет казино.
type Service struct {
	registry *games.Registry
	wallet   Wallet
	rounds   RoundStore
	cfg      *config.Config

	// Мьютекс на игрока: конкурентные спины одного игрока
	// сериализуются на весь цикл списание-розыгрыш-зачисление
	locks sync.Map
}

// NewService создаёт сервис казино.
func NewService(registry *games.Registry, w Wallet, rounds RoundStore, cfg *config.Config) *Service {
	return &Service{
		registry: registry,
		wallet:   w,
		rounds:   rounds,
		cfg:      cfg,
	}
}

func (s *Service) playerLock(playerID int64) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(playerID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Spin выполняет полный цикл раунда: валидация ставки, списание,
// розыгрыш, возвраты и зачисление выигрыша, запись истории.
func (s *Service) Spin(ctx context.Context, playerID int64, gameType string, bet decimal.Decimal, currency wallet.Currency, moves []string) (*games.Result, error) {
	if !s.cfg.FeatureCasinoEnabled {
		return nil, ErrCasinoDisabled
	}

	lock := s.playerLock(playerID)
	lock.Lock()
	defer lock.Unlock()

	engine, err := s.registry.Engine(gameType, playerID)
	if err != nil {
		return nil, err
	}

	// Границы ставки проверяются ДО списания: движок перепроверит,
	// но сюда он попадает уже с деньгами на руках
	if bet.LessThan(engine.MinBet()) || bet.GreaterThan(engine.MaxBet()) {
		return nil, fmt.Errorf("%w: %s вне границ [%s, %s]",
			common.ErrInvalidBet, bet, engine.MinBet(), engine.MaxBet())
	}

	roundID := uuid.New()
	if _, err := s.wallet.DebitBet(ctx, playerID, currency, bet, gameType, roundID); err != nil {
		return nil, err
	}

	result, err := s.registry.Play(ctx, gameType, games.Request{
		PlayerID: playerID,
		Bet:      bet,
		Moves:    moves,
	})
	if err != nil {
		// Ставка списана, раунда не было — возвращаем
		s.refund(ctx, playerID, currency, bet, gameType, "Возврат ставки: сбой игры", roundID)
		return nil, err
	}

	// Единый идентификатор раунда в журнале кошелька и истории
	result.RoundID = roundID

	// Бесплатный спин: ставка списана для следа в журнале,
	// возвращается бонусной транзакцией
	if result.Bet.IsZero() && bet.IsPositive() {
		s.refund(ctx, playerID, currency, bet, gameType, "Возврат ставки: бесплатный спин", roundID)
	}

	if result.IsWin() {
		if _, err := s.wallet.CreditWin(ctx, playerID, currency, result.Win, gameType, roundID); err != nil {
			// Деньги игрока важнее истории: ошибку отдаём наверх
			log.WithError(err).WithFields(log.Fields{
				"player": playerID,
				"round":  roundID,
				"win":    result.Win,
			}).Error("Ошибка зачисления выигрыша")
			return nil, err
		}
	}

	s.record(ctx, result, currency)
	return result, nil
}

// refund возвращает списанную ставку бонусной транзакцией.
// Ошибка возврата только логируется: ночная сверка найдёт расхождение.
func (s *Service) refund(ctx context.Context, playerID int64, currency wallet.Currency, amount decimal.Decimal, gameType, reason string, roundID uuid.UUID) {
	if _, err := s.wallet.CreditBonus(ctx, playerID, currency, amount, gameType, reason, roundID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"player": playerID,
			"round":  roundID,
			"amount": amount,
		}).Error("Ошибка возврата ставки")
	}
}

// record пишет историю раунда и статистику. Ошибки записи истории
// не срывают раунд — деньги уже разнесены по журналу кошелька.
func (s *Service) record(ctx context.Context, result *games.Result, currency wallet.Currency) {
	round := &Round{
		RoundID:  result.RoundID,
		PlayerID: result.PlayerID,
		GameType: result.GameType,
		Currency: currency,
		Bet:      result.Bet,
		Win:      result.Win,
		Outcome:  result.Outcome,
		GameData: MarshalGameData(result.GameData),
	}
	if err := s.rounds.SaveRound(ctx, round); err != nil {
		log.WithError(err).Error("Ошибка сохранения раунда")
	}
	if err := s.rounds.UpdateStats(ctx, result.PlayerID, result.Bet, result.Win); err != nil {
		log.WithError(err).Error("Ошибка обновления статистики казино")
	}
}

// Rules возвращает правила игры.
func (s *Service) Rules(gameType string, playerID int64) (string, error) {
	return s.registry.Rules(gameType, playerID)
}

// State возвращает состояние игрока в игре.
func (s *Service) State(gameType string, playerID int64) (map[string]any, error) {
	return s.registry.State(gameType, playerID)
}

// AvailableGames возвращает тип → правила для всех игр.
func (s *Service) AvailableGames() map[string]string {
	return s.registry.AvailableGames()
}

// Stats возвращает статистику казино игрока.
func (s *Service) Stats(ctx context.Context, playerID int64) (*Stats, error) {
	return s.rounds.Stats(ctx, playerID)
}

// History возвращает последние раунды игрока.
func (s *Service) History(ctx context.Context, playerID int64, limit int) ([]*Round, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.rounds.RecentRounds(ctx, playerID, limit)
}

// Deactivate очищает игровые сессии игрока и отпускает его мьютекс:
// спины деактивированного игрока не идут, запись не должна жить вечно.
func (s *Service) Deactivate(playerID int64) {
	s.registry.Cleanup(playerID)
	s.locks.Delete(playerID)
}
