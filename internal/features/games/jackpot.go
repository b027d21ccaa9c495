// Package games — jackpot.go реализует прогрессивные джекпоты Dragon's Hoard.
// Пул ОБЩИЙ для всех игроков игры: один экземпляр на процесс, каждая ставка
// пополняет каждый уровень. Инкременты и выдача-со-сбросом атомарны
// относительно друг друга (мьютекс на весь пул): ни один вклад не теряется
// из-за гонки со сбросом, и два игрока не могут выиграть один и тот же пул.
package games

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/common"
)

// Названия уровней джекпота.
const (
	JackpotMini  = "mini"
	JackpotMinor = "minor"
	JackpotMajor = "major"
	JackpotGrand = "grand"
)

// JackpotTier — один уровень прогрессивного джекпота.
type JackpotTier struct {
	Name    string
	Current decimal.Decimal // Текущий пул
	Base    decimal.Decimal // Базовая сумма после сброса
	Rate    decimal.Decimal // Доля ставки, уходящая в пул
	LastWon *time.Time

	// Бухгалтерия для проверки инварианта сохранения:
	// Base + contributed - paid == Current в любой момент
	contributed decimal.Decimal
	paid        decimal.Decimal
}

func newTier(name, base, rate string) *JackpotTier {
	b := decimal.RequireFromString(base)
	return &JackpotTier{
		Name:    name,
		Current: b,
		Base:    b,
		Rate:    decimal.RequireFromString(rate),
	}
}

// JackpotPool — потокобезопасный пул из четырёх уровней.
type JackpotPool struct {
	mu     sync.Mutex
	tiers  map[string]*JackpotTier
	order  []string
	halted bool
}

// NewJackpotPool создаёт пул с уровнями Dragon's Hoard:
// Mini 50 (1% ставки), Minor 200 (2%), Major 1000 (3%), Grand 5000 (4%).
func NewJackpotPool() *JackpotPool {
	return &JackpotPool{
		tiers: map[string]*JackpotTier{
			JackpotMini:  newTier("Mini", "50.00", "0.01"),
			JackpotMinor: newTier("Minor", "200.00", "0.02"),
			JackpotMajor: newTier("Major", "1000.00", "0.03"),
			JackpotGrand: newTier("Grand", "5000.00", "0.04"),
		},
		order: []string{JackpotMini, JackpotMinor, JackpotMajor, JackpotGrand},
	}
}

// Contribute пополняет КАЖДЫЙ уровень долей ставки.
// Вызывается на каждом спине независимо от исхода.
func (p *JackpotPool) Contribute(bet decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.halted {
		return common.ErrJackpotHalted
	}

	for _, name := range p.order {
		tier := p.tiers[name]
		inc := bet.Mul(tier.Rate)
		tier.Current = tier.Current.Add(inc)
		tier.contributed = tier.contributed.Add(inc)
	}
	return p.verifyLocked()
}

// Award выплачивает весь текущий пул уровня и сбрасывает его до базы.
// Атомарно относительно конкурентных Contribute.
func (p *JackpotPool) Award(tierName string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.halted {
		return decimal.Zero, common.ErrJackpotHalted
	}

	tier, ok := p.tiers[tierName]
	if !ok {
		return decimal.Zero, fmt.Errorf("неизвестный уровень джекпота: %s", tierName)
	}

	amount := tier.Current
	tier.paid = tier.paid.Add(amount)
	// После выигрыша пул возвращается к базовой сумме;
	// в бухгалтерии это вклад базы в следующий цикл
	tier.contributed = tier.contributed.Add(tier.Base)
	tier.Current = tier.Base
	now := time.Now().UTC()
	tier.LastWon = &now

	if err := p.verifyLocked(); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// verifyLocked проверяет инвариант сохранения по каждому уровню.
// Нарушение фатально для пула: дальнейшая игра останавливается
// до ручной сверки, тихий сброс запрещён.
func (p *JackpotPool) verifyLocked() error {
	for _, name := range p.order {
		tier := p.tiers[name]
		expected := tier.Base.Add(tier.contributed).Sub(tier.paid)
		if !tier.Current.Equal(expected) || tier.Current.LessThan(tier.Base) {
			p.halted = true
			log.WithFields(log.Fields{
				"tier":     name,
				"current":  tier.Current,
				"expected": expected,
				"base":     tier.Base,
			}).Error("Нарушен инвариант джекпота, пул остановлен")
			return common.ErrJackpotHalted
		}
	}
	return nil
}

// Halted сообщает, остановлен ли пул.
func (p *JackpotPool) Halted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.halted
}

// Reconcile — ручная сверка после остановки: приводит бухгалтерию
// в согласованное состояние и снимает блокировку. Вызывается оператором,
// никогда автоматически.
func (p *JackpotPool) Reconcile() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range p.order {
		tier := p.tiers[name]
		if tier.Current.LessThan(tier.Base) {
			tier.Current = tier.Base
		}
		tier.contributed = tier.Current.Sub(tier.Base)
		tier.paid = decimal.Zero
	}
	p.halted = false
	log.Warn("Пул джекпотов сверен вручную и запущен снова")
}

// Amounts возвращает текущие суммы пулов для game_data.
func (p *JackpotPool) Amounts() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]string, len(p.tiers))
	for name, tier := range p.tiers {
		out[name] = tier.Current.StringFixed(2)
	}
	return out
}

// Tier возвращает копию уровня (для тестов и отчётов).
func (p *JackpotPool) Tier(name string) (JackpotTier, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tier, ok := p.tiers[name]
	if !ok {
		return JackpotTier{}, false
	}
	return *tier, true
}
