package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/casino-engine/internal/common"
	"serotonyl.ru/casino-engine/internal/config"
)

// memStore — хранилище в памяти для тестов сервиса.
// Повторяет семантику репозитория: журнал как источник истины,
// атомарное условное списание, терминальность статусов.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	journal []*Transaction

	// Подставная ошибка: все методы возвращают её, если задана
	failWith error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) balanceLocked(playerID int64, currency Currency) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range m.journal {
		if t.PlayerID == playerID && t.Currency == currency {
			sum = sum.Add(t.Signed())
		}
	}
	return sum
}

func (m *memStore) Append(_ context.Context, t *Transaction) (*Transaction, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.journal = append(m.journal, t)
	return t, nil
}

func (m *memStore) DebitBet(_ context.Context, t *Transaction) (*Transaction, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.balanceLocked(t.PlayerID, t.Currency)
	if balance.LessThan(t.Amount) {
		return nil, common.ErrInsufficientBalance
	}

	t.ID = m.nextID
	m.nextID++
	t.Type = TypeBet
	t.Status = StatusCompleted
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.journal = append(m.journal, t)
	return t, nil
}

func (m *memStore) Balance(_ context.Context, playerID int64, currency Currency) (decimal.Decimal, error) {
	if m.failWith != nil {
		return decimal.Zero, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(playerID, currency), nil
}

func (m *memStore) Transactions(_ context.Context, playerID int64, limit int) ([]*Transaction, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Transaction
	for i := len(m.journal) - 1; i >= 0 && len(out) < limit; i-- {
		if m.journal[i].PlayerID == playerID {
			out = append(out, m.journal[i])
		}
	}
	return out, nil
}

func (m *memStore) SetStatus(_ context.Context, txID int64, status Status) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.journal {
		if t.ID != txID {
			continue
		}
		if t.Status.Terminal() {
			return common.ErrTransactionFinal
		}
		// Подтверждение списания перепроверяет достаточность средств
		if status == StatusCompleted && !t.Type.Credit() &&
			m.balanceLocked(t.PlayerID, t.Currency).LessThan(t.Amount) {
			return common.ErrInsufficientBalance
		}
		t.Status = status
		t.UpdatedAt = time.Now().UTC()
		return nil
	}
	return common.ErrTransactionNotFound
}

func (m *memStore) ExpirePending(_ context.Context, olderThan time.Duration) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var n int64
	for _, t := range m.journal {
		if t.Status == StatusPending && t.CreatedAt.Before(cutoff) {
			t.Status = StatusFailed
			n++
		}
	}
	return n, nil
}

func (m *memStore) Reconcile(context.Context) error {
	return m.failWith
}

func testConfig() *config.Config {
	return &config.Config{
		WalletDefaultCurrency: "USDT",
		WalletPendingTimeout:  30 * time.Minute,
	}
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, testConfig()), store
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fund кладёт игроку подтверждённый депозит в обход валидации границ.
func fund(t *testing.T, store *memStore, playerID int64, currency Currency, amount string) {
	t.Helper()
	_, err := store.Append(context.Background(), &Transaction{
		PlayerID: playerID,
		Type:     TypeDeposit,
		Status:   StatusCompleted,
		Currency: currency,
		Amount:   amt(amount),
	})
	require.NoError(t, err)
}

func TestDepositLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tx, err := svc.Deposit(ctx, 1, USDT, amt("100"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)

	// Pending-депозит не виден в балансе
	balance, err := svc.Balance(ctx, 1, USDT)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	require.NoError(t, svc.Confirm(ctx, tx.ID))
	balance, err = svc.Balance(ctx, 1, USDT)
	require.NoError(t, err)
	assert.Equal(t, "100", balance.String())

	// Терминальный статус меняется ровно один раз
	err = svc.Confirm(ctx, tx.ID)
	assert.ErrorIs(t, err, common.ErrTransactionFinal)
	err = svc.Fail(ctx, tx.ID)
	assert.ErrorIs(t, err, common.ErrTransactionFinal)
}

func TestDepositValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Deposit(ctx, 1, USDT, amt("0"))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, 1, USDT, amt("-5"))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	// Ниже минимума валюты
	_, err = svc.Deposit(ctx, 1, BTC, amt("0.00001"))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	// Выше максимума
	_, err = svc.Deposit(ctx, 1, USDT, amt("200000"))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, 1, Currency("DOGE"), amt("100"))
	assert.ErrorIs(t, err, common.ErrInvalidCurrency)
}

func TestAmountRoundedToCurrencyPrecision(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// USDT — 6 знаков: лишние знаки отбрасываются при валидации
	tx, err := svc.Deposit(ctx, 1, USDT, amt("10.1234567891"))
	require.NoError(t, err)
	assert.Equal(t, "10.123457", tx.Amount.String())

	// BTC-пыль ниже минимального шага не проходит
	_, err = svc.Deposit(ctx, 1, BTC, amt("0.000000004"))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
	assert.Len(t, store.journal, 1)
}

func TestWithdrawRequiresFunds(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, 1, USDT, amt("50"))
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	fund(t, store, 1, USDT, "100")

	tx, err := svc.Withdraw(ctx, 1, USDT, amt("50"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)

	// До подтверждения средства остаются на балансе
	balance, _ := svc.Balance(ctx, 1, USDT)
	assert.Equal(t, "100", balance.String())

	require.NoError(t, svc.Confirm(ctx, tx.ID))
	balance, _ = svc.Balance(ctx, 1, USDT)
	assert.Equal(t, "50", balance.String())
}

func TestWithdrawConfirmRechecksFunds(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	fund(t, store, 1, USDT, "10")

	// Обе заявки проходят проверку на момент создания
	first, err := svc.Withdraw(ctx, 1, USDT, amt("10"))
	require.NoError(t, err)
	second, err := svc.Withdraw(ctx, 1, USDT, amt("10"))
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(ctx, first.ID))

	// Средства ушли с первым подтверждением: второе не уводит
	// баланс в минус, заявка остаётся pending
	err = svc.Confirm(ctx, second.ID)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	balance, err := svc.Balance(ctx, 1, USDT)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	// Неисполнимую заявку можно отклонить
	require.NoError(t, svc.Fail(ctx, second.ID))
}

func TestBetAndWinFlow(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	roundID := uuid.New()

	fund(t, store, 7, USDT, "100")

	_, err := svc.DebitBet(ctx, 7, USDT, amt("10"), "slots", roundID)
	require.NoError(t, err)

	balance, _ := svc.Balance(ctx, 7, USDT)
	assert.Equal(t, "90", balance.String())

	_, err = svc.CreditWin(ctx, 7, USDT, amt("25"), "slots", roundID)
	require.NoError(t, err)

	balance, _ = svc.Balance(ctx, 7, USDT)
	assert.Equal(t, "115", balance.String())

	// Валюты изолированы
	balance, _ = svc.Balance(ctx, 7, BTC)
	assert.True(t, balance.IsZero())
}

func TestConcurrentBetsNoDoubleSpend(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	fund(t, store, 1, USDT, "10")

	// Две конкурентные ставки по 10 при балансе 10:
	// пройти должна ровно одна
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DebitBet(ctx, 1, USDT, amt("10"), "slots", uuid.New())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	balance, _ := svc.Balance(ctx, 1, USDT)
	assert.True(t, balance.IsZero())
}

func TestExpirePending(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	tx, err := svc.Deposit(ctx, 1, USDT, amt("100"))
	require.NoError(t, err)

	// Старим депозит за порог
	store.journal[0].CreatedAt = time.Now().UTC().Add(-time.Hour)

	require.NoError(t, svc.ExpirePending(ctx))
	assert.Equal(t, StatusFailed, store.journal[0].Status)

	// Истёкший депозит нельзя подтвердить
	err = svc.Confirm(ctx, tx.ID)
	assert.ErrorIs(t, err, common.ErrTransactionFinal)
}

func TestStoreErrorsPropagate(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	boom := errors.New("соединение потеряно")
	store.failWith = boom

	// Сбой хранилища — ошибка, а не тихий ноль
	_, err := svc.Balance(ctx, 1, USDT)
	assert.ErrorIs(t, err, boom)

	_, err = svc.History(ctx, 1, 10)
	assert.ErrorIs(t, err, boom)

	_, err = svc.DebitBet(ctx, 1, USDT, amt("10"), "slots", uuid.New())
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, svc.Reconcile(ctx), boom)
}

func TestSignedContributions(t *testing.T) {
	roundID := uuid.New()
	cases := []struct {
		tx   Transaction
		want string
	}{
		{Transaction{Type: TypeDeposit, Status: StatusCompleted, Amount: amt("10")}, "10"},
		{Transaction{Type: TypeWin, Status: StatusCompleted, Amount: amt("5")}, "5"},
		{Transaction{Type: TypeBonus, Status: StatusCompleted, Amount: amt("1")}, "1"},
		{Transaction{Type: TypeBet, Status: StatusCompleted, Amount: amt("3")}, "-3"},
		{Transaction{Type: TypeWithdraw, Status: StatusCompleted, Amount: amt("2")}, "-2"},
		{Transaction{Type: TypeDeposit, Status: StatusPending, Amount: amt("10")}, "0"},
		{Transaction{Type: TypeWithdraw, Status: StatusFailed, Amount: amt("10"), RoundID: &roundID}, "0"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.tx.Signed().String(), "%s/%s", c.tx.Type, c.tx.Status)
	}
}

func TestDefaultCurrency(t *testing.T) {
	svc, _ := newTestService()
	assert.Equal(t, USDT, svc.DefaultCurrency())

	bad := NewService(newMemStore(), &config.Config{WalletDefaultCurrency: "DOGE"})
	assert.Equal(t, USDT, bad.DefaultCurrency())
}
