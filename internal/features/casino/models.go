// Package casino координирует игровой раунд от начала до конца:
// проверка ставки, списание, розыгрыш, зачисление выигрыша и запись
// истории. models.go описывает структуры данных казино.
package casino

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/casino-engine/internal/features/wallet"
)

// Round — запись одного раунда в БД.
type Round struct {
	ID       int64
	RoundID  uuid.UUID
	PlayerID int64
	GameType string
	Currency wallet.Currency
	// Bet — списанная ставка: 0 на бесплатном спине
	Bet      decimal.Decimal
	Win      decimal.Decimal
	Outcome  string
	GameData json.RawMessage

	CreatedAt time.Time
}

// Stats — накопительная статистика игрока по казино.
type Stats struct {
	ID           int64
	PlayerID     int64
	TotalRounds  int64
	TotalWagered decimal.Decimal
	TotalWon     decimal.Decimal
	BiggestWin   decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MarshalGameData сериализует данные раунда для колонки JSONB.
// Данные движков состоят из строк, чисел и срезов — ошибок
// сериализации не бывает, но на всякий случай пишем пустой объект.
func MarshalGameData(data map[string]any) json.RawMessage {
	raw, err := json.Marshal(data)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
