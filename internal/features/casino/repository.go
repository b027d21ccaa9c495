// Package casino — repository.go выполняет операции с таблицами
// casino_rounds и casino_stats.
package casino

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository работает с таблицами казино в БД.
type Repository struct {
	db *pgxpool.Pool
}

// Компилятор проверяет соответствие контракту сервиса.
var _ RoundStore = (*Repository)(nil)

// NewRepository создаёт репозиторий казино.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveRound сохраняет результат раунда в таблицу casino_rounds.
func (r *Repository) SaveRound(ctx context.Context, round *Round) error {
	query := `
		INSERT INTO casino_rounds
			(round_id, player_id, game_type, currency, bet, win, outcome, game_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		round.RoundID, round.PlayerID, round.GameType, round.Currency,
		round.Bet, round.Win, round.Outcome, round.GameData,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения раунда: %w", err)
	}
	return nil
}

// UpdateStats обновляет накопительную статистику после раунда.
// Один запрос: раунды, ставки, выигрыши и рекорд.
func (r *Repository) UpdateStats(ctx context.Context, playerID int64, bet, win decimal.Decimal) error {
	query := `
		INSERT INTO casino_stats (player_id, total_rounds, total_wagered, total_won, biggest_win)
		VALUES ($1, 1, $2, $3, $3)
		ON CONFLICT (player_id) DO UPDATE SET
			total_rounds = casino_stats.total_rounds + 1,
			total_wagered = casino_stats.total_wagered + $2,
			total_won = casino_stats.total_won + $3,
			biggest_win = GREATEST(casino_stats.biggest_win, $3),
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, playerID, bet, win)
	if err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}
	return nil
}

// Stats возвращает статистику казино игрока.
func (r *Repository) Stats(ctx context.Context, playerID int64) (*Stats, error) {
	query := `
		SELECT id, player_id, total_rounds, total_wagered, total_won, biggest_win,
			created_at, updated_at
		FROM casino_stats
		WHERE player_id = $1
	`
	var s Stats
	err := r.db.QueryRow(ctx, query, playerID).Scan(
		&s.ID, &s.PlayerID, &s.TotalRounds, &s.TotalWagered,
		&s.TotalWon, &s.BiggestWin, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("статистика не найдена: %w", err)
	}
	return &s, nil
}

// RecentRounds возвращает последние раунды игрока, новые первыми.
func (r *Repository) RecentRounds(ctx context.Context, playerID int64, limit int) ([]*Round, error) {
	query := `
		SELECT id, round_id, player_id, game_type, currency, bet, win,
			outcome, game_data, created_at
		FROM casino_rounds
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения раундов: %w", err)
	}
	defer rows.Close()

	var rounds []*Round
	for rows.Next() {
		var round Round
		err := rows.Scan(
			&round.ID, &round.RoundID, &round.PlayerID, &round.GameType,
			&round.Currency, &round.Bet, &round.Win, &round.Outcome,
			&round.GameData, &round.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования раунда: %w", err)
		}
		rounds = append(rounds, &round)
	}
	return rounds, rows.Err()
}
