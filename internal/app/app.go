// Package app инициализирует все компоненты движка.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы,
// реестр игр и собирает всё в один объект App. Никаких глобальных
// синглтонов: все зависимости передаются явно.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/casino-engine/internal/config"
	"serotonyl.ru/casino-engine/internal/db/postgres"
	"serotonyl.ru/casino-engine/internal/features/casino"
	"serotonyl.ru/casino-engine/internal/features/games"
	"serotonyl.ru/casino-engine/internal/features/wallet"
	"serotonyl.ru/casino-engine/internal/jobs"
	"serotonyl.ru/casino-engine/internal/rng"
)

// App содержит все компоненты движка.
type App struct {
	Casino    *casino.Service
	Wallet    *wallet.Service
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Репозитории ===
	walletRepo := wallet.NewRepository(pool)
	casinoRepo := casino.NewRepository(pool)

	// === 3. Сервисы ===
	walletService := wallet.NewService(walletRepo, cfg)

	// === 4. Игры ===
	// RNG и пул джекпотов общие для всех игроков; состояние игрока
	// живёт в экземплярах движков, которые реестр создаёт лениво
	source := rng.New()
	jackpots := games.NewJackpotPool()

	registry := games.NewRegistry()
	registry.Register(games.TypeSlots, func() games.Engine {
		return games.NewBaseSlots(source)
	})
	registry.Register(games.TypeAncientTreasures, func() games.Engine {
		return games.NewAncientTreasures(source)
	})
	registry.Register(games.TypeCosmicFortune, func() games.Engine {
		return games.NewCosmicFortune(source)
	})
	registry.Register(games.TypeDragonsHoard, func() games.Engine {
		return games.NewDragonsHoard(source, jackpots)
	})
	registry.Register(games.TypeMysticForest, func() games.Engine {
		return games.NewMysticForest(source)
	})
	registry.Register(games.TypePiratesBounty, func() games.Engine {
		return games.NewPiratesBounty(source)
	})

	casinoService := casino.NewService(registry, walletService, casinoRepo, cfg)

	// === 5. Планировщик задач ===
	scheduler := jobs.NewScheduler(walletService, cfg)

	log.Infof("Движок инициализирован: %d игр, валюта по умолчанию %s",
		len(registry.AvailableGames()), walletService.DefaultCurrency())

	return &App{
		Casino:    casinoService,
		Wallet:    walletService,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Wallet},
		{2, migration002Casino},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Wallet = `
CREATE TABLE IF NOT EXISTS wallet_transactions (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL,
    tx_type VARCHAR(20) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    currency VARCHAR(10) NOT NULL,
    amount NUMERIC(36, 18) NOT NULL CHECK (amount > 0),
    game_type VARCHAR(50),
    round_id UUID,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wallet_tx_player ON wallet_transactions(player_id, currency);
CREATE INDEX IF NOT EXISTS idx_wallet_tx_status ON wallet_transactions(status) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_wallet_tx_round ON wallet_transactions(round_id);
CREATE INDEX IF NOT EXISTS idx_wallet_tx_created_at ON wallet_transactions(created_at DESC);

CREATE TABLE IF NOT EXISTS wallet_balances (
    player_id BIGINT NOT NULL,
    currency VARCHAR(10) NOT NULL,
    balance NUMERIC(36, 18) NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT NOW(),
    PRIMARY KEY (player_id, currency)
);
`

var migration002Casino = `
CREATE TABLE IF NOT EXISTS casino_rounds (
    id BIGSERIAL PRIMARY KEY,
    round_id UUID UNIQUE NOT NULL,
    player_id BIGINT NOT NULL,
    game_type VARCHAR(50) NOT NULL,
    currency VARCHAR(10) NOT NULL,
    bet NUMERIC(36, 18) NOT NULL,
    win NUMERIC(36, 18) NOT NULL,
    outcome TEXT,
    game_data JSONB,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_casino_rounds_player ON casino_rounds(player_id);
CREATE INDEX IF NOT EXISTS idx_casino_rounds_created_at ON casino_rounds(created_at DESC);

CREATE TABLE IF NOT EXISTS casino_stats (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT UNIQUE NOT NULL,
    total_rounds BIGINT DEFAULT 0,
    total_wagered NUMERIC(36, 18) DEFAULT 0,
    total_won NUMERIC(36, 18) DEFAULT 0,
    biggest_win NUMERIC(36, 18) DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
`
