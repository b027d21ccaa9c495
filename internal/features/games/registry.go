// Package games — registry.go содержит реестр игр.
// Реестр создаётся явно и передаётся зависимостям при сборке приложения —
// никакого глобального синглтона с скрытым мутабельным состоянием.
package games

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/casino-engine/internal/common"
)

// Идентификаторы зарегистрированных игр.
const (
	TypeSlots            = "slots"
	TypeAncientTreasures = "ancient_treasures"
	TypeCosmicFortune    = "cosmic_fortune"
	TypeDragonsHoard     = "dragons_hoard"
	TypeMysticForest     = "mystic_forest"
	TypePiratesBounty    = "pirates_bounty"
)

// Factory создаёт новый экземпляр движка для одного игрока.
// Общие для всех игроков ресурсы (RNG, пул джекпотов) фабрика
// захватывает замыканием при регистрации.
type Factory func() Engine

// Registry маршрутизирует запросы к играм: один экземпляр движка
// на пару (игрок, тип игры), создаётся лениво и живёт до Cleanup
// или завершения процесса.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	// instances[playerID][gameType] — движок конкретного игрока
	instances map[int64]map[string]Engine
}

// NewRegistry создаёт пустой реестр игр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[int64]map[string]Engine),
	}
}

// Register регистрирует фабрику игры. Повторная регистрация того же типа
// перезаписывает фабрику с предупреждением в логе.
func (r *Registry) Register(gameType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[gameType]; exists {
		log.Warnf("Игра %s уже зарегистрирована, фабрика перезаписана", gameType)
	}
	r.factories[gameType] = factory
	log.Infof("Зарегистрирована игра: %s", gameType)
}

// Engine возвращает движок игрока для типа игры, лениво создавая его.
func (r *Registry) Engine(gameType string, playerID int64) (Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[gameType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownGame, gameType)
	}

	byType, ok := r.instances[playerID]
	if !ok {
		byType = make(map[string]Engine)
		r.instances[playerID] = byType
	}

	engine, ok := byType[gameType]
	if !ok {
		engine = factory()
		byType[gameType] = engine
	}
	return engine, nil
}

// Play разыгрывает раунд игры для игрока.
// Ошибка движка логируется и возвращается наверх как есть —
// паники внутрь игры не допускаются по контракту Engine.
func (r *Registry) Play(ctx context.Context, gameType string, req Request) (*Result, error) {
	engine, err := r.Engine(gameType, req.PlayerID)
	if err != nil {
		return nil, err
	}

	result, err := engine.Play(ctx, req)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"game":   gameType,
			"player": req.PlayerID,
		}).Error("Ошибка раунда")
		return nil, err
	}

	log.WithFields(log.Fields{
		"game":   gameType,
		"player": req.PlayerID,
		"round":  result.RoundID,
		"bet":    result.Bet,
		"win":    result.Win,
	}).Info("Раунд сыгран")
	return result, nil
}

// Rules возвращает правила игры.
func (r *Registry) Rules(gameType string, playerID int64) (string, error) {
	engine, err := r.Engine(gameType, playerID)
	if err != nil {
		return "", err
	}
	return engine.Rules(), nil
}

// State возвращает снимок состояния игрока в игре.
func (r *Registry) State(gameType string, playerID int64) (map[string]any, error) {
	engine, err := r.Engine(gameType, playerID)
	if err != nil {
		return nil, err
	}
	return engine.State(playerID), nil
}

// AvailableGames возвращает тип → правила для всех зарегистрированных игр.
func (r *Registry) AvailableGames() map[string]string {
	r.mu.Lock()
	factories := make(map[string]Factory, len(r.factories))
	for t, f := range r.factories {
		factories[t] = f
	}
	r.mu.Unlock()

	games := make(map[string]string, len(factories))
	for gameType, factory := range factories {
		games[gameType] = factory().Rules()
	}
	return games
}

// Cleanup удаляет все экземпляры движков игрока.
// Используется при деактивации аккаунта.
func (r *Registry) Cleanup(playerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[playerID]; ok {
		delete(r.instances, playerID)
		log.Infof("Игровые сессии игрока %d очищены", playerID)
	}
}
