package games

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/casino-engine/internal/common"
	"serotonyl.ru/casino-engine/internal/rng"
)

func bet(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPickWeightedRespectsWeights(t *testing.T) {
	symbols := []Symbol{
		{Glyph: "A", Name: "A", Weight: 2},
		{Glyph: "B", Name: "B", Weight: 3},
		{Glyph: "C", Name: "C", Weight: 1},
	}

	// Кумулятивные диапазоны: A 1-2, B 3-5, C 6
	cases := map[int]string{1: "A", 2: "A", 3: "B", 5: "B", 6: "C"}
	for roll, want := range cases {
		s := &rng.Script{Ints: []int{roll}}
		assert.Equal(t, want, PickWeighted(s, symbols).Glyph, "бросок %d", roll)
	}
}

func TestPickWeightedPanicsOnBadWeight(t *testing.T) {
	s := &rng.Script{}
	assert.Panics(t, func() {
		PickWeighted(s, []Symbol{{Glyph: "A", Name: "A", Weight: 0}})
	})
	assert.Panics(t, func() {
		PickWeighted(s, nil)
	})
}

func TestCheckPaylines(t *testing.T) {
	sym := func(g string) Symbol { return Symbol{Glyph: g, Name: g, Weight: 1} }
	grid := Grid{
		{sym("🍒"), sym("🍒"), sym("🍒"), sym("🍒"), sym("🍒")},
		{sym("🍋"), sym("🍊"), sym("🍇"), sym("🍒"), sym("🍋")},
		{sym("🍇"), sym("🍇"), sym("🍇"), sym("🍇"), sym("🍊")},
	}

	wins := CheckPaylines(grid, DefaultPaylines())
	require.Len(t, wins, 1)
	assert.Equal(t, "Верхний ряд", wins[0].Pattern.Name)
	assert.Len(t, wins[0].Symbols, 5)

	// Проверка чистоты: повторный вызов даёт тот же результат
	again := CheckPaylines(grid, DefaultPaylines())
	assert.Equal(t, wins, again)
}

func TestCheckWinShrunkGrid(t *testing.T) {
	// Линия для третьей строки не выигрывает на сетке из двух строк
	sym := func(g string) Symbol { return Symbol{Glyph: g, Name: g, Weight: 1} }
	grid := Grid{
		{sym("A"), sym("A"), sym("A"), sym("A"), sym("A")},
		{sym("A"), sym("A"), sym("A"), sym("A"), sym("A")},
	}
	bottom := PaylinePattern{Name: "Нижний ряд", Positions: rowLine(2, 5), Multiplier: 1}
	ok, _ := bottom.CheckWin(grid)
	assert.False(t, ok)
}

func TestBaseSlotsDiamondTriple(t *testing.T) {
	// Шесть символов веса 1; бросок 5 — это 💎 (пятый по порядку)
	g := NewBaseSlots(&rng.Script{Ints: []int{5, 5, 5}})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("1.00")})
	require.NoError(t, err)
	assert.Equal(t, "15.00", res.Win.StringFixed(2))
	assert.Contains(t, res.Outcome, "15x")
	assert.True(t, res.IsWin())
	assert.Equal(t, []string{"💎", "💎", "💎"}, res.GameData["symbols"])
}

func TestBaseSlotsNoPartialPayout(t *testing.T) {
	// Два совпадения из трёх не оплачиваются
	g := NewBaseSlots(&rng.Script{Ints: []int{5, 5, 1}})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	require.NoError(t, err)
	assert.True(t, res.Win.IsZero())
	assert.False(t, res.IsWin())
}

func TestBaseSlotsBetValidation(t *testing.T) {
	g := NewBaseSlots(&rng.Script{})

	_, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("0.50")})
	assert.ErrorIs(t, err, common.ErrInvalidBet)

	_, err = g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("100.01")})
	assert.ErrorIs(t, err, common.ErrInvalidBet)
}

func TestAncientTreasuresFullGridWin(t *testing.T) {
	// Исчерпанный скрипт даёт нижнюю границу: каждая ячейка — первый
	// символ (☥). Оба бонусных броска подавлены значениями 0.99.
	g := NewAncientTreasures(&rng.Script{Floats: []float64{0.99, 0.99}})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("1.00")})
	require.NoError(t, err)

	// Три ряда по 50, две диагонали по 10, зигзаг 150
	assert.Equal(t, "320.00", res.Win.StringFixed(2))
	assert.Equal(t, "1.00", res.Bet.StringFixed(2))
}

func TestAncientTreasuresFreeSpins(t *testing.T) {
	// Первый спин: множитель не сработал (0.99), бесплатные спины
	// сработали (0.01), количество — нижняя граница (3).
	// Второй спин: оба бонуса подавлены; ставка не списывается.
	g := NewAncientTreasures(&rng.Script{Floats: []float64{0.99, 0.01, 0.99, 0.99}})

	first, err := g.Play(context.Background(), Request{PlayerID: 7, Bet: bet("2.00")})
	require.NoError(t, err)
	assert.Equal(t, "2.00", first.Bet.StringFixed(2))
	assert.Equal(t, 3, first.GameData["free_spins_remaining"])

	second, err := g.Play(context.Background(), Request{PlayerID: 7, Bet: bet("2.00")})
	require.NoError(t, err)
	assert.True(t, second.Bet.IsZero(), "бесплатный спин не списывает ставку")
	assert.Contains(t, second.Outcome, "Бесплатный спин")
	assert.Equal(t, 2, second.GameData["free_spins_remaining"])
	// Выигрыш считается от номинала ставки, а не от нуля
	assert.Equal(t, "640.00", second.Win.StringFixed(2))
}

func TestAncientTreasuresFreshStateNoDraws(t *testing.T) {
	// Инициализация состояния не трогает RNG
	s := &rng.Script{Ints: []int{1, 2, 3}}
	g := NewAncientTreasures(s)

	st := g.State(42)
	assert.Equal(t, 0, st["free_spins"])
	assert.Equal(t, int64(1), st["multiplier"])

	// Все три значения скрипта остались нетронутыми
	assert.Equal(t, 1, s.Int(1, 10))
	assert.Equal(t, 2, s.Int(1, 10))
	assert.Equal(t, 3, s.Int(1, 10))
}

func TestCosmicFortuneCascadeLimit(t *testing.T) {
	// Исчерпанный скрипт: вся сетка и все дозаполнения — первый символ,
	// каждый каскад выигрывает. Цикл обязан остановиться на пятом.
	g := NewCosmicFortune(&rng.Script{})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("1.00")})
	require.NoError(t, err)
	assert.True(t, res.IsWin())
	assert.Contains(t, res.Outcome, "Каскад 5")
	assert.NotContains(t, res.Outcome, "Каскад 6")
}

func TestCosmicFortuneGridGrowth(t *testing.T) {
	g := NewCosmicFortune(&rng.Script{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := g.Play(ctx, Request{PlayerID: 1, Bet: bet("1.00")})
		require.NoError(t, err)
		assert.Equal(t, 3, res.GameData["grid_size"])
	}

	// Третий выигрыш подряд расширяет сетку
	res, err := g.Play(ctx, Request{PlayerID: 1, Bet: bet("1.00")})
	require.NoError(t, err)
	assert.Equal(t, 4, res.GameData["grid_size"])
	assert.Contains(t, res.Outcome, "расширена до 4")

	// Следующий спин играется уже на сетке 4x5
	res, err = g.Play(ctx, Request{PlayerID: 1, Bet: bet("1.00")})
	require.NoError(t, err)
	grid := res.GameData["grid"].([][]string)
	assert.Len(t, grid, 4)
}

func TestApplyGravity(t *testing.T) {
	sym := func(g string) Symbol { return Symbol{Glyph: g, Name: g, Weight: 1} }
	grid := Grid{
		{sym("A"), {}, sym("C")},
		{{}, {}, sym("D")},
		{sym("B"), {}, {}},
	}

	out := applyGravity(grid)
	assert.Equal(t, [][]string{
		{"", "", ""},
		{"A", "", "C"},
		{"B", "", "D"},
	}, out.Snapshot())
}

func TestJackpotConservation(t *testing.T) {
	p := NewJackpotPool()

	require.NoError(t, p.Contribute(bet("10.00")))
	require.NoError(t, p.Contribute(bet("10.00")))

	mini, ok := p.Tier(JackpotMini)
	require.True(t, ok)
	assert.Equal(t, "50.20", mini.Current.StringFixed(2))

	amount, err := p.Award(JackpotMini)
	require.NoError(t, err)
	assert.Equal(t, "50.20", amount.StringFixed(2))

	// После выдачи пул вернулся к базе, инвариант не нарушен
	mini, _ = p.Tier(JackpotMini)
	assert.Equal(t, "50.00", mini.Current.StringFixed(2))
	assert.False(t, p.Halted())

	// Остальные уровни не задеты
	grand, _ := p.Tier(JackpotGrand)
	assert.Equal(t, "5000.80", grand.Current.StringFixed(2))
}

func TestJackpotHaltAndReconcile(t *testing.T) {
	p := NewJackpotPool()
	require.NoError(t, p.Contribute(bet("10.00")))

	// Порча бухгалтерии: дальнейшая игра должна остановиться
	p.tiers[JackpotMinor].Current = bet("1.00")

	err := p.Contribute(bet("10.00"))
	assert.ErrorIs(t, err, common.ErrJackpotHalted)
	assert.True(t, p.Halted())

	_, err = p.Award(JackpotMini)
	assert.ErrorIs(t, err, common.ErrJackpotHalted)

	// Только ручная сверка снимает блокировку
	p.Reconcile()
	assert.False(t, p.Halted())
	assert.NoError(t, p.Contribute(bet("10.00")))
}

func TestDragonsHoardCollectionAwardsJackpot(t *testing.T) {
	// Исчерпанный скрипт: вся сетка — драконы (первый символ).
	// 15 драконов закрывают коллекцию из 5 и выдают Mini.
	pool := NewJackpotPool()
	g := NewDragonsHoard(&rng.Script{}, pool)

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	require.NoError(t, err)

	// Линии: 3 ряда по 400, две диагонали по 100, зигзаг 1200 = 2600;
	// плюс Mini 50.00 + 1% от ставки
	assert.Equal(t, "2650.10", res.Win.StringFixed(2))
	assert.Contains(t, res.Outcome, "ДЖЕКПОТ")

	collections := res.GameData["collections"].(map[string]int)
	assert.Equal(t, 0, collections["🐉"], "коллекция сброшена после выдачи")

	mini, _ := pool.Tier(JackpotMini)
	assert.Equal(t, "50.00", mini.Current.StringFixed(2))
}

func TestDragonsHoardCollectionsAccumulate(t *testing.T) {
	// Тигры: вес 4, кумулятивный диапазон 6-9. Сетка из тигров
	// не закрывает коллекцию из 3 за один раз? Закрывает (15 > 3) —
	// поэтому кормим сетку без тигров и проверяем, что счётчики
	// переживают спины.
	pool := NewJackpotPool()
	rolls := make([]int, 15)
	for i := range rolls {
		rolls[i] = 4 // 🦅 Феникс, диапазон 3-5
	}
	g := NewDragonsHoard(&rng.Script{Ints: rolls, Floats: []float64{
		0.99, 0.99, 0.99, 0.99, 0.99, 0.99, 0.99, 0.99,
		0.99, 0.99, 0.99, 0.99, 0.99, 0.99, 0.99,
	}}, pool)

	// 15 фениксов сразу закрывают Minor; 🐉/🐯/🔮 остаются на нуле
	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("1.00")})
	require.NoError(t, err)
	collections := res.GameData["collections"].(map[string]int)
	assert.Equal(t, 0, collections["🦅"])
	assert.Equal(t, 0, collections["🐉"])
	assert.Equal(t, 0, collections["🐯"])
}

func TestDragonsHoardStickyWilds(t *testing.T) {
	// Жемчужина: кумулятивный диапазон 22. Вся сетка из вайлдов,
	// исчерпанные флоаты (0.0) заставляют каждый прилипнуть
	// с минимальной длительностью (2 спина).
	pool := NewJackpotPool()
	rolls := make([]int, 15)
	for i := range rolls {
		rolls[i] = 22
	}
	g := NewDragonsHoard(&rng.Script{Ints: rolls}, pool)

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	require.NoError(t, err)
	assert.Equal(t, 15, res.GameData["sticky_wilds"])

	// 15 жемчужин закрыли коллекцию Grand
	collections := res.GameData["collections"].(map[string]int)
	assert.Equal(t, 0, collections["🔮"])
	grand, _ := pool.Tier(JackpotGrand)
	assert.Equal(t, "5000.00", grand.Current.StringFixed(2))
}

func TestDragonsHoardHaltedPoolRefusesPlay(t *testing.T) {
	pool := NewJackpotPool()
	pool.tiers[JackpotMini].Current = bet("1.00")
	require.Error(t, pool.Contribute(bet("1.00")))

	g := NewDragonsHoard(&rng.Script{}, pool)
	_, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	assert.ErrorIs(t, err, common.ErrJackpotHalted)
}

func TestMysticForestTransforms(t *testing.T) {
	// Лист: кумулятивный диапазон 10-14. Сетка из листьев,
	// каждый превращается в цветок (флоаты 0.01 < 0.2),
	// бонусы подавлены.
	rolls := make([]int, 15)
	floats := make([]float64, 0, 17)
	for i := range rolls {
		rolls[i] = 10
		floats = append(floats, 0.01)
	}
	floats = append(floats, 0.99, 0.99)
	g := NewMysticForest(&rng.Script{Ints: rolls, Floats: floats})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	require.NoError(t, err)

	// Превращения без цепочек: лист стал цветком, но цветок
	// в этом же спине деревом не становится
	grid := res.GameData["grid"].([][]string)
	for _, row := range grid {
		for _, glyph := range row {
			assert.Equal(t, "🌸", glyph)
		}
	}
	assert.Equal(t, int64(15), res.GameData["transformations"])

	// Сетка из цветков выигрывает: 3 ряда по 250, диагонали по 80, зигзаг 750
	assert.Equal(t, "1660.00", res.Win.StringFixed(2))
}

func TestMysticForestGrowingWilds(t *testing.T) {
	// Кристалл: кумулятивный диапазон 22. Все 15 кристаллов пускают
	// корни (спавн 0.01 < 0.3), бонусы подавлены, отмирание
	// пережито (0.9 > 0.25).
	rolls := make([]int, 15)
	var floats []float64
	for i := range rolls {
		rolls[i] = 22
		floats = append(floats, 0.01)
	}
	floats = append(floats, 0.99, 0.99)
	for i := 0; i < 15; i++ {
		floats = append(floats, 0.9)
	}
	g := NewMysticForest(&rng.Script{Ints: rolls, Floats: floats})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	require.NoError(t, err)
	assert.Equal(t, 15, res.GameData["growing_wilds"])
	assert.True(t, res.IsWin(), "линии из вайлдов выигрывают")
}

func TestMysticForestWildDieOff(t *testing.T) {
	// Те же корни, но исчерпанные флоаты на отмирании (0.0 < 0.25):
	// после оценки все вайлды погибают
	rolls := make([]int, 15)
	var floats []float64
	for i := range rolls {
		rolls[i] = 22
		floats = append(floats, 0.01)
	}
	floats = append(floats, 0.99, 0.99)
	g := NewMysticForest(&rng.Script{Ints: rolls, Floats: floats})

	res, err := g.Play(context.Background(), Request{PlayerID: 1, Bet: bet("10.00")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.GameData["growing_wilds"])
}

func TestPiratesBountyStormAndExploration(t *testing.T) {
	// Исчерпанный скрипт: карта с сокровищем 5 в каждой клетке,
	// шторм активируется сразу (0.0 < 0.15) с множителем x1 и
	// длительностью 3, сетка из Весёлых Роджеров, бонус x2.
	g := NewPiratesBounty(&rng.Script{})

	res, err := g.Play(context.Background(), Request{
		PlayerID: 1,
		Bet:      bet("10.00"),
		Moves:    []string{"S", "E", "N"},
	})
	require.NoError(t, err)

	// Линии 2000, бонус x2, плюс три сокровища по 5
	assert.Equal(t, "4015.00", res.Win.StringFixed(2))

	// Шторм утих на один спин, включая спин активации
	assert.Equal(t, 2, res.GameData["storm_spins"])

	// Стартовая клетка плюс три открытых; запас ходов исчерпан
	assert.Equal(t, 4, res.GameData["map_discovered"])
	assert.Equal(t, 0, res.GameData["moves_remaining"])

	quests := res.GameData["quests"].(map[string]map[string]any)
	assert.Equal(t, 3, quests["explorer"]["progress"])
	assert.Equal(t, 1, quests["warrior"]["progress"])
	assert.Equal(t, 1, quests["captain"]["progress"])
	assert.Equal(t, 0, quests["collector"]["progress"])
}

func TestPiratesBountyMoveBudget(t *testing.T) {
	g := NewPiratesBounty(&rng.Script{})
	ctx := context.Background()

	// Ходы сверх запаса игнорируются
	res, err := g.Play(ctx, Request{
		PlayerID: 1,
		Bet:      bet("10.00"),
		Moves:    []string{"S", "S", "S", "S", "S"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, res.GameData["map_position"])
	assert.Equal(t, 0, res.GameData["moves_remaining"])

	// Запас живёт между спинами и сам собой не восстанавливается:
	// без ходов следующие спины карту не двигают
	res, err = g.Play(ctx, Request{
		PlayerID: 1,
		Bet:      bet("10.00"),
		Moves:    []string{"E", "E", "E"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, res.GameData["map_position"])
	assert.Equal(t, 0, res.GameData["moves_remaining"])
	assert.Equal(t, 4, res.GameData["map_discovered"])
}

func TestPiratesBountyOutOfBoundsMove(t *testing.T) {
	g := NewPiratesBounty(&rng.Script{})

	// Ход за границу не двигает позицию и запас не тратит
	res, err := g.Play(context.Background(), Request{
		PlayerID: 1,
		Bet:      bet("10.00"),
		Moves:    []string{"N", "W", "S"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, res.GameData["map_position"])
	assert.Equal(t, 2, res.GameData["map_discovered"])
	assert.Equal(t, 2, res.GameData["moves_remaining"])
}

func TestPiratesBountyMovesReplenishOnFullDiscovery(t *testing.T) {
	g := NewPiratesBounty(&rng.Script{})

	// Карта открыта вся, кроме (4,4); остался один ход
	st := g.state(1)
	for row := 0; row < piratesMapSize; row++ {
		for col := 0; col < piratesMapSize; col++ {
			st.treasureMap.discovered[Cell{Row: row, Col: col}] = true
		}
	}
	delete(st.treasureMap.discovered, Cell{Row: 4, Col: 4})
	st.treasureMap.pos = Cell{Row: 3, Col: 4}
	st.movesRemaining = 1

	// Последний ход открывает карту: новая раскладка и свежий запас,
	// но оставшиеся ходы этого спина уже не выполняются
	res, err := g.Play(context.Background(), Request{
		PlayerID: 1,
		Bet:      bet("10.00"),
		Moves:    []string{"S", "S", "S"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.GameData["moves_remaining"])
	assert.Equal(t, 1, res.GameData["map_discovered"])
	assert.Equal(t, []int{0, 0}, res.GameData["map_position"])
	assert.Contains(t, res.Outcome, "Карта открыта полностью")
}

func TestRegistryUnknownGame(t *testing.T) {
	r := NewRegistry()
	_, err := r.Engine("roulette", 1)
	assert.ErrorIs(t, err, common.ErrUnknownGame)

	_, err = r.Play(context.Background(), "roulette", Request{PlayerID: 1, Bet: bet("1.00")})
	assert.ErrorIs(t, err, common.ErrUnknownGame)
}

func TestRegistryPerPlayerInstances(t *testing.T) {
	r := NewRegistry()
	r.Register(TypeSlots, func() Engine { return NewBaseSlots(&rng.Script{}) })

	e1, err := r.Engine(TypeSlots, 1)
	require.NoError(t, err)
	e1again, err := r.Engine(TypeSlots, 1)
	require.NoError(t, err)
	e2, err := r.Engine(TypeSlots, 2)
	require.NoError(t, err)

	assert.Same(t, e1, e1again, "повторный запрос возвращает тот же экземпляр")
	assert.NotSame(t, e1, e2, "у каждого игрока свой экземпляр")
}

func TestRegistryCleanup(t *testing.T) {
	r := NewRegistry()
	r.Register(TypeSlots, func() Engine { return NewBaseSlots(&rng.Script{}) })

	e1, err := r.Engine(TypeSlots, 1)
	require.NoError(t, err)

	r.Cleanup(1)

	e2, err := r.Engine(TypeSlots, 1)
	require.NoError(t, err)
	assert.NotSame(t, e1, e2, "после очистки создаётся новый экземпляр")
}

func TestRegistryAvailableGames(t *testing.T) {
	r := NewRegistry()
	pool := NewJackpotPool()
	r.Register(TypeSlots, func() Engine { return NewBaseSlots(&rng.Script{}) })
	r.Register(TypeDragonsHoard, func() Engine { return NewDragonsHoard(&rng.Script{}, pool) })

	games := r.AvailableGames()
	require.Len(t, games, 2)
	assert.Contains(t, games[TypeSlots], "Базовые слоты")
	assert.Contains(t, games[TypeDragonsHoard], "Dragon's Hoard")
}
