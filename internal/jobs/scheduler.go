// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание кошелька: истечение брошенных
// pending-транзакций и ночная сверка кэша балансов с журналом.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/casino-engine/internal/config"
	"serotonyl.ru/casino-engine/internal/features/wallet"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	walletService *wallet.Service
	cfg           *config.Config
}

// NewScheduler создаёт планировщик задач в часовом поясе приложения.
func NewScheduler(walletService *wallet.Service, cfg *config.Config) *Scheduler {
	loc, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC+3", cfg.AppTimezone)
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		walletService: walletService,
		cfg:           cfg,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Истечение брошенных депозитов и выводов
	s.cron.AddFunc(s.cfg.JobsExpirePendingSpec, func() {
		log.Debug("[CRON] Истечение pending-транзакций")
		if err := s.walletService.ExpirePending(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка истечения транзакций")
		}
	})

	// Ночная сверка кэша балансов с журналом
	s.cron.AddFunc(s.cfg.JobsReconcileSpec, func() {
		log.Info("[CRON] Сверка балансов кошелька")
		if err := s.walletService.Reconcile(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки")
		}
	})

	s.cron.Start()
	log.Infof("Планировщик задач запущен (%s)", s.cfg.AppTimezone)
}

// Stop останавливает планировщик, дожидаясь активных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
