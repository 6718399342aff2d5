// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: страховочная развязка просроченных
// розыгрышей и очистка истёкших админ-сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/common"
	"github.com/heavenly-temple/pounds-bot/internal/features/admin"
	"github.com/heavenly-temple/pounds-bot/internal/features/giveaway"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron            *cron.Cron
	giveawayService *giveaway.Service
	giveawayHandler *giveaway.Handler
	adminService    *admin.Service
}

// NewScheduler создаёт планировщик задач. Всё расписание в UTC:
// ежедневная награда и дедлайны розыгрышей тоже привязаны к UTC.
func NewScheduler(giveawayService *giveaway.Service, giveawayHandler *giveaway.Handler, adminService *admin.Service) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		giveawayService: giveawayService,
		giveawayHandler: giveawayHandler,
		adminService:    adminService,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Страховка таймеров: каждую минуту разыгрываем просроченные розыгрыши.
	// Обычно здесь пусто — таймеры успевают первыми; сама развязка
	// одноразовая, поэтому дубль безопасен.
	s.cron.AddFunc("* * * * *", func() {
		open, err := s.giveawayService.ListOpen(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка чтения открытых розыгрышей")
			return
		}
		now := time.Now().UTC()
		for _, g := range open {
			if now.Before(g.EndsAt) {
				continue
			}
			log.WithField("giveaway_id", g.ID).Info("[CRON] Разыгрываем просроченный розыгрыш")
			res, err := s.giveawayService.Resolve(ctx, g.ID)
			if err != nil {
				if err != common.ErrGiveawayNotFound {
					log.WithError(err).WithField("giveaway_id", g.ID).Error("[CRON] Ошибка развязки")
				}
				continue
			}
			s.giveawayHandler.AnnounceResult(res)
		}
	})

	// Очистка истёкших админ-сессий каждый час
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Очистка админ-сессий")
		if err := s.adminService.CleanupSessions(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка очистки сессий")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (UTC)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
